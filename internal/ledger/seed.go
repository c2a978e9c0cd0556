package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/leomorozovskii/erc721-rent/internal/config"
	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

// Seed deploys the configured fixtures into l.
func Seed(l *Ledger, cfg config.LedgerConfig) error {
	for _, fx := range cfg.Tokens {
		if err := seedToken(l, fx); err != nil {
			return fmt.Errorf("seeding token %q: %w", fx.Ref, err)
		}
	}
	for _, fx := range cfg.Collections {
		if err := seedCollection(l, fx); err != nil {
			return fmt.Errorf("seeding collection %q: %w", fx.Ref, err)
		}
	}
	return nil
}

func seedToken(l *Ledger, fx config.TokenFixture) error {
	token, err := l.DeployToken(rent.Address(fx.Ref))
	if err != nil {
		return err
	}
	for holder, raw := range fx.Balances {
		amount, err := parseAmount(raw)
		if err != nil {
			return fmt.Errorf("balance of %q: %w", holder, err)
		}
		if err := token.Mint(rent.Address(holder), amount); err != nil {
			return fmt.Errorf("balance of %q: %w", holder, err)
		}
	}
	for _, a := range fx.Allowances {
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return fmt.Errorf("allowance of %q for %q: %w", a.Owner, a.Spender, err)
		}
		if err := token.Approve(rent.Address(a.Owner), rent.Address(a.Spender), amount); err != nil {
			return fmt.Errorf("allowance of %q for %q: %w", a.Owner, a.Spender, err)
		}
	}
	return nil
}

func seedCollection(l *Ledger, fx config.CollectionFixture) error {
	ref := rent.Address(fx.Ref)
	var (
		collection *Collection
		composable *Composable
		err        error
	)
	if fx.Composable {
		composable, err = l.DeployComposable(ref)
		if composable != nil {
			collection = composable.Collection
		}
	} else {
		collection, err = l.DeployCollection(ref)
	}
	if err != nil {
		return err
	}

	for _, asset := range fx.Assets {
		id := rent.TokenID(asset.ID)
		if err := collection.Mint(rent.Address(asset.Owner), id); err != nil {
			return fmt.Errorf("asset %d: %w", asset.ID, err)
		}
		if asset.URI != "" {
			if err := collection.SetTokenURI(context.Background(), rent.Address(asset.Owner), id, asset.URI); err != nil {
				return fmt.Errorf("asset %d: %w", asset.ID, err)
			}
		}
		if len(asset.Children) == 0 {
			continue
		}
		if composable == nil {
			return fmt.Errorf("asset %d: %w", asset.ID, ErrNotComposable)
		}
		if err := composable.AddChildren(id, asset.Children...); err != nil {
			return fmt.Errorf("asset %d: %w", asset.ID, err)
		}
	}
	for _, op := range fx.Operators {
		collection.SetApprovalForAll(rent.Address(op.Owner), rent.Address(op.Operator), true)
	}
	return nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%q: %w", raw, ErrInvalidAmount)
	}
	return amount, nil
}
