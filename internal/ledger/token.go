package ledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

// Token is a fungible payment token with balances and spender allowances.
type Token struct {
	mu         sync.RWMutex
	ref        rent.Address
	balances   map[rent.Address]*big.Int
	allowances map[rent.Address]map[rent.Address]*big.Int
}

func newToken(ref rent.Address) *Token {
	return &Token{
		ref:        ref,
		balances:   make(map[rent.Address]*big.Int),
		allowances: make(map[rent.Address]map[rent.Address]*big.Int),
	}
}

// Ref returns the contract reference.
func (t *Token) Ref() rent.Address {
	return t.ref
}

// Mint credits amount to holder.
func (t *Token) Mint(holder rent.Address, amount *big.Int) error {
	if holder == rent.ZeroAddress {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(holder, amount)
	return nil
}

// Approve sets spender's allowance over holder's balance.
func (t *Token) Approve(holder, spender rent.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	spenders, ok := t.allowances[holder]
	if !ok {
		spenders = make(map[rent.Address]*big.Int)
		t.allowances[holder] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
	return nil
}

func (t *Token) BalanceOf(_ context.Context, holder rent.Address) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceOf(holder), nil
}

func (t *Token) Allowance(_ context.Context, holder, spender rent.Address) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if a, ok := t.allowances[holder][spender]; ok {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

// TransferFrom moves amount from one holder to another. A spender other than
// from consumes allowance.
func (t *Token) TransferFrom(_ context.Context, spender, from, to rent.Address, amount *big.Int) error {
	if to == rent.ZeroAddress {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balanceOf(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if spender != from {
		allowance, ok := t.allowances[from][spender]
		if !ok || allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		allowance.Sub(allowance, amount)
	}
	t.balances[from] = new(big.Int).Sub(t.balanceOf(from), amount)
	t.credit(to, amount)
	return nil
}

func (t *Token) balanceOf(holder rent.Address) *big.Int {
	if b, ok := t.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *Token) credit(holder rent.Address, amount *big.Int) {
	t.balances[holder] = new(big.Int).Add(t.balanceOf(holder), amount)
}
