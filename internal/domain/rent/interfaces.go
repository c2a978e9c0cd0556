package rent

import (
	"context"
	"math/big"
	"time"

	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
)

// Repository is the keyed rent store. Get returns repository.ErrNotFound for empty slots.
type Repository interface {
	Get(ctx context.Context, key Key) (*Rent, error)
	Save(ctx context.Context, r *Rent) error
	Delete(ctx context.Context, key Key) error
	List(ctx context.Context, opts ListOptions) ([]Rent, error)
}

// Clock supplies the current time. The registry never reads wall time itself.
type Clock interface {
	Now() time.Time
}

// Notifier receives one event per committed transition.
type Notifier interface {
	Notify(ctx context.Context, evt *event.Event) error
}

// NonFungible is the transferable non-fungible asset capability.
type NonFungible interface {
	OwnerOf(ctx context.Context, id TokenID) (Address, error)
	IsApprovedForAll(ctx context.Context, owner, operator Address) (bool, error)
	TransferFrom(ctx context.Context, operator, from, to Address, id TokenID) error
}

// MetadataWriter is the optional capability to change an asset's metadata URI.
type MetadataWriter interface {
	SetTokenURI(ctx context.Context, operator Address, id TokenID, uri string) error
}

// Fingerprinter is the optional capability of composable assets whose content can change.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, id TokenID) ([]byte, error)
}

// Fungible is the payment token capability.
type Fungible interface {
	BalanceOf(ctx context.Context, holder Address) (*big.Int, error)
	Allowance(ctx context.Context, holder, spender Address) (*big.Int, error)
	TransferFrom(ctx context.Context, spender, from, to Address, amount *big.Int) error
}

// Contracts resolves contract references to capabilities. Implementations
// return an error when the reference does not implement the capability.
type Contracts interface {
	NonFungible(ctx context.Context, ref Address) (NonFungible, error)
	Fungible(ctx context.Context, ref Address) (Fungible, error)
}
