package rent

import (
	"fmt"
	"math/big"
	"time"
)

// Address identifies an account or a contract. The empty address is the sentinel.
type Address string

// ZeroAddress marks an unset party.
const ZeroAddress Address = ""

// TokenID identifies a single asset within a non-fungible contract.
type TokenID uint64

// Key identifies the registry slot of a rent.
type Key struct {
	AssetRef Address `json:"asset_ref"`
	AssetID  TokenID `json:"asset_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.AssetRef, k.AssetID)
}

// Rent is an offer to hand over custody of an asset for a fixed payment and,
// once signed, the active occupancy of that asset.
type Rent struct {
	ID        string        `json:"id"`
	AssetRef  Address       `json:"asset_ref"`
	TokenRef  Address       `json:"token_ref"`
	AssetID   TokenID       `json:"asset_id"`
	Owner     Address       `json:"owner"`
	Tenant    Address       `json:"tenant"`
	Rate      *big.Int      `json:"rate"`
	Duration  time.Duration `json:"duration"`
	ExpiresAt time.Time     `json:"expires_at"`
	DueTime   time.Time     `json:"due_time"`
	CreatedAt time.Time     `json:"created_at"`
}

// Key returns the registry slot of the rent.
func (r Rent) Key() Key {
	return Key{AssetRef: r.AssetRef, AssetID: r.AssetID}
}

// IsZero reports whether r is the sentinel "no rent" value.
func (r Rent) IsZero() bool {
	return r.ID == ""
}

// Signed reports whether a tenant has activated the rent.
func (r Rent) Signed() bool {
	return r.Tenant != ZeroAddress
}

// ListOptions filters rent listings. Empty fields match everything.
type ListOptions struct {
	Owner    Address
	Tenant   Address
	AssetRef Address
	Limit    int
	Offset   int
}

// CreateRequest describes a new rent offer.
type CreateRequest struct {
	AssetRef  Address
	TokenRef  Address
	AssetID   TokenID
	Rate      *big.Int
	Duration  time.Duration
	ExpiresAt time.Time
	Caller    Address
}

// SignRequest describes a tenant activating an offer.
type SignRequest struct {
	AssetRef     Address
	AssetID      TokenID
	ExpectedRate *big.Int
	Fingerprint  []byte
	Caller       Address
}

// UpdateRequest describes a tenant changing the asset's metadata URI.
type UpdateRequest struct {
	AssetRef Address
	AssetID  TokenID
	URI      string
	Caller   Address
}
