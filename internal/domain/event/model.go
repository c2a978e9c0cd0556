package event

import "time"

// Type names a rent transition.
type Type string

const (
	TypeRentCreated   Type = "RentCreated"
	TypeRentSigned    Type = "RentSigned"
	TypeRentFinished  Type = "RentFinished"
	TypeRentCancelled Type = "RentCancelled"
	TypeTokenUpdated  Type = "TokenUpdated"
)

// Event is emitted once per committed rent transition. Every event carries the
// asset reference, the payment token reference and the asset id; the remaining
// fields are set only for the types that define them.
type Event struct {
	ID        int64      `json:"id"`
	Type      Type       `json:"type"`
	RentID    string     `json:"rent_id"`
	AssetRef  string     `json:"asset_ref"`
	TokenRef  string     `json:"token_ref"`
	AssetID   uint64     `json:"asset_id"`
	Owner     string     `json:"owner,omitempty"`      // RentCreated
	Rate      string     `json:"rate,omitempty"`       // RentCreated, decimal smallest units
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // RentCreated
	Tenant    string     `json:"tenant,omitempty"`     // RentSigned
	DueTime   *time.Time `json:"due_time,omitempty"`   // RentSigned
	URI       string     `json:"uri,omitempty"`        // TokenUpdated
	CreatedAt time.Time  `json:"created_at"`
}
