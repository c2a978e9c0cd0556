package mcp

import (
	"encoding/hex"

	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

// Amounts travel as decimal strings in the token's smallest unit and times as
// unix seconds, so clients never lose precision.

type CreateRentParams struct {
	AssetRef        string `json:"asset_ref" jsonschema:"Asset contract reference"`
	TokenRef        string `json:"token_ref" jsonschema:"Payment token contract reference"`
	AssetID         uint64 `json:"asset_id" jsonschema:"Asset id within the contract"`
	Rate            string `json:"rate" jsonschema:"Total price as a decimal string in the token's smallest unit"`
	DurationSeconds int64  `json:"duration_seconds" jsonschema:"Rental period in seconds"`
	ExpiresAt       int64  `json:"expires_at" jsonschema:"Unix time after which the offer can no longer be signed"`
	Caller          string `json:"caller,omitempty" jsonschema:"Acting identity when no bearer token is used"`
}

type SignRentParams struct {
	AssetRef    string `json:"asset_ref" jsonschema:"Asset contract reference"`
	AssetID     uint64 `json:"asset_id" jsonschema:"Asset id within the contract"`
	Rate        string `json:"rate" jsonschema:"The rate the tenant agrees to pay"`
	Fingerprint string `json:"fingerprint,omitempty" jsonschema:"Hex fingerprint from get_fingerprint for composable assets"`
	Caller      string `json:"caller,omitempty" jsonschema:"Acting identity when no bearer token is used"`
}

type RentKeyParams struct {
	AssetRef string `json:"asset_ref" jsonschema:"Asset contract reference"`
	AssetID  uint64 `json:"asset_id" jsonschema:"Asset id within the contract"`
	Caller   string `json:"caller,omitempty" jsonschema:"Acting identity when no bearer token is used"`
}

type UpdateTokenParams struct {
	AssetRef string `json:"asset_ref" jsonschema:"Asset contract reference"`
	AssetID  uint64 `json:"asset_id" jsonschema:"Asset id within the contract"`
	URI      string `json:"uri" jsonschema:"New metadata URI"`
	Caller   string `json:"caller,omitempty" jsonschema:"Acting identity when no bearer token is used"`
}

type GetRentParams struct {
	AssetRef string `json:"asset_ref" jsonschema:"Asset contract reference"`
	AssetID  uint64 `json:"asset_id" jsonschema:"Asset id within the contract"`
}

type ListRentsParams struct {
	Owner    string `json:"owner,omitempty" jsonschema:"Only rents listed by this owner"`
	Tenant   string `json:"tenant,omitempty" jsonschema:"Only rents signed by this tenant"`
	AssetRef string `json:"asset_ref,omitempty" jsonschema:"Only rents of this asset contract"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
	Offset   int    `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

type ListRentEventsParams struct {
	AssetRef string  `json:"asset_ref,omitempty" jsonschema:"Only events of this asset contract"`
	AssetID  *uint64 `json:"asset_id,omitempty" jsonschema:"Only events of this asset id"`
	RentID   string  `json:"rent_id,omitempty" jsonschema:"Only events of this rent"`
	Type     string  `json:"type,omitempty" jsonschema:"RentCreated, RentSigned, RentFinished, RentCancelled or TokenUpdated"`
	Limit    int     `json:"limit,omitempty" jsonschema:"Maximum number of results"`
	Offset   int     `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

type GetFingerprintParams struct {
	AssetRef string `json:"asset_ref" jsonschema:"Composable asset contract reference"`
	AssetID  uint64 `json:"asset_id" jsonschema:"Asset id within the contract"`
}

type PingParams struct{}

type RentResponse struct {
	Exists          bool   `json:"exists"`
	ID              string `json:"id,omitempty"`
	AssetRef        string `json:"asset_ref"`
	TokenRef        string `json:"token_ref,omitempty"`
	AssetID         uint64 `json:"asset_id"`
	Owner           string `json:"owner,omitempty"`
	Tenant          string `json:"tenant,omitempty"`
	Rate            string `json:"rate,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	ExpiresAt       int64  `json:"expires_at,omitempty"`
	DueTime         int64  `json:"due_time,omitempty"`
	CreatedAt       int64  `json:"created_at,omitempty"`
	Signed          bool   `json:"signed"`
}

type ListRentsResponse struct {
	Rents []RentResponse `json:"rents"`
}

type EventResponse struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	RentID    string `json:"rent_id"`
	AssetRef  string `json:"asset_ref"`
	TokenRef  string `json:"token_ref"`
	AssetID   uint64 `json:"asset_id"`
	Owner     string `json:"owner,omitempty"`
	Rate      string `json:"rate,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	Tenant    string `json:"tenant,omitempty"`
	DueTime   int64  `json:"due_time,omitempty"`
	URI       string `json:"uri,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type ListRentEventsResponse struct {
	Events []EventResponse `json:"events"`
}

type FingerprintResponse struct {
	AssetRef    string `json:"asset_ref"`
	AssetID     uint64 `json:"asset_id"`
	Fingerprint string `json:"fingerprint"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func toRentResponse(r rent.Rent, key rent.Key) RentResponse {
	if r.IsZero() {
		return RentResponse{AssetRef: string(key.AssetRef), AssetID: uint64(key.AssetID)}
	}
	resp := RentResponse{
		Exists:          true,
		ID:              r.ID,
		AssetRef:        string(r.AssetRef),
		TokenRef:        string(r.TokenRef),
		AssetID:         uint64(r.AssetID),
		Owner:           string(r.Owner),
		Tenant:          string(r.Tenant),
		DurationSeconds: int64(r.Duration.Seconds()),
		ExpiresAt:       r.ExpiresAt.Unix(),
		CreatedAt:       r.CreatedAt.Unix(),
		Signed:          r.Signed(),
	}
	if r.Rate != nil {
		resp.Rate = r.Rate.String()
	}
	if !r.DueTime.IsZero() {
		resp.DueTime = r.DueTime.Unix()
	}
	return resp
}

func toEventResponse(e event.Event) EventResponse {
	resp := EventResponse{
		ID:        e.ID,
		Type:      string(e.Type),
		RentID:    e.RentID,
		AssetRef:  e.AssetRef,
		TokenRef:  e.TokenRef,
		AssetID:   e.AssetID,
		Owner:     e.Owner,
		Rate:      e.Rate,
		Tenant:    e.Tenant,
		URI:       e.URI,
		CreatedAt: e.CreatedAt.Unix(),
	}
	if e.ExpiresAt != nil {
		resp.ExpiresAt = e.ExpiresAt.Unix()
	}
	if e.DueTime != nil {
		resp.DueTime = e.DueTime.Unix()
	}
	return resp
}

func encodeFingerprint(fp []byte) string {
	return hex.EncodeToString(fp)
}
