package mcp

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

type toolHandlers struct {
	rents  RentService
	events EventService
	logger *slog.Logger
}

func registerTools(server *sdkmcp.Server, services Services, logger *slog.Logger) {
	h := &toolHandlers{rents: services.Rents, events: services.Events, logger: logger}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "ping",
		Description: "Check that the server is reachable",
	}, h.ping)

	// Lifecycle
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_rent",
		Description: "List an owned asset for rent. Replaces an unsigned offer for the same asset.",
	}, h.createRent)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sign_rent",
		Description: "Accept an open offer: pay the rate to the owner and move the asset into escrow",
	}, h.signRent)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "finish_rent",
		Description: "Return the asset to its owner once the rental period is over",
	}, h.finishRent)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "cancel_rent",
		Description: "Withdraw an offer nobody has signed yet",
	}, h.cancelRent)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_token",
		Description: "Change the metadata URI of a rented asset. Tenant only, before the due time.",
	}, h.updateToken)

	// Queries
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_rent",
		Description: "Read the rent for an asset. Returns exists=false for an empty slot.",
	}, h.getRent)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_rents",
		Description: "List stored rents, newest first",
	}, h.listRents)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_rent_events",
		Description: "List rent lifecycle events in the order they happened",
	}, h.listRentEvents)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_fingerprint",
		Description: "Read the current fingerprint of a composable asset, required by sign_rent",
	}, h.getFingerprint)
}

func (h *toolHandlers) ping(context.Context, *sdkmcp.CallToolRequest, PingParams) (*sdkmcp.CallToolResult, StatusResponse, error) {
	return nil, StatusResponse{Status: "pong"}, nil
}

func (h *toolHandlers) createRent(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateRentParams) (*sdkmcp.CallToolResult, RentResponse, error) {
	caller, err := callerFrom(ctx, in.Caller)
	if err != nil {
		return nil, RentResponse{}, err
	}
	rate, err := parseAmount(in.Rate)
	if err != nil {
		return nil, RentResponse{}, err
	}
	duration, err := parseDuration(in.DurationSeconds)
	if err != nil {
		return nil, RentResponse{}, err
	}
	rec, err := h.rents.CreateRent(ctx, rent.CreateRequest{
		AssetRef:  rent.Address(in.AssetRef),
		TokenRef:  rent.Address(in.TokenRef),
		AssetID:   rent.TokenID(in.AssetID),
		Rate:      rate,
		Duration:  duration,
		ExpiresAt: time.Unix(in.ExpiresAt, 0).UTC(),
		Caller:    caller,
	})
	if err != nil {
		return nil, RentResponse{}, h.toolError("create_rent", err)
	}
	return nil, toRentResponse(*rec, rec.Key()), nil
}

func (h *toolHandlers) signRent(ctx context.Context, _ *sdkmcp.CallToolRequest, in SignRentParams) (*sdkmcp.CallToolResult, RentResponse, error) {
	caller, err := callerFrom(ctx, in.Caller)
	if err != nil {
		return nil, RentResponse{}, err
	}
	rate, err := parseAmount(in.Rate)
	if err != nil {
		return nil, RentResponse{}, err
	}
	fingerprint, err := hex.DecodeString(in.Fingerprint)
	if err != nil {
		return nil, RentResponse{}, invalidParams("fingerprint is not hex: %v", err)
	}
	rec, err := h.rents.SignRent(ctx, rent.SignRequest{
		AssetRef:     rent.Address(in.AssetRef),
		AssetID:      rent.TokenID(in.AssetID),
		ExpectedRate: rate,
		Fingerprint:  fingerprint,
		Caller:       caller,
	})
	if err != nil {
		return nil, RentResponse{}, h.toolError("sign_rent", err)
	}
	return nil, toRentResponse(*rec, rec.Key()), nil
}

func (h *toolHandlers) finishRent(ctx context.Context, _ *sdkmcp.CallToolRequest, in RentKeyParams) (*sdkmcp.CallToolResult, StatusResponse, error) {
	caller, err := callerFrom(ctx, in.Caller)
	if err != nil {
		return nil, StatusResponse{}, err
	}
	key := rent.Key{AssetRef: rent.Address(in.AssetRef), AssetID: rent.TokenID(in.AssetID)}
	if err := h.rents.FinishRent(ctx, key, caller); err != nil {
		return nil, StatusResponse{}, h.toolError("finish_rent", err)
	}
	return nil, StatusResponse{Status: "finished"}, nil
}

func (h *toolHandlers) cancelRent(ctx context.Context, _ *sdkmcp.CallToolRequest, in RentKeyParams) (*sdkmcp.CallToolResult, StatusResponse, error) {
	caller, err := callerFrom(ctx, in.Caller)
	if err != nil {
		return nil, StatusResponse{}, err
	}
	key := rent.Key{AssetRef: rent.Address(in.AssetRef), AssetID: rent.TokenID(in.AssetID)}
	if err := h.rents.CancelRent(ctx, key, caller); err != nil {
		return nil, StatusResponse{}, h.toolError("cancel_rent", err)
	}
	return nil, StatusResponse{Status: "cancelled"}, nil
}

func (h *toolHandlers) updateToken(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateTokenParams) (*sdkmcp.CallToolResult, StatusResponse, error) {
	caller, err := callerFrom(ctx, in.Caller)
	if err != nil {
		return nil, StatusResponse{}, err
	}
	err = h.rents.UpdateToken(ctx, rent.UpdateRequest{
		AssetRef: rent.Address(in.AssetRef),
		AssetID:  rent.TokenID(in.AssetID),
		URI:      in.URI,
		Caller:   caller,
	})
	if err != nil {
		return nil, StatusResponse{}, h.toolError("update_token", err)
	}
	return nil, StatusResponse{Status: "updated"}, nil
}

func (h *toolHandlers) getRent(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetRentParams) (*sdkmcp.CallToolResult, RentResponse, error) {
	key := rent.Key{AssetRef: rent.Address(in.AssetRef), AssetID: rent.TokenID(in.AssetID)}
	rec, err := h.rents.GetRent(ctx, key)
	if err != nil {
		return nil, RentResponse{}, h.toolError("get_rent", err)
	}
	return nil, toRentResponse(rec, key), nil
}

func (h *toolHandlers) listRents(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListRentsParams) (*sdkmcp.CallToolResult, ListRentsResponse, error) {
	rents, err := h.rents.ListRents(ctx, rent.ListOptions{
		Owner:    rent.Address(in.Owner),
		Tenant:   rent.Address(in.Tenant),
		AssetRef: rent.Address(in.AssetRef),
		Limit:    in.Limit,
		Offset:   in.Offset,
	})
	if err != nil {
		return nil, ListRentsResponse{}, h.toolError("list_rents", err)
	}
	resp := ListRentsResponse{Rents: make([]RentResponse, 0, len(rents))}
	for _, r := range rents {
		resp.Rents = append(resp.Rents, toRentResponse(r, r.Key()))
	}
	return nil, resp, nil
}

func (h *toolHandlers) listRentEvents(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListRentEventsParams) (*sdkmcp.CallToolResult, ListRentEventsResponse, error) {
	opts := event.ListOptions{
		AssetRef: in.AssetRef,
		AssetID:  in.AssetID,
		RentID:   in.RentID,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
	if in.Type != "" {
		typ := event.Type(in.Type)
		opts.Type = &typ
	}
	events, err := h.events.List(ctx, opts)
	if err != nil {
		return nil, ListRentEventsResponse{}, h.toolError("list_rent_events", err)
	}
	resp := ListRentEventsResponse{Events: make([]EventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	return nil, resp, nil
}

func (h *toolHandlers) getFingerprint(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetFingerprintParams) (*sdkmcp.CallToolResult, FingerprintResponse, error) {
	key := rent.Key{AssetRef: rent.Address(in.AssetRef), AssetID: rent.TokenID(in.AssetID)}
	fp, err := h.rents.Fingerprint(ctx, key)
	if err != nil {
		return nil, FingerprintResponse{}, h.toolError("get_fingerprint", err)
	}
	return nil, FingerprintResponse{
		AssetRef:    in.AssetRef,
		AssetID:     in.AssetID,
		Fingerprint: encodeFingerprint(fp),
	}, nil
}

// toolError converts rejected operations into API errors and logs anything else.
func (h *toolHandlers) toolError(tool string, err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	h.logger.Error("tool failed", "tool", tool, "error", err)
	return fmt.Errorf("%s failed: %w", tool, err)
}

// parseDuration converts whole seconds, rejecting values time.Duration cannot hold.
func parseDuration(seconds int64) (time.Duration, error) {
	if seconds <= 0 || seconds > math.MaxInt64/int64(time.Second) {
		return 0, invalidParams("duration_seconds %d is out of range", seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, invalidParams("%q is not a decimal amount", raw)
	}
	return amount, nil
}
