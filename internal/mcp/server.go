package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

// RentService defines rent registry operations needed by MCP.
type RentService interface {
	CreateRent(ctx context.Context, req rent.CreateRequest) (*rent.Rent, error)
	SignRent(ctx context.Context, req rent.SignRequest) (*rent.Rent, error)
	FinishRent(ctx context.Context, key rent.Key, caller rent.Address) error
	CancelRent(ctx context.Context, key rent.Key, caller rent.Address) error
	UpdateToken(ctx context.Context, req rent.UpdateRequest) error
	GetRent(ctx context.Context, key rent.Key) (rent.Rent, error)
	ListRents(ctx context.Context, opts rent.ListOptions) ([]rent.Rent, error)
	Fingerprint(ctx context.Context, key rent.Key) ([]byte, error)
}

// EventService defines event log operations needed by MCP.
type EventService interface {
	List(ctx context.Context, opts event.ListOptions) ([]event.Event, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Rents  RentService
	Events EventService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      IdentityResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "erc721-rent",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	// Middleware added later runs first, so auth sees requests before logging.
	// Stdio is local only; callers name themselves in tool arguments.
	if cfg.TransportMode == "http" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}

	registerTools(server, cfg.Services, cfg.Logger)

	return server
}
