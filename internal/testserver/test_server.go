// Package testserver runs the rent registry behind the streamable HTTP
// transport for end-to-end tests.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/leomorozovskii/erc721-rent/internal/clock"
	"github.com/leomorozovskii/erc721-rent/internal/config"
	"github.com/leomorozovskii/erc721-rent/internal/domain/event"
	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
	"github.com/leomorozovskii/erc721-rent/internal/ledger"
	"github.com/leomorozovskii/erc721-rent/internal/mcp"
	"github.com/leomorozovskii/erc721-rent/internal/sqlite"
)

// Options configures a TestServer. Keys maps bearer tokens to identities.
type Options struct {
	Clock  rent.Clock
	Escrow string
	Keys   map[string]string
	Ledger config.LedgerConfig
}

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Ledger *ledger.Ledger
	Rents  *rent.Service
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	contracts := ledger.New()
	require.NoError(t, ledger.Seed(contracts, opts.Ledger))

	keys := sqlite.NewAPIKeyStore(db)
	for token, identity := range opts.Keys {
		require.NoError(t, keys.AddKey(context.Background(), token, identity, "test"))
	}

	escrow := opts.Escrow
	if escrow == "" {
		escrow = config.Default().Rent.Escrow
	}
	var clk rent.Clock = clock.System{}
	if opts.Clock != nil {
		clk = opts.Clock
	}
	events := event.NewService(sqlite.NewEventRepository(db), nil)
	rents := rent.NewService(sqlite.NewRentRepository(db), contracts, events, clk, rent.Options{Escrow: rent.Address(escrow)}, nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      mcp.Services{Rents: rents, Events: events},
		Resolver:      keys,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	handler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server { return mcpServer }, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{Server: server, DB: db, Ledger: contracts, Rents: rents}
}

// Connect opens an MCP session that authenticates with token.
func (ts *TestServer) Connect(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearer{token: token, base: http.DefaultTransport}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

type bearer struct {
	token string
	base  http.RoundTripper
}

func (b bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}
