package functional_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const stdioConfig = `
rent:
  escrow: rent-escrow
ledger:
  tokens:
    - ref: mana
      balances:
        bob: "1000"
      allowances:
        - owner: bob
          spender: rent-escrow
          amount: "1000"
  collections:
    - ref: land
      assets:
        - id: 1
          owner: alice
        - id: 2
          owner: alice
      operators:
        - owner: alice
          operator: rent-escrow
    - ref: estate
      composable: true
      assets:
        - id: 7
          owner: alice
          children: [70, 71]
      operators:
        - owner: alice
          operator: rent-escrow
`

// stdioSession wraps an MCP client session for stdio transport testing
type stdioSession struct {
	session *sdkmcp.ClientSession
}

func newStdioSession(t *testing.T) *stdioSession {
	t.Helper()

	binaryPath := "./bin/erc721-rent"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		binaryPath = "../../bin/erc721-rent"
		if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
			t.Skip("Server binary not found. Run 'go build -o bin/erc721-rent ./cmd/server' first.")
		}
	}

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(stdioConfig), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = append(os.Environ(),
		"RENTPLACE_TRANSPORT=stdio",
		"RENTPLACE_DB_PATH=:memory:",
		"RENTPLACE_AUTH_ENABLED=false",
		"RENTPLACE_CONFIG_PATH="+configPath,
	)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		cancel()
	})
	return &stdioSession{session: session}
}

func (s *stdioSession) callTool(t *testing.T, name string, args map[string]any) json.RawMessage {
	t.Helper()
	return callTool(t, s.session, name, args)
}

func TestStdioFunctional_SignAndUpdate(t *testing.T) {
	s := newStdioSession(t)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "create_rent", map[string]any{
		"asset_ref":        "land",
		"token_ref":        "mana",
		"asset_id":         1,
		"rate":             "100",
		"duration_seconds": 86400,
		"expires_at":       time.Now().Add(time.Hour).Unix(),
		"caller":           "alice",
	}), &created))
	require.NotEmpty(t, created.ID)

	var signed struct {
		Tenant string `json:"tenant"`
		Signed bool   `json:"signed"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "sign_rent", map[string]any{
		"asset_ref": "land",
		"asset_id":  1,
		"rate":      "100",
		"caller":    "bob",
	}), &signed))
	require.True(t, signed.Signed)
	require.Equal(t, "bob", signed.Tenant)

	s.callTool(t, "update_token", map[string]any{
		"asset_ref": "land",
		"asset_id":  1,
		"uri":       "ipfs://bob",
		"caller":    "bob",
	})

	callToolError(t, s.session, "finish_rent", map[string]any{"asset_ref": "land", "asset_id": 1, "caller": "alice"}, "NOT_YET_DUE")

	var events struct {
		Events []struct {
			Type string `json:"type"`
			URI  string `json:"uri"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "list_rent_events", map[string]any{"rent_id": created.ID}), &events))
	require.Len(t, events.Events, 3)
	require.Equal(t, "TokenUpdated", events.Events[2].Type)
	require.Equal(t, "ipfs://bob", events.Events[2].URI)
}

func TestStdioFunctional_ComposableAndCancel(t *testing.T) {
	s := newStdioSession(t)
	expires := time.Now().Add(time.Hour).Unix()

	s.callTool(t, "create_rent", map[string]any{
		"asset_ref":        "estate",
		"token_ref":        "mana",
		"asset_id":         7,
		"rate":             "40",
		"duration_seconds": 7200,
		"expires_at":       expires,
		"caller":           "alice",
	})
	callToolError(t, s.session, "sign_rent", map[string]any{
		"asset_ref": "estate", "asset_id": 7, "rate": "40", "caller": "bob",
	}, "FINGERPRINT_MISMATCH")

	var fp struct {
		Fingerprint string `json:"fingerprint"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "get_fingerprint", map[string]any{"asset_ref": "estate", "asset_id": 7}), &fp))
	s.callTool(t, "sign_rent", map[string]any{
		"asset_ref": "estate", "asset_id": 7, "rate": "40", "fingerprint": fp.Fingerprint, "caller": "bob",
	})

	s.callTool(t, "create_rent", map[string]any{
		"asset_ref":        "land",
		"token_ref":        "mana",
		"asset_id":         2,
		"rate":             "10",
		"duration_seconds": 7200,
		"expires_at":       expires,
		"caller":           "alice",
	})
	s.callTool(t, "cancel_rent", map[string]any{"asset_ref": "land", "asset_id": 2, "caller": "alice"})

	var rent struct {
		Exists bool `json:"exists"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "get_rent", map[string]any{"asset_ref": "land", "asset_id": 2}), &rent))
	require.False(t, rent.Exists)

	var listed struct {
		Rents []struct {
			AssetRef string `json:"asset_ref"`
			Tenant   string `json:"tenant"`
		} `json:"rents"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "list_rents", map[string]any{"tenant": "bob"}), &listed))
	require.Len(t, listed.Rents, 1)
	require.Equal(t, "estate", listed.Rents[0].AssetRef)
}
