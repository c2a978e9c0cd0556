package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `erc721-rent lets owners rent out non-fungible assets for a fixed payment.

Core concepts:
- Rent: one per asset, keyed by (asset_ref, asset_id). Unsigned = open offer; signed = active rental.
- Escrow: the registry's own identity. It holds the asset while a rent is active.
- Rate: total price in the payment token's smallest unit, always a decimal string.
- Fingerprint: hex summary of a composable asset's content. Read it right before signing.

Lifecycle:
1) Owner approves the escrow on the asset contract, then calls create_rent.
2) Tenant approves the escrow on the payment token, reads the offer (get_rent), and for composable
   assets reads get_fingerprint. Then sign_rent with the same rate and fingerprint.
3) During the period only the tenant may call update_token.
4) At or after due_time the owner calls finish_rent and gets the asset back.
   An unsigned offer can be withdrawn with cancel_rent.

Identity:
- HTTP with auth: the bearer token decides who you are. Omit caller.
- Stdio or HTTP without auth: pass caller on every mutating tool.

Errors carry a code (EXPIRED, RATE_MISMATCH, FINGERPRINT_MISMATCH, ...) and a recovery hint.

Docs:
- rent://docs/lifecycle
- rent://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "rent://docs/lifecycle",
		Name:        "docs_lifecycle",
		Title:       "Rent lifecycle",
		Description: "States, transitions and who may call what.",
		Content: `# Rent lifecycle

| State    | Meaning                                  | Leaves via                      |
|----------|------------------------------------------|---------------------------------|
| empty    | no rent for the asset                    | create_rent                     |
| unsigned | open offer, asset still with the owner   | sign_rent, cancel_rent, create_rent (replaces) |
| signed   | active rental, asset held by the escrow  | finish_rent at or after due_time |

## Creating
- Caller must hold the asset and have approved the escrow for all its assets.
- rate > 0, duration above the minimum (default 1 hour), expires_at beyond now plus the
  minimum lead (default 1 minute).
- Creating over an unsigned offer replaces it. Creating over a signed rent fails with ALREADY_SIGNED.

## Signing
- Anyone except the owner and the escrow may sign, strictly before expires_at.
- The confirmed rate must equal the stored rate.
- Composable assets also need the fingerprint as it is right now.
- The rate moves from tenant to owner and the asset moves to the escrow, or nothing happens.
- due_time = sign time + duration.

## Finishing
- Owner only, at or after due_time. The rent is cleared and the asset goes back to the owner.

## Updating metadata
- Tenant only, strictly before due_time. The escrow writes the new URI on the tenant's behalf.
`,
	},
	{
		URI:         "rent://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "What each error code means and how to recover.",
		Content: `# Error codes

- UNAUTHORIZED: the caller may not perform this operation.
- NOT_FOUND: no matching rent. Signing and finishing need an unsigned and a signed rent respectively.
- INVALID_PARAMETERS: bad rate, duration, expiry or argument format.
- EXPIRED: the offer's expires_at has passed.
- RATE_MISMATCH: the confirmed rate differs from the offer.
- FINGERPRINT_MISMATCH: the composable asset changed since the fingerprint was read.
- INSUFFICIENT_FUNDS: the tenant's balance is below the rate.
- TRANSFER_REJECTED: an asset or payment transfer would be refused (custody moved, approval or allowance missing).
- ALREADY_SIGNED: the rent is active.
- NOT_YET_DUE: the rental period has not ended.
- NOT_ACTIVE: the rent is unsigned or past due.
- NOT_A_CONTRACT: a reference does not resolve to the needed contract kind.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
