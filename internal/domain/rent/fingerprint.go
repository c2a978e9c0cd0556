package rent

import (
	"bytes"
	"context"
	"fmt"
)

// Verifier checks a caller-supplied fingerprint against an asset's live content.
type Verifier struct{}

// Verify reports whether supplied matches the asset's current fingerprint.
// Assets without the Fingerprinter capability always match. The live value is
// read on every call and never cached, so a composition change between the
// caller's read and the sign transition is detected.
func (Verifier) Verify(ctx context.Context, asset NonFungible, id TokenID, supplied []byte) (bool, error) {
	fp, ok := asset.(Fingerprinter)
	if !ok {
		return true, nil
	}
	current, err := fp.Fingerprint(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reading fingerprint of asset %d: %w", id, err)
	}
	return len(current) > 0 && bytes.Equal(current, supplied), nil
}
