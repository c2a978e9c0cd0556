package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

// fingerprintDomainKey separates composition fingerprints from any other
// BLAKE3 use. ASCII name, zero padded to 32 bytes.
var fingerprintDomainKey = [32]byte{
	'e', 'r', 'c', '7', '2', '1', '-', 'r', 'e', 'n', 't', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't',
}

// encMode encodes compositions with Core Deterministic Encoding so the same
// composition always hashes to the same fingerprint.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ledger: CBOR encoder initialization failed: " + err.Error())
	}
}

// Composable is a collection whose assets aggregate child parcels. Its
// fingerprint changes whenever an asset's set of children changes.
type Composable struct {
	*Collection

	cmu      sync.RWMutex
	children map[rent.TokenID]map[uint64]struct{}
}

func newComposable(ref rent.Address) *Composable {
	return &Composable{
		Collection: newCollection(ref),
		children:   make(map[rent.TokenID]map[uint64]struct{}),
	}
}

// AddChildren attaches child parcels to asset id.
func (c *Composable) AddChildren(id rent.TokenID, children ...uint64) error {
	if _, err := c.OwnerOf(context.Background(), id); err != nil {
		return err
	}
	c.cmu.Lock()
	defer c.cmu.Unlock()
	set, ok := c.children[id]
	if !ok {
		set = make(map[uint64]struct{})
		c.children[id] = set
	}
	for _, child := range children {
		set[child] = struct{}{}
	}
	return nil
}

// RemoveChildren detaches child parcels from asset id.
func (c *Composable) RemoveChildren(id rent.TokenID, children ...uint64) error {
	if _, err := c.OwnerOf(context.Background(), id); err != nil {
		return err
	}
	c.cmu.Lock()
	defer c.cmu.Unlock()
	for _, child := range children {
		delete(c.children[id], child)
	}
	return nil
}

// Children returns the sorted child parcels of asset id.
func (c *Composable) Children(id rent.TokenID) []uint64 {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	out := make([]uint64, 0, len(c.children[id]))
	for child := range c.children[id] {
		out = append(out, child)
	}
	slices.Sort(out)
	return out
}

type composition struct {
	Contract string   `cbor:"1,keyasint"`
	AssetID  uint64   `cbor:"2,keyasint"`
	Children []uint64 `cbor:"3,keyasint"`
}

// Fingerprint returns the keyed BLAKE3 hash of the asset's current composition.
func (c *Composable) Fingerprint(ctx context.Context, id rent.TokenID) ([]byte, error) {
	if _, err := c.OwnerOf(ctx, id); err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(composition{
		Contract: string(c.ref),
		AssetID:  uint64(id),
		Children: c.Children(id),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding composition: %w", err)
	}
	hasher, err := blake3.NewKeyed(fingerprintDomainKey[:])
	if err != nil {
		return nil, fmt.Errorf("initializing hasher: %w", err)
	}
	_, _ = hasher.Write(data)
	return hasher.Sum(nil), nil
}
