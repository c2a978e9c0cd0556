package ledger

import (
	"context"
	"sync"

	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

// Collection is a non-fungible asset contract with operator approvals and
// per-asset metadata URIs.
type Collection struct {
	mu        sync.RWMutex
	ref       rent.Address
	owners    map[rent.TokenID]rent.Address
	operators map[rent.Address]map[rent.Address]bool
	uris      map[rent.TokenID]string
}

func newCollection(ref rent.Address) *Collection {
	return &Collection{
		ref:       ref,
		owners:    make(map[rent.TokenID]rent.Address),
		operators: make(map[rent.Address]map[rent.Address]bool),
		uris:      make(map[rent.TokenID]string),
	}
}

// Ref returns the contract reference.
func (c *Collection) Ref() rent.Address {
	return c.ref
}

// Mint creates asset id held by to.
func (c *Collection) Mint(to rent.Address, id rent.TokenID) error {
	if to == rent.ZeroAddress {
		return ErrZeroAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.owners[id]; ok {
		return ErrTokenExists
	}
	c.owners[id] = to
	return nil
}

// SetApprovalForAll grants or revokes operator's authority over all of owner's assets.
func (c *Collection) SetApprovalForAll(owner, operator rent.Address, approved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops, ok := c.operators[owner]
	if !ok {
		ops = make(map[rent.Address]bool)
		c.operators[owner] = ops
	}
	if approved {
		ops[operator] = true
	} else {
		delete(ops, operator)
	}
}

func (c *Collection) OwnerOf(_ context.Context, id rent.TokenID) (rent.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	owner, ok := c.owners[id]
	if !ok {
		return rent.ZeroAddress, ErrTokenNotFound
	}
	return owner, nil
}

func (c *Collection) IsApprovedForAll(_ context.Context, owner, operator rent.Address) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.operators[owner][operator], nil
}

func (c *Collection) TransferFrom(_ context.Context, operator, from, to rent.Address, id rent.TokenID) error {
	if to == rent.ZeroAddress {
		return ErrZeroAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[id]
	if !ok {
		return ErrTokenNotFound
	}
	if owner != from {
		return ErrNotOwner
	}
	if !c.mayOperate(operator, owner) {
		return ErrNotApproved
	}
	c.owners[id] = to
	return nil
}

// TokenURI returns the metadata URI of asset id.
func (c *Collection) TokenURI(id rent.TokenID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.owners[id]; !ok {
		return "", ErrTokenNotFound
	}
	return c.uris[id], nil
}

// SetTokenURI changes the metadata URI; operator must hold the asset or be approved by its holder.
func (c *Collection) SetTokenURI(_ context.Context, operator rent.Address, id rent.TokenID, uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[id]
	if !ok {
		return ErrTokenNotFound
	}
	if !c.mayOperate(operator, owner) {
		return ErrNotApproved
	}
	c.uris[id] = uri
	return nil
}

func (c *Collection) mayOperate(operator, owner rent.Address) bool {
	return operator == owner || c.operators[owner][operator]
}
