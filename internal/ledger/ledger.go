// Package ledger is an in-memory ledger of asset and payment token contracts.
// It backs the registry in development and tests where no external chain is
// attached.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

var (
	// ErrUnknownContract indicates no contract is deployed at the reference.
	ErrUnknownContract = errors.New("unknown contract")
	// ErrContractExists indicates the reference is already taken.
	ErrContractExists = errors.New("contract already deployed")
	// ErrWrongCapability indicates the contract is of a different kind.
	ErrWrongCapability = errors.New("contract does not implement the capability")
	// ErrTokenNotFound indicates the asset id was never minted.
	ErrTokenNotFound = errors.New("token does not exist")
	// ErrTokenExists indicates the asset id is already minted.
	ErrTokenExists = errors.New("token already exists")
	// ErrNotOwner indicates the sender does not hold the asset.
	ErrNotOwner = errors.New("sender is not the token owner")
	// ErrNotApproved indicates the operator may not act for the holder.
	ErrNotApproved = errors.New("operator not approved")
	// ErrZeroAddress indicates a transfer to or mint for the zero address.
	ErrZeroAddress = errors.New("zero address")
	// ErrInsufficientBalance indicates the holder cannot cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance indicates the spender's allowance is too small.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrInvalidAmount indicates a negative or missing amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotComposable indicates a composition change on a plain collection.
	ErrNotComposable = errors.New("collection is not composable")
)

// Ledger holds deployed contracts by reference. It implements rent.Contracts.
type Ledger struct {
	mu        sync.RWMutex
	contracts map[rent.Address]any
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{contracts: make(map[rent.Address]any)}
}

// DeployCollection deploys a plain non-fungible collection at ref.
func (l *Ledger) DeployCollection(ref rent.Address) (*Collection, error) {
	c := newCollection(ref)
	if err := l.deploy(ref, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeployComposable deploys a composable collection at ref.
func (l *Ledger) DeployComposable(ref rent.Address) (*Composable, error) {
	c := newComposable(ref)
	if err := l.deploy(ref, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeployToken deploys a fungible payment token at ref.
func (l *Ledger) DeployToken(ref rent.Address) (*Token, error) {
	t := newToken(ref)
	if err := l.deploy(ref, t); err != nil {
		return nil, err
	}
	return t, nil
}

// NonFungible resolves ref to a collection. Composable collections also
// implement rent.Fingerprinter.
func (l *Ledger) NonFungible(_ context.Context, ref rent.Address) (rent.NonFungible, error) {
	contract, err := l.lookup(ref)
	if err != nil {
		return nil, err
	}
	switch c := contract.(type) {
	case *Collection:
		return c, nil
	case *Composable:
		return c, nil
	default:
		return nil, fmt.Errorf("%q: %w", ref, ErrWrongCapability)
	}
}

// Fungible resolves ref to a payment token.
func (l *Ledger) Fungible(_ context.Context, ref rent.Address) (rent.Fungible, error) {
	contract, err := l.lookup(ref)
	if err != nil {
		return nil, err
	}
	t, ok := contract.(*Token)
	if !ok {
		return nil, fmt.Errorf("%q: %w", ref, ErrWrongCapability)
	}
	return t, nil
}

// Collection returns the plain or composable collection deployed at ref.
func (l *Ledger) Collection(ref rent.Address) (*Collection, error) {
	contract, err := l.lookup(ref)
	if err != nil {
		return nil, err
	}
	switch c := contract.(type) {
	case *Collection:
		return c, nil
	case *Composable:
		return c.Collection, nil
	default:
		return nil, fmt.Errorf("%q: %w", ref, ErrWrongCapability)
	}
}

// Composable returns the composable collection deployed at ref.
func (l *Ledger) Composable(ref rent.Address) (*Composable, error) {
	contract, err := l.lookup(ref)
	if err != nil {
		return nil, err
	}
	c, ok := contract.(*Composable)
	if !ok {
		return nil, fmt.Errorf("%q: %w", ref, ErrNotComposable)
	}
	return c, nil
}

// Token returns the payment token deployed at ref.
func (l *Ledger) Token(ref rent.Address) (*Token, error) {
	contract, err := l.lookup(ref)
	if err != nil {
		return nil, err
	}
	t, ok := contract.(*Token)
	if !ok {
		return nil, fmt.Errorf("%q: %w", ref, ErrWrongCapability)
	}
	return t, nil
}

func (l *Ledger) deploy(ref rent.Address, contract any) error {
	if ref == rent.ZeroAddress {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.contracts[ref]; ok {
		return fmt.Errorf("%q: %w", ref, ErrContractExists)
	}
	l.contracts[ref] = contract
	return nil
}

func (l *Ledger) lookup(ref rent.Address) (any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	contract, ok := l.contracts[ref]
	if !ok {
		return nil, fmt.Errorf("%q: %w", ref, ErrUnknownContract)
	}
	return contract, nil
}
