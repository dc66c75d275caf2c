// Package registry contains the asset registry surface the auction engine
// depends on: an in-memory registry for tests and development deployments,
// an HTTP service exposing it, and a client adapter plus resolvers that
// turn a registry address recorded on an auction into a usable registry.
//
// The registry's production implementation is out of scope for this
// repository; the engine consumes only custody transfer and ownership
// queries.
package registry

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrUnknownAsset is returned for an asset id the registry has never seen.
	ErrUnknownAsset = errors.New("registry: unknown asset")

	// ErrAssetExists is returned by Mint for an already minted asset id.
	ErrAssetExists = errors.New("registry: asset already exists")

	// ErrNotOwner is returned when the stated holder is not the current owner.
	ErrNotOwner = errors.New("registry: not the current owner")

	// ErrNotAuthorized is returned when the caller is neither the owner nor
	// an approved operator for the asset.
	ErrNotAuthorized = errors.New("registry: caller not authorized to transfer")
)

// Memory is an in-memory asset registry: an owner map plus single-operator
// approvals, with the same authorization rules the engine expects from the
// external registry. Approvals are cleared on transfer.
type Memory struct {
	mu        sync.Mutex
	owners    map[uint64]string
	approvals map[uint64]string
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		owners:    make(map[uint64]string),
		approvals: make(map[uint64]string),
	}
}

// Mint registers a new asset under the given owner.
func (m *Memory) Mint(assetID uint64, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.owners[assetID]; exists {
		return ErrAssetExists
	}
	m.owners[assetID] = owner
	return nil
}

// Approve grants spender the right to transfer the asset on the owner's
// behalf. Only the current owner may approve.
func (m *Memory) Approve(caller string, assetID uint64, spender string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, exists := m.owners[assetID]
	if !exists {
		return ErrUnknownAsset
	}
	if caller != owner {
		return ErrNotOwner
	}
	m.approvals[assetID] = spender
	return nil
}

// TransferCustody moves the asset from one holder to another. The caller
// must be the current owner or its approved operator, and from must match
// the current owner.
func (m *Memory) TransferCustody(ctx context.Context, caller string, assetID uint64, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, exists := m.owners[assetID]
	if !exists {
		return ErrUnknownAsset
	}
	if from != owner {
		return ErrNotOwner
	}
	if caller != owner && m.approvals[assetID] != caller {
		return ErrNotAuthorized
	}

	m.owners[assetID] = to
	delete(m.approvals, assetID)
	return nil
}

// OwnerOf returns the current owner of the asset.
func (m *Memory) OwnerOf(ctx context.Context, assetID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, exists := m.owners[assetID]
	if !exists {
		return "", ErrUnknownAsset
	}
	return owner, nil
}
