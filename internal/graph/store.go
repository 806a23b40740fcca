// Package graph links claims to the entities they are about and finds claim
// pairs that disagree about a shared entity.
package graph

import (
	"context"

	"github.com/todmy/doc-consolidator/pkg/models"
)

// ClaimPair is two claims about the same entity with the same predicate and
// different objects
type ClaimPair struct {
	A models.ClaimRef
	B models.ClaimRef
}

// Store is the property-graph capability the detector and pipeline need
type Store interface {
	// SharedEntityPairs returns, among the given claim ids, every pair that
	// shares an entity and predicate but differs in object
	SharedEntityPairs(ctx context.Context, claimIDs []string) ([]ClaimPair, error)

	// IndexClaims upserts claims and links each to the entity named by its subject
	IndexClaims(ctx context.Context, claims []models.AtomicClaim) error

	// Close releases the connection. Safe to call on an unused store.
	Close(ctx context.Context) error
}

// NopStore is used when no graph database is configured
type NopStore struct{}

func (NopStore) SharedEntityPairs(ctx context.Context, claimIDs []string) ([]ClaimPair, error) {
	return nil, nil
}

func (NopStore) IndexClaims(ctx context.Context, claims []models.AtomicClaim) error {
	return nil
}

func (NopStore) Close(ctx context.Context) error {
	return nil
}
