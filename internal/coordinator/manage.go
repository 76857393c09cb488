package coordinator

import (
	"context"

	"codesearch/internal/coreerrors"
	"codesearch/internal/pathkey"
	"codesearch/internal/types"
)

// ClearIndex removes every chunk belonging to project from both stores and
// drops its hash cache entry, so the next Index call for the same root
// starts a full pass (spec §4.7's clear_index operation).
func (c *Coordinator) ClearIndex(ctx context.Context, root string) error {
	canon, err := pathkey.Canonicalize(root)
	if err != nil {
		return coreerrors.New(coreerrors.KindIoFailure, "coordinator.ClearIndex", err)
	}

	c.inProgressMu.Lock()
	delete(c.inProgress, canon)
	c.inProgressMu.Unlock()

	if err := c.vectors.Clear(ctx, canon); err != nil {
		return coreerrors.New(coreerrors.KindVectorStoreFailure, "coordinator.ClearIndex", err)
	}
	if err := c.lexical.Clear(ctx, canon); err != nil {
		return coreerrors.New(coreerrors.KindLexicalIndexFailure, "coordinator.ClearIndex", err)
	}
	if err := c.hashes.Remove(canon); err != nil {
		return coreerrors.New(coreerrors.KindIoFailure, "coordinator.ClearIndex", err)
	}
	return nil
}

// GetStatistics reports the vector store's view of project's contents.
// The lexical index is built from the same upserts and is expected to
// agree; spec §4.7 treats the vector store's Stats as authoritative for
// client-facing reporting.
func (c *Coordinator) GetStatistics(ctx context.Context, root string) (types.Stats, error) {
	canon, err := pathkey.Canonicalize(root)
	if err != nil {
		return types.Stats{}, coreerrors.New(coreerrors.KindIoFailure, "coordinator.GetStatistics", err)
	}
	stats, err := c.vectors.Stats(ctx, canon)
	if err != nil {
		return types.Stats{}, coreerrors.New(coreerrors.KindVectorStoreFailure, "coordinator.GetStatistics", err)
	}
	return stats, nil
}
