// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"context"
	"path"

	"go.uber.org/zap"

	"github.com/pdiddy/marketing-research/pkg/types"
)

// Content types of the artifacts a pass writes.
const (
	ContentMarkdown = "text/markdown"
	ContentYAML     = "application/yaml"
	ContentJSON     = "application/json"
	ContentPDF      = "application/pdf"
)

// Persist saves data to store and reports the outcome instead of
// returning an error. A failed save is logged and never stops the caller.
func Persist(ctx context.Context, store Store, pass, name, contentType string, data []byte, logger *zap.Logger) types.PersistResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	version, err := store.Save(ctx, pass, name, contentType, data)
	if err != nil {
		logger.Warn("saving artifact failed", zap.String("pass", pass), zap.String("name", name), zap.Error(err))
		return types.PersistResult{Status: types.PersistFailed, Name: name, Error: err.Error()}
	}
	return types.PersistResult{Status: types.PersistSucceeded, Name: name, Version: version}
}

// Upload writes data to blobs under pass/name and reports the outcome
// instead of returning an error.
func Upload(ctx context.Context, blobs BlobStore, pass, name string, data []byte, logger *zap.Logger) types.PersistResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	uri, err := blobs.Upload(ctx, path.Join(pass, name), data)
	if err != nil {
		logger.Warn("uploading blob failed", zap.String("pass", pass), zap.String("name", name), zap.Error(err))
		return types.PersistResult{Status: types.PersistFailed, Name: name, Error: err.Error()}
	}
	return types.PersistResult{Status: types.PersistSucceeded, Name: name, URI: uri}
}

// Entry is one named output of a pass.
type Entry struct {
	Name        string
	ContentType string
	Data        []byte
}

// SaveAll persists every entry under pass and returns one result per
// entry, in order. Failures do not stop later entries.
func SaveAll(ctx context.Context, store Store, pass string, entries []Entry, logger *zap.Logger) []types.PersistResult {
	results := make([]types.PersistResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, Persist(ctx, store, pass, e.Name, e.ContentType, e.Data, logger))
	}
	return results
}
