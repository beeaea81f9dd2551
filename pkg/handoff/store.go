// Package handoff defines how pipeline stages exchange their typed context.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/apperrors"
	"github.com/Manny27nyc/amazon-sagemaker-examples/pkg/models"
)

// Store loads and saves versioned pipeline contexts. Save assigns and
// returns the new version; there is no locking, the last save wins.
type Store interface {
	Load(ctx context.Context, namespace string) (*models.PipelineContext, error)
	Save(ctx context.Context, pctx *models.PipelineContext) (int64, error)
}

// MemoryStore keeps contexts in process. Used when no backend is configured
// and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	contexts map[string][]*models.PipelineContext
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contexts: make(map[string][]*models.PipelineContext)}
}

// Load returns the latest version for namespace.
func (s *MemoryStore) Load(_ context.Context, namespace string) (*models.PipelineContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.contexts[namespace]
	if len(versions) == 0 {
		return nil, fmt.Errorf("pipeline context %q: %w", namespace, apperrors.ErrNotFound)
	}
	return versions[len(versions)-1].Clone(), nil
}

// Save appends a new version.
func (s *MemoryStore) Save(_ context.Context, pctx *models.PipelineContext) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := pctx.Clone()
	saved.Version = int64(len(s.contexts[pctx.Namespace]) + 1)
	s.contexts[pctx.Namespace] = append(s.contexts[pctx.Namespace], saved)
	return saved.Version, nil
}

// Versions returns every saved version for namespace, oldest first.
func (s *MemoryStore) Versions(namespace string) []*models.PipelineContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.PipelineContext, 0, len(s.contexts[namespace]))
	for _, c := range s.contexts[namespace] {
		out = append(out, c.Clone())
	}
	return out
}

// LoadOrSeed returns the stored context for namespace with any empty input
// filled from seed, or a fresh context built from seed when nothing has been
// saved yet.
func LoadOrSeed(ctx context.Context, store Store, namespace string, seed models.PipelineInputs) (*models.PipelineContext, error) {
	pctx, err := store.Load(ctx, namespace)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load pipeline context: %w", err)
		}
		return &models.PipelineContext{Namespace: namespace, Inputs: seed}, nil
	}

	if pctx.Inputs.Bucket == "" {
		pctx.Inputs.Bucket = seed.Bucket
	}
	if pctx.Inputs.Prefix == "" {
		pctx.Inputs.Prefix = seed.Prefix
	}
	if pctx.Inputs.PretrainedModelPath == "" {
		pctx.Inputs.PretrainedModelPath = seed.PretrainedModelPath
	}
	if len(pctx.Inputs.RawDataSources) == 0 && len(seed.RawDataSources) > 0 {
		pctx.Inputs.RawDataSources = make(map[string]string, len(seed.RawDataSources))
		for k, v := range seed.RawDataSources {
			pctx.Inputs.RawDataSources[k] = v
		}
	}
	return pctx, nil
}
