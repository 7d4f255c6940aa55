package strategy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/cache"
	"main/internal/model"
	"main/pkg/exception"
)

const configCacheTTL = 10 * time.Minute

// ConfigRepository is the durable side of source configuration.
type ConfigRepository interface {
	ListSourceConfigs(ctx context.Context) ([]model.SourceConfig, error)
	SaveSourceConfig(ctx context.Context, cfg model.SourceConfig) error
}

// ConfigStore keeps source configs in memory with last-write-wins
// semantics, persisting every explicit update and mirroring it to the
// cache collaborator.
type ConfigStore struct {
	repo  ConfigRepository
	cache cache.Store

	mu sync.RWMutex
	m  map[string]model.SourceConfig
}

// NewConfigStore creates an empty store.
func NewConfigStore(repo ConfigRepository, c cache.Store) *ConfigStore {
	return &ConfigStore{
		repo:  repo,
		cache: c,
		m:     make(map[string]model.SourceConfig),
	}
}

// Load replaces the in-memory view with the persisted configs, seeding
// defaults for sources the store has never seen.
func (s *ConfigStore) Load(ctx context.Context, defaults []model.SourceConfig) error {
	persisted, err := s.repo.ListSourceConfigs(ctx)
	if err != nil {
		return errors.Wrap(err, "list source configs")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = make(map[string]model.SourceConfig, len(defaults)+len(persisted))
	for _, cfg := range defaults {
		s.m[cfg.ID] = cfg
	}
	for _, cfg := range persisted {
		s.m[cfg.ID] = cfg
	}
	return nil
}

// All returns the configs ordered by source id.
func (s *ConfigStore) All() []model.SourceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SourceConfig, 0, len(s.m))
	for _, cfg := range s.m {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns one source's config.
func (s *ConfigStore) Get(id string) (model.SourceConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.m[id]
	return cfg, ok
}

// Update validates and applies a patch, persists the result, and mirrors
// it to the cache. The in-memory copy is replaced last-write-wins.
func (s *ConfigStore) Update(ctx context.Context, id string, patch model.SourceConfigPatch) (model.SourceConfig, error) {
	if err := patch.Validate(); err != nil {
		return model.SourceConfig{}, errors.Wrap(exception.ErrValidationPatch, err.Error())
	}

	s.mu.Lock()
	current, ok := s.m[id]
	s.mu.Unlock()
	if !ok {
		return model.SourceConfig{}, exception.ErrValidationUnknown
	}

	updated := patch.Apply(current)
	if err := s.repo.SaveSourceConfig(ctx, updated); err != nil {
		return model.SourceConfig{}, errors.Wrap(err, "persist source config")
	}
	if err := s.cache.Set(ctx, "source_config:"+id, updated, configCacheTTL); err != nil {
		return model.SourceConfig{}, errors.Wrap(err, "cache source config")
	}

	s.mu.Lock()
	s.m[id] = updated
	s.mu.Unlock()
	return updated, nil
}
