package source

import (
	"context"
	"sort"
	"sync"

	"github.com/activity-collector/internal/config"
	"github.com/activity-collector/internal/models"
	"github.com/activity-collector/pkg/logger"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks -source=interface.go Source

// Source defines the interface for local activity sources
type Source interface {
	// Type returns the source type (git, browser, filesystem, chatbot)
	Type() models.SourceType

	// Validate checks that the environment and configuration allow collection
	Validate(ctx context.Context) error

	// Collect reads the source once. Failures are reported through the
	// result's Success and Error fields rather than a Go error.
	Collect(ctx context.Context) *models.CollectionResult
}

// Factory builds a Source from the sources configuration
type Factory func(cfg config.SourcesConfig, log *logger.Logger) Source

// Registry maps a source type to the factory that builds it
type Registry struct {
	mu        sync.RWMutex
	factories map[models.SourceType]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[models.SourceType]Factory),
	}
}

// Register adds or replaces the factory for a source type
func (r *Registry) Register(sourceType models.SourceType, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[sourceType] = factory
}

// Create builds the source for sourceType. It returns nil for unknown types;
// the caller decides whether that is fatal.
func (r *Registry) Create(sourceType models.SourceType, cfg config.SourcesConfig, log *logger.Logger) Source {
	r.mu.RLock()
	factory, ok := r.factories[sourceType]
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return factory(cfg, log)
}

// Types returns the registered source types, sorted
func (r *Registry) Types() []models.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.SourceType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
