package rotation

import (
	"fmt"
	"sort"

	"github.com/systmms/rotor/internal/logging"
)

// Registry maps strategy tags to rotator instances. It is constructed once
// by the driver and read-only afterwards, so lookups need no locking.
type Registry struct {
	rotators map[string]Rotator
	logger   *logging.Logger
}

// NewRegistry creates a registry holding the built-in strategies. cloud may
// be nil when only store-local strategies are configured; the cloud-backed
// strategies are then left unregistered.
func NewRegistry(logger *logging.Logger, cloud CloudClient) *Registry {
	r := &Registry{
		rotators: make(map[string]Rotator),
		logger:   logger,
	}

	r.register(NewManualRotator(logger))
	r.register(NewUserRotator(logger, PostgresDialect{}))
	r.register(NewUserRotator(logger, MySQLDialect{}))
	if cloud != nil {
		r.register(NewAdminRotator(logger, cloud))
		r.register(NewStorageKeyRotator(logger, cloud))
	}

	logger.Debug("Registered %d rotation strategies", len(r.rotators))
	return r
}

func (r *Registry) register(rotator Rotator) {
	r.rotators[rotator.StrategyType()] = rotator
}

// Register adds a custom strategy. Duplicate tags are rejected.
func (r *Registry) Register(rotator Rotator) error {
	tag := rotator.StrategyType()
	if _, exists := r.rotators[tag]; exists {
		return fmt.Errorf("strategy '%s' already registered", tag)
	}
	r.rotators[tag] = rotator
	r.logger.Debug("Registered custom rotation strategy: %s", tag)
	return nil
}

// Lookup resolves a strategy tag. The second return is false for unknown
// tags; the driver reports that as a per-resource skip, not a fatal error.
func (r *Registry) Lookup(tag string) (Rotator, bool) {
	rotator, ok := r.rotators[tag]
	return rotator, ok
}

// Rotators returns the tag-to-rotator map for Context construction.
func (r *Registry) Rotators() map[string]Rotator {
	return r.rotators
}

// Strategies returns all registered tags, sorted.
func (r *Registry) Strategies() []string {
	tags := make([]string, 0, len(r.rotators))
	for tag := range r.rotators {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
