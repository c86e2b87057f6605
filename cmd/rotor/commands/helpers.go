package commands

import (
	"context"
	"fmt"

	"github.com/systmms/rotor/internal/clock"
	"github.com/systmms/rotor/internal/cloud"
	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/metrics"
	"github.com/systmms/rotor/internal/secretstores"
	"github.com/systmms/rotor/pkg/rotation"
	"github.com/systmms/rotor/pkg/secretstore"
)

// buildContext loads the configuration and assembles the stores, strategy
// registry, and operation context shared by the initialize and rotate
// commands.
func buildContext(cfg *config.Config, flags rotation.Flags) (*rotation.Context, []*rotation.Resource, error) {
	if err := cfg.Load(); err != nil {
		return nil, nil, err
	}
	def := cfg.Definition

	storeRegistry := secretstores.NewRegistry(cfg.Logger)
	stores := make(map[string]secretstore.Store, len(def.SecretStores))
	for name, sc := range def.SecretStores {
		store, err := storeRegistry.Create(name, sc.Type, sc.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure store '%s': %w", name, err)
		}
		stores[name] = store
	}

	var cloudClient rotation.CloudClient
	if def.NeedsCloudClient() {
		client, err := cloud.NewAzureClient(cfg.Logger)
		if err != nil {
			return nil, nil, err
		}
		cloudClient = client
	}

	registry := rotation.NewRegistry(cfg.Logger, cloudClient)

	op := &rotation.Context{
		Stores:   stores,
		Rotators: registry.Rotators(),
		Clock:    clock.System{},
		Flags:    flags,
	}
	return op, def.RotationResources(), nil
}

// filterResources narrows the resource list to the requested names. With
// no names, all resources are selected.
func filterResources(resources []*rotation.Resource, names []string) ([]*rotation.Resource, error) {
	if len(names) == 0 {
		return resources, nil
	}

	byName := make(map[string]*rotation.Resource, len(resources))
	for _, res := range resources {
		byName[res.Name] = res
	}

	selected := make([]*rotation.Resource, 0, len(names))
	for _, name := range names {
		res, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("resource '%s' is not defined in the configuration", name)
		}
		selected = append(selected, res)
	}
	return selected, nil
}

// runVerb drives the engine and prints the per-run summary.
func runVerb(ctx context.Context, cfg *config.Config, verb string, flags rotation.Flags, names []string) error {
	op, resources, err := buildContext(cfg, flags)
	if err != nil {
		return err
	}
	resources, err = filterResources(resources, names)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		cfg.Logger.Warn("No resources to process")
		return nil
	}

	engine := rotation.NewEngine(cfg.Logger, metrics.NewRecorder())
	results, err := engine.Run(ctx, verb, resources, op)
	if err != nil {
		return err
	}

	rotated := 0
	for _, result := range results {
		if result.Rotated {
			rotated++
		}
	}
	cfg.Logger.Info("Processed %d resources: %d rotated, %d skipped",
		len(results), rotated, len(results)-rotated)
	return nil
}
