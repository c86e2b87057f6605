// Package config loads and validates the rotor.yaml definition file.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	rterrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/rotation"
)

//go:embed schema.json
var definitionSchema string

// Config holds the runtime configuration.
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the rotor.yaml structure: named secret stores plus
// the resources rotated against them.
type Definition struct {
	Version      int                          `yaml:"version"`
	SecretStores map[string]SecretStoreConfig `yaml:"secretStores"`
	Resources    []ResourceConfig             `yaml:"resources"`
}

// SecretStoreConfig holds store-specific configuration. Everything besides
// the type identifier is passed through to the store constructor.
type SecretStoreConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:",inline"`
}

// ResourceConfig is one managed credential in rotor.yaml.
type ResourceConfig struct {
	Name                  string              `yaml:"name"`
	Strategy              string              `yaml:"strategy"`
	Store                 string              `yaml:"store"`
	ExpirationDays        float64             `yaml:"expirationDays,omitempty"`
	ExpirationOverlapDays float64             `yaml:"expirationOverlapDays,omitempty"`
	ContentType           string              `yaml:"contentType,omitempty"`
	TargetResourceID      string              `yaml:"targetResourceId,omitempty"`
	DatabaseUser          *DatabaseUserConfig `yaml:"databaseUser,omitempty"`
}

// DatabaseUserConfig configures the database-user strategies.
type DatabaseUserConfig struct {
	NamePrefix       string   `yaml:"namePrefix,omitempty"`
	Roles            []string `yaml:"roles,omitempty"`
	ServerSecretName string   `yaml:"serverSecretName,omitempty"`
	Hostname         string   `yaml:"hostname,omitempty"`
}

// Load reads, schema-validates, and parses the rotor.yaml file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return rterrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a rotor.yaml or pass --config",
			}
		}
		return rterrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return rterrors.ConfigError{
			Field:      "path",
			Value:      c.Path,
			Message:    "invalid YAML syntax",
			Suggestion: "Check indentation and quoting",
		}
	}
	if err := validateDefinition(raw); err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return rterrors.ConfigError{
			Field:      "path",
			Value:      c.Path,
			Message:    fmt.Sprintf("failed to parse configuration: %v", err),
			Suggestion: "Check the rotor.yaml structure",
		}
	}

	if err := checkReferences(&def); err != nil {
		return err
	}

	c.Definition = &def
	if c.Logger != nil {
		c.Logger.Debug("Loaded %d secret stores and %d resources from %s",
			len(def.SecretStores), len(def.Resources), c.Path)
	}
	return nil
}

// validateDefinition runs the embedded JSON schema over the parsed YAML.
func validateDefinition(raw interface{}) error {
	jsonData, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return fmt.Errorf("failed to convert configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return rterrors.ConfigError{
			Field:      "rotor.yaml",
			Message:    "schema validation failed:\n  - " + strings.Join(messages, "\n  - "),
			Suggestion: "Fix the listed fields",
		}
	}
	return nil
}

// checkReferences verifies cross-references the schema cannot express.
func checkReferences(def *Definition) error {
	seen := make(map[string]bool, len(def.Resources))
	for _, res := range def.Resources {
		if seen[res.Name] {
			return rterrors.ConfigError{
				Field:      "resources",
				Value:      res.Name,
				Message:    fmt.Sprintf("duplicate resource name '%s'", res.Name),
				Suggestion: "Resource names must be unique",
			}
		}
		seen[res.Name] = true

		if _, ok := def.SecretStores[res.Store]; !ok {
			return rterrors.ConfigError{
				Field:      "store",
				Value:      res.Store,
				Message:    fmt.Sprintf("resource '%s' references undefined store '%s'", res.Name, res.Store),
				Suggestion: "Add the store under secretStores or fix the reference",
			}
		}
	}
	return nil
}

// Resources maps the parsed definition onto the rotation engine's input.
func (d *Definition) RotationResources() []*rotation.Resource {
	resources := make([]*rotation.Resource, 0, len(d.Resources))
	for _, rc := range d.Resources {
		res := &rotation.Resource{
			Name:                  rc.Name,
			StrategyType:          rc.Strategy,
			StoreName:             rc.Store,
			ExpirationDays:        rc.ExpirationDays,
			ExpirationOverlapDays: rc.ExpirationOverlapDays,
			ContentType:           rc.ContentType,
			TargetResourceID:      rc.TargetResourceID,
		}
		if rc.DatabaseUser != nil {
			res.DatabaseUser = &rotation.DatabaseUserSpec{
				NamePrefix:       rc.DatabaseUser.NamePrefix,
				Roles:            rc.DatabaseUser.Roles,
				ServerSecretName: rc.DatabaseUser.ServerSecretName,
				Hostname:         rc.DatabaseUser.Hostname,
			}
		}
		resources = append(resources, res)
	}
	return resources
}

// NeedsCloudClient reports whether any resource uses a strategy that talks
// to the cloud control plane.
func (d *Definition) NeedsCloudClient() bool {
	for _, rc := range d.Resources {
		switch rc.Strategy {
		case rotation.StrategyPostgresAdmin, rotation.StrategyStorageAccountKey:
			return true
		}
	}
	return false
}

// normalizeYAML converts yaml.v3's map[string]interface{} trees into
// json.Marshal-compatible values. yaml.v3 already keys maps by string, but
// nested sequences of maps still need the recursive walk.
func normalizeYAML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = normalizeYAML(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[fmt.Sprintf("%v", key)] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
