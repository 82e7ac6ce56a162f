// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the command registry: which commands exist, the words
// that select them, and the arguments each one takes.
//
// The registry only describes commands. Handlers are bound by command name in
// Go code when the registry is turned into an operator.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Registry
// =============================================================================

//go:embed registry.yaml
var defaultRegistryYAML []byte

const tracerName = "hooman.intent"

// MaxYAMLFileSize caps registry files. A registry is hand-written; anything
// larger is a mistake or an attack.
const MaxYAMLFileSize = 1 << 20

// ErrEmptyRegistry is returned when a registry defines no commands.
var ErrEmptyRegistry = errors.New("registry defines no commands")

var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// Registry Types
// =============================================================================

// RegistryConfig is the decoded registry file.
//
// # Thread Safety
//
// Immutable after loading; safe for concurrent use.
type RegistryConfig struct {
	// Settings hold the wording used while talking to the user.
	Settings Settings `yaml:"settings"`

	// Commands in registration order. Earlier commands win synonym clashes.
	Commands []CommandConfig `yaml:"commands" validate:"dive"`
}

// Settings hold the dialogue wording. Empty fields keep the built-in wording.
type Settings struct {
	CancelWords      []string `yaml:"cancel_words"`
	AffirmativeWords []string `yaml:"affirmative_words"`

	// DefaultQuestion may contain {name}, replaced by the argument name.
	DefaultQuestion string `yaml:"default_question"`
	NotUnderstood   string `yaml:"not_understood"`
	ConfirmQuestion string `yaml:"confirm_question"`
}

// CommandConfig describes one command.
type CommandConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`

	// Alert is 0 (none), 1 (modifying) or 2 (critical).
	Alert int `yaml:"alert" validate:"gte=0,lte=2"`

	Synonyms  []SynonymConfig  `yaml:"synonyms" validate:"dive"`
	Arguments []ArgumentConfig `yaml:"arguments" validate:"dive"`
}

// SynonymConfig maps words to a canonical command string.
//
// Words are taken as-is. Combine lists word groups joined as a cartesian
// product: [[add, new], [task, item]] yields addtask, additem, newtask,
// newitem.
type SynonymConfig struct {
	Canonical string     `yaml:"canonical" validate:"required"`
	Words     []string   `yaml:"words" validate:"dive,required"`
	Combine   [][]string `yaml:"combine"`
}

// ArgumentConfig describes one argument.
type ArgumentConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`

	// MaxCount is the number of values kept. Nil means 1, 0 means unbounded.
	MaxCount *int `yaml:"max_count" validate:"omitnil,gte=0"`

	Prefixes []string     `yaml:"prefixes" validate:"dive,required"`
	Question string       `yaml:"question"`
	Rules    []RuleConfig `yaml:"rules" validate:"dive"`
}

// RuleConfig selects a built-in rule by name.
type RuleConfig struct {
	Rule        string `yaml:"rule" validate:"required"`
	Context     any    `yaml:"context"`
	Description string `yaml:"description"`
}

// =============================================================================
// Singleton Default Registry
// =============================================================================

var (
	registryMu      sync.RWMutex
	registryOnce    sync.Once
	cachedRegistry  *RegistryConfig
	registryLoadErr error
)

// GetRegistryConfig returns the cached embedded registry.
//
// # Description
//
// Loads the embedded registry.yaml on first call and caches the result,
// error included, for subsequent calls.
//
// # Thread Safety
//
// Safe for concurrent use.
func GetRegistryConfig(ctx context.Context) (*RegistryConfig, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetRegistryConfig: ctx must not be nil")
	}

	registryMu.RLock()
	if cachedRegistry != nil || registryLoadErr != nil {
		cfg, err := cachedRegistry, registryLoadErr
		registryMu.RUnlock()
		return cfg, err
	}
	registryMu.RUnlock()

	registryMu.Lock()
	defer registryMu.Unlock()

	registryOnce.Do(func() {
		cachedRegistry, registryLoadErr = LoadRegistryConfig(ctx, defaultRegistryYAML)
	})
	return cachedRegistry, registryLoadErr
}

// ResetRegistryConfig clears the cached registry for tests.
func ResetRegistryConfig() {
	registryMu.Lock()
	defer registryMu.Unlock()
	cachedRegistry = nil
	registryLoadErr = nil
	registryOnce = sync.Once{}
}

// DefaultRegistryYAML returns a copy of the embedded registry source.
func DefaultRegistryYAML() []byte {
	return append([]byte(nil), defaultRegistryYAML...)
}

// =============================================================================
// Loading
// =============================================================================

// LoadRegistryFile reads and loads the registry at path.
func LoadRegistryFile(ctx context.Context, path string) (*RegistryConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRegistryFile: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadRegistryFile: %s exceeds maximum size (%d > %d)", path, info.Size(), MaxYAMLFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRegistryFile: %w", err)
	}
	cfg, err := LoadRegistryConfig(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("LoadRegistryFile %s: %w", path, err)
	}
	return cfg, nil
}

// LoadRegistryConfig parses and validates a registry from YAML bytes.
//
// # Description
//
// Decodes the YAML, checks struct tags with validator, then checks what
// tags cannot express: unique names, single-word names, canonical strings
// naming their own command, and rules that exist and accept their context.
// Every command is compiled once here so a registry that loads is a registry
// that builds.
//
// # Inputs
//
//   - ctx: Context for tracing.
//   - data: Raw YAML bytes.
//
// # Outputs
//
//   - *RegistryConfig: The validated registry.
//   - error: Non-nil if parsing or validation fails. Wraps ErrEmptyRegistry
//     when no commands are defined.
func LoadRegistryConfig(ctx context.Context, data []byte) (*RegistryConfig, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "config.LoadRegistryConfig")
	defer span.End()

	cfg, err := loadRegistry(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registry invalid")
		return nil, fmt.Errorf("LoadRegistryConfig: %w", err)
	}

	span.SetAttributes(
		attribute.Int("commands", len(cfg.Commands)),
		attribute.Int("synonyms", len(cfg.Dictionary())),
	)
	slog.Info("command registry loaded",
		slog.Int("commands", len(cfg.Commands)),
		slog.Int("words", len(cfg.Dictionary().Words())),
	)
	return cfg, nil
}

func loadRegistry(data []byte) (*RegistryConfig, error) {
	if len(data) == 0 {
		return nil, errors.New("empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg RegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(cfg.Commands) == 0 {
		return nil, ErrEmptyRegistry
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	if err := validateRegistry(&cfg); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	return &cfg, nil
}

// validateRegistry checks cross-field consistency.
func validateRegistry(cfg *RegistryConfig) error {
	seen := make(map[string]bool, len(cfg.Commands))
	for i, cmd := range cfg.Commands {
		if strings.ContainsFunc(cmd.Name, unicode.IsSpace) {
			return fmt.Errorf("commands[%d] (%s): name must be a single word", i, cmd.Name)
		}
		if seen[cmd.Name] {
			return fmt.Errorf("commands[%d]: duplicate command %q", i, cmd.Name)
		}
		seen[cmd.Name] = true

		for j, syn := range cmd.Synonyms {
			if fields := strings.Fields(syn.Canonical); len(fields) == 0 || fields[0] != cmd.Name {
				return fmt.Errorf("commands[%d] (%s): synonyms[%d]: canonical %q must start with the command name",
					i, cmd.Name, j, syn.Canonical)
			}
			if len(syn.Words) == 0 && len(syn.Combine) == 0 {
				return fmt.Errorf("commands[%d] (%s): synonyms[%d]: words or combine must be set", i, cmd.Name, j)
			}
			for k, part := range syn.Combine {
				if len(part) == 0 {
					return fmt.Errorf("commands[%d] (%s): synonyms[%d]: combine[%d] must not be empty", i, cmd.Name, j, k)
				}
			}
		}

		if _, err := cmd.Descriptor(); err != nil {
			return fmt.Errorf("commands[%d]: %w", i, err)
		}
	}
	return nil
}
