// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

// Package config loads the clawroute configuration document, resolves
// keyring:// credential references, and turns the result into an
// immutable catalog snapshot.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/openclaw/clawroute/internal/catalog"
	"github.com/openclaw/clawroute/internal/secrets"
	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// Config is the top-level clawroute configuration.
type Config struct {
	Listen      string                    `mapstructure:"listen"`
	StateDir    string                    `mapstructure:"state_dir"`
	Providers   map[string]ProviderConfig `mapstructure:"providers"`
	Roles       map[string][]string       `mapstructure:"roles"`
	Aliases     map[string]AliasConfig    `mapstructure:"aliases"`
	DefaultRole string                    `mapstructure:"default_role"`
	Policy      PolicyConfig              `mapstructure:"policy"`
	Alert       AlertConfig               `mapstructure:"alert"`
}

// ProviderConfig declares one upstream provider.
type ProviderConfig struct {
	Variant  string   `mapstructure:"variant"`
	Endpoint string   `mapstructure:"endpoint"`
	APIKey   string   `mapstructure:"api_key"`
	Disabled bool     `mapstructure:"disabled"`
	Models   []string `mapstructure:"models"`
}

// AliasConfig binds a short name to one target, optionally with its
// own fallback chain behind it.
type AliasConfig struct {
	Target string   `mapstructure:"target"`
	Chain  []string `mapstructure:"chain"`
}

// PolicyConfig holds the runtime knobs.
type PolicyConfig struct {
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
	HealthTTL        time.Duration `mapstructure:"health_ttl"`
	MaxRetries       int           `mapstructure:"max_retries"`
}

// AlertConfig selects the operator notification channel.
type AlertConfig struct {
	DiscordWebhook string `mapstructure:"discord_webhook"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix CLAWROUTE_). Keyring URIs in
// the tree are resolved through store before unmarshalling; pass nil
// to skip resolution.
func Load(path string, store secrets.Store) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("listen", "127.0.0.1:8400")
	v.SetDefault("policy.probe_timeout", "5s")
	v.SetDefault("policy.breaker_threshold", 3)
	v.SetDefault("policy.breaker_cooldown", "60s")
	v.SetDefault("policy.health_ttl", "300s")
	v.SetDefault("policy.max_retries", 3)

	// Environment
	v.SetEnvPrefix("CLAWROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, clawerr.Errorf(clawerr.CodeCatalogLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	if store != nil {
		secrets.ResolveViperSecrets(v, store)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, clawerr.Errorf(clawerr.CodeCatalogParseInvalidFormat, "unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// Catalog converts the raw document into a validated catalog snapshot.
// All parse and validation problems are collected and returned together.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	var parseErrs []error

	providers := make([]catalog.ProviderSpec, 0, len(c.Providers))
	for name, p := range c.Providers {
		providers = append(providers, catalog.ProviderSpec{
			Name:     name,
			Variant:  catalog.Variant(p.Variant),
			Endpoint: p.Endpoint,
			APIKey:   p.APIKey,
			Enabled:  !p.Disabled,
			Models:   p.Models,
		})
	}

	roles := make(map[string]catalog.Chain, len(c.Roles))
	for name, refs := range c.Roles {
		chain, errs := parseChain(refs)
		parseErrs = append(parseErrs, errs...)
		roles[name] = chain
	}

	aliases := make([]catalog.AliasSpec, 0, len(c.Aliases))
	for name, a := range c.Aliases {
		target, err := catalog.ParseRef(a.Target)
		if err != nil {
			parseErrs = append(parseErrs, clawerr.Wrapf(err, clawerr.CodeCatalogParseInvalidFormat,
				"alias %q", name))
			continue
		}
		chain, errs := parseChain(a.Chain)
		parseErrs = append(parseErrs, errs...)
		aliases = append(aliases, catalog.AliasSpec{Name: name, Target: target, Chain: chain})
	}

	if joined := errors.Join(parseErrs...); joined != nil {
		return nil, clawerr.Wrap(joined, clawerr.CodeCatalogParseInvalidFormat, "parsing config refs")
	}

	return catalog.New(providers, roles, aliases, c.DefaultRole, catalog.Policy{
		ProbeTimeout:     c.Policy.ProbeTimeout,
		BreakerThreshold: c.Policy.BreakerThreshold,
		BreakerCooldown:  c.Policy.BreakerCooldown,
		HealthTTL:        c.Policy.HealthTTL,
		MaxRetries:       c.Policy.MaxRetries,
		AlertWebhook:     c.Alert.DiscordWebhook,
	})
}

func parseChain(refs []string) (catalog.Chain, []error) {
	var errs []error
	chain := make(catalog.Chain, 0, len(refs))
	for _, ref := range refs {
		pm, err := catalog.ParseRef(ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		chain = append(chain, pm)
	}
	return chain, errs
}
