// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// ProviderModel identifies a single routing target. It is a comparable
// value type; equality is by (provider, model) pair.
type ProviderModel struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// String renders the target in "provider/model" form.
func (pm ProviderModel) String() string {
	return pm.Provider + "/" + pm.Model
}

// ParseRef splits a "provider/model" reference on the first "/".
func ParseRef(ref string) (ProviderModel, error) {
	idx := strings.Index(ref, "/")
	if idx <= 0 || idx == len(ref)-1 {
		return ProviderModel{}, clawerr.Errorf(clawerr.CodeCatalogParseInvalidFormat,
			"model ref %q must use provider/model format", ref)
	}
	return ProviderModel{Provider: ref[:idx], Model: ref[idx+1:]}, nil
}

// Chain is a priority-ordered list of candidate targets. The first entry
// is the primary; later entries are successively degraded fallbacks.
type Chain []ProviderModel

// Variant tags the closed set of provider call shapes.
type Variant string

const (
	VariantAnthropic Variant = "anthropic"
	VariantOpenAI    Variant = "openai"
	VariantGoogle    Variant = "google"
)

// KnownVariants lists every supported provider variant.
var KnownVariants = []Variant{VariantAnthropic, VariantOpenAI, VariantGoogle}

// ProviderSpec describes one configured provider.
type ProviderSpec struct {
	Name     string
	Variant  Variant
	Endpoint string
	APIKey   string // opaque; resolved by the secrets layer before load
	Enabled  bool
	Models   []string
}

// HasModel reports whether model appears in the provider's declared list.
func (p ProviderSpec) HasModel(model string) bool {
	for _, m := range p.Models {
		if m == model {
			return true
		}
	}
	return false
}

// AliasSpec binds a logical name to one concrete target, optionally
// with its own fallback chain behind it.
type AliasSpec struct {
	Name   string
	Target ProviderModel
	Chain  Chain
}

// Policy carries the runtime knobs consumed by the prober, breaker,
// resolver, and coordinator.
type Policy struct {
	ProbeTimeout     time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	HealthTTL        time.Duration
	MaxRetries       int
	AlertWebhook     string
}

// LookupKind distinguishes how a name matched the catalog.
type LookupKind string

const (
	LookupRole   LookupKind = "role"
	LookupAlias  LookupKind = "alias"
	LookupTarget LookupKind = "target"
)

// Lookup is the result of resolving a name to its fallback chain.
type Lookup struct {
	Name  string
	Kind  LookupKind
	Chain Chain
}

// Catalog is an immutable snapshot of providers, role chains, alias
// bindings, and policy. Construct via New; never mutate after that.
type Catalog struct {
	providers   map[string]ProviderSpec
	roles       map[string]Chain
	aliases     map[string]AliasSpec
	defaultRole string
	policy      Policy
}

// New validates the catalog inputs and returns an immutable Catalog.
// All validation problems are collected and returned together.
func New(providers []ProviderSpec, roles map[string]Chain, aliases []AliasSpec, defaultRole string, policy Policy) (*Catalog, error) {
	c := &Catalog{
		providers:   make(map[string]ProviderSpec, len(providers)),
		roles:       make(map[string]Chain, len(roles)),
		aliases:     make(map[string]AliasSpec, len(aliases)),
		defaultRole: defaultRole,
		policy:      policy,
	}

	var errs []error

	for _, p := range providers {
		if p.Name == "" {
			errs = append(errs, clawerr.New(clawerr.CodeCatalogValidateInvalidValue,
				"provider with empty name"))
			continue
		}
		if _, dup := c.providers[p.Name]; dup {
			errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
				"duplicate provider %q", p.Name))
			continue
		}
		if !validVariant(p.Variant) {
			errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
				"provider %q: unknown variant %q (want one of %v)", p.Name, p.Variant, KnownVariants))
		}
		c.providers[p.Name] = p
	}

	for name, chain := range roles {
		if len(chain) == 0 {
			errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
				"role %q maps to an empty chain", name))
			continue
		}
		errs = append(errs, c.validateChain(fmt.Sprintf("role %q", name), chain)...)
		c.roles[name] = chain
	}

	for _, a := range aliases {
		if _, dup := c.aliases[a.Name]; dup {
			errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
				"duplicate alias %q", a.Name))
			continue
		}
		if _, clash := c.roles[a.Name]; clash {
			errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
				"alias %q collides with a role of the same name", a.Name))
			continue
		}
		errs = append(errs, c.validateTarget(fmt.Sprintf("alias %q", a.Name), a.Target)...)
		errs = append(errs, c.validateChain(fmt.Sprintf("alias %q chain", a.Name), a.Chain)...)
		c.aliases[a.Name] = a
	}

	if defaultRole != "" {
		if _, ok := c.roles[defaultRole]; !ok {
			errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
				"default role %q is not a configured role", defaultRole))
		}
	}

	errs = append(errs, validatePolicy(policy)...)

	if joined := errors.Join(errs...); joined != nil {
		return nil, clawerr.Wrap(joined, clawerr.CodeCatalogValidateInvalidValue, "validating catalog")
	}
	return c, nil
}

// validateChain checks that every entry references a declared provider
// and a model that provider actually lists.
func (c *Catalog) validateChain(where string, chain Chain) []error {
	var errs []error
	for i, pm := range chain {
		for _, err := range c.validateTarget(fmt.Sprintf("%s entry %d", where, i), pm) {
			errs = append(errs, err)
		}
	}
	return errs
}

func (c *Catalog) validateTarget(where string, pm ProviderModel) []error {
	p, ok := c.providers[pm.Provider]
	if !ok {
		return []error{clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
			"%s: %s references undeclared provider %q", where, pm, pm.Provider)}
	}
	if !p.HasModel(pm.Model) {
		return []error{clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
			"%s: model %q is not in provider %q's model list", where, pm.Model, pm.Provider)}
	}
	return nil
}

func validatePolicy(p Policy) []error {
	var errs []error
	if p.ProbeTimeout <= 0 {
		errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
			"policy.probe_timeout must be positive, got %s", p.ProbeTimeout))
	}
	if p.BreakerThreshold <= 0 {
		errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
			"policy.breaker_threshold must be positive, got %d", p.BreakerThreshold))
	}
	if p.BreakerCooldown <= 0 {
		errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
			"policy.breaker_cooldown must be positive, got %s", p.BreakerCooldown))
	}
	if p.HealthTTL <= 0 {
		errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
			"policy.health_ttl must be positive, got %s", p.HealthTTL))
	}
	if p.MaxRetries < 0 {
		errs = append(errs, clawerr.Errorf(clawerr.CodeCatalogValidateInvalidValue,
			"policy.max_retries must be non-negative, got %d", p.MaxRetries))
	}
	return errs
}

func validVariant(v Variant) bool {
	for _, known := range KnownVariants {
		if v == known {
			return true
		}
	}
	return false
}

// ChainFor resolves a role or alias name to its fallback chain. A role
// returns its configured chain. An alias returns its own chain when it
// declares one, otherwise a single-element chain wrapping its binding.
func (c *Catalog) ChainFor(name string) (Lookup, error) {
	if chain, ok := c.roles[name]; ok {
		return Lookup{Name: name, Kind: LookupRole, Chain: chain}, nil
	}
	if a, ok := c.aliases[name]; ok {
		chain := a.Chain
		if len(chain) == 0 {
			chain = Chain{a.Target}
		}
		return Lookup{Name: name, Kind: LookupAlias, Chain: chain}, nil
	}
	return Lookup{}, clawerr.Errorf(clawerr.CodeCatalogLookupUnknownName,
		"unknown role or alias %q", name)
}

// DefaultRole returns the configured default role name, if any.
func (c *Catalog) DefaultRole() string {
	return c.defaultRole
}

// Provider returns the declared ProviderSpec by name.
func (c *Catalog) Provider(name string) (ProviderSpec, bool) {
	p, ok := c.providers[name]
	return p, ok
}

// Providers returns every declared provider spec.
func (c *Catalog) Providers() []ProviderSpec {
	out := make([]ProviderSpec, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p)
	}
	return out
}

// ChainProviders returns the distinct provider names referenced by any
// role or alias chain, the set the prober fans out over.
func (c *Catalog) ChainProviders() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(chain Chain) {
		for _, pm := range chain {
			if !seen[pm.Provider] {
				seen[pm.Provider] = true
				out = append(out, pm.Provider)
			}
		}
	}
	for _, chain := range c.roles {
		add(chain)
	}
	for _, a := range c.aliases {
		add(Chain{a.Target})
		add(a.Chain)
	}
	return out
}

// Roles returns the configured role names.
func (c *Catalog) Roles() []string {
	out := make([]string, 0, len(c.roles))
	for name := range c.roles {
		out = append(out, name)
	}
	return out
}

// Aliases returns the configured alias names.
func (c *Catalog) Aliases() []string {
	out := make([]string, 0, len(c.aliases))
	for name := range c.aliases {
		out = append(out, name)
	}
	return out
}

// Policy returns the catalog's policy knobs.
func (c *Catalog) Policy() Policy {
	return c.policy
}

// HasTarget reports whether pm names a declared provider and model.
func (c *Catalog) HasTarget(pm ProviderModel) bool {
	p, ok := c.providers[pm.Provider]
	return ok && p.HasModel(pm.Model)
}
