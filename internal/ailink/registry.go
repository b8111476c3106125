package ailink

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/astralmap/astralmap/internal/ailink/driver"
	"github.com/astralmap/astralmap/internal/ailink/driver/gemini"
	"github.com/astralmap/astralmap/internal/ailink/driver/openai"
	"github.com/astralmap/astralmap/internal/ailink/prompt"
)

// Model tiers recognised in ProviderInstanceConfig.Models.
const (
	TierDefault = "default"
	TierImage   = "image"
)

const policyRoundRobin = "round_robin"

// driverFactories builds a driver per ai_provider kind.
var driverFactories = map[string]func(baseURL, apiKey string, timeout time.Duration) driver.Driver{
	"gemini": func(baseURL, apiKey string, timeout time.Duration) driver.Driver {
		client := gemini.NewClient(baseURL, apiKey)
		client.Timeout = timeout
		return client
	},
	"openai": func(baseURL, apiKey string, timeout time.Duration) driver.Driver {
		client := openai.NewClient(baseURL, apiKey)
		client.Timeout = timeout
		return client
	},
}

// Registry maps a role to a provider instance, one of its credentials and a
// driver. Drivers are cached per provider and credential.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]driver.Driver
	turns   map[string]int
}

// ResolvedProvider is everything a single call needs.
type ResolvedProvider struct {
	ProviderID string
	Provider   ProviderInstanceConfig
	Credential CredentialConfig
	Driver     driver.Driver
	Model      string
	BaseURL    string
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Resolve picks the provider, credential, driver and text model for a role.
func (r *Registry) Resolve(role string, promptDef *prompt.Prompt, modelOverride string) (*ResolvedProvider, error) {
	return r.resolve(role, promptDef, modelOverride, TierDefault)
}

// ResolveImage is Resolve for image generation. The chosen driver must
// implement driver.ImageGenerator and the model comes from the "image" tier.
func (r *Registry) ResolveImage(role string, modelOverride string) (*ResolvedProvider, error) {
	resolved, err := r.resolve(role, nil, modelOverride, TierImage)
	if err != nil {
		return nil, err
	}
	if _, ok := resolved.Driver.(driver.ImageGenerator); !ok {
		return nil, fmt.Errorf("provider %q does not support image generation", resolved.ProviderID)
	}
	return resolved, nil
}

func (r *Registry) resolve(role string, promptDef *prompt.Prompt, modelOverride, tier string) (*ResolvedProvider, error) {
	if r == nil {
		return nil, fmt.Errorf("ailink registry not configured")
	}

	id, provider, err := r.pickProvider(strings.TrimSpace(role))
	if err != nil {
		return nil, err
	}

	cred, credKey, err := selectCredential(provider, func(group string, n int) int {
		return r.nextTurn(id+":"+group, n)
	})
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", id, err)
	}

	drv, err := r.driver(id, credKey, provider, cred)
	if err != nil {
		return nil, err
	}

	model, err := resolveModel(provider, promptDef, modelOverride, tier)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", id, err)
	}

	resolved := &ResolvedProvider{
		ProviderID: id,
		Provider:   provider,
		Credential: cred,
		Driver:     drv,
		Model:      model,
		BaseURL:    strings.TrimSpace(provider.BaseURL),
	}
	if client, ok := drv.(*openai.Client); ok {
		resolved.BaseURL = client.BaseURL
	}
	return resolved, nil
}

// pickProvider tries, in order: an explicit routing entry, the first enabled
// provider (by id) that lists the role, the default provider, and finally
// the only enabled provider.
func (r *Registry) pickProvider(role string) (string, ProviderInstanceConfig, error) {
	if routed := strings.TrimSpace(r.cfg.Routing[role]); role != "" && routed != "" {
		provider, ok := r.cfg.Providers[routed]
		if !ok {
			return "", ProviderInstanceConfig{}, fmt.Errorf("unknown provider %q for role %q", routed, role)
		}
		if !provider.Enabled {
			return "", ProviderInstanceConfig{}, fmt.Errorf("provider %q is disabled", routed)
		}
		return routed, provider, nil
	}

	enabled := r.enabledIDs()
	if role != "" {
		for _, id := range enabled {
			if hasRole(r.cfg.Providers[id].Roles, role) {
				return id, r.cfg.Providers[id], nil
			}
		}
	}

	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		provider, ok := r.cfg.Providers[id]
		switch {
		case !ok:
			return "", ProviderInstanceConfig{}, fmt.Errorf("default provider %q not configured", id)
		case !provider.Enabled:
			return "", ProviderInstanceConfig{}, fmt.Errorf("default provider %q is disabled", id)
		}
		return id, provider, nil
	}

	switch len(enabled) {
	case 0:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no enabled providers configured")
	case 1:
		return enabled[0], r.cfg.Providers[enabled[0]], nil
	default:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no provider routing configured for role %q", role)
	}
}

func (r *Registry) enabledIDs() []string {
	ids := make([]string, 0, len(r.cfg.Providers))
	for id, provider := range r.cfg.Providers {
		if provider.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// selectCredential returns the credential to use and the key its driver is
// cached under. A DefaultCredential label wins; otherwise the highest
// priority group is used, rotated by turn under round_robin.
//
// When no credential carries an API key the first one is returned anyway so
// the caller can report which credential is missing its key.
func selectCredential(cfg ProviderInstanceConfig, turn func(group string, n int) int) (CredentialConfig, string, error) {
	if len(cfg.Credentials) == 0 {
		return CredentialConfig{}, "", fmt.Errorf("no credentials configured")
	}

	usable := usableCredentials(cfg.Credentials)
	if len(usable) == 0 {
		return cfg.Credentials[0], credentialKey(cfg.Credentials[0], "0"), nil
	}

	if label := strings.TrimSpace(cfg.DefaultCredential); label != "" {
		for _, cred := range usable {
			if strings.EqualFold(strings.TrimSpace(cred.Label), label) {
				return cred, strings.TrimSpace(cred.Label), nil
			}
		}
	}

	top := usable[0].Priority
	for _, cred := range usable {
		top = max(top, cred.Priority)
	}
	var group []CredentialConfig
	for _, cred := range usable {
		if cred.Priority == top {
			group = append(group, cred)
		}
	}

	groupKey := strconv.Itoa(top)
	pick := 0
	if strings.EqualFold(strings.TrimSpace(cfg.SelectionPolicy), policyRoundRobin) && turn != nil {
		pick = turn(groupKey, len(group))
	}
	return group[pick], credentialKey(group[pick], "p"+groupKey), nil
}

// usableCredentials drops labelled credentials that are disabled and any
// credential without an API key.
func usableCredentials(all []CredentialConfig) []CredentialConfig {
	usable := make([]CredentialConfig, 0, len(all))
	for _, cred := range all {
		labelled := strings.TrimSpace(cred.Label) != ""
		if (labelled && !cred.Enabled) || strings.TrimSpace(cred.APIKey) == "" {
			continue
		}
		usable = append(usable, cred)
	}
	return usable
}

func credentialKey(cred CredentialConfig, fallback string) string {
	if label := strings.TrimSpace(cred.Label); label != "" {
		return label
	}
	return fallback
}

func (r *Registry) driver(id, credKey string, provider ProviderInstanceConfig, cred CredentialConfig) (driver.Driver, error) {
	cacheKey := id
	if credKey != "" {
		cacheKey += ":" + credKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if drv, ok := r.drivers[cacheKey]; ok {
		return drv, nil
	}

	kind := strings.ToLower(strings.TrimSpace(provider.AIProvider))
	build, ok := driverFactories[kind]
	if !ok {
		if kind == "" {
			kind = "(unset)"
		}
		return nil, fmt.Errorf("unsupported ai_provider %q for provider %q", kind, id)
	}

	drv := build(provider.BaseURL, cred.APIKey, r.cfg.DefaultTimeout)
	if r.drivers == nil {
		r.drivers = map[string]driver.Driver{}
	}
	r.drivers[cacheKey] = drv
	return drv, nil
}

// resolveModel returns the first non-empty candidate. Image calls never use
// prompt hints and never fall back to the text model.
func resolveModel(provider ProviderInstanceConfig, promptDef *prompt.Prompt, override, tier string) (string, error) {
	candidates := []string{override}
	if tier == TierImage {
		candidates = append(candidates, provider.Models[TierImage])
	} else {
		candidates = append(candidates, PreferredModels(promptDef)...)
		candidates = append(candidates, provider.Models[tier], provider.Models[TierDefault])
	}

	for _, model := range candidates {
		if model = strings.TrimSpace(model); model != "" {
			return model, nil
		}
	}
	if tier == TierImage {
		return "", fmt.Errorf("image model not configured")
	}
	return "", fmt.Errorf("model not configured")
}

// PreferredModels reads the "preferred_models" provider hint, which may be a
// single string or a list.
func PreferredModels(promptDef *prompt.Prompt) []string {
	if promptDef == nil {
		return nil
	}

	switch hint := promptDef.Config.ProviderHints["preferred_models"].(type) {
	case string:
		return []string{hint}
	case []string:
		return hint
	case []any:
		models := make([]string, 0, len(hint))
		for _, item := range hint {
			if s, ok := item.(string); ok {
				models = append(models, s)
			}
		}
		return models
	}
	return nil
}

func (r *Registry) nextTurn(key string, n int) int {
	if n <= 1 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.turns == nil {
		r.turns = map[string]int{}
	}
	pick := r.turns[key] % n
	r.turns[key]++
	return pick
}

func hasRole(roles []string, role string) bool {
	for _, candidate := range roles {
		if strings.EqualFold(strings.TrimSpace(candidate), role) {
			return true
		}
	}
	return false
}
