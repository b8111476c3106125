package prompt

import (
	"fmt"
	"slices"
	"strings"
)

// Registry provides access to prompt definitions.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry stores prompts by slug.
type InMemoryRegistry struct {
	prompts map[string]*Prompt
}

// NewRegistry builds a registry from prompts. Slugs must be unique.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	return WithOverrides(prompts, nil)
}

// WithOverrides layers overrides on top of defaults: an override replaces
// the default with the same slug. Within one layer slugs must be unique.
func WithOverrides(defaults, overrides []*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{prompts: make(map[string]*Prompt, len(defaults)+len(overrides))}
	for _, layer := range [][]*Prompt{defaults, overrides} {
		seen := make(map[string]bool, len(layer))
		for _, p := range layer {
			if p == nil {
				continue
			}
			slug := strings.TrimSpace(p.Config.Slug)
			switch {
			case slug == "":
				return nil, fmt.Errorf("prompt %s missing slug", p.Source)
			case seen[slug]:
				return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
			}
			seen[slug] = true
			reg.prompts[slug] = p
		}
	}
	return reg, nil
}

// Get returns the prompt for the slug.
func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	if p, ok := r.prompts[slug]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt %q not found", slug)
}

// List returns prompts sorted by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	prompts := make([]*Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		prompts = append(prompts, p)
	}
	slices.SortFunc(prompts, func(a, b *Prompt) int {
		return strings.Compare(strings.TrimSpace(a.Config.Slug), strings.TrimSpace(b.Config.Slug))
	})
	return prompts
}
