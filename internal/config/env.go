package config

import (
	"maps"
	"os"
	"strconv"
	"strings"
)

// providerFields maps the suffix that follows a provider id in
// {PREFIX}AILINK_PROVIDERS_<ID>_<SUFFIX> to its config key.
var providerFields = []struct {
	suffix string
	key    string
	lower  bool
}{
	{suffix: "_AI_PROVIDER", key: "ai_provider", lower: true},
	{suffix: "_SELECTION_POLICY", key: "selection_policy", lower: true},
	{suffix: "_DEFAULT_CREDENTIAL", key: "default_credential"},
	{suffix: "_BASE_URL", key: "base_url"},
	{suffix: "_ENABLED", key: "enabled"},
}

// envTree collects overrides that gofulmen's fixed specs cannot express
// because the variable name embeds a provider id, role or list index.
type envTree map[string]any

// collectDynamicEnv scans environ for provider and routing variables, e.g.
// ASTRALMAP_AILINK_PROVIDERS_OPENAI_IMAGES_CREDENTIALS_0_API_KEY or
// ASTRALMAP_AILINK_ROUTING_ASTRAL_MAP_IMAGE. {PREFIX}GEMINI_API_KEY is a
// shortcut that sets the key of the first "gemini" credential and enables it;
// the rest of that credential comes from lower layers.
func collectDynamicEnv(prefix string, environ []string, into envTree) {
	providersPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range environ {
		name, value, ok := strings.Cut(item, "=")
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}
		switch {
		case name == prefix+"GEMINI_API_KEY":
			cred := into.credential("gemini", 0)
			cred["enabled"] = true
			cred["api_key"] = value
		case strings.HasPrefix(name, routingPrefix):
			if role := toSlug(name[len(routingPrefix):]); role != "" {
				into.section("ailink", "routing")[role] = value
			}
		case strings.HasPrefix(name, providersPrefix):
			into.provider(name[len(providersPrefix):], value)
		}
	}
}

func (t envTree) provider(rest, value string) {
	if id, tier, ok := strings.Cut(rest, "_MODELS_"); ok {
		if id = toSlug(id); id != "" && tier != "" {
			t.section("ailink", "providers", id, "models")[strings.ToLower(tier)] = value
		}
		return
	}

	if id, field, ok := strings.Cut(rest, "_CREDENTIALS_"); ok {
		rawIndex, key, found := strings.Cut(field, "_")
		index, err := strconv.Atoi(rawIndex)
		if id = toSlug(id); id == "" || !found || err != nil || index < 0 || key == "" {
			return
		}
		cred := t.credential(id, index)
		key = strings.ToLower(key)
		switch key {
		case "enabled":
			cred[key] = strings.EqualFold(value, "true")
		case "priority":
			if n, err := strconv.Atoi(value); err == nil {
				cred[key] = n
			}
		default:
			cred[key] = value
		}
		return
	}

	for _, field := range providerFields {
		id, ok := strings.CutSuffix(rest, field.suffix)
		if !ok || toSlug(id) == "" {
			continue
		}
		provider := t.section("ailink", "providers", toSlug(id))
		switch {
		case field.key == "enabled":
			provider[field.key] = strings.EqualFold(value, "true")
		case field.lower:
			provider[field.key] = strings.ToLower(value)
		default:
			provider[field.key] = value
		}
		return
	}
}

// section returns the nested map at path, creating missing levels.
func (t envTree) section(path ...string) map[string]any {
	node := map[string]any(t)
	for _, key := range path {
		next, ok := node[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[key] = next
		}
		node = next
	}
	return node
}

// credential returns credentials[index] of provider id, growing the list.
func (t envTree) credential(id string, index int) map[string]any {
	provider := t.section("ailink", "providers", id)
	list, _ := provider["credentials"].([]any)
	for len(list) <= index {
		list = append(list, map[string]any{})
	}
	provider["credentials"] = list
	cred, ok := list[index].(map[string]any)
	if !ok {
		cred = map[string]any{}
		list[index] = cred
	}
	return cred
}

// mergeCredentials folds the credential entries in env into the lists the
// lower layers already hold, index by index and key by key. Viper replaces
// lists wholesale, so an unmerged entry would drop every file credential.
func mergeCredentials(env map[string]any, existing func(id string) []any) {
	section, _ := env["ailink"].(map[string]any)
	providers, _ := section["providers"].(map[string]any)
	for id, raw := range providers {
		provider, _ := raw.(map[string]any)
		list, ok := provider["credentials"].([]any)
		if !ok {
			continue
		}
		base := existing(id)
		merged := make([]any, max(len(list), len(base)))
		for i := range merged {
			cred := map[string]any{}
			if i < len(base) {
				if from, ok := base[i].(map[string]any); ok {
					maps.Copy(cred, from)
				}
			}
			if i < len(list) {
				if from, ok := list[i].(map[string]any); ok {
					maps.Copy(cred, from)
				}
			}
			merged[i] = cred
		}
		provider["credentials"] = merged
	}
}

// toSlug turns an env fragment such as ASTRAL_MAP_IMAGE into astral-map-image.
func toSlug(raw string) string {
	var parts []string
	for _, part := range strings.Split(raw, "_") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "-")
}

// dynamicEnv is collectDynamicEnv over the process environment.
func dynamicEnv(prefix string, into map[string]any) {
	collectDynamicEnv(prefix, os.Environ(), envTree(into))
}
