package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectDynamicEnv(t *testing.T) {
	tree := envTree{}
	collectDynamicEnv("AM_", []string{
		"AM_GEMINI_API_KEY=g-key",
		"AM_AILINK_PROVIDERS_BACKUP_AI_PROVIDER=OpenAI",
		"AM_AILINK_PROVIDERS_BACKUP_SELECTION_POLICY=Round_Robin",
		"AM_AILINK_PROVIDERS_BACKUP_BASE_URL=https://proxy.example/v1",
		"AM_AILINK_PROVIDERS_BACKUP_ENABLED=TRUE",
		"AM_AILINK_PROVIDERS_BACKUP_CREDENTIALS_1_ENABLED=false",
		"AM_AILINK_PROVIDERS_BACKUP_CREDENTIALS_1_PRIORITY=oops",
		"AM_AILINK_PROVIDERS_BACKUP_CREDENTIALS_X_API_KEY=ignored",
		"AM_AILINK_PROVIDERS_BACKUP_UNKNOWN=ignored",
		"AM_AILINK_ROUTING_ASTRAL_MAP=backup",
		"AM_AILINK_ROUTING_=nobody",
		"AM_PORT=9999",
		"OTHER_GEMINI_API_KEY=nope",
		"AM_AILINK_PROVIDERS_BACKUP_MODELS_DEFAULT=   ",
		"malformed",
	}, tree)

	gemini := tree.section("ailink", "providers", "gemini")
	creds, ok := gemini["credentials"].([]any)
	require.True(t, ok)
	require.Len(t, creds, 1)
	assert.Equal(t, map[string]any{"enabled": true, "api_key": "g-key"}, creds[0])

	backup := tree.section("ailink", "providers", "backup")
	assert.Equal(t, "openai", backup["ai_provider"])
	assert.Equal(t, "round_robin", backup["selection_policy"])
	assert.Equal(t, "https://proxy.example/v1", backup["base_url"])
	assert.Equal(t, true, backup["enabled"])
	assert.NotContains(t, backup, "models")
	assert.NotContains(t, backup, "unknown")

	backupCreds, ok := backup["credentials"].([]any)
	require.True(t, ok)
	require.Len(t, backupCreds, 2)
	assert.Empty(t, backupCreds[0])
	assert.Equal(t, map[string]any{"enabled": false}, backupCreds[1])

	assert.Equal(t, map[string]any{"astral-map": "backup"}, tree.section("ailink", "routing"))
	assert.NotContains(t, tree, "server")
}

func TestMergeCredentials(t *testing.T) {
	env := map[string]any{}
	collectDynamicEnv("AM_", []string{
		"AM_GEMINI_API_KEY=g-env",
		"AM_AILINK_PROVIDERS_BACKUP_CREDENTIALS_1_PRIORITY=7",
	}, envTree(env))

	fromFile := map[string][]any{
		"gemini": {
			map[string]any{"label": "main", "enabled": false, "api_key": "g-file", "priority": 10},
			map[string]any{"label": "spare", "enabled": true, "api_key": "g-spare", "priority": 1},
		},
	}
	mergeCredentials(env, func(id string) []any { return fromFile[id] })

	gemini := envTree(env).section("ailink", "providers", "gemini")
	assert.Equal(t, []any{
		map[string]any{"label": "main", "enabled": true, "api_key": "g-env", "priority": 10},
		map[string]any{"label": "spare", "enabled": true, "api_key": "g-spare", "priority": 1},
	}, gemini["credentials"])

	backup := envTree(env).section("ailink", "providers", "backup")
	assert.Equal(t, []any{map[string]any{}, map[string]any{"priority": 7}}, backup["credentials"])
}

func TestToSlug(t *testing.T) {
	assert.Equal(t, "astral-map-image", toSlug("ASTRAL_MAP_IMAGE"))
	assert.Equal(t, "openai-images", toSlug("_OPENAI__IMAGES_"))
	assert.Equal(t, "", toSlug("__"))
}
