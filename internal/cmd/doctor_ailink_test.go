package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralmap/astralmap/internal/ailink"
	"github.com/astralmap/astralmap/internal/ailink/prompt"
	"github.com/astralmap/astralmap/internal/config"
)

func doctorTestConfig(openaiBaseURL string) *config.Config {
	return &config.Config{
		Report: config.ReportConfig{PromptSlug: "astral-map", TextRole: "astral-map", ImageRole: "astral-map-image"},
		AILink: ailink.Config{
			DefaultProvider: "gemini",
			Routing:         map[string]string{"astral-map-image": "openai"},
			Providers: map[string]ailink.ProviderInstanceConfig{
				"gemini": {
					Enabled:           true,
					AIProvider:        "gemini",
					Models:            map[string]string{"default": "gemini-2.5-flash"},
					Roles:             []string{"astral-map"},
					DefaultCredential: "main",
					Credentials: []ailink.CredentialConfig{
						{Label: "main", Enabled: true, APIKey: "gm-key", Priority: 5},
					},
				},
				"openai": {
					Enabled:    true,
					AIProvider: "openai",
					BaseURL:    openaiBaseURL,
					Models:     map[string]string{"default": "gpt-4o-mini", "image": "gpt-image-1"},
					Credentials: []ailink.CredentialConfig{
						{Label: "images", Enabled: true, APIKey: "sk-test-key", Priority: 1},
					},
				},
			},
		},
	}
}

func defaultAstralPrompt(t *testing.T) *prompt.Prompt {
	t.Helper()
	registry, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	def, err := registry.Get("astral-map")
	require.NoError(t, err)
	return def
}

func TestResolveAILinkRoutesCoversTextAndImageRoles(t *testing.T) {
	routes := resolveAILinkRoutes(doctorTestConfig(""), defaultAstralPrompt(t), "", "")
	require.Len(t, routes, 2)

	text := routes[0]
	assert.Equal(t, routeText, text.Kind)
	assert.Equal(t, "astral-map", text.Role)
	assert.Equal(t, "roles", text.Resolution)
	assert.Equal(t, "gemini", text.ProviderID)
	assert.Equal(t, geminiDefaultBaseURL, text.BaseURL)
	assert.Equal(t, "gemini-2.5-flash", text.Model)
	assert.Equal(t, "provider.models.default", text.ModelSource)
	assert.Equal(t, "priority", text.SelectionPolicy)
	assert.Equal(t, "main", text.CredentialLabel)
	assert.Equal(t, 5, text.CredentialPriority)
	assert.True(t, text.APIKeySet)
	assert.Empty(t, text.Error)

	image := routes[1]
	assert.Equal(t, routeImage, image.Kind)
	assert.Equal(t, "astral-map-image", image.Role)
	assert.Equal(t, "routing", image.Resolution)
	assert.Equal(t, "openai", image.Routing)
	assert.Equal(t, "openai", image.ProviderID)
	assert.Equal(t, "https://api.openai.com/v1", image.BaseURL)
	assert.Equal(t, "gpt-image-1", image.Model)
	assert.Equal(t, "provider.models.image", image.ModelSource)
	assert.Equal(t, "images", image.CredentialLabel)
}

func TestResolveAILinkRoutesOverrides(t *testing.T) {
	routes := resolveAILinkRoutes(doctorTestConfig(""), defaultAstralPrompt(t), "summary", "gemini-2.5-pro")
	require.Len(t, routes, 1)
	assert.Equal(t, "summary", routes[0].Role)
	assert.Equal(t, "default_provider", routes[0].Resolution)
	assert.Equal(t, "gemini-2.5-pro", routes[0].Model)
	assert.Equal(t, "cli_override", routes[0].ModelSource)
}

func TestResolveAILinkRoutesReportsErrors(t *testing.T) {
	cfg := doctorTestConfig("")
	cfg.AILink.Routing["astral-map-image"] = "missing"

	routes := resolveAILinkRoutes(cfg, defaultAstralPrompt(t), "", "")
	require.Len(t, routes, 2)
	assert.Empty(t, routes[0].Error)
	assert.Contains(t, routes[1].Error, `unknown provider "missing"`)

	var buf bytes.Buffer
	renderAILinkRoutes(&buf, defaultAstralPrompt(t), routes)
	out := buf.String()
	assert.Contains(t, out, "astral-map-image")
	assert.Contains(t, out, "unknown provider")
	assert.Contains(t, out, "gemini-2.5-flash")
	assert.NotContains(t, out, "gm-key")
}

func TestDescribeAILinkResolution(t *testing.T) {
	cfg := ailink.Config{Providers: map[string]ailink.ProviderInstanceConfig{"only": {Enabled: true}}}
	assert.Equal(t, "single_provider", describeAILinkResolution(cfg, "astral-map"))

	cfg.DefaultProvider = "only"
	assert.Equal(t, "default_provider", describeAILinkResolution(cfg, "astral-map"))

	cfg.Providers["only"] = ailink.ProviderInstanceConfig{Enabled: true, Roles: []string{"Astral-Map"}}
	assert.Equal(t, "roles", describeAILinkResolution(cfg, "astral-map"))

	cfg.Routing = map[string]string{"astral-map": "only"}
	assert.Equal(t, "routing", describeAILinkResolution(cfg, "astral-map"))
}

func TestTextModelSourcePrefersPromptHint(t *testing.T) {
	def := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []any{"gemini-2.5-pro"}}}}
	assert.Equal(t, "prompt_preferred_models", textModelSource(def, ""))
	assert.Equal(t, "cli_override", textModelSource(def, "x"))
	assert.Equal(t, "provider.models.default", textModelSource(nil, ""))
}

func TestHTTPAuthCheckUsesProviderHeaders(t *testing.T) {
	var gotPath, gotBearer, gotGoog string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBearer = r.Header.Get("Authorization")
		gotGoog = r.Header.Get("x-goog-api-key")
		if gotBearer == "Bearer bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()
	ctx := context.Background()

	check := runHTTPAuthCheck(ctx, "openai", srv.URL+"/v1/", "sk-good", time.Second)
	assert.True(t, check.OK)
	assert.Equal(t, "/v1/models", gotPath)
	assert.Equal(t, "Bearer sk-good", gotBearer)

	check = runHTTPAuthCheck(ctx, "gemini", srv.URL, "gm-key", time.Second)
	assert.True(t, check.OK)
	assert.Equal(t, "/v1beta/models", gotPath)
	assert.Equal(t, "gm-key", gotGoog)
	assert.Empty(t, gotBearer)

	check = runHTTPAuthCheck(ctx, "openai", srv.URL, "bad", time.Second)
	assert.False(t, check.OK)
	require.NotNil(t, check.Error)
	assert.Equal(t, "AUTH_ERROR", check.Error.Code)

	check = runHTTPAuthCheck(ctx, "openai", srv.URL, " ", time.Second)
	require.NotNil(t, check.Error)
	assert.Equal(t, "NO_API_KEY", check.Error.Code)

	check = runHTTPAuthCheck(ctx, "anthropic", srv.URL, "k", time.Second)
	assert.True(t, check.Skipped)
}

func TestClassifyConnectivity(t *testing.T) {
	assert.Equal(t, connectivitySummary{OK: true, Classification: "ok"},
		classifyConnectivity([]connectivityCheck{{Name: "dns", OK: true}, {Name: "tls", Skipped: true}, {Name: "http_auth", OK: true}}))

	cases := map[string][]connectivityCheck{
		"dns_failure":     {{Name: "dns"}},
		"network_blocked": {{Name: "dns", OK: true}, {Name: "tcp"}},
		"tls_failure":     {{Name: "dns", OK: true}, {Name: "tcp", OK: true}, {Name: "tls"}},
		"auth_invalid":    {{Name: "dns", OK: true}, {Name: "http_auth", Error: &connectivityErrInfo{Code: "AUTH_ERROR"}}},
		"rate_limited":    {{Name: "http_auth", Error: &connectivityErrInfo{Code: "RATE_LIMITED"}}},
		"misconfigured":   {{Name: "resolve", Error: &connectivityErrInfo{Code: "RESOLVE_ERROR"}}},
	}
	for want, checks := range cases {
		summary := classifyConnectivity(checks)
		assert.False(t, summary.OK, want)
		assert.Equal(t, want, summary.Classification)
		assert.NotEmpty(t, summary.Hints, want)
	}
}

func TestRunConnectivityAgainstLocalProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := doctorTestConfig(srv.URL)
	cfg.AILink.Routing["astral-map"] = "openai"
	routes := resolveAILinkRoutes(cfg, defaultAstralPrompt(t), "", "")

	report := runConnectivity(context.Background(), "astral-map", routes, 2*time.Second)
	require.True(t, report.OK)
	require.Len(t, report.Targets, 1, "text and image share one endpoint")

	target := report.Targets[0]
	assert.Equal(t, "127.0.0.1", target.Host)
	names := make([]string, 0, len(target.Checks))
	for _, chk := range target.Checks {
		names = append(names, chk.Name)
	}
	assert.Equal(t, []string{"dns", "tcp", "tls", "http_auth"}, names)
	assert.True(t, target.Checks[2].Skipped)

	var buf bytes.Buffer
	renderConnectivityReport(&buf, report)
	assert.Contains(t, buf.String(), "AILink Connectivity (OK)")
}

func TestRunConnectivityReportsUnresolvedRole(t *testing.T) {
	cfg := doctorTestConfig("")
	cfg.AILink.Routing["astral-map-image"] = "missing"
	routes := resolveAILinkRoutes(cfg, defaultAstralPrompt(t), "", "")

	target := checkTarget(context.Background(), routes[1], time.Second)
	assert.False(t, target.Summary.OK)
	assert.Equal(t, "misconfigured", target.Summary.Classification)
	assert.Equal(t, "resolve", target.Summary.FailureLayer)
}
