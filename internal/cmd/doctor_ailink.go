package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/astralmap/astralmap/internal/ailink"
	"github.com/astralmap/astralmap/internal/ailink/prompt"
	"github.com/astralmap/astralmap/internal/config"
)

const (
	routeText  = "text"
	routeImage = "image"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"

var (
	doctorAILinkRole  string
	doctorAILinkModel string
)

// aiLinkRoute is how one report call (text or image) resolves to a provider.
type aiLinkRoute struct {
	Kind       string `json:"kind"`
	Role       string `json:"role"`
	Resolution string `json:"resolution"`
	Routing    string `json:"routing,omitempty"`

	ProviderID  string `json:"provider_id,omitempty"`
	AIProvider  string `json:"ai_provider,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	Model       string `json:"model,omitempty"`
	ModelSource string `json:"model_source,omitempty"`

	SelectionPolicy    string `json:"selection_policy,omitempty"`
	DefaultCredential  string `json:"default_credential,omitempty"`
	CredentialLabel    string `json:"credential_label,omitempty"`
	CredentialPriority int    `json:"credential_priority"`
	APIKeySet          bool   `json:"api_key_set"`

	Error string `json:"error,omitempty"`

	apiKey string
}

var doctorAILinkCmd = &cobra.Command{
	Use:   "ailink [prompt-slug]",
	Short: "Show how the report prompt resolves to AI providers",
	Long: `Resolve the text and image roles used by the astral-map report and show
the provider, model and credential each one would use. The prompt slug
defaults to report.prompt_slug.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		registry, err := buildPromptRegistry(cfg)
		if err != nil {
			return err
		}

		slug := cfg.Report.PromptSlug
		if len(args) == 1 {
			slug = strings.TrimSpace(args[0])
		}
		def, err := registry.Get(slug)
		if err != nil {
			return err
		}

		routes := resolveAILinkRoutes(cfg, def, doctorAILinkRole, doctorAILinkModel)
		renderAILinkRoutes(cmd.OutOrStdout(), def, routes)
		for _, route := range routes {
			if route.Error != "" {
				return fmt.Errorf("%s role %q: %s", route.Kind, route.Role, route.Error)
			}
		}
		return nil
	},
}

func init() {
	doctorCmd.AddCommand(doctorAILinkCmd)
	doctorAILinkCmd.Flags().StringVar(&doctorAILinkRole, "role", "", "resolve only this role as a text call")
	doctorAILinkCmd.Flags().StringVar(&doctorAILinkModel, "model", "", "model override")
}

// resolveAILinkRoutes resolves the report's text and image roles. A role
// override replaces both with a single text resolution.
func resolveAILinkRoutes(cfg *config.Config, def *prompt.Prompt, roleOverride, modelOverride string) []aiLinkRoute {
	providers := ailink.NewRegistry(cfg.AILink)
	modelOverride = strings.TrimSpace(modelOverride)

	if role := strings.TrimSpace(roleOverride); role != "" {
		resolved, err := providers.Resolve(role, def, modelOverride)
		return []aiLinkRoute{newAILinkRoute(cfg.AILink, routeText, role, resolved, err, textModelSource(def, modelOverride))}
	}

	text, err := providers.Resolve(cfg.Report.TextRole, def, modelOverride)
	routes := []aiLinkRoute{newAILinkRoute(cfg.AILink, routeText, cfg.Report.TextRole, text, err, textModelSource(def, modelOverride))}

	imageSource := "provider.models.image"
	if modelOverride != "" {
		imageSource = "cli_override"
	}
	image, err := providers.ResolveImage(cfg.Report.ImageRole, modelOverride)
	return append(routes, newAILinkRoute(cfg.AILink, routeImage, cfg.Report.ImageRole, image, err, imageSource))
}

func newAILinkRoute(cfg ailink.Config, kind, role string, resolved *ailink.ResolvedProvider, err error, modelSource string) aiLinkRoute {
	route := aiLinkRoute{
		Kind:       kind,
		Role:       role,
		Resolution: describeAILinkResolution(cfg, role),
		Routing:    strings.TrimSpace(cfg.Routing[role]),
	}
	if err != nil {
		route.Error = err.Error()
		return route
	}

	route.ProviderID = resolved.ProviderID
	route.AIProvider = strings.ToLower(strings.TrimSpace(resolved.Provider.AIProvider))
	route.BaseURL = providerBaseURL(route.AIProvider, resolved.BaseURL)
	route.Model = resolved.Model
	route.ModelSource = modelSource
	route.SelectionPolicy = valueOrDefault(resolved.Provider.SelectionPolicy, "priority")
	route.DefaultCredential = resolved.Provider.DefaultCredential
	route.CredentialLabel = resolved.Credential.Label
	route.CredentialPriority = resolved.Credential.Priority
	route.apiKey = strings.TrimSpace(resolved.Credential.APIKey)
	route.APIKeySet = route.apiKey != ""
	return route
}

// describeAILinkResolution names the rule pickProvider will apply for role.
func describeAILinkResolution(cfg ailink.Config, role string) string {
	role = strings.TrimSpace(role)
	if role != "" && strings.TrimSpace(cfg.Routing[role]) != "" {
		return "routing"
	}
	if role != "" {
		for _, provider := range cfg.Providers {
			if !provider.Enabled {
				continue
			}
			for _, candidate := range provider.Roles {
				if strings.EqualFold(strings.TrimSpace(candidate), role) {
					return "roles"
				}
			}
		}
	}
	if strings.TrimSpace(cfg.DefaultProvider) != "" {
		return "default_provider"
	}
	return "single_provider"
}

func textModelSource(def *prompt.Prompt, override string) string {
	if override != "" {
		return "cli_override"
	}
	for _, model := range ailink.PreferredModels(def) {
		if strings.TrimSpace(model) != "" {
			return "prompt_preferred_models"
		}
	}
	return "provider.models.default"
}

// providerBaseURL fills in the endpoint a driver uses when base_url is unset.
func providerBaseURL(aiProvider, baseURL string) string {
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		return baseURL
	}
	if aiProvider == "gemini" {
		return geminiDefaultBaseURL
	}
	return ""
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func renderAILinkRoutes(w io.Writer, def *prompt.Prompt, routes []aiLinkRoute) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("ailink resolution for %s (%s)", def.Config.Slug, def.Source))

	for i, route := range routes {
		if i > 0 {
			t.AppendSeparator()
		}
		t.AppendRow(table.Row{strings.ToUpper(route.Kind), route.Role})
		t.AppendRow(table.Row{"  resolution", route.Resolution})
		if route.Routing != "" {
			t.AppendRow(table.Row{"  routing", route.Routing})
		}
		if route.Error != "" {
			t.AppendRow(table.Row{"  error", route.Error})
			continue
		}

		apiKey := "not set"
		if route.APIKeySet {
			apiKey = "set"
		}
		for _, row := range [][2]string{
			{"provider", route.ProviderID},
			{"ai_provider", route.AIProvider},
			{"base_url", valueOrUnset(route.BaseURL)},
			{"model", route.Model},
			{"model_source", route.ModelSource},
			{"selection_policy", route.SelectionPolicy},
			{"default_credential", valueOrUnset(route.DefaultCredential)},
			{"credential", fmt.Sprintf("%s (priority %d)", valueOrUnset(route.CredentialLabel), route.CredentialPriority)},
			{"api_key", apiKey},
		} {
			t.AppendRow(table.Row{"  " + row[0], row[1]})
		}
	}
	t.Render()
}
