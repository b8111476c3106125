package cmd

import (
	"fmt"

	"github.com/astralmap/astralmap/internal/ailink"
	"github.com/astralmap/astralmap/internal/ailink/prompt"
	"github.com/astralmap/astralmap/internal/config"
	"github.com/astralmap/astralmap/internal/core/engine"
)

// buildPromptRegistry loads the embedded prompts plus any overrides from
// ailink.prompts_dir.
func buildPromptRegistry(cfg *config.Config) (prompt.Registry, error) {
	if cfg == nil {
		return prompt.DefaultRegistry()
	}
	registry, err := prompt.LoadRegistry(cfg.AILink.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}
	return registry, nil
}

// buildService wires the provider registry and prompts into an AILink service.
func buildService(cfg *config.Config) (*ailink.Service, prompt.Registry, error) {
	registry, err := buildPromptRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	return ailink.NewService(cfg.AILink, registry), registry, nil
}

// buildOrchestrator returns the report orchestrator configured from the
// report section. A nil service leaves report generation unconfigured.
func buildOrchestrator(cfg *config.Config, service *ailink.Service) *engine.Orchestrator {
	orch := &engine.Orchestrator{
		PromptSlug:   cfg.Report.PromptSlug,
		TextRole:     cfg.Report.TextRole,
		ImageRole:    cfg.Report.ImageRole,
		AspectRatio:  cfg.Report.AspectRatio,
		OutputFormat: cfg.Report.OutputFormat,
		ToolVersion:  versionInfo.Version,
	}
	if service != nil {
		orch.AI = service
	}
	return orch
}
