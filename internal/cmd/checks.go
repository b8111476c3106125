package cmd

import (
	"context"
	"strings"

	"github.com/astralmap/astralmap/internal/ailink"
	"github.com/astralmap/astralmap/internal/ailink/prompt"
	"github.com/astralmap/astralmap/internal/config"
	apperrors "github.com/astralmap/astralmap/internal/errors"
	"github.com/astralmap/astralmap/internal/observability"
)

// Readiness checkers registered with the health manager by 'serve' and
// reused by 'doctor' and 'health'.

type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return apperrors.NewInternalError("telemetry system not initialized")
	}
	return nil
}

type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(context.Context) error {
	for field, value := range map[string]string{
		"binary name": i.binaryName,
		"env prefix":  i.envPrefix,
		"config name": i.configName,
	} {
		if value == "" {
			return apperrors.NewConfigInvalidError("app identity missing " + field)
		}
	}
	return nil
}

// promptHealthChecker fails when the report prompt cannot be found.
type promptHealthChecker struct {
	registry prompt.Registry
	slug     string
}

func (p promptHealthChecker) CheckHealth(ctx context.Context) error {
	if p.registry == nil {
		return apperrors.NewInternalError("prompt registry not loaded")
	}
	_, err := p.registry.Get(p.slug)
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "report prompt unavailable")
	}
	return nil
}

// providerHealthChecker resolves both report roles and requires an API key
// on each. It never calls the provider.
type providerHealthChecker struct {
	cfg      ailink.Config
	registry prompt.Registry
	report   config.ReportConfig
}

func (p providerHealthChecker) CheckHealth(ctx context.Context) error {
	if err := (promptHealthChecker{registry: p.registry, slug: p.report.PromptSlug}).CheckHealth(ctx); err != nil {
		return err
	}
	def, _ := p.registry.Get(p.report.PromptSlug)

	providers := ailink.NewRegistry(p.cfg)
	text, err := providers.Resolve(p.report.TextRole, def, "")
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeUnavailable, err, "text provider unavailable")
	}
	image, err := providers.ResolveImage(p.report.ImageRole, "")
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeUnavailable, err, "image provider unavailable")
	}
	for _, resolved := range []*ailink.ResolvedProvider{text, image} {
		if strings.TrimSpace(resolved.Credential.APIKey) == "" {
			return apperrors.NewConfigInvalidError("provider " + resolved.ProviderID + " has no API key")
		}
	}
	return nil
}
