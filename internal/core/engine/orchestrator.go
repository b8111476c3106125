package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/astralmap/astralmap/internal/ailink"
	"github.com/astralmap/astralmap/internal/ailink/encode"
	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/metrics"
	"github.com/astralmap/astralmap/internal/numerology"
)

// User-facing failure messages for the two AI steps.
const (
	MsgNoImagePrompt = "La IA no pudo generar un prompt para la imagen simbólica."
	MsgImageFailed   = "La generación de la imagen falló."
)

// Defaults used when the orchestrator is built without explicit settings.
const (
	DefaultPromptSlug   = "astral-map"
	DefaultImageRole    = "astral-map-image"
	DefaultAspectRatio  = "1:1"
	DefaultOutputFormat = "image/png"
)

// Generator is the slice of the AI service the orchestrator depends on.
type Generator interface {
	Generate(ctx context.Context, req ailink.GenerateRequest) (*ailink.GenerateResponse, error)
	GenerateImage(ctx context.Context, req ailink.ImageRequest) (*ailink.ImageResult, error)
}

// Orchestrator turns questionnaires into numerology bundles and reports.
type Orchestrator struct {
	AI           Generator
	PromptSlug   string
	TextRole     string
	ImageRole    string
	AspectRatio  string
	OutputFormat string
	ToolVersion  string
	Clock        func() time.Time
	NewID        func() string
}

// reportPayload is the JSON object the text model must return.
type reportPayload struct {
	core.Analysis
	SymbolicImagePrompt string `json:"symbolicImagePrompt"`
}

// Numbers validates the request and derives its bundle.
func (o *Orchestrator) Numbers(req core.NumerologyRequest) (numerology.Bundle, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordDerivation(false)
		return numerology.Bundle{}, err
	}
	bundle, err := numerology.Derive(req.FullName, req.DOB)
	metrics.RecordDerivation(err == nil)
	return bundle, err
}

// Prepare validates the subject, derives its bundle and returns the prompt
// variables for the report template.
func (o *Orchestrator) Prepare(subject core.Subject) (numerology.Bundle, map[string]string, error) {
	if err := subject.Validate(); err != nil {
		metrics.RecordDerivation(false)
		return numerology.Bundle{}, nil, err
	}
	bundle, err := numerology.Derive(subject.FullName, subject.DOB)
	metrics.RecordDerivation(err == nil)
	if err != nil {
		return numerology.Bundle{}, nil, err
	}
	return bundle, Variables(subject, bundle), nil
}

// AstralMap runs the full pipeline: derivation, narrative completion and the
// symbolic image. No partial report is returned on failure.
func (o *Orchestrator) AstralMap(ctx context.Context, subject core.Subject) (*core.AstralMap, error) {
	requestedAt := o.now()
	report, err := o.astralMap(ctx, subject, requestedAt)
	metrics.RecordReport(err == nil, o.now().Sub(requestedAt))
	return report, err
}

func (o *Orchestrator) astralMap(ctx context.Context, subject core.Subject, requestedAt time.Time) (*core.AstralMap, error) {
	bundle, vars, err := o.Prepare(subject)
	if err != nil {
		return nil, err
	}
	if o.AI == nil {
		return nil, &ailink.Failure{Code: ailink.CodeNotConfigured, Message: "ai service not configured"}
	}

	slug := o.promptSlug()
	started := o.now()
	text, err := o.AI.Generate(ctx, ailink.GenerateRequest{
		Role:       o.TextRole,
		PromptSlug: slug,
		Variables:  vars,
	})
	metrics.RecordAICall("text", providerOf(text), err == nil, o.now().Sub(started))
	if err != nil {
		return nil, err
	}

	payload, err := decodePayload(text.Raw)
	if err != nil {
		return nil, err
	}

	started = o.now()
	image, err := o.AI.GenerateImage(ctx, ailink.ImageRequest{
		Role:         o.imageRole(),
		Prompt:       payload.SymbolicImagePrompt,
		AspectRatio:  valueOr(o.AspectRatio, DefaultAspectRatio),
		OutputFormat: valueOr(o.OutputFormat, DefaultOutputFormat),
	})
	imageProvider := ""
	if image != nil {
		imageProvider = image.ProviderID
	}
	metrics.RecordAICall("image", imageProvider, err == nil, o.now().Sub(started))
	if err != nil {
		return nil, imageFailure(err)
	}
	if image == nil || len(image.Data) == 0 {
		return nil, &ailink.Failure{Code: ailink.CodeInvalidResponse, Message: MsgImageFailed, Err: ailink.ErrNoImage}
	}

	return &core.AstralMap{
		Analysis:              payload.Analysis,
		SymbolicImage:         encode.EncodeBase64String(image.Data),
		SymbolicImageMimeType: valueOr(image.MIMEType, o.ImageMIME()),
		SymbolicImagePrompt:   payload.SymbolicImagePrompt,
		Numbers:               bundle,
		Provenance: core.Provenance{
			ReportID:    o.newID(),
			RequestedAt: requestedAt,
			ResolvedAt:  o.now(),
			Provider:    text.ProviderID,
			TextModel:   text.Model,
			ImageModel:  image.Model,
			PromptSlug:  slug,
			ToolVersion: o.ToolVersion,
		},
	}, nil
}

// ImageMIME reports the MIME type the orchestrator requests for symbolic images.
func (o *Orchestrator) ImageMIME() string {
	if o == nil {
		return DefaultOutputFormat
	}
	return valueOr(o.OutputFormat, DefaultOutputFormat)
}

// Variables flattens a subject and its bundle into prompt template variables.
// Optional answers left blank are omitted so the template can supply its own
// fallback text.
func Variables(subject core.Subject, bundle numerology.Bundle) map[string]string {
	vars := map[string]string{
		"full_name":       strings.TrimSpace(subject.FullName),
		"dob":             strings.TrimSpace(subject.DOB),
		"parents_status":  string(subject.ParentsStatus),
		"mother_relation": subject.MotherRelation.MotherLabel(),
		"father_relation": subject.FatherRelation.FatherLabel(),
		"essence":         strconv.Itoa(bundle.Essence),
		"image":           strconv.Itoa(bundle.Image),
		"mission":         strconv.Itoa(bundle.Mission),
		"life_path":       strconv.Itoa(bundle.LifePath),
		"karmas":          bundle.Karmas,
		"karmic_debt":     bundle.KarmicDebt,
		"pinnacles":       bundle.Pinnacles,
		"challenges":      bundle.Challenges,
	}
	optional := map[string]string{
		"upbringing":       subject.Upbringing,
		"children":         subject.Children,
		"sibling_position": subject.SiblingPosition,
		"profession":       subject.Profession,
		"hobbies":          subject.Hobbies,
	}
	for key, value := range optional {
		if value = strings.TrimSpace(value); value != "" {
			vars[key] = value
		}
	}
	return vars
}

func decodePayload(raw json.RawMessage) (*reportPayload, error) {
	var payload reportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ailink.Failure{
			Code:    ailink.CodeInvalidResponse,
			Message: "decode report response",
			Err:     fmt.Errorf("decode report response: %w", err),
		}
	}
	payload.SymbolicImagePrompt = strings.TrimSpace(payload.SymbolicImagePrompt)
	if payload.SymbolicImagePrompt == "" {
		return nil, &ailink.Failure{Code: ailink.CodeInvalidResponse, Message: MsgNoImagePrompt}
	}
	return &payload, nil
}

// imageFailure keeps the provider classification but replaces the message
// with the user-facing one.
func imageFailure(err error) error {
	failure := ailink.ClassifyError(err)
	if failure == nil {
		return err
	}
	return &ailink.Failure{
		Code:    failure.Code,
		Message: MsgImageFailed,
		Details: failure.Error(),
		Err:     err,
	}
}

func providerOf(resp *ailink.GenerateResponse) string {
	if resp == nil {
		return ""
	}
	return resp.ProviderID
}

func (o *Orchestrator) promptSlug() string {
	return valueOr(o.PromptSlug, DefaultPromptSlug)
}

func (o *Orchestrator) imageRole() string {
	return valueOr(o.ImageRole, DefaultImageRole)
}

func (o *Orchestrator) newID() string {
	if o != nil && o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
