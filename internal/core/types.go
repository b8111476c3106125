package core

import (
	"time"

	"github.com/astralmap/astralmap/internal/numerology"
)

// ParentsStatus describes whether the subject's parents stayed together.
type ParentsStatus string

const (
	ParentsTogether  ParentsStatus = "together"
	ParentsSeparated ParentsStatus = "separated"
	ParentsOther     ParentsStatus = "other"
)

// ParentRelation describes the subject's relationship with one parent.
type ParentRelation string

const (
	RelationGood        ParentRelation = "good"
	RelationBad         ParentRelation = "bad"
	RelationComplicated ParentRelation = "complicated"
	RelationDeceased    ParentRelation = "deceased"
	RelationUnknown     ParentRelation = "unknown"
	RelationAbsent      ParentRelation = "absent"
	RelationDistanced   ParentRelation = "distanced"
	RelationAvoiding    ParentRelation = "avoiding"
	RelationImprisoned  ParentRelation = "imprisoned"
)

// Subject is the biographical questionnaire a report is built from.
type Subject struct {
	FullName        string         `json:"fullName" yaml:"fullName" validate:"required,max=200,has_letters"`
	DOB             string         `json:"dob" yaml:"dob" validate:"required,dob"`
	ParentsStatus   ParentsStatus  `json:"parentsStatus" yaml:"parentsStatus" validate:"required,oneof=together separated other"`
	MotherRelation  ParentRelation `json:"motherRelation" yaml:"motherRelation" validate:"required,parent_relation"`
	FatherRelation  ParentRelation `json:"fatherRelation" yaml:"fatherRelation" validate:"required,parent_relation"`
	Upbringing      string         `json:"upbringing" yaml:"upbringing" validate:"max=4000"`
	Children        string         `json:"children" yaml:"children" validate:"max=1000"`
	SiblingPosition string         `json:"siblingPosition" yaml:"siblingPosition" validate:"max=1000"`
	Profession      string         `json:"profession" yaml:"profession" validate:"max=1000"`
	Hobbies         string         `json:"hobbies" yaml:"hobbies" validate:"max=1000"`
}

// NumerologyRequest carries just the inputs the numerology engine needs.
type NumerologyRequest struct {
	FullName string `json:"fullName" yaml:"fullName" validate:"required,max=200,has_letters"`
	DOB      string `json:"dob" yaml:"dob" validate:"required,dob"`
}

// Analysis holds the narrative sections returned by the text model.
type Analysis struct {
	Numerology string `json:"numerology"`
	Family     string `json:"family"`
	Wounds     string `json:"wounds"`
	NLP        string `json:"nlp"`
	Cuento     string `json:"cuento"`
}

// AstralMap is a finished report: narrative sections, the symbolic image and
// the numerology they were derived from. SymbolicImageMimeType is the format
// the provider returned, which may differ from the one requested.
type AstralMap struct {
	Analysis
	SymbolicImage         string            `json:"symbolicImage"`
	SymbolicImageMimeType string            `json:"symbolicImageMimeType,omitempty"`
	SymbolicImagePrompt   string            `json:"symbolicImagePrompt,omitempty"`
	Numbers               numerology.Bundle `json:"numbers"`
	Provenance            Provenance        `json:"provenance"`
}

// Provenance captures metadata about how a report was produced.
type Provenance struct {
	ReportID    string    `json:"report_id"`
	RequestedAt time.Time `json:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
	Provider    string    `json:"provider,omitempty"`
	TextModel   string    `json:"text_model,omitempty"`
	ImageModel  string    `json:"image_model,omitempty"`
	PromptSlug  string    `json:"prompt_slug,omitempty"`
	ToolVersion string    `json:"tool_version"`
}
