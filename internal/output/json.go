package output

import (
	"encoding/json"

	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/numerology"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
	// OmitImage drops the base64 image from reports.
	OmitImage bool
}

// NumbersDocument is the JSON shape of a numbers result.
type NumbersDocument struct {
	FullName string            `json:"fullName"`
	DOB      string            `json:"dob"`
	Numbers  numerology.Bundle `json:"numbers"`
}

// FormatNumbers renders the bundle with its inputs.
func (f *JSONFormatter) FormatNumbers(req core.NumerologyRequest, bundle numerology.Bundle) (string, error) {
	return f.marshal(NumbersDocument{FullName: req.FullName, DOB: req.DOB, Numbers: bundle})
}

// FormatReport renders the full report.
func (f *JSONFormatter) FormatReport(report *core.AstralMap) (string, error) {
	if report == nil {
		return "", nil
	}
	if f.OmitImage {
		copied := *report
		copied.SymbolicImage = ""
		report = &copied
	}
	return f.marshal(report)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
