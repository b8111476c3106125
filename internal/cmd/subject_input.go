package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/astralmap/astralmap/internal/core"
)

// readSubjectFile loads a questionnaire from YAML or JSON. "-" reads stdin.
func readSubjectFile(path string) (core.Subject, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return core.Subject{}, errors.New("--input is required")
	}

	var reader io.Reader
	if trimmed == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(trimmed)
		if err != nil {
			return core.Subject{}, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}
	return decodeSubject(reader)
}

// decodeSubject parses a single questionnaire document. JSON input is
// accepted as YAML flow syntax. Unknown keys are rejected.
func decodeSubject(r io.Reader) (core.Subject, error) {
	var subject core.Subject
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&subject); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Subject{}, errors.New("subject input is empty")
		}
		return core.Subject{}, fmt.Errorf("parse subject: %w", err)
	}
	return subject, nil
}
