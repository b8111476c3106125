package prompt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/schema"
	"gopkg.in/yaml.v3"
)

//go:embed prompt.schema.json
var promptSchema []byte

// The prompt schema is compiled once, at package init.
var promptValidator, promptValidatorErr = schema.NewValidator(promptSchema)

const fence = "---"

// Load parses a prompt file: YAML frontmatter between "---" fences followed
// by a markdown body, or a bare YAML document. The body becomes the system
// template when the frontmatter has none, otherwise the user template when
// that is empty.
func Load(source string, data []byte) (*Prompt, error) {
	cfg, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	switch {
	case strings.TrimSpace(cfg.SystemTemplate) == "":
		cfg.SystemTemplate = body
	case strings.TrimSpace(cfg.UserTemplate) == "":
		cfg.UserTemplate = body
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}
	return &Prompt{Config: cfg, Source: source}, nil
}

// LoadFromDir loads every *.md file in dir, in lexical order.
func LoadFromDir(dir string) ([]*Prompt, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	prompts := make([]*Prompt, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path) // #nosec G304 -- prompts_dir is operator config
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		p, err := Load(path, data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func splitFrontmatter(data []byte) (Config, string, error) {
	doc := bytes.TrimSpace(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))
	if len(doc) == 0 {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	var cfg Config
	rest, fenced := bytes.CutPrefix(doc, []byte(fence+"\n"))
	if !fenced {
		if err := yaml.Unmarshal(doc, &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid yaml: %w", err)
		}
		return cfg, "", nil
	}

	front, body, _ := bytes.Cut(rest, []byte("\n"+fence))
	if bytes.HasPrefix(rest, []byte(fence)) {
		front, body = nil, rest[len(fence):]
	}
	if err := yaml.Unmarshal(front, &cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return cfg, strings.TrimSpace(string(body)), nil
}

func validateConfig(cfg Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if promptValidatorErr != nil {
		return fmt.Errorf("compile prompt schema: %w", promptValidatorErr)
	}
	diagnostics, err := promptValidator.ValidateJSON(payload)
	if err != nil {
		return err
	}
	if len(diagnostics) > 0 {
		return fmt.Errorf("schema validation failed: %s", diagnostics[0].Message)
	}
	return nil
}
