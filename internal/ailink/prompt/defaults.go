package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the prompts compiled into the binary.
func LoadDefaults() ([]*Prompt, error) {
	names, err := fs.Glob(defaultPromptsFS, "prompts/*.md")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	prompts := make([]*Prompt, 0, len(names))
	for _, name := range names {
		data, err := defaultPromptsFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", name, err)
		}
		p, err := Load(path.Base(name), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// DefaultRegistry builds a registry from embedded prompts only.
func DefaultRegistry() (Registry, error) {
	return LoadRegistry("")
}

// LoadRegistry returns the embedded prompts overlaid with the *.md files in
// dir. An empty dir means no overrides.
func LoadRegistry(dir string) (Registry, error) {
	defaults, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	var overrides []*Prompt
	if strings.TrimSpace(dir) != "" {
		if overrides, err = LoadFromDir(dir); err != nil {
			return nil, err
		}
	}
	return WithOverrides(defaults, overrides)
}
