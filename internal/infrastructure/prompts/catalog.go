// Package prompts loads the analysis prompt templates from YAML. The
// embedded defaults can be overridden per type by an external file.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

//go:embed default_prompts.yaml
var defaultPrompts []byte

type fileFormat struct {
	Templates map[string]templateEntry `yaml:"templates"`
}

type templateEntry struct {
	Description string  `yaml:"description"`
	System      string  `yaml:"system"`
	Prompt      string  `yaml:"prompt"`
	Query       string  `yaml:"query"`
	Category    string  `yaml:"category"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type Catalog struct {
	templates map[domain.AnalysisType]domain.PromptTemplate
}

// Load returns the embedded catalog, overlaid with overridePath when set.
func Load(overridePath string) (*Catalog, error) {
	c := &Catalog{templates: make(map[domain.AnalysisType]domain.PromptTemplate)}
	if err := c.merge(defaultPrompts, "embedded defaults"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overridePath) == "" {
		return c, nil
	}
	raw, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load prompts", err)
	}
	if err := c.merge(raw, overridePath); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) merge(raw []byte, source string) error {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return domain.WrapError(domain.ErrConfiguration, "parse prompts", fmt.Errorf("%s: %w", source, err))
	}
	for name, entry := range f.Templates {
		t := domain.AnalysisType(strings.ToLower(strings.TrimSpace(name)))
		if strings.TrimSpace(entry.Prompt) == "" {
			return domain.WrapError(domain.ErrConfiguration, "parse prompts", fmt.Errorf("%s: template %q has no prompt", source, name))
		}
		c.templates[t] = domain.PromptTemplate{
			Type:        t,
			Description: strings.TrimSpace(entry.Description),
			System:      strings.TrimSpace(entry.System),
			Body:        entry.Prompt,
			Query:       strings.TrimSpace(entry.Query),
			Category:    strings.TrimSpace(entry.Category),
			MaxTokens:   entry.MaxTokens,
			Temperature: entry.Temperature,
		}
	}
	return nil
}

func (c *Catalog) Template(t domain.AnalysisType) (domain.PromptTemplate, error) {
	tmpl, ok := c.templates[domain.AnalysisType(strings.ToLower(string(t)))]
	if !ok {
		return domain.PromptTemplate{}, domain.WrapError(domain.ErrInvalidInput, "lookup prompt template",
			errors.New("unknown analysis type "+string(t)))
	}
	return tmpl, nil
}

func (c *Catalog) Types() []domain.AnalysisType {
	out := make([]domain.AnalysisType, 0, len(c.templates))
	for t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
