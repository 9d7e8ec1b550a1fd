package categorizer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fjacquet/stmt-ingest/internal/logging"

	"gopkg.in/yaml.v3"
)

// Rule maps description keywords to a category label.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// LoadRules reads a YAML list of rules:
//
//	- name: Groceries
//	  keywords: ["supermarket", "grocery"]
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("error reading categorization rules: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("error parsing categorization rules: %w", err)
	}
	for i, r := range rules {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("categorization rule %d has no name", i+1)
		}
	}
	return rules, nil
}

// KeywordStrategy matches the description against rule keywords,
// case-insensitively. Rules are checked in file order.
type KeywordStrategy struct {
	rules  []Rule
	logger logging.Logger
}

// NewKeywordStrategy creates a KeywordStrategy over rules.
func NewKeywordStrategy(rules []Rule, logger logging.Logger) *KeywordStrategy {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &KeywordStrategy{rules: rules, logger: logger}
}

func (s *KeywordStrategy) Name() string { return "Keyword" }

func (s *KeywordStrategy) Categorize(_ context.Context, in Input) (string, bool, error) {
	description := strings.ToUpper(in.Description)
	if strings.TrimSpace(description) == "" {
		return "", false, nil
	}
	for _, rule := range s.rules {
		for _, keyword := range rule.Keywords {
			if keyword == "" || !strings.Contains(description, strings.ToUpper(keyword)) {
				continue
			}
			s.logger.Debug("Row categorized by keyword",
				logging.F(logging.FieldStrategy, s.Name()),
				logging.F("keyword", keyword),
				logging.F(logging.FieldCategory, rule.Name))
			return rule.Name, true, nil
		}
	}
	return "", false, nil
}
