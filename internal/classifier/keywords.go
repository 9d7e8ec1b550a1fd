// Package classifier decides whether the first row of an upload is a header
// and infers which columns hold the date, description, amount and category.
package classifier

import (
	"fmt"
	"os"
	"strings"

	"fjacquet/stmt-ingest/internal/models"

	"gopkg.in/yaml.v3"
)

// KeywordTables holds the static keyword lists used by the classifier.
type KeywordTables struct {
	// HeaderKeywords decide whether a row is a header row.
	HeaderKeywords []string `yaml:"header_keywords"`
	// Roles maps each role to the header substrings that identify it.
	Roles map[models.ColumnRole][]string `yaml:"roles"`
}

// DefaultKeywordTables returns the built-in English keyword lists.
func DefaultKeywordTables() KeywordTables {
	return KeywordTables{
		HeaderKeywords: []string{
			"timestamp", "date", "amount", "description", "merchant",
			"transaction", "type", "status", "note", "memo", "currency",
		},
		Roles: map[models.ColumnRole][]string{
			models.RoleDate:        {"date", "timestamp", "posted"},
			models.RoleDescription: {"description", "memo", "merchant", "payee"},
			models.RoleAmount:      {"amount", "debit", "credit"},
			models.RoleCategory:    {"category", "type"},
		},
	}
}

// keywordFile is the on-disk shape of a keyword override file.
type keywordFile struct {
	// Replace discards the defaults instead of extending them.
	Replace        bool                `yaml:"replace"`
	HeaderKeywords []string            `yaml:"header_keywords"`
	Roles          map[string][]string `yaml:"roles"`
}

// LoadKeywordTables reads a YAML keyword file and merges it over the
// defaults. An empty path returns the defaults.
func LoadKeywordTables(path string) (KeywordTables, error) {
	tables := DefaultKeywordTables()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return tables, fmt.Errorf("error reading keyword file: %w", err)
	}
	return ParseKeywordTables(data)
}

// ParseKeywordTables merges YAML keyword data over the defaults.
func ParseKeywordTables(data []byte) (KeywordTables, error) {
	tables := DefaultKeywordTables()

	var file keywordFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return tables, fmt.Errorf("error parsing keyword file: %w", err)
	}

	if file.Replace {
		tables = KeywordTables{Roles: map[models.ColumnRole][]string{}}
	}
	tables.HeaderKeywords = mergeKeywords(tables.HeaderKeywords, file.HeaderKeywords)
	for name, words := range file.Roles {
		role := models.ColumnRole(strings.ToLower(name))
		if !isKnownRole(role) {
			return tables, fmt.Errorf("unknown role %q in keyword file", name)
		}
		tables.Roles[role] = mergeKeywords(tables.Roles[role], words)
	}
	return tables, nil
}

func isKnownRole(role models.ColumnRole) bool {
	for _, r := range models.MappedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// mergeKeywords appends lower-cased extra words that are not already present.
func mergeKeywords(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(out))
	for _, w := range out {
		seen[w] = true
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// containsAny reports whether text contains any keyword, case-insensitively.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
