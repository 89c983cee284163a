package ledger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoriesFile is the YAML document listing suggested categories.
//
//	income:
//	  - Salary
//	expense:
//	  - Food
//	  - Rent
type CategoriesFile struct {
	Income  []string `yaml:"income"`
	Expense []string `yaml:"expense"`
}

// DefaultCategories are used when no categories file exists.
var DefaultCategories = []string{"Salary", "Food", "Rent", "Transport", "Utilities"}

// LoadCategories reads the categories file at path. A missing file yields
// DefaultCategories; a malformed one is an error.
func LoadCategories(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return append([]string(nil), DefaultCategories...), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return append([]string(nil), DefaultCategories...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	var cf CategoriesFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse categories file %s: %w", path, err)
	}
	return DedupeCategories(append(cf.Income, cf.Expense...)), nil
}

// DedupeCategories trims names and drops blanks and repeats, preserving order.
func DedupeCategories(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
