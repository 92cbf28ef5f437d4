// Package seed loads the default rule catalog that is inserted at startup.
package seed

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/fleetscore-backend/internal/domain/scoring"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

//go:embed default_rules.yaml
var defaultRulesFS embed.FS

type yamlCatalog struct {
	Catalog string     `yaml:"catalog"`
	Version int        `yaml:"version"`
	Rules   []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	Key              string         `yaml:"key"`
	Name             string         `yaml:"name"`
	Description      string         `yaml:"description"`
	Category         string         `yaml:"category"`
	Points           int            `yaml:"points"`
	Active           *bool          `yaml:"active"`
	TriggerCondition map[string]any `yaml:"trigger_condition"`
}

// DefaultRules returns the catalog at path, or the embedded file when path is empty.
func DefaultRules(log *logger.Logger, path string) ([]scoring.Rule, error) {
	data, source, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if log != nil {
		log.Debug("Loaded default rule catalog", "source", source, "rules", len(rules))
	}
	return rules, nil
}

func readCatalog(path string) ([]byte, string, error) {
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		return data, path, err
	}
	data, err := defaultRulesFS.ReadFile("default_rules.yaml")
	return data, "embedded:default_rules.yaml", err
}

// Parse decodes and validates a catalog document. Every rule comes back with IsDefault set.
func Parse(data []byte) ([]scoring.Rule, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Catalog) != "default_rules" {
		return nil, fmt.Errorf("unexpected catalog: %q", doc.Catalog)
	}
	if len(doc.Rules) == 0 {
		return nil, errors.New("no rules defined")
	}

	seen := map[string]bool{}
	out := make([]scoring.Rule, 0, len(doc.Rules))
	for i, r := range doc.Rules {
		key := scoring.NormalizeRuleKey(r.Key)
		if key == "" {
			return nil, fmt.Errorf("rule %d: key is required", i)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate rule key: %s", key)
		}
		seen[key] = true
		if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("rule %s: name and category are required", key)
		}

		rule := scoring.Rule{
			Key:         key,
			Name:        strings.TrimSpace(r.Name),
			Description: strings.TrimSpace(r.Description),
			Category:    strings.TrimSpace(r.Category),
			Points:      r.Points,
			Active:      r.Active == nil || *r.Active,
			IsDefault:   true,
			CreatedBy:   "system",
		}
		if len(r.TriggerCondition) > 0 {
			raw, err := json.Marshal(r.TriggerCondition)
			if err != nil {
				return nil, fmt.Errorf("rule %s: trigger_condition: %w", key, err)
			}
			rule.TriggerCondition = datatypes.JSON(raw)
		}
		out = append(out, rule)
	}
	return out, nil
}
