package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRulesEmbedded(t *testing.T) {
	rules, err := DefaultRules(nil, "")
	if err != nil {
		t.Fatalf("DefaultRules: %v", err)
	}
	if len(rules) == 0 {
		t.Fatalf("expected embedded rules")
	}
	byKey := map[string]bool{}
	for _, r := range rules {
		if !r.IsDefault {
			t.Fatalf("rule %s not marked default", r.Key)
		}
		byKey[r.Key] = r.Active
	}
	if active, ok := byKey["panic_button"]; !ok || active {
		t.Fatalf("panic_button: expected present and inactive")
	}
	if active := byKey["speeding"]; !active {
		t.Fatalf("speeding: expected active by default")
	}
}

func TestDefaultRulesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "catalog: default_rules\nrules:\n  - key: ' Idle '\n    name: Idle\n    category: Compliance\n    points: -1\n    trigger_condition: {minutes: 15}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	rules, err := DefaultRules(nil, path)
	if err != nil {
		t.Fatalf("DefaultRules: %v", err)
	}
	if len(rules) != 1 || rules[0].Key != "idle" || rules[0].Points != -1 {
		t.Fatalf("unexpected rules: %+v", rules)
	}
	if !strings.Contains(string(rules[0].TriggerCondition), `"minutes":15`) {
		t.Fatalf("trigger_condition: got %s", rules[0].TriggerCondition)
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"wrong catalog": "catalog: other\nrules:\n  - {key: a, name: A, category: C}\n",
		"empty":         "catalog: default_rules\nrules: []\n",
		"missing key":   "catalog: default_rules\nrules:\n  - {name: A, category: C}\n",
		"duplicate":     "catalog: default_rules\nrules:\n  - {key: a, name: A, category: C}\n  - {key: A, name: B, category: C}\n",
		"no category":   "catalog: default_rules\nrules:\n  - {key: a, name: A}\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
