package entity

import (
	"fmt"
	"regexp"
	"strings"

	"vidlore/internal/config"
)

// Rule appends a synthetic entity when its predicate matches the text.
// A matching rule contributes its entity once per text.
type Rule struct {
	Name   string
	Match  func(text string) bool
	Entity Entity
}

// PatternRule builds a rule that matches when every pattern matches.
func PatternRule(name string, patterns []string, ent Entity) (Rule, error) {
	if len(patterns) == 0 {
		return Rule{}, fmt.Errorf("rule %q: at least one pattern required", name)
	}
	if strings.TrimSpace(ent.Text) == "" {
		return Rule{}, fmt.Errorf("rule %q: entity text required", name)
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: compile %q: %w", name, pattern, err)
		}
		compiled = append(compiled, re)
	}
	if ent.Label == "" {
		ent.Label = LabelInferred
	}
	return Rule{
		Name: name,
		Match: func(text string) bool {
			for _, re := range compiled {
				if !re.MatchString(text) {
					return false
				}
			}
			return true
		},
		Entity: Entity{Text: strings.TrimSpace(ent.Text), Label: NormalizeLabel(ent.Label)},
	}, nil
}

// RulesFromConfig compiles the configured synthetic rules.
func RulesFromConfig(rules []config.SyntheticRule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		rule, err := PatternRule(r.Name, r.Patterns, Entity{Text: r.Text, Label: r.Label})
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// DefaultRules returns the built-in demographic inference rule.
func DefaultRules() []Rule {
	rules, err := RulesFromConfig(config.Default().Extraction.Rules)
	if err != nil {
		panic(err)
	}
	return rules
}
