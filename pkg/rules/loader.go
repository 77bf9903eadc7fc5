package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ruleSetsDoc is the top-level YAML document shape.
//
//	rule_sets:
//	  - name: medication-safety
//	    rules:
//	      - id: senior-sedative
//	        name: Sedative use in seniors
//	        category: medication-safety
//	        priority: high
//	        enabled: true
//	        conditions:
//	          - field: patient.age
//	            operator: gte
//	            value: 65
//	            value_type: number
//	        actions:
//	          - type: alert
//	            summary: Review sedative dosing
//	            severity: warning
type ruleSetsDoc struct {
	RuleSets []ruleSetDoc `yaml:"rule_sets"`
}

type ruleSetDoc struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Rules       []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	ID         string       `yaml:"id"`
	Name       string       `yaml:"name"`
	Category   string       `yaml:"category"`
	Priority   string       `yaml:"priority"`
	Enabled    *bool        `yaml:"enabled"`
	Conditions []*Condition `yaml:"conditions"`
	Actions    []Action     `yaml:"actions"`
}

// ParseRuleSets parses YAML rule definitions into rule sets. Priority names
// map to ranks (critical, high, medium, low, info; default medium) and
// rules default to enabled.
func ParseRuleSets(data []byte) ([]*RuleSet, error) {
	var doc ruleSetsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rule document: %w", err)
	}
	if len(doc.RuleSets) == 0 {
		return nil, fmt.Errorf("rule document contains no rule_sets")
	}

	sets := make([]*RuleSet, 0, len(doc.RuleSets))
	for _, sd := range doc.RuleSets {
		set := &RuleSet{Name: sd.Name, Description: sd.Description}
		for _, rd := range sd.Rules {
			enabled := true
			if rd.Enabled != nil {
				enabled = *rd.Enabled
			}
			set.Rules = append(set.Rules, &Rule{
				ID:         rd.ID,
				Name:       rd.Name,
				Category:   rd.Category,
				Priority:   ParsePriority(rd.Priority),
				Conditions: rd.Conditions,
				Actions:    rd.Actions,
				Enabled:    enabled,
			})
		}
		sets = append(sets, set)
	}
	return sets, nil
}
