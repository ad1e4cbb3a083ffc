package extract

import (
	"strings"

	"github.com/krtrends/marketpulse/app/sources"
)

// Categorizer assigns a coarse topic category by ordered keyword matching.
// Rules are tested in configuration order and the first match wins, so a
// source can rank e.g. 리뷰 above 네이버 for texts containing both.
type Categorizer struct {
	rules        []sources.KeywordRule
	defaultValue string
}

func NewCategorizer(rules sources.CategoryRules) *Categorizer {
	return &Categorizer{
		rules:        rules.Keywords,
		defaultValue: rules.Default,
	}
}

// Run matches case-insensitively against the concatenated title and
// description; returns the source's default category when nothing matches.
func (c *Categorizer) Run(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, rule := range c.rules {
		if strings.Contains(text, strings.ToLower(rule.Match)) {
			return rule.Category
		}
	}
	return c.defaultValue
}
