package confidence

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Score thresholds and rule weights. Scores are 0-100; the adjusted score
// classifies the entry: reject below RejectBelow, flag below KeepAt, keep
// at or above KeepAt.
const (
	BaseScore   = 75.0
	RejectBelow = 50.0
	KeepAt      = 70.0
)

// KeywordRule pairs a keyword pattern with the score adjustment and the
// human-readable flag recorded when it fires.
type KeywordRule struct {
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
	Flag    string  `yaml:"flag"`

	re *regexp.Regexp
}

// RuleSet is the full keyword configuration for the validator. Keeping the
// tables as data rather than branches lets a deployment tune them from a
// YAML file without a rebuild.
type RuleSet struct {
	// AlcoholKeywords signal a genuine drink promotion. Their absence in a
	// Happy Hour entry costs EarlyStart-style penalties elsewhere.
	AlcoholKeywords []string `yaml:"alcohol_keywords"`

	// VenueTypeRules penalize labels that describe a venue category rather
	// than a happy hour (markets, cafes, lunch menus).
	VenueTypeRules []KeywordRule `yaml:"venue_type_rules"`

	// BrunchKeywords and BrunchDrinkKeywords gate the Brunch sanity rule.
	BrunchKeywords      []string `yaml:"brunch_keywords"`
	BrunchDrinkKeywords []string `yaml:"brunch_drink_keywords"`

	// VagueSpecialPattern matches placeholder specials like "Weekly drink
	// special" that carry no concrete deal.
	VagueSpecialPattern string `yaml:"vague_special_pattern"`

	vagueRe *regexp.Regexp
}

// DefaultRuleSet returns the built-in keyword tables.
func DefaultRuleSet() *RuleSet {
	rs := &RuleSet{
		AlcoholKeywords: []string{
			"beer", "wine", "cocktail", "draft", "draught", "drink", "margarita",
			"mimosa", "sangria", "whiskey", "bourbon", "tequila", "vodka", "rum",
			"gin", "ipa", "lager", "pint", "seltzer", "spirits", "well", "rail",
			"bloody mary", "shot", "brew", "cider", "rosé", "rose", "bubbly",
			"champagne", "prosecco", "martini", "mule", "old fashioned",
		},
		VenueTypeRules: []KeywordRule{
			{Pattern: "market", Weight: -30, Flag: "label suggests market, not happy hour"},
			{Pattern: "cafe", Weight: -30, Flag: "label suggests cafe, not happy hour"},
			{Pattern: "bakery", Weight: -30, Flag: "label suggests bakery, not happy hour"},
			{Pattern: "breakfast", Weight: -30, Flag: "label suggests breakfast menu, not happy hour"},
			{Pattern: "deli", Weight: -30, Flag: "label suggests deli, not happy hour"},
			{Pattern: "lunch special", Weight: -30, Flag: "label suggests lunch special, not happy hour"},
		},
		BrunchKeywords: []string{"brunch"},
		BrunchDrinkKeywords: []string{
			"mimosa", "bloody mary", "bellini", "sangria", "bubbly", "champagne",
			"prosecco", "espresso martini",
		},
		VagueSpecialPattern: `(?i)^(?:weekly|daily|rotating)\s+(?:drink|food|menu)\s+specials?$`,
	}
	if err := rs.compile(); err != nil {
		// Built-in patterns are static; a failure here is a programming error.
		panic(err)
	}
	return rs
}

// LoadRuleSet reads a RuleSet from a YAML file, falling back to any field
// the file leaves empty.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "confidence: read rule set %s", path)
	}

	rs := &RuleSet{}
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, eris.Wrapf(err, "confidence: parse rule set %s", path)
	}

	def := DefaultRuleSet()
	if len(rs.AlcoholKeywords) == 0 {
		rs.AlcoholKeywords = def.AlcoholKeywords
	}
	if len(rs.VenueTypeRules) == 0 {
		rs.VenueTypeRules = def.VenueTypeRules
	}
	if len(rs.BrunchKeywords) == 0 {
		rs.BrunchKeywords = def.BrunchKeywords
	}
	if len(rs.BrunchDrinkKeywords) == 0 {
		rs.BrunchDrinkKeywords = def.BrunchDrinkKeywords
	}
	if rs.VagueSpecialPattern == "" {
		rs.VagueSpecialPattern = def.VagueSpecialPattern
	}

	if err := rs.compile(); err != nil {
		return nil, eris.Wrapf(err, "confidence: compile rule set %s", path)
	}
	return rs, nil
}

func (rs *RuleSet) compile() error {
	re, err := regexp.Compile(rs.VagueSpecialPattern)
	if err != nil {
		return eris.Wrap(err, "vague special pattern")
	}
	rs.vagueRe = re

	for i := range rs.VenueTypeRules {
		r, err := regexp.Compile("(?i)" + regexp.QuoteMeta(rs.VenueTypeRules[i].Pattern))
		if err != nil {
			return eris.Wrapf(err, "venue type rule %q", rs.VenueTypeRules[i].Pattern)
		}
		rs.VenueTypeRules[i].re = r
	}
	return nil
}

// containsAny reports whether haystack contains any keyword,
// case-insensitively.
func containsAny(haystack string, keywords []string) bool {
	lower := strings.ToLower(haystack)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
