package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/KaramelBytes/dqguard-cli/internal/utils"
)

// Kind names one of the supported rule types.
type Kind string

const (
	NotNull       Kind = "not_null"
	Between       Kind = "between"
	AllowedValues Kind = "allowed_values"
	DedupeKey     Kind = "dedupe_key"
	FillNAMean    Kind = "fillna_mean"
	FillNAMode    Kind = "fillna_mode"
)

// Kinds lists every rule kind in canonical order.
var Kinds = []Kind{NotNull, Between, AllowedValues, DedupeKey, FillNAMean, FillNAMode}

// Valid reports whether k is a known rule kind.
func (k Kind) Valid() bool {
	for _, x := range Kinds {
		if x == k {
			return true
		}
	}
	return false
}

// UnknownKindError indicates a rule document named an unsupported rule.
type UnknownKindError struct{ Kind string }

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown rule %q (use one of not_null, between, allowed_values, dedupe_key, fillna_mean, fillna_mode)", e.Kind)
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", &UnknownKindError{Kind: s}
	}
	return k, nil
}

// Rule is a single validation or cleaning rule bound to a column.
// Min/Max apply to between rules and Values to allowed_values rules.
type Rule struct {
	Column string   `json:"column"`
	Rule   Kind     `json:"rule"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Values []string `json:"values,omitempty"`
}

// Same reports whether two rules target the same column with the same kind.
func (r Rule) Same(o Rule) bool { return r.Column == o.Column && r.Rule == o.Rule }

// Equal reports whether two rules are the Same and carry identical parameters.
func (r Rule) Equal(o Rule) bool {
	return r.Same(o) && sameBound(r.Min, o.Min) && sameBound(r.Max, o.Max) && slices.Equal(r.Values, o.Values)
}

func sameBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Validate checks that kind-specific parameters are present.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Column) == "" {
		return errors.New("rule column is required")
	}
	if !r.Rule.Valid() {
		return &UnknownKindError{Kind: string(r.Rule)}
	}
	switch r.Rule {
	case Between:
		if r.Min == nil || r.Max == nil {
			return fmt.Errorf("between rule on %s requires min and max", r.Column)
		}
		if *r.Min > *r.Max {
			return fmt.Errorf("between rule on %s has min %v > max %v", r.Column, *r.Min, *r.Max)
		}
	case AllowedValues:
		if len(r.Values) == 0 {
			return fmt.Errorf("allowed_values rule on %s requires values", r.Column)
		}
	}
	return nil
}

// String renders a short human-readable form, e.g. "between(Age, 10..30)".
func (r Rule) String() string {
	switch r.Rule {
	case Between:
		if r.Min != nil && r.Max != nil {
			return fmt.Sprintf("%s(%s, %s..%s)", r.Rule, r.Column, fmtNum(*r.Min), fmtNum(*r.Max))
		}
	case AllowedValues:
		return fmt.Sprintf("%s(%s, [%s])", r.Rule, r.Column, strings.Join(r.Values, ", "))
	}
	return fmt.Sprintf("%s(%s)", r.Rule, r.Column)
}

func fmtNum(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Decode reads a JSON array of rules and validates each one.
func Decode(r io.Reader) ([]Rule, error) {
	var out []Rule
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	for i, rule := range out {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return out, nil
}

// Load reads a rules document from disk.
func Load(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes rules as indented JSON using an atomic write.
func Save(path string, rules []Rule) error {
	if rules == nil {
		rules = []Rule{}
	}
	b, err := utils.PrettyJSON(rules)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

func floatPtr(f float64) *float64 { return &f }
