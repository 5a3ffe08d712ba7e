// File: internal/rules/rules.go
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/iyunix/go-loanform/internal/domain"
)

//go:embed rules.yaml
var defaultRules []byte

// FailureKind names the check that rejected a value.
type FailureKind string

const (
	FailureRequired  FailureKind = "required"
	FailureMinLength FailureKind = "minlength"
	FailureMin       FailureKind = "min"
	FailurePattern   FailureKind = "pattern"
	FailureEmail     FailureKind = "email"
	FailureCustom    FailureKind = "custom"
)

// Keys of the form-level texts in the "messages" section.
const (
	MsgRecaptcha          = "recaptcha"
	MsgOtpNotRequested    = "otp_not_requested"
	MsgOtpMismatch        = "otp_mismatch"
	MsgOtpUnverified      = "otp_unverified"
	MsgOtpExpired         = "otp_expired"
	MsgOtpTooManyAttempts = "otp_too_many_attempts"
	MsgOtpSent            = "otp_sent"
	MsgNoticeSuccessTitle = "notice_success_title"
	MsgNoticeErrorTitle   = "notice_error_title"
	MsgSubmitSuccess      = "submit_success"
	MsgSubmitFailure      = "submit_failure"
	MsgCalcInvalid        = "calc_invalid"
	MsgCalcLabel          = "calc_label"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var (
	ErrUnknownPredicate = errors.New("rules: unknown predicate")
	ErrInvalidRuleSet   = errors.New("rules: invalid rule set")
)

// Predicate is a named custom check. It only sees non-empty values.
type Predicate func(value string) bool

// Rule is one declarative group of checks for a field. Zero values disable a check.
type Rule struct {
	Required  bool     `yaml:"required"`
	MinLength int      `yaml:"minLength"`
	Min       *float64 `yaml:"min"`
	Pattern   string   `yaml:"pattern"`
	Email     bool     `yaml:"email"`
	Predicate string   `yaml:"predicate"`

	pattern   *regexp.Regexp
	predicate Predicate
}

// Check runs the rule against value and returns the first failing check.
// Empty values only ever fail the required check.
func (r Rule) Check(value string) (FailureKind, bool) {
	if strings.TrimSpace(value) == "" {
		if r.Required {
			return FailureRequired, false
		}
		return "", true
	}
	if r.MinLength > 0 && textLength(value) < r.MinLength {
		return FailureMinLength, false
	}
	if r.Min != nil {
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < *r.Min {
			return FailureMin, false
		}
	}
	if r.pattern != nil && !r.pattern.MatchString(value) {
		return FailurePattern, false
	}
	if r.Email && !emailPattern.MatchString(strings.TrimSpace(value)) {
		return FailureEmail, false
	}
	if r.predicate != nil && !r.predicate(value) {
		return FailureCustom, false
	}
	return "", true
}

// textLength counts characters the way a user sees them, so a precomposed and
// a decomposed Vietnamese letter have the same length.
func textLength(value string) int {
	return utf8.RuneCountInString(norm.NFC.String(value))
}

// FieldSpec declares one field, its rules and its messages.
type FieldSpec struct {
	Name     string                 `yaml:"name"`
	Kind     domain.FieldKind       `yaml:"kind"`
	Persist  *bool                  `yaml:"persist"`
	Rules    []Rule                 `yaml:"rules"`
	Messages map[FailureKind]string `yaml:"messages"`
}

// Persisted reports whether the field is mirrored into the draft.
// File references never are.
func (f FieldSpec) Persisted() bool {
	if f.Kind == domain.KindFileReference {
		return false
	}
	return f.Persist == nil || *f.Persist
}

type document struct {
	Defaults map[FailureKind]string `yaml:"defaults"`
	Messages map[string]string      `yaml:"messages"`
	Fields   []FieldSpec            `yaml:"fields"`
}

// RuleSet is immutable once loaded and safe for concurrent use.
type RuleSet struct {
	fields   []FieldSpec
	index    map[string]int
	defaults map[FailureKind]string
	messages map[string]string
}

// Option customizes loading.
type Option func(*loadOptions)

type loadOptions struct {
	predicates map[string]Predicate
}

// WithPredicate registers a custom predicate that rules may reference by name.
func WithPredicate(name string, fn Predicate) Option {
	return func(o *loadOptions) {
		o.predicates[name] = fn
	}
}

func builtinPredicates() map[string]Predicate {
	return map[string]Predicate{
		"digits": func(v string) bool {
			for _, r := range v {
				if r < '0' || r > '9' {
					return false
				}
			}
			return true
		},
	}
}

// Default returns the embedded loan application rule set.
func Default() *RuleSet {
	rs, err := Load(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded rule set is broken: %v", err))
	}
	return rs
}

// LoadFile reads a YAML rule set from disk.
func LoadFile(path string, opts ...Option) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return Load(data, opts...)
}

// Load parses and compiles a YAML rule set.
func Load(data []byte, opts ...Option) (*RuleSet, error) {
	o := &loadOptions{predicates: builtinPredicates()}
	for _, opt := range opts {
		opt(o)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rules: parse: %w", err)
	}

	rs := &RuleSet{
		index:    make(map[string]int, len(doc.Fields)),
		defaults: doc.Defaults,
		messages: doc.Messages,
	}
	for _, f := range doc.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field without a name", ErrInvalidRuleSet)
		}
		if _, dup := rs.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: field %q declared twice", ErrInvalidRuleSet, f.Name)
		}
		if !f.Kind.IsValid() {
			return nil, fmt.Errorf("%w: field %q has unknown kind %q", ErrInvalidRuleSet, f.Name, f.Kind)
		}
		for i := range f.Rules {
			r := &f.Rules[i]
			if r.Pattern != "" {
				re, err := regexp.Compile(r.Pattern)
				if err != nil {
					return nil, fmt.Errorf("%w: field %q pattern: %v", ErrInvalidRuleSet, f.Name, err)
				}
				r.pattern = re
			}
			if r.Predicate != "" {
				fn, ok := o.predicates[r.Predicate]
				if !ok {
					return nil, fmt.Errorf("%w %q on field %q", ErrUnknownPredicate, r.Predicate, f.Name)
				}
				r.predicate = fn
			}
		}
		rs.index[f.Name] = len(rs.fields)
		rs.fields = append(rs.fields, f)
	}
	return rs, nil
}

// Fields returns the declared fields in declaration order.
func (rs *RuleSet) Fields() []FieldSpec {
	out := make([]FieldSpec, len(rs.fields))
	copy(out, rs.fields)
	return out
}

// Spec looks up a declared field.
func (rs *RuleSet) Spec(name string) (FieldSpec, bool) {
	i, ok := rs.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return rs.fields[i], true
}

// RulesFor returns the rules of a field, or nil for undeclared names.
func (rs *RuleSet) RulesFor(name string) []Rule {
	spec, ok := rs.Spec(name)
	if !ok {
		return nil
	}
	out := make([]Rule, len(spec.Rules))
	copy(out, spec.Rules)
	return out
}

// MessageFor returns the localized text for a field failure, falling back to
// the default text of the failure kind.
func (rs *RuleSet) MessageFor(name string, kind FailureKind) string {
	if spec, ok := rs.Spec(name); ok {
		if msg, ok := spec.Messages[kind]; ok && msg != "" {
			return msg
		}
	}
	return rs.defaults[kind]
}

// Text returns a form-level message by key, or the key itself when missing.
func (rs *RuleSet) Text(key string) string {
	if msg, ok := rs.messages[key]; ok {
		return msg
	}
	return key
}

// PersistedFields lists the fields mirrored into the draft, in declaration order.
func (rs *RuleSet) PersistedFields() []string {
	var names []string
	for _, f := range rs.fields {
		if f.Persisted() {
			names = append(names, f.Name)
		}
	}
	return names
}

// FileFields lists the file-reference fields.
func (rs *RuleSet) FileFields() []string {
	var names []string
	for _, f := range rs.fields {
		if f.Kind == domain.KindFileReference {
			names = append(names, f.Name)
		}
	}
	return names
}
