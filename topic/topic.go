// Package topic implements named topic patterns for the runtime: parsing a
// pattern into ordered levels (literal or token), resolving it against a set
// of token values into a publishable topic, turning any levels left
// unresolved into an MQTT subscribe filter, and pulling token values back out
// of a topic that matched that filter.
//
// Patterns are parsed level-by-level rather than matched against one large
// regular expression: each "/"-delimited segment is classified once, at
// construction time, as either a literal or a `{token}` placeholder. Every
// later operation (Apply, Topic, Filter, Tokens) walks that level list
// directly instead of re-parsing or re-matching the whole string, which
// keeps token extraction a straight positional comparison rather than a
// compiled capture-group regex.
package topic

import (
	"maps"
	"regexp"
	"strings"

	"github.com/clearwater-iot/mqttrpc/errors"
)

// labelPattern is the character class shared by literal levels, token names,
// and token values: anything but MQTT wildcards, space, and the brace
// characters used to delimit a token.
const labelPattern = `[^ +#{}/]+`

var labelRegex = regexp.MustCompile(`^` + labelPattern + `$`)

// level is one "/"-delimited segment of a parsed pattern. A level is either
// a literal segment (token == "") or a placeholder awaiting a value.
type level struct {
	token   string
	literal string
}

func (l level) isToken() bool { return l.token != "" }

// TopicPattern resolves a named pattern of literal and `{token}` levels
// against token values, either fully (Topic) or partially (Apply), and
// derives the matching subscribe TopicFilter.
type TopicPattern struct {
	name   string
	levels []level
	// bound holds the tokens supplied at construction time; they're folded
	// into levels immediately, but are kept here too so Tokens can report
	// them back alongside whatever it extracts from a matched topic.
	bound map[string]string
}

// TopicFilter is a compiled subscribe filter derived from a TopicPattern,
// able to test whether a concrete topic matches it and, if so, recover the
// values its remaining tokens took on.
type TopicFilter struct {
	filter string
	levels []level
	bound  map[string]string
}

// splitLevels breaks a pattern string into its "/"-delimited levels,
// classifying each as literal or token. It rejects empty segments (leading,
// trailing, or doubled slashes) and malformed token braces.
func splitLevels(pattern string) ([]level, bool) {
	if pattern == "" {
		return nil, false
	}
	parts := strings.Split(pattern, "/")
	levels := make([]level, len(parts))
	for i, part := range parts {
		switch {
		case part == "":
			return nil, false
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			name := part[1 : len(part)-1]
			if !labelRegex.MatchString(name) {
				return nil, false
			}
			levels[i] = level{token: name}
		case labelRegex.MatchString(part):
			levels[i] = level{literal: part}
		default:
			return nil, false
		}
	}
	return levels, true
}

// ValidateTopicPatternComponent performs the standalone parse check used
// while validating constructor options, before a TopicPattern is built.
func ValidateTopicPatternComponent(name, msgOnErr, pattern string) error {
	if _, ok := splitLevels(pattern); !ok {
		return &errors.Error{
			Message:       msgOnErr,
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  name,
			PropertyValue: pattern,
		}
	}
	return nil
}

// NewTopicPattern parses pattern (optionally prefixed by namespace, which
// must itself already be a fully-resolved topic) and folds tokens into it
// immediately, the same way Apply would. A token name in tokens that
// doesn't appear in the pattern is accepted but has no effect, since it's
// valid for callers to pass more token values than a given pattern uses.
func NewTopicPattern(
	name, pattern string,
	tokens map[string]string,
	namespace string,
) (*TopicPattern, error) {
	if namespace != "" {
		if !ValidTopic(namespace) {
			return nil, &errors.Error{
				Message:       "invalid topic namespace",
				Kind:          errors.ConfigurationInvalid,
				PropertyName:  "TopicNamespace",
				PropertyValue: namespace,
			}
		}
		pattern = namespace + "/" + pattern
	}

	levels, ok := splitLevels(pattern)
	if !ok {
		return nil, &errors.Error{
			Message:       "invalid topic pattern",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  name,
			PropertyValue: pattern,
		}
	}

	if err := validateLabels(errors.ConfigurationInvalid, tokens); err != nil {
		return nil, err
	}

	bound := maps.Clone(tokens)
	if bound == nil {
		bound = map[string]string{}
	}
	resolve(levels, bound)

	return &TopicPattern{name: name, levels: levels, bound: bound}, nil
}

// resolve rewrites every token level whose name is present in values into a
// literal level in place, leaving unmatched token levels untouched.
func resolve(levels []level, values map[string]string) {
	for i, lvl := range levels {
		if !lvl.isToken() {
			continue
		}
		if v, ok := values[lvl.token]; ok {
			levels[i] = level{literal: v}
		}
	}
}

// Apply substitutes tokens into a copy of the pattern's levels and returns
// the result as a new, possibly still-partial, TopicPattern. Because levels
// are addressed by name rather than by a textual find/replace, the order
// tokens are supplied in never matters.
func (tp *TopicPattern) Apply(tokens map[string]string) (*TopicPattern, error) {
	if err := validateLabels(errors.ArgumentInvalid, tokens); err != nil {
		return nil, err
	}
	levels := append([]level(nil), tp.levels...)
	resolve(levels, tokens)
	return &TopicPattern{name: tp.name, levels: levels, bound: tp.bound}, nil
}

// Topic applies tokens and requires the result to be a fully-resolved,
// publishable topic.
func (tp *TopicPattern) Topic(tokens map[string]string) (string, error) {
	applied, err := tp.Apply(tokens)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(applied.levels))
	for i, lvl := range applied.levels {
		if lvl.isToken() {
			return "", &errors.Error{
				Message:      "invalid topic",
				Kind:         errors.ArgumentInvalid,
				PropertyName: lvl.token,
			}
		}
		parts[i] = lvl.literal
	}
	return strings.Join(parts, "/"), nil
}

// Filter produces the subscribe filter for whatever tokens remain unresolved
// on the pattern, replacing each with an MQTT "+" wildcard level.
func (tp *TopicPattern) Filter() (*TopicFilter, error) {
	parts := make([]string, len(tp.levels))
	for i, lvl := range tp.levels {
		if lvl.isToken() {
			parts[i] = "+"
		} else {
			parts[i] = lvl.literal
		}
	}
	return &TopicFilter{
		filter: strings.Join(parts, "/"),
		levels: tp.levels,
		bound:  tp.bound,
	}, nil
}

// Filter returns the MQTT subscribe filter string.
func (tf *TopicFilter) Filter() string {
	return tf.filter
}

// Tokens reports whether topic matches this filter's shape and, if it does,
// returns the values its wildcard levels took on, merged with whatever
// tokens were already bound when the pattern was built. Matching is a
// straight positional comparison over "/"-split segments rather than a
// compiled whole-string regex.
func (tf *TopicFilter) Tokens(topic string) (map[string]string, bool) {
	segments := strings.Split(topic, "/")
	if len(segments) != len(tf.levels) {
		return nil, false
	}

	out := make(map[string]string, len(tf.levels)+len(tf.bound))
	for i, lvl := range tf.levels {
		seg := segments[i]
		switch {
		case lvl.isToken():
			if !labelRegex.MatchString(seg) {
				return nil, false
			}
			out[lvl.token] = seg
		case seg != lvl.literal:
			return nil, false
		}
	}
	maps.Copy(out, tf.bound)
	return out, true
}

// ValidTopic reports whether topic is a fully-resolved topic: one or more
// non-empty, wildcard-free levels with no token placeholders.
func ValidTopic(topic string) bool {
	levels, ok := splitLevels(topic)
	if !ok {
		return false
	}
	for _, lvl := range levels {
		if lvl.isToken() {
			return false
		}
	}
	return true
}

// ValidateShareName reports whether shareName is a legal MQTT
// `$share/<name>/...` group name. An empty name (no shared subscription) is
// always valid.
func ValidateShareName(shareName string) error {
	if shareName != "" && !labelRegex.MatchString(shareName) {
		return &errors.Error{
			Message:       "invalid share name",
			Kind:          errors.ConfigurationInvalid,
			PropertyName:  "ShareName",
			PropertyValue: shareName,
		}
	}
	return nil
}

// validateLabels checks that every key and value in tokens uses the label
// character class. It takes the error kind as an argument since callers use
// this both for constructor-time tokens (ConfigurationInvalid) and
// call-time tokens (ArgumentInvalid). Token names absent from the pattern
// are accepted here; only their charset is checked, not their relevance.
func validateLabels(kind errors.Kind, tokens map[string]string) error {
	for k, v := range tokens {
		if !labelRegex.MatchString(k) || !labelRegex.MatchString(v) {
			return &errors.Error{
				Message:       "invalid topic token",
				Kind:          kind,
				PropertyName:  k,
				PropertyValue: v,
			}
		}
	}
	return nil
}
