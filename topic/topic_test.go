// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package topic_test

import (
	"testing"

	"github.com/clearwater-iot/mqttrpc/topic"
	"github.com/stretchr/testify/require"
)

func TestTopicPatternBasic(t *testing.T) {
	pattern, err := topic.NewTopicPattern(
		"basic",
		"a/{default}/topic/{pattern}",
		map[string]string{"default": "basic"},
		"",
	)
	require.NoError(t, err)

	resolved, err := pattern.Topic(map[string]string{
		"default": "replaced", // Tokens provided to the constructor are static.
		"pattern": "resolved",
	})
	require.NoError(t, err)
	require.Equal(t, "a/basic/topic/resolved", resolved)

	_, err = pattern.Topic(nil)
	require.Error(t, err)
	require.Equal(t, "invalid topic", err.Error())

	filter, err := pattern.Filter()
	require.NoError(t, err)
	require.Equal(t, "a/basic/topic/+", filter.Filter())

	tokens, ok := filter.Tokens(resolved)
	require.True(t, ok)
	require.Equal(t, map[string]string{
		"default": "basic",
		"pattern": "resolved",
	}, tokens)

	_, ok = filter.Tokens("a/basic/nottopic/resolved")
	require.False(t, ok)
}

func TestTopicPatternMeta(t *testing.T) {
	pattern, err := topic.NewTopicPattern(
		"basic",
		"a/(topic)/pattern/{with}/[meta]/{characters}",
		map[string]string{"with": "without"},
		"",
	)
	require.NoError(t, err)

	resolved, err := pattern.Topic(map[string]string{"characters": "conflicts"})
	require.NoError(t, err)
	require.Equal(t, "a/(topic)/pattern/without/[meta]/conflicts", resolved)

	filter, err := pattern.Filter()
	require.NoError(t, err)
	require.Equal(t, "a/(topic)/pattern/without/[meta]/+", filter.Filter())

	tokens, ok := filter.Tokens(resolved)
	require.True(t, ok)
	require.Equal(t, map[string]string{
		"with":       "without",
		"characters": "conflicts",
	}, tokens)
}

func TestTopicPatternNamespace(t *testing.T) {
	pattern, err := topic.NewTopicPattern(
		"namespaced",
		"telemetry/{sensor}",
		nil,
		"clients/factory1",
	)
	require.NoError(t, err)

	resolved, err := pattern.Topic(map[string]string{"sensor": "temp01"})
	require.NoError(t, err)
	require.Equal(t, "clients/factory1/telemetry/temp01", resolved)

	// A namespace must already be fully resolved; it can't itself carry a
	// token.
	_, err = topic.NewTopicPattern("namespaced", "telemetry/{sensor}", nil, "clients/{ns}")
	require.Error(t, err)
}

func TestTopicPatternApplyIsPartial(t *testing.T) {
	pattern, err := topic.NewTopicPattern("partial", "a/{x}/{y}", nil, "")
	require.NoError(t, err)

	partial, err := pattern.Apply(map[string]string{"x": "one"})
	require.NoError(t, err)

	// x is now bound but y is still open, so Topic still fails...
	_, err = partial.Topic(nil)
	require.Error(t, err)

	// ...until the remaining token is supplied.
	resolved, err := partial.Topic(map[string]string{"y": "two"})
	require.NoError(t, err)
	require.Equal(t, "a/one/two", resolved)

	// The original pattern is unaffected by Apply.
	resolved, err = pattern.Topic(map[string]string{"x": "one", "y": "two"})
	require.NoError(t, err)
	require.Equal(t, "a/one/two", resolved)
}

func TestValidateTopicPatternComponent(t *testing.T) {
	require.NoError(t, topic.ValidateTopicPatternComponent(
		"name", "bad pattern", "a/{b}/c",
	))
	require.Error(t, topic.ValidateTopicPatternComponent(
		"name", "bad pattern", "a/+/c",
	))
}

func TestValidateShareName(t *testing.T) {
	require.NoError(t, topic.ValidateShareName(""))
	require.NoError(t, topic.ValidateShareName("group1"))
	require.Error(t, topic.ValidateShareName("group/1"))
}

func TestValidTopic(t *testing.T) {
	require.True(t, topic.ValidTopic("a/b/c"))
	require.False(t, topic.ValidTopic("a/{b}/c"))
	require.False(t, topic.ValidTopic("a/+/c"))
	require.False(t, topic.ValidTopic("a/#"))
}
