package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changelogCase struct {
	Label   string
	Before  map[string]any
	After   map[string]any
	Outcome []map[string]any
}

func TestChangelog(t *testing.T) {
	cases := []changelogCase{
		{
			"should detect creation",
			nil,
			map[string]any{"name": "jane"},
			[]map[string]any{
				{"Type": "create", "Path": []string{"name"}, "From": nil, "To": "jane"},
			},
		},
		{
			"should detect change",
			map[string]any{"name": "jane"},
			map[string]any{"name": "john"},
			[]map[string]any{
				{"Type": "update", "Path": []string{"name"}, "From": "jane", "To": "john"},
			},
		},
		{
			"should detect add to array",
			map[string]any{"tags": []string{"a"}},
			map[string]any{"tags": []string{"a", "b"}},
			[]map[string]any{
				{"Type": "create", "Path": []string{"tags", "1"}, "From": nil, "To": "b"},
			},
		},
		{
			"should detect remove from object",
			map[string]any{"address": map[string]any{"city": "ghent", "zip": "9000"}},
			map[string]any{"address": map[string]any{"city": "ghent"}},
			[]map[string]any{
				{"Type": "delete", "Path": []string{"address", "zip"}, "From": "9000", "To": nil},
			},
		},
		{
			"should detect removal",
			map[string]any{"name": "jane"},
			nil,
			[]map[string]any{
				{"Type": "delete", "Path": []string{"name"}, "From": "jane", "To": nil},
			},
		},
		{
			"should report nothing for equal documents",
			map[string]any{"name": "jane"},
			map[string]any{"name": "jane"},
			nil,
		},
	}

	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			res, err := Changelog(c.Before, c.After)
			require.NoError(t, err)

			if c.Outcome == nil {
				assert.Empty(t, res)
				return
			}
			assert.Equal(t, c.Outcome, res)
		})
	}
}

func TestContent(t *testing.T) {
	doc := map[string]any{"_id": "users/jane", "_key": "jane", "_rev": "_a", "_from": "a/1", "age": 40}

	assert.Equal(t, map[string]any{"_from": "a/1", "age": 40}, Content(doc))
	assert.Len(t, doc, 5)
	assert.Nil(t, Content(nil))
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(map[string]any{"name": "jane", "age": 40})
	require.NoError(t, err)

	b, err := Fingerprint(map[string]any{"age": 40, "name": "jane"})
	require.NoError(t, err)

	c, err := Fingerprint(map[string]any{"name": "jane", "age": 41})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
