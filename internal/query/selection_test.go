package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataapi/internal/model"
	"dataapi/internal/schema"
)

func TestParseSelection_Empty(t *testing.T) {
	reg := schema.Default()
	m, _ := reg.Model("Todo")

	sel, err := ParseSelection(nil, m, reg)
	require.NoError(t, err)

	// Empty selection means all scalar fields.
	assert.Len(t, sel.Fields, len(m.Fields))
	assert.Empty(t, sel.Relations)
}

func TestParseSelection_ScalarPaths(t *testing.T) {
	reg := schema.Default()
	m, _ := reg.Model("Todo")

	sel, err := ParseSelection([]string{"id", "content"}, m, reg)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"id": true, "content": true}, sel.Fields)
}

func TestParseSelection_RelationPaths(t *testing.T) {
	reg := schema.Default()
	m, _ := reg.Model("Blog")

	sel, err := ParseSelection([]string{"name", "posts.title", "posts.id"}, m, reg)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"name": true}, sel.Fields)
	require.Contains(t, sel.Relations, "posts")
	assert.Equal(t, map[string]bool{"title": true, "id": true}, sel.Relations["posts"].Fields)
}

func TestParseSelection_Wildcard(t *testing.T) {
	reg := schema.Default()
	m, _ := reg.Model("Blog")
	post, _ := reg.Model("Post")

	sel, err := ParseSelection([]string{"id", "posts.*"}, m, reg)
	require.NoError(t, err)

	require.Contains(t, sel.Relations, "posts")
	assert.Len(t, sel.Relations["posts"].Fields, len(post.Fields))
}

func TestParseSelection_Errors(t *testing.T) {
	reg := schema.Default()
	m, _ := reg.Model("Blog")

	cases := []struct {
		name string
		path string
	}{
		{"unknown field", "colour"},
		{"unknown relation", "comments.body"},
		{"unknown nested field", "posts.colour"},
		{"wildcard not last", "posts.*.title"},
		{"empty segment", "posts."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSelection([]string{tc.path}, m, reg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSelection)
		})
	}
}

func TestSelection_Apply(t *testing.T) {
	reg := schema.Default()
	m, _ := reg.Model("Blog")

	sel, err := ParseSelection([]string{"name", "posts.title"}, m, reg)
	require.NoError(t, err)

	rec := model.Record{
		"id":   "b1",
		"name": "engineering",
		"posts": []model.Record{
			{"id": "p1", "title": "first", "body": "..."},
			{"id": "p2", "title": "second", "body": "..."},
		},
	}

	out := sel.Apply(rec)

	// Exactly the selected fields, nothing else.
	assert.Equal(t, model.Record{
		"name": "engineering",
		"posts": []model.Record{
			{"title": "first"},
			{"title": "second"},
		},
	}, out)
}

func TestSelection_Apply_BelongsTo(t *testing.T) {
	reg := schema.Default()
	m, _ := reg.Model("Post")

	sel, err := ParseSelection([]string{"title", "blog.name"}, m, reg)
	require.NoError(t, err)

	rec := model.Record{
		"id":    "p1",
		"title": "first",
		"blog":  model.Record{"id": "b1", "name": "engineering"},
	}

	out := sel.Apply(rec)
	assert.Equal(t, model.Record{
		"title": "first",
		"blog":  model.Record{"name": "engineering"},
	}, out)
}

func TestSelection_Apply_MissingFieldOmitted(t *testing.T) {
	reg := schema.Default()
	m, _ := reg.Model("Todo")

	sel, err := ParseSelection([]string{"id", "owner"}, m, reg)
	require.NoError(t, err)

	out := sel.Apply(model.Record{"id": "t1"})
	assert.Equal(t, model.Record{"id": "t1"}, out)
	assert.NotContains(t, out, "owner")
}
