package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiscribe/scribe/internal/graph"
)

func TestParseResultPlainJSON(t *testing.T) {
	r, err := ParseResult(`{"newNodes":[{"id":"a","title":"X"}],"missingPoints":["gap"]}`)

	require.NoError(t, err)
	require.Len(t, r.NewNodes, 1)
	assert.Equal(t, "a", r.NewNodes[0].ID)
	assert.Nil(t, r.NewNodes[0].ParentID)
	assert.Equal(t, []string{"gap"}, r.MissingPoints)
}

func TestParseResultCodeFence(t *testing.T) {
	in := "```json\n{\"summaryCards\":[{\"title\":\"A\",\"summary\":\"B\",\"risks\":[\"r\"]}]}\n```"

	r, err := ParseResult(in)

	require.NoError(t, err)
	require.Len(t, r.SummaryCards, 1)
	assert.Equal(t, []string{"r"}, r.SummaryCards[0].Risks)
}

func TestParseResultSurroundingText(t *testing.T) {
	r, err := ParseResult(`Sure! {"newEdges":[{"source":"a","target":"b"}]} Hope that helps.`)

	require.NoError(t, err)
	assert.Equal(t, []graph.Edge{{Source: "a", Target: "b"}}, r.Edges())
}

func TestParseResultEmptyObject(t *testing.T) {
	r, err := ParseResult(`{}`)

	require.NoError(t, err)
	assert.Empty(t, r.NewNodes)
	assert.Empty(t, r.Markdown())
}

func TestParseResultRejects(t *testing.T) {
	cases := map[string]string{
		"no object":      "I cannot help with that",
		"malformed":      `{"newNodes":[`,
		"wrong type":     `{"newNodes":"a"}`,
		"node no title":  `{"newNodes":[{"id":"a"}]}`,
		"edge no target": `{"newEdges":[{"source":"a"}]}`,
		"card no body":   `{"summaryCards":[{"title":"t"}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResult(in)
			require.Error(t, err)
			assert.Equal(t, KindInvalidResponse, KindOf(err))
		})
	}
}

func TestResultSuggestions(t *testing.T) {
	parent := "root"
	r := Result{NewNodes: []SuggestedNode{
		{ID: "a", ParentID: &parent, Title: "A", Note: "n"},
		{Title: "B"},
	}}

	got := r.Suggestions()

	require.Len(t, got, 2)
	assert.Equal(t, "root", *got[0].ParentID)
	assert.Equal(t, "n", got[0].Note)
	assert.Empty(t, got[1].ID)
}

func TestResultMarkdown(t *testing.T) {
	r := Result{
		SummaryCards: []SummaryCard{{
			Title:     "Pilot",
			Summary:   "Run a pilot.",
			Risks:     []string{"cost"},
			NextSteps: []string{"hire"},
		}},
		MissingPoints: []string{"legal", "support"},
	}

	md := r.Markdown()

	assert.Contains(t, md, "## Pilot")
	assert.Contains(t, md, "- cost")
	assert.Contains(t, md, "- hire")
	assert.Contains(t, md, "1. legal\n2. support")
}
