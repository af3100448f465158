package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aiscribe/scribe/internal/graph"
)

var validate = validator.New()

// ---------------------------------------------------------------------------
// Result shape
// ---------------------------------------------------------------------------

// SuggestedNode is a node proposed by the model. An empty ID is allowed and
// replaced when the node is merged.
type SuggestedNode struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parentId,omitempty"`
	Title    string  `json:"title" validate:"required"`
	Note     string  `json:"note,omitempty"`
}

// SuggestedEdge is an edge proposed by the model.
type SuggestedEdge struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// SummaryCard is one synthesised proposal.
type SummaryCard struct {
	Title     string   `json:"title" validate:"required"`
	Summary   string   `json:"summary" validate:"required"`
	Risks     []string `json:"risks,omitempty"`
	NextSteps []string `json:"nextSteps,omitempty"`
}

// Result is the structured answer to an AI call. Every field is optional.
type Result struct {
	NewNodes      []SuggestedNode `json:"newNodes,omitempty" validate:"dive"`
	NewEdges      []SuggestedEdge `json:"newEdges,omitempty" validate:"dive"`
	SummaryCards  []SummaryCard   `json:"summaryCards,omitempty" validate:"dive"`
	MissingPoints []string        `json:"missingPoints,omitempty"`
}

// Suggestions converts NewNodes for graph.Store.MergeSuggestions.
func (r *Result) Suggestions() []graph.Suggestion {
	out := make([]graph.Suggestion, 0, len(r.NewNodes))
	for _, n := range r.NewNodes {
		out = append(out, graph.Suggestion{
			ID:       n.ID,
			ParentID: n.ParentID,
			Title:    n.Title,
			Note:     n.Note,
		})
	}
	return out
}

// Edges converts NewEdges for graph.Store.MergeSuggestions.
func (r *Result) Edges() []graph.Edge {
	out := make([]graph.Edge, 0, len(r.NewEdges))
	for _, e := range r.NewEdges {
		out = append(out, graph.NewEdge(e.Source, e.Target))
	}
	return out
}

// Markdown renders the presentation part of the result (summary cards and
// missing points) as Markdown.
func (r *Result) Markdown() string {
	var b strings.Builder
	for _, c := range r.SummaryCards {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", c.Title, c.Summary)
		if len(c.Risks) > 0 {
			b.WriteString("**Risks**\n\n")
			for _, s := range c.Risks {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			b.WriteByte('\n')
		}
		if len(c.NextSteps) > 0 {
			b.WriteString("**Next steps**\n\n")
			for _, s := range c.NextSteps {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			b.WriteByte('\n')
		}
	}
	if len(r.MissingPoints) > 0 {
		b.WriteString("## Missing perspectives\n\n")
		for i, s := range r.MissingPoints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	return strings.TrimSpace(b.String())
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseResult decodes and validates a model answer. Markdown code fences
// and text around the outermost JSON object are tolerated.
func ParseResult(text string) (*Result, error) {
	body := extractJSONObject(text)
	if body == "" {
		return nil, &Error{Kind: KindInvalidResponse, Op: "parse", Err: errors.New("no JSON object in response")}
	}

	var r Result
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Op: "parse", Err: err}
	}
	if err := validate.Struct(&r); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Op: "validate", Err: describeValidation(err)}
	}
	return &r, nil
}

func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
