package ai

import (
	"fmt"
	"strings"

	"github.com/aiscribe/scribe/internal/graph"
)

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// Action is one of the fixed AI operations a user can trigger.
type Action string

const (
	ActionExpand   Action = "expand"
	ActionOrganize Action = "organize"
	ActionSummary  Action = "summary"
	ActionMissing  Action = "missing"
)

// Actions lists every action in menu order.
var Actions = []Action{ActionExpand, ActionOrganize, ActionSummary, ActionMissing}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == strings.ToLower(strings.TrimSpace(s)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("ai: unknown action %q", s)
}

// MergesIntoGraph reports whether a successful result for the action is
// merged into the map. Only expand is; the others are presentation-only.
func (a Action) MergesIntoGraph() bool {
	return a == ActionExpand
}

// ---------------------------------------------------------------------------
// Request
// ---------------------------------------------------------------------------

// Request is the input to an AI call: the action, the map it concerns and
// an optional focus node.
type Request struct {
	Action      Action
	Theme       string
	Nodes       []graph.Node
	Edges       []graph.Edge
	FocusNodeID string
}

// ---------------------------------------------------------------------------
// Prompt templates
// ---------------------------------------------------------------------------

const systemPrompt = `You are an AI scribe for a mind mapping tool. You must respond ONLY with JSON according to the schema provided. Do not include any text outside the JSON.

Schema:
{
  "newNodes":      [{"id": string, "parentId": string|null, "title": string, "note": string}],
  "newEdges":      [{"source": string, "target": string}],
  "summaryCards":  [{"title": string, "summary": string, "risks": [string], "nextSteps": [string]}],
  "missingPoints": [string]
}
Every field is optional. newNodes items require id and title. newEdges items require source and target. summaryCards items require title and summary.`

// ActionPrompt builds the conversation for req.
func ActionPrompt(req Request) []Message {
	doc := graph.Document{Nodes: req.Nodes}
	outline := doc.Outline()

	var b strings.Builder
	switch req.Action {
	case ActionExpand:
		fmt.Fprintf(&b, "Context: You are an idea assistant.\nTheme: %s\nExisting Map:\n%s\n", req.Theme, outline)
		if target, ok := doc.FindNode(req.FocusNodeID); ok {
			fmt.Fprintf(&b, "Task: Expand the branches. Add 3-5 sub-points specifically under node %q (ID: %s).\n", target.Title, target.ID)
		} else {
			b.WriteString("Task: Expand the branches. Add 5 key perspectives to the overall map.\n")
		}
		b.WriteString("Rules:\n- Generate unique IDs for new nodes.\n- parentId must be an existing node ID.\n")
	case ActionOrganize:
		fmt.Fprintf(&b, "Context: You are an expert organizer.\nTheme: %s\nNodes:\n%s\n", req.Theme, outline)
		b.WriteString("Task: Group similar ideas under new category nodes.\n")
		b.WriteString("Return a structure that rearranges parentId for existing nodes or creates new grouping nodes.\n")
	case ActionSummary:
		fmt.Fprintf(&b, "Context: You are a business strategist.\nTheme: %s\nFull Map Data:\n%s\n", req.Theme, outline)
		b.WriteString("Task: Synthesize everything into exactly 3 distinct, high-quality project proposals or concepts. Return them as summaryCards.\n")
	case ActionMissing:
		fmt.Fprintf(&b, "Context: You are a critical thinker.\nTheme: %s\nCurrent State:\n%s\n", req.Theme, outline)
		b.WriteString("Task: Identify 5 crucial missing perspectives or risks that haven't been considered yet. Return them as missingPoints.\n")
	}

	return BuildConversation(systemPrompt, Message{Role: RoleUser, Content: b.String()})
}
