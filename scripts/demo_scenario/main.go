// ---------------------------------------------------------------------------
// scripts/demo_scenario/main.go: Scripted whiteboard walkthrough
//
// Usage:
//   go run ./scripts/demo_scenario --server http://localhost:8080
//
// Flags:
//   --server  Base URL of the scribe server        (default: http://localhost:8080)
//   --theme   Theme of the demo map                 (default: Launch Plan)
//   --pause   Pause between steps                   (default: 800ms)
//   --ai      AI action to run at the end, or ""    (default: summary)
//   --out     Directory the exported map is written (default: .)
// ---------------------------------------------------------------------------
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aiscribe/scribe/internal/canvas"
	"github.com/aiscribe/scribe/internal/graph"
	"github.com/aiscribe/scribe/internal/mapfile"
)

// ---------------------------------------------------------------------------
// ANSI colour helpers
// ---------------------------------------------------------------------------

const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"
	red   = "\033[31m"
	green = "\033[32m"
	cyan  = "\033[36m"
	white = "\033[37m"
)

func colour(c, s string) string { return c + s + reset }

func header(step, total int, msg string) {
	bar := strings.Repeat("━", 60)
	fmt.Println()
	fmt.Println(colour(dim, bar))
	fmt.Printf("  %s  %s\n", colour(bold+cyan, fmt.Sprintf("Step %d/%d", step, total)), colour(bold+white, msg))
	fmt.Println(colour(dim, bar))
}

func ok(format string, args ...any) {
	fmt.Printf("  %s %s\n", colour(green, "✓"), fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// API types (mirrors the backend JSON shapes)
// ---------------------------------------------------------------------------

type mapResp struct {
	Document  graph.Document `json:"document"`
	Selection string         `json:"selection"`
	Stats     graph.Stats    `json:"stats"`
}

type appliedResp struct {
	Applied bool        `json:"applied"`
	Node    *graph.Node `json:"node"`
}

type aiResp struct {
	State struct {
		Markdown string `json:"markdown"`
		Notice   string `json:"notice"`
	} `json:"state"`
}

type errorResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

type client struct {
	base string
	http *http.Client
}

func (c *client) do(method, path string, body, target any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e errorResp
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s returned %d %s: %s", method, path, resp.StatusCode, e.Code, e.Error)
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func (c *client) addNode(parentID, title string) (graph.Node, error) {
	var added appliedResp
	if err := c.do(http.MethodPost, "/api/nodes", map[string]string{"parentId": parentID}, &added); err != nil {
		return graph.Node{}, err
	}
	if added.Node == nil {
		return graph.Node{}, fmt.Errorf("add node: no node returned")
	}
	n := *added.Node
	if err := c.do(http.MethodPut, "/api/nodes/"+n.ID+"/title", map[string]string{"title": title}, nil); err != nil {
		return graph.Node{}, err
	}
	n.Title = title
	return n, nil
}

func (c *client) event(ev canvas.Event) error {
	return c.do(http.MethodPost, "/api/canvas/events", ev, nil)
}

// ---------------------------------------------------------------------------
// Scenario
// ---------------------------------------------------------------------------

var branches = map[string][]string{
	"Marketing":   {"Launch blog post", "Press kit"},
	"Engineering": {"Release checklist", "Rollback plan"},
	"Support":     {"FAQ"},
}

func runDemo(c *client, theme, action, outDir string, pause time.Duration) error {
	const total = 6

	header(1, total, "Start a map")
	var started appliedResp
	if err := c.do(http.MethodPost, "/api/map/theme", map[string]string{"title": theme}, &started); err != nil {
		return err
	}
	root := started.Node
	if root == nil {
		return fmt.Errorf("start map: theme rejected")
	}
	ok("theme %q at (%.0f, %.0f)", root.Title, root.X, root.Y)
	time.Sleep(pause)

	header(2, total, "Add branches")
	names := []string{"Marketing", "Engineering", "Support"}
	for _, name := range names {
		branch, err := c.addNode(root.ID, name)
		if err != nil {
			return err
		}
		ok("%s", branch.Title)
		for _, leaf := range branches[name] {
			if _, err := c.addNode(branch.ID, leaf); err != nil {
				return err
			}
			ok("  └ %s", leaf)
		}
		time.Sleep(pause)
	}

	header(3, total, "Drag the theme and zoom")
	x, y := root.X, root.Y
	steps := []canvas.Event{
		{Type: canvas.EventPointerDown, X: x, Y: y},
		{Type: canvas.EventPointerMove, DX: -40, DY: 0},
		{Type: canvas.EventPointerMove, DX: -40, DY: 20},
		{Type: canvas.EventPointerUp},
		{Type: canvas.EventWheel, DeltaY: -200},
	}
	for _, ev := range steps {
		if err := c.event(ev); err != nil {
			return err
		}
		time.Sleep(pause / 4)
	}
	ok("theme dragged by (-80, 20), zoom 1.2")
	time.Sleep(pause)

	header(4, total, "Auto layout")
	if err := c.do(http.MethodPost, "/api/map/layout", nil, nil); err != nil {
		return err
	}
	var m mapResp
	if err := c.do(http.MethodGet, "/api/map", nil, &m); err != nil {
		return err
	}
	ok("%d nodes, %d edges, %d orphans", m.Stats.TotalNodes, m.Stats.TotalEdges, m.Stats.Orphans)
	if err := c.event(canvas.Event{Type: canvas.EventResetView}); err != nil {
		return err
	}
	time.Sleep(pause)

	header(5, total, "Ask the assistant")
	if action == "" {
		fmt.Println(colour(dim, "  skipped"))
	} else {
		var res aiResp
		if err := c.do(http.MethodPost, "/api/ai/"+action, map[string]string{}, &res); err != nil {
			fmt.Printf("  %s %v\n", colour(red, "✗"), err)
		} else {
			if res.State.Notice != "" {
				ok("%s", res.State.Notice)
			}
			for _, line := range strings.Split(strings.TrimSpace(res.State.Markdown), "\n") {
				fmt.Println("    " + line)
			}
		}
	}
	time.Sleep(pause)

	header(6, total, "Export")
	if err := c.do(http.MethodGet, "/api/map", nil, &m); err != nil {
		return err
	}
	path, err := mapfile.WriteFile(outDir, m.Document, time.Now())
	if err != nil {
		return err
	}
	abs, _ := filepath.Abs(path)
	ok("written to %s", abs)
	return nil
}

// ---------------------------------------------------------------------------
// main
// ---------------------------------------------------------------------------

func main() {
	serverFlag := flag.String("server", "http://localhost:8080", "scribe server base URL")
	themeFlag := flag.String("theme", "Launch Plan", "Theme of the demo map")
	pauseFlag := flag.Duration("pause", 800*time.Millisecond, "Pause between steps")
	aiFlag := flag.String("ai", "summary", "AI action to run at the end (expand|organize|summary|missing, empty to skip)")
	outFlag := flag.String("out", ".", "Directory the exported map is written to")
	flag.Parse()

	c := &client{
		base: strings.TrimRight(*serverFlag, "/"),
		http: &http.Client{Timeout: 90 * time.Second},
	}
	fmt.Printf("\n  %s %s\n", colour(dim, "Connecting to"), colour(white, c.base))

	if err := c.do(http.MethodGet, "/health", nil, nil); err != nil {
		fmt.Fprintf(os.Stderr, "\n  %s %s\n\n", colour(bold+red, "Error:"), err)
		os.Exit(1)
	}

	if err := runDemo(c, *themeFlag, *aiFlag, *outFlag, *pauseFlag); err != nil {
		fmt.Fprintf(os.Stderr, "\n  %s %s\n\n", colour(bold+red, "Error:"), err)
		os.Exit(1)
	}
	fmt.Printf("\n  %s\n\n", colour(bold+green, "✓ Demo complete."))
}
