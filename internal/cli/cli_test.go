package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/treescan/pkg/pipeline"
	"github.com/matzehuels/treescan/pkg/report"
)

const testTree = `root 0 4 0
cold 2 10 1 root
warm 3 4 1 root
hot 20 2 1 warm
`

func newTestCLI(t *testing.T) (*CLI, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return New(&bytes.Buffer{}, log.InfoLevel), dir
}

func execute(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestRootCommand(t *testing.T) {
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	want := []string{"browse", "cache", "completion", "report", "run"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
}

func TestRunAndReport(t *testing.T) {
	c, dir := newTestCLI(t)
	input := filepath.Join(dir, "hot.tree")
	if err := os.WriteFile(input, []byte(testTree), 0o644); err != nil {
		t.Fatal(err)
	}
	resultPath := filepath.Join(dir, "result.json")

	err := execute(t, c, "run", input, "-r", "99", "--seed", "5", "-o", resultPath, "--critical-values")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}

	doc, err := report.ReadJSONFile(resultPath)
	if err != nil {
		t.Fatalf("ReadJSONFile() error = %v", err)
	}
	if doc.Replications != 99 || doc.Seed != 5 {
		t.Errorf("doc = %d replications seed %d, want 99 and 5", doc.Replications, doc.Seed)
	}
	if doc.Cuts[0].ID != "hot" {
		t.Errorf("top cut = %s, want hot", doc.Cuts[0].ID)
	}
	if len(doc.CriticalValues) == 0 {
		t.Error("--critical-values should add critical values")
	}

	textPath := filepath.Join(dir, "result.txt")
	if err := execute(t, c, "report", resultPath, "-o", textPath); err != nil {
		t.Fatalf("report error = %v", err)
	}
	text, err := os.ReadFile(textPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(text), "MOST LIKELY CUTS") || !strings.Contains(string(text), doc.RunID) {
		t.Errorf("report output missing header or cuts:\n%s", text)
	}
}

func TestRunErrors(t *testing.T) {
	c, dir := newTestCLI(t)

	if err := execute(t, c, "run"); err == nil {
		t.Error("run without input should fail")
	}
	if err := execute(t, c, "run", filepath.Join(dir, "missing.tree"), "--no-cache"); err == nil {
		t.Error("run with a missing file should fail")
	}
	if err := execute(t, c, "report", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("report with a missing file should fail")
	}
}

func TestMergeConfig(t *testing.T) {
	c := New(&bytes.Buffer{}, log.InfoLevel)
	dir := t.TempDir()
	config := filepath.Join(dir, "run.toml")
	content := "input = \"icd.tree\"\nmodel = \"unconditional\"\nreplications = 999\nseed = 9\n"
	if err := os.WriteFile(config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := c.runCommand()
	if err := cmd.ParseFlags([]string{"--config", config, "--seed", "42", "--model", "conditional"}); err != nil {
		t.Fatal(err)
	}
	fromFlags := pipeline.Options{Model: "conditional", Replications: pipeline.DefaultReplications, Seed: 42}

	got, err := mergeConfig(cmd.Flags(), config, fromFlags)
	if err != nil {
		t.Fatalf("mergeConfig() error = %v", err)
	}
	if got.Input != "icd.tree" {
		t.Errorf("Input = %q, want value from config", got.Input)
	}
	if got.Replications != 999 {
		t.Errorf("Replications = %d, want config value 999 (flag not set)", got.Replications)
	}
	if got.Seed != 42 || got.Model != "conditional" {
		t.Errorf("Seed = %d Model = %q, want flag values", got.Seed, got.Model)
	}
}

func TestCutListModel(t *testing.T) {
	p := 0.01
	doc := &report.Document{
		Input:    "t.tree",
		Model:    "conditional",
		Complete: true,
		NodeSummary: []report.NodeSummary{
			{ID: "n0", Duplicates: 2},
		},
	}
	for i := range 30 {
		doc.Cuts = append(doc.Cuts, report.Cut{Position: i + 1, ID: "n" + string(rune('a'+i%26)), PValue: &p})
	}
	doc.Cuts[0].ID = "n0"

	m := NewCutListModel(doc, 0.05)
	m.Height = 10

	press := func(key string) {
		var msg tea.KeyMsg
		switch key {
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		next, _ := m.Update(msg)
		m = next.(CutListModel)
	}

	if !strings.Contains(m.View(), "2 known duplicates removed") {
		t.Error("detail pane should describe the selected node")
	}

	press("up")
	if m.Cursor != 0 {
		t.Errorf("Cursor = %d after up at top, want 0", m.Cursor)
	}
	for range 12 {
		press("down")
	}
	if m.Cursor != 12 || m.Offset != 3 {
		t.Errorf("Cursor, Offset = %d, %d, want 12, 3", m.Cursor, m.Offset)
	}
	press("G")
	if m.Cursor != 29 {
		t.Errorf("Cursor = %d after G, want 29", m.Cursor)
	}
	press("g")
	if m.Cursor != 0 || m.Offset != 0 {
		t.Errorf("Cursor, Offset = %d, %d after g, want 0, 0", m.Cursor, m.Offset)
	}
	if !strings.Contains(m.View(), "[1/30]") {
		t.Error("View() should show the cursor position")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
