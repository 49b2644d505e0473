package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/treescan/pkg/cache"
	scanerrors "github.com/matzehuels/treescan/pkg/errors"
	"github.com/matzehuels/treescan/pkg/observability"
)

const hotTree = `# one leaf with ten times its expected share
root 0 4 0
cold 2 10 1 root
warm 3 4 1 root
hot 20 2 1 warm
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Input: "tree.txt"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}

	if opts.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", opts.Model, DefaultModel)
	}
	if opts.Replications != DefaultReplications {
		t.Errorf("Replications = %d, want %d", opts.Replications, DefaultReplications)
	}
	if opts.MaxCuts != DefaultMaxCuts {
		t.Errorf("MaxCuts = %d, want %d", opts.MaxCuts, DefaultMaxCuts)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("Seed = %d, want %d", opts.Seed, DefaultSeed)
	}
	if opts.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", opts.Workers, runtime.NumCPU())
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	// Idempotent
	opts.Model = "bogus"
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call should be a no-op, got %v", err)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code scanerrors.Code
	}{
		{"missing input", Options{}, scanerrors.ErrCodeInvalidInput},
		{"bad model", Options{Input: "t", Model: "binomial"}, scanerrors.ErrCodeInvalidModel},
		{"negative replications", Options{Input: "t", Replications: -1}, scanerrors.ErrCodeInvalidInput},
		{"negative cuts", Options{Input: "t", MaxCuts: -1}, scanerrors.ErrCodeInvalidInput},
		{"negative workers", Options{Input: "t", Workers: -2}, scanerrors.ErrCodeInvalidInput},
		{"bad duplicates path", Options{Input: "t", Duplicates: "  "}, scanerrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if got := scanerrors.GetCode(err); got != tt.code {
				t.Errorf("GetCode() = %v, want %v (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestResultKeyOpts(t *testing.T) {
	opts := Options{Input: "t", Model: "Unconditional", Replications: 9, Seed: 4}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	k := opts.ResultKeyOpts("dup")
	if k.Model != "unconditional" {
		t.Errorf("Model = %q, want canonical name", k.Model)
	}
	if k.Replications != 9 || k.Seed != 4 || k.DuplicatesHash != "dup" {
		t.Errorf("ResultKeyOpts() = %+v", k)
	}
}

func TestRunnerExecute(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "hot.tree", hotTree)
	c, err := cache.NewFileCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	defer runner.Close()

	opts := Options{Input: input, Replications: 99, Seed: 7, Workers: 2}
	res, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.CacheHit {
		t.Error("first run should not hit the cache")
	}
	if res.Scan == nil || res.Document == nil {
		t.Fatal("Execute() should return scan result and document")
	}
	if res.Stats.NodeCount != 4 || res.Stats.EdgeCount != 3 {
		t.Errorf("Stats = %+v, want 4 nodes and 3 edges", res.Stats)
	}
	if got := res.Document.Cuts[0].ID; got != "hot" {
		t.Errorf("top cut = %s, want hot", got)
	}
	if res.Document.Input != "hot.tree" {
		t.Errorf("Document.Input = %q, want base name", res.Document.Input)
	}
	if res.Stats.Significant == 0 {
		t.Error("hot leaf should be significant")
	}
	if res.Stats.CachedBytes == 0 {
		t.Error("complete result should be cached")
	}

	again, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !again.CacheHit || again.Scan != nil {
		t.Error("second run should come from the cache")
	}
	if again.Document.RunID != res.Document.RunID {
		t.Errorf("cached RunID = %s, want %s", again.Document.RunID, res.Document.RunID)
	}

	opts.Refresh = true
	fresh, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.CacheHit {
		t.Error("Refresh should bypass the cache")
	}

	opts.Refresh = false
	opts.Seed = 8
	other, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if other.CacheHit {
		t.Error("different seed should miss the cache")
	}
}

func TestRunnerExecuteDuplicates(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		Input:        writeFile(t, dir, "hot.tree", hotTree),
		Duplicates:   writeFile(t, dir, "dups.txt", "hot 5\n"),
		Replications: 19,
	}

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := res.Document.TotalCases; got != 20 {
		t.Errorf("TotalCases = %d, want 20 after removing duplicates", got)
	}
}

func TestRunnerExecuteErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		opts Options
		code scanerrors.Code
	}{
		{
			name: "missing file",
			opts: Options{Input: filepath.Join(dir, "missing.tree")},
			code: scanerrors.ErrCodeFileNotFound,
		},
		{
			name: "parse error",
			opts: Options{Input: writeFile(t, dir, "bad.tree", "a 1 1 0\nb x 1 0\n")},
			code: scanerrors.ErrCodeInputParse,
		},
		{
			name: "unknown parent",
			opts: Options{Input: writeFile(t, dir, "orphan.tree", "a 1 1 1 ghost\n")},
			code: scanerrors.ErrCodeStructural,
		},
		{
			name: "cycle",
			opts: Options{Input: writeFile(t, dir, "cycle.tree", "a 1 1 1 b\nb 1 1 1 a\n")},
			code: scanerrors.ErrCodeStructural,
		},
		{
			name: "duplicates exceed cases",
			opts: Options{
				Input:      writeFile(t, dir, "small.tree", "a 1 1 0\n"),
				Duplicates: writeFile(t, dir, "toomany.txt", "a 3\n"),
			},
			code: scanerrors.ErrCodeDataConsistency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Replications = 9
			res, err := NewRunner(nil, nil, nil).Execute(context.Background(), tt.opts)
			if res != nil {
				t.Error("fatal errors should return no result")
			}
			if got := scanerrors.GetCode(err); got != tt.code {
				t.Errorf("GetCode() = %v, want %v (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestRunnerExecuteCancelled(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.NewFileCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{Input: writeFile(t, dir, "hot.tree", hotTree), Replications: 999}
	res, err := NewRunner(c, nil, nil).Execute(ctx, opts)
	if !scanerrors.Is(err, scanerrors.ErrCodeCancelled) {
		t.Fatalf("Execute() error = %v, want CANCELLED", err)
	}
	if res == nil || res.Document == nil {
		t.Fatal("cancelled run should return a partial document")
	}
	if res.Document.Complete || res.Document.HasPValues() {
		t.Error("partial document should be marked incomplete")
	}
	if entries, _, _ := c.Stats(); entries != 0 {
		t.Errorf("partial result was cached (%d entries)", entries)
	}
}

func TestRunnerHooks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()

	hooks := &recordingHooks{}
	observability.SetScanHooks(hooks)
	observability.SetCacheHooks(hooks)

	dir := t.TempDir()
	opts := Options{Input: writeFile(t, dir, "hot.tree", hotTree), Replications: 19}
	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	want := []string{"cache_miss", "parse", "scan_start", "scan_complete", "significant", "cache_set"}
	if len(hooks.events) != len(want) {
		t.Fatalf("events = %v, want %v", hooks.events, want)
	}
	for i := range want {
		if hooks.events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, hooks.events[i], want[i])
		}
	}
}

type recordingHooks struct {
	observability.NoopScanHooks
	observability.NoopCacheHooks

	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnParseComplete(context.Context, int, int, time.Duration, error) {
	h.record("parse")
}

func (h *recordingHooks) OnScanStart(context.Context, string, int, int) {
	h.record("scan_start")
}

func (h *recordingHooks) OnScanComplete(context.Context, string, int, time.Duration, error) {
	h.record("scan_complete")
}

func (h *recordingHooks) OnSignificantCuts(context.Context, string, int) {
	h.record("significant")
}

func (h *recordingHooks) OnCacheMiss(context.Context, string) {
	h.record("cache_miss")
}

func (h *recordingHooks) OnCacheSet(context.Context, string, int) {
	h.record("cache_set")
}
