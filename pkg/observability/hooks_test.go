package observability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	s := NoopScanHooks{}
	s.OnParseComplete(ctx, 100, 99, time.Second, nil)
	s.OnScanStart(ctx, "conditional", 100, 999)
	s.OnScanComplete(ctx, "conditional", 999, time.Second, nil)
	s.OnSignificantCuts(ctx, "conditional", 2)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "result")
	c.OnCacheMiss(ctx, "result")
	c.OnCacheSet(ctx, "result", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Scan().(NoopScanHooks); !ok {
		t.Error("Scan() should return NoopScanHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customScan := &testScanHooks{}
	SetScanHooks(customScan)
	if Scan() != customScan {
		t.Error("SetScanHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Scan().(NoopScanHooks); !ok {
		t.Error("Reset() should restore NoopScanHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testScanHooks{}
	SetScanHooks(custom)
	SetScanHooks(nil)
	if Scan() != custom {
		t.Error("SetScanHooks(nil) should be ignored")
	}
}

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	h := NewPrometheusHooks()

	h.OnParseComplete(ctx, 120, 119, time.Millisecond, nil)
	h.OnParseComplete(ctx, 0, 0, time.Millisecond, errors.New("bad line"))
	h.OnScanStart(ctx, "conditional", 120, 999)
	h.OnScanComplete(ctx, "conditional", 999, 2*time.Second, nil)
	h.OnSignificantCuts(ctx, "conditional", 3)
	h.OnCacheMiss(ctx, "result")
	h.OnCacheSet(ctx, "result", 2048)

	families, err := h.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := map[string]bool{}
	for _, mf := range families {
		got[mf.GetName()] = true
	}
	for _, name := range []string{
		"treescan_parse_total",
		"treescan_tree_nodes",
		"treescan_scan_total",
		"treescan_scan_duration_seconds",
		"treescan_replications_total",
		"treescan_significant_cuts",
		"treescan_cache_requests_total",
		"treescan_cache_written_bytes_total",
	} {
		if !got[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}

	path := filepath.Join(t.TempDir(), "treescan.prom")
	if err := h.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `treescan_replications_total{model="conditional"} 999`) {
		t.Errorf("textfile missing replication counter:\n%s", data)
	}
}

type testScanHooks struct{ NoopScanHooks }
type testCacheHooks struct{ NoopCacheHooks }
