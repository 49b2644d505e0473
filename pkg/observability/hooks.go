// Package observability provides hooks for metrics around scan runs.
//
// Libraries emit events through the registered hooks; main decides what, if
// anything, receives them. The defaults are no-ops, so the scan engine and
// the pipeline carry no dependency on a metrics backend.
//
// # Usage
//
// Register hooks at startup:
//
//	func main() {
//	    metrics := observability.NewPrometheusHooks()
//	    observability.SetScanHooks(metrics)
//	    observability.SetCacheHooks(metrics)
//	    // ... run
//	    _ = metrics.WriteTextfile("/var/lib/node_exporter/treescan.prom")
//	}
//
// Emit events from library code:
//
//	observability.Scan().OnScanStart(ctx, "conditional", nodes, replications)
//	// ... scan ...
//	observability.Scan().OnScanComplete(ctx, "conditional", completed, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Scan Hooks
// =============================================================================

// ScanHooks receives events from a run.
type ScanHooks interface {
	// Input events
	OnParseComplete(ctx context.Context, nodes, edges int, duration time.Duration, err error)

	// Scan events
	OnScanStart(ctx context.Context, model string, nodes, replications int)
	OnScanComplete(ctx context.Context, model string, completed int, duration time.Duration, err error)

	// OnSignificantCuts records how many cuts reached p <= 0.05.
	OnSignificantCuts(ctx context.Context, model string, count int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from result cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopScanHooks is a no-op implementation of ScanHooks.
type NoopScanHooks struct{}

func (NoopScanHooks) OnParseComplete(context.Context, int, int, time.Duration, error)   {}
func (NoopScanHooks) OnScanStart(context.Context, string, int, int)                     {}
func (NoopScanHooks) OnScanComplete(context.Context, string, int, time.Duration, error) {}
func (NoopScanHooks) OnSignificantCuts(context.Context, string, int)                    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	scanHooks  ScanHooks  = NoopScanHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetScanHooks registers scan hooks. Call once at startup; nil is ignored.
func SetScanHooks(h ScanHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		scanHooks = h
	}
}

// SetCacheHooks registers cache hooks. Call once at startup; nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Scan returns the registered scan hooks.
func Scan() ScanHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return scanHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores the no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	scanHooks = NoopScanHooks{}
	cacheHooks = NoopCacheHooks{}
}
