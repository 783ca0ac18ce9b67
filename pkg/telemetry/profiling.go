package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync"
	"sync/atomic"
	"time"
)

// MatchProfile accumulates per-recipe match statistics over a time window,
// for offline analysis of which recipes fire often or run long.
type MatchProfile struct {
	Start time.Time
	End   time.Time
	Calls map[string]*RecipeStats
	mu    sync.RWMutex
}

// RecipeStats is one recipe's call statistics within a MatchProfile.
type RecipeStats struct {
	Count       int64
	TotalTime   time.Duration
	AverageTime time.Duration
	mu          sync.Mutex
}

// NewMatchProfile starts an empty profile.
func NewMatchProfile() *MatchProfile {
	return &MatchProfile{Start: time.Now(), Calls: make(map[string]*RecipeStats)}
}

// RecordMatch adds one recipe completion to the profile.
func (p *MatchProfile) RecordMatch(recipeName string, duration time.Duration) {
	p.mu.Lock()
	stats, ok := p.Calls[recipeName]
	if !ok {
		stats = &RecipeStats{}
		p.Calls[recipeName] = stats
	}
	p.mu.Unlock()

	stats.mu.Lock()
	defer stats.mu.Unlock()
	stats.Count++
	stats.TotalTime += duration
	stats.AverageTime = time.Duration(int64(stats.TotalTime) / stats.Count)
}

// Summary renders a human-readable report of every recipe tracked so far.
func (p *MatchProfile) Summary() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := fmt.Sprintf("Match profile (%v):\n\n", time.Since(p.Start))
	for name, stats := range p.Calls {
		stats.mu.Lock()
		out += fmt.Sprintf("%s: %d matches, avg %v\n", name, stats.Count, stats.AverageTime)
		stats.mu.Unlock()
	}
	return out
}

var (
	profilingServer     *http.Server
	profilingAddr       string
	profilingMu         sync.Mutex
	profilingEnabled    atomic.Bool
	profilingServerDone chan struct{}
)

// EnableProfiling starts an HTTP server exposing Go's standard pprof
// endpoints under /debug/pprof/, for inspecting dispatcher CPU and memory
// behavior under load.
//
// Bind to localhost only; the endpoint exposes runtime internals and has
// no authentication of its own.
func EnableProfiling(addr string) error {
	profilingMu.Lock()
	defer profilingMu.Unlock()

	if profilingEnabled.Load() {
		return errors.New("profiling already enabled")
	}
	if addr == "" {
		return errors.New("address cannot be empty")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	profilingServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	profilingAddr = addr
	profilingServerDone = make(chan struct{})

	go func() {
		defer close(profilingServerDone)
		if err := profilingServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			profilingEnabled.Store(false)
		}
	}()

	profilingEnabled.Store(true)
	time.Sleep(50 * time.Millisecond)
	return nil
}

// StopProfiling gracefully shuts down the profiling server, if running.
func StopProfiling() {
	profilingMu.Lock()
	defer profilingMu.Unlock()

	if !profilingEnabled.Load() || profilingServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := profilingServer.Shutdown(ctx); err != nil {
		_ = profilingServer.Close()
	}
	<-profilingServerDone

	profilingServer = nil
	profilingAddr = ""
	profilingEnabled.Store(false)
}

// IsProfilingEnabled reports whether the pprof server is currently running.
func IsProfilingEnabled() bool {
	return profilingEnabled.Load()
}

// GetProfilingAddress returns the bound address, or "" if not enabled.
func GetProfilingAddress() string {
	profilingMu.Lock()
	defer profilingMu.Unlock()
	return profilingAddr
}
