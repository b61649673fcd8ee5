// Package features holds the process-wide feature configuration fetched once
// from the backend at startup.
package features

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"
)

// Features is the feature flag record exposed to pages.
type Features struct {
	AppName       string
	WalletEnabled bool
}

// Defaults are the compiled-in values used until, or instead of, a
// successful fetch.
var Defaults = Features{
	AppName:       "Wallet",
	WalletEnabled: false,
}

// Fetcher returns the raw configuration payload. backend.Client satisfies it.
type Fetcher interface {
	FetchConfig(ctx context.Context) ([]byte, error)
}

// Snapshot is populated by exactly one fetch and is read-only afterwards.
//
// Readers that arrive before the fetch finishes see the defaults; Loading and
// Done let callers wait instead. A failed fetch is never retried.
type Snapshot struct {
	mu       sync.RWMutex
	features Features
	loading  bool

	once   sync.Once
	done   chan struct{}
	logger *slog.Logger
}

// NewSnapshot returns a snapshot holding defaults, marked as loading.
func NewSnapshot(defaults Features, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshot{
		features: defaults,
		loading:  true,
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Start runs the fetch in the background. Only the first call to Start or
// Load has any effect.
func (s *Snapshot) Start(ctx context.Context, f Fetcher) {
	s.once.Do(func() {
		go s.load(ctx, f)
	})
}

// Load runs the fetch synchronously. Only the first call to Start or Load has
// any effect; later calls return immediately.
func (s *Snapshot) Load(ctx context.Context, f Fetcher) {
	s.once.Do(func() {
		s.load(ctx, f)
	})
}

// Get returns the current values.
func (s *Snapshot) Get() Features {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features
}

// Loading reports whether the fetch is still in flight (or not yet started).
func (s *Snapshot) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Done is closed once the snapshot is final.
func (s *Snapshot) Done() <-chan struct{} {
	return s.done
}

func (s *Snapshot) load(ctx context.Context, f Fetcher) {
	defer close(s.done)

	raw, err := f.FetchConfig(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.loading = false }()

	if err != nil {
		s.logger.WarnContext(ctx, "feature config fetch failed, using defaults", "error", err)
		return
	}

	parsed, ok := parse(raw, s.features)
	if !ok {
		s.logger.WarnContext(ctx, "feature config payload rejected, using defaults")
		return
	}

	s.features = parsed
}

// parse overlays the payload on base field by field. The payload may wrap
// its fields in a success envelope ({"success": true, "data": {...}}) or carry
// them at the root. It reports false for invalid JSON or an explicit
// success=false, in which case base must be kept whole.
func parse(raw []byte, base Features) (Features, bool) {
	if !gjson.ValidBytes(raw) {
		return base, false
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return base, false
	}
	if ok := doc.Get("success"); ok.Exists() && !ok.Bool() {
		return base, false
	}

	fields := doc
	if data := doc.Get("data"); data.IsObject() {
		fields = data
	}

	out := base
	if name := fields.Get("app_name"); name.Type == gjson.String && name.String() != "" {
		out.AppName = name.String()
	}
	if wallet := fields.Get("wallet_enabled"); wallet.IsBool() {
		out.WalletEnabled = wallet.Bool()
	}
	return out, true
}
