package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dmateus/lexflash/internal/logger"
)

// Provider reports network availability and notifies on transitions. It
// decouples the sync engine from any particular way of detecting the network.
type Provider interface {
	Online() bool
	// Subscribe registers a callback invoked on every online/offline
	// transition and returns an unsubscribe function.
	Subscribe(fn func(online bool)) func()
}

// Static is a manually controlled Provider, used in tests and as a default
// when no probe endpoint is configured.
type Static struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(bool)
}

// NewStatic returns a Static provider in the given initial state.
func NewStatic(online bool) *Static {
	return &Static{online: online, subs: make(map[int]func(bool))}
}

func (s *Static) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set flips the state and notifies subscribers on transition.
func (s *Static) Set(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	var fns []func(bool)
	if changed {
		for _, fn := range s.subs {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

func (s *Static) Subscribe(fn func(online bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Prober detects connectivity by periodically probing an HTTP endpoint.
type Prober struct {
	*Static
	url      string
	interval time.Duration
	client   *http.Client
	log      *logger.Logger
}

// NewProber creates a Prober against the given URL. It starts optimistic
// (online) until the first probe says otherwise.
func NewProber(url string, interval, timeout time.Duration) *Prober {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{
		Static:   NewStatic(true),
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		log:      logger.Default().WithPrefix("connectivity"),
	}
}

// Run probes until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	p.log.Debug("probe loop started: url=%s, interval=%v", p.url, p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Debug("probe loop stopped")
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.log.Error("failed to build probe request: %v", err)
		return
	}
	resp, err := p.client.Do(req)
	online := err == nil
	if resp != nil {
		resp.Body.Close()
	}

	if online != p.Online() {
		if online {
			p.log.Info("network is back online")
		} else {
			p.log.Warn("network is offline: %v", err)
		}
	}
	p.Set(online)
}
