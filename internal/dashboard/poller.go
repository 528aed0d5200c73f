package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller drives the session: it seeds the chart window once, then polls
// the aggregator on a fixed cadence. Each tick runs fetch-then-apply to
// completion before the next is considered, so polls never overlap.
type Poller struct {
	client   *Client
	session  *Session
	interval time.Duration
	log      *zap.Logger

	// OnUpdate, when set, is called after every applied state change.
	// The renderer hangs off this.
	OnUpdate func()

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewPoller(client *Client, session *Session, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{
		client:   client,
		session:  session,
		interval: interval,
		log:      log,
	}
}

func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.log.Warn("poller already running")
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go p.run(stopCh)
	p.log.Info("poller started", zap.Duration("interval", p.interval))
}

// Stop cancels the poll loop. Once Stop returns, no in-flight or future
// poll mutates the session: applies take the same lock Stop holds and
// re-check the running flag under it.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
	p.log.Info("poller stopped")
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) run(stopCh chan struct{}) {
	p.seed()
	p.poll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// seed fetches the initial chart window. Failure is tolerated: the window
// starts empty and the poll loop fills it one tick at a time.
func (p *Poller) seed() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	window, err := p.client.FetchHistory(ctx)
	if err != nil {
		p.log.Warn("history seed failed, starting with empty chart", zap.Error(err))
		return
	}

	p.apply(func() {
		p.session.SeedHistory(window)
	})
}

// poll runs one fetch-and-apply cycle. A failed fetch leaves the previous
// snapshot and window untouched: stale beats blank.
func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval+10*time.Second)
	defer cancel()

	snap, err := p.client.FetchPrices(ctx)
	if err != nil {
		p.log.Warn("poll failed, keeping last snapshot", zap.Error(err))
		return
	}

	p.apply(func() {
		p.session.ApplySnapshot(snap, time.Now())
	})
}

// apply runs a session mutation unless the poller has been stopped in the
// meantime. Holding p.mu pins the running flag for the duration, so a
// result that resolves after Stop can never touch the session.
func (p *Poller) apply(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	fn()
	if p.OnUpdate != nil {
		p.OnUpdate()
	}
}
