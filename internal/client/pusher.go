package client

import (
	"context"
	"sync"
	"time"
)

// pusher is a single-slot pending write. Scheduling while a write is pending
// resets its deadline; at most one send happens per elapsed deadline.
type pusher struct {
	delay time.Duration
	send  func(ctx context.Context)

	mu       sync.Mutex
	idle     *sync.Cond
	timer    *time.Timer
	pending  bool
	inflight int
	gen      uint64
	closed   bool

	// serializes sends so pushes reach the endpoint in scheduling order
	sendMu sync.Mutex
}

func newPusher(delay time.Duration, send func(ctx context.Context)) *pusher {
	p := &pusher{delay: delay, send: send}
	p.idle = sync.NewCond(&p.mu)
	return p
}

func (p *pusher) schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.stopTimer()
	p.pending = true
	p.gen++

	gen := p.gen
	p.timer = time.AfterFunc(p.delay, func() { p.fire(gen) })
}

func (p *pusher) fire(gen uint64) {
	p.mu.Lock()
	if !p.pending || p.closed || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.pending = false
	p.timer = nil
	p.inflight++
	p.mu.Unlock()

	p.run(context.Background())
}

// flush sends a pending write right away and waits for sends already under
// way. It reports whether a write was pending.
func (p *pusher) flush(ctx context.Context) bool {
	p.mu.Lock()
	if !p.pending {
		for p.inflight > 0 {
			p.idle.Wait()
		}
		p.mu.Unlock()
		return false
	}
	p.stopTimer()
	p.pending = false
	p.inflight++
	p.gen++
	p.mu.Unlock()

	p.run(ctx)
	return true
}

// cancel drops the pending write, if any.
func (p *pusher) cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimer()
	p.pending = false
	p.gen++
}

func (p *pusher) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimer()
	p.pending = false
	p.closed = true
	p.gen++
}

func (p *pusher) isPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pending
}

func (p *pusher) run(ctx context.Context) {
	defer func() {
		p.mu.Lock()
		p.inflight--
		p.idle.Broadcast()
		p.mu.Unlock()
	}()

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.send(ctx)
}

func (p *pusher) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
