package demux

import "sync"

// Pauser is the cooperative pause/resume gate shared by the three
// demuxers' extraction loops. A loop calls Wait at cluster/element/sample
// boundaries; Wait blocks while paused and returns immediately once
// Resume wakes it, or once Stop is called. Grounded on the
// stopChan-plus-close broadcast pattern used by the teacher's
// ConnectionHealthMonitor for cooperative shutdown.
type Pauser struct {
	mu      sync.Mutex
	paused  bool
	stopped bool
	wake    chan struct{}
}

// NewPauser returns a running (not paused, not stopped) gate.
func NewPauser() *Pauser {
	return &Pauser{wake: make(chan struct{})}
}

// Pause suspends the gate. Loops already blocked in Wait, and future
// Wait calls, will block until Resume or Stop.
func (p *Pauser) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume wakes every waiter and un-pauses the gate.
func (p *Pauser) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	close(p.wake)
	p.wake = make(chan struct{})
}

// Stop marks the gate stopped: Wait returns immediately (so the loop can
// observe Stopped() and exit) regardless of pause state.
func (p *Pauser) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.paused {
		close(p.wake)
	}
}

// Stopped reports whether Stop has been called.
func (p *Pauser) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Wait blocks while the gate is paused. It is the extraction loop's
// cooperative suspension point.
func (p *Pauser) Wait() {
	for {
		p.mu.Lock()
		if p.stopped || !p.paused {
			p.mu.Unlock()
			return
		}
		ch := p.wake
		p.mu.Unlock()
		<-ch
	}
}
