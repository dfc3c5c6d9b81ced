package engine

import "sync"

// Publisher holds the latest snapshot and fans out cycle events. Reading
// the snapshot never touches the network; it is whatever the last
// completed cycle produced.
type Publisher struct {
	mu            sync.RWMutex
	router        string
	snapshot      *Snapshot
	subscribers   []chan Event
	transitionFns []func(Transition)
}

// NewPublisher creates a Publisher for the named router.
func NewPublisher(router string) *Publisher {
	return &Publisher{router: router}
}

// Publish stores the snapshot, invokes transition callbacks once per
// changed device in the order given (the coordinator sorts by identity),
// and notifies subscribers without blocking.
func (p *Publisher) Publish(snap *Snapshot, transitions []Transition) {
	p.mu.Lock()
	p.snapshot = snap
	subs := make([]chan Event, len(p.subscribers))
	copy(subs, p.subscribers)
	fns := make([]func(Transition), len(p.transitionFns))
	copy(fns, p.transitionFns)
	p.mu.Unlock()

	for _, t := range transitions {
		for _, fn := range fns {
			fn(t)
		}
	}

	event := Event{Router: p.router, Snapshot: snap, Transitions: transitions}
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Snapshot returns the most recently published snapshot, or nil before the
// first cycle completes.
func (p *Publisher) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Subscribe returns a channel that receives an event after each cycle.
func (p *Publisher) Subscribe() <-chan Event {
	ch := make(chan Event, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// OnTransition registers a callback invoked once per online-state change
// per cycle, in identity order.
func (p *Publisher) OnTransition(fn func(Transition)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitionFns = append(p.transitionFns, fn)
}
