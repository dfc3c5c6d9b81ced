package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Router bundles one router's polling context: coordinator, publisher, and
// cadence. Multiple routers are monitored with independent Router values;
// nothing is shared between them.
type Router struct {
	Name        string
	Coordinator *Coordinator
	Publisher   *Publisher
	Interval    time.Duration
}

// Manager owns the poll loops, one per router. The loops are the external
// scheduler: the coordinator itself never self-schedules.
type Manager struct {
	mu      sync.RWMutex
	runners map[string]*runner
	log     zerolog.Logger
}

type runner struct {
	rt     *Router
	stopCh chan struct{}
	done   chan struct{}
	log    zerolog.Logger
}

// NewManager creates an empty Manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		runners: make(map[string]*runner),
		log:     log,
	}
}

// Start launches the poll loop for the given router.
func (m *Manager) Start(rt *Router) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runners[rt.Name]; exists {
		return fmt.Errorf("router %q already running", rt.Name)
	}
	if rt.Interval <= 0 {
		return fmt.Errorf("router %q: poll interval must be positive", rt.Name)
	}

	r := &runner{
		rt:     rt,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		log:    m.log.With().Str("router", rt.Name).Logger(),
	}
	m.runners[rt.Name] = r
	go r.run()
	return nil
}

// Stop halts the poll loop for the named router and waits for any in-flight
// cycle to finish.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	r, ok := m.runners[name]
	if ok {
		delete(m.runners, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("router %q not found", name)
	}
	close(r.stopCh)
	<-r.done
	return nil
}

// StopAll halts every poll loop.
func (m *Manager) StopAll() {
	m.mu.Lock()
	runners := make([]*runner, 0, len(m.runners))
	for name, r := range m.runners {
		runners = append(runners, r)
		delete(m.runners, name)
	}
	m.mu.Unlock()

	for _, r := range runners {
		close(r.stopCh)
		<-r.done
	}
}

// GetSnapshot returns the latest published snapshot for the named router.
func (m *Manager) GetSnapshot(name string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runners[name]
	if !ok {
		return nil, fmt.Errorf("router %q not found", name)
	}
	return r.rt.Publisher.Snapshot(), nil
}

// Subscribe returns an event channel for the named router.
func (m *Manager) Subscribe(name string) (<-chan Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runners[name]
	if !ok {
		return nil, fmt.Errorf("router %q not found", name)
	}
	return r.rt.Publisher.Subscribe(), nil
}

// List returns summary info for all running poll loops.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.runners))
	for _, r := range m.runners {
		infos = append(infos, r.rt.Coordinator.Info())
	}
	return infos
}

// Names returns the names of all running routers.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.runners))
	for name := range m.runners {
		names = append(names, name)
	}
	return names
}

// run drives cycles on the configured interval. The first cycle fires
// immediately so consumers have data without waiting a full interval.
func (r *runner) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.rt.Interval)
	defer ticker.Stop()

	r.cycle()
	for {
		select {
		case <-ticker.C:
			r.cycle()
		case <-r.stopCh:
			return
		}
	}
}

// cycle bounds each cycle to the poll interval so a hung cycle cannot
// outlive its slot and pile up behind the ticker.
func (r *runner) cycle() {
	ctx, cancel := context.WithTimeout(context.Background(), r.rt.Interval)
	defer cancel()

	err := r.rt.Coordinator.RunCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleSkipped):
		r.log.Debug().Msg("cycle skipped")
	default:
		r.log.Debug().Err(err).Msg("cycle completed with errors")
	}
}
