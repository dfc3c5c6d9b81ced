package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumamon/internal/dumaos"
	"dumamon/internal/logger"
)

// fakeFetcher scripts the three logical fetches.
type fakeFetcher struct {
	mu       sync.Mutex
	devices  func() ([]dumaos.DeviceEntry, error)
	traffic  func() (map[string]dumaos.Counters, error)
	status   func() (*dumaos.SystemInfo, error)
	devCalls int
}

func (f *fakeFetcher) DeviceList(context.Context) ([]dumaos.DeviceEntry, error) {
	f.mu.Lock()
	f.devCalls++
	f.mu.Unlock()
	return f.devices()
}

func (f *fakeFetcher) Traffic(context.Context) (map[string]dumaos.Counters, error) {
	return f.traffic()
}

func (f *fakeFetcher) SystemInfo(context.Context) (*dumaos.SystemInfo, error) {
	return f.status()
}

func okStatus() (*dumaos.SystemInfo, error) {
	return &dumaos.SystemInfo{UptimeSeconds: 86400, Firmware: "4.0.119", Board: "R3"}, nil
}

func newTestCoordinator(t *testing.T, f Fetcher) (*Coordinator, *Publisher) {
	t.Helper()
	pub := NewPublisher("test")
	coord := NewCoordinator(Config{
		Name:      "test",
		Host:      "192.168.77.1",
		Fetcher:   f,
		Registry:  NewRegistry(16),
		Publisher: pub,
		RetryBase: time.Millisecond,
		Logger:    logger.NewTestLogger(),
	})
	return coord, pub
}

func TestRunCycleScenarioA(t *testing.T) {
	// First poll rx=1000 at t0, second rx=1500 ten seconds later.
	var poll int
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) {
			return []dumaos.DeviceEntry{{ID: "AA:BB:CC", Name: "laptop", Online: true}}, nil
		},
		traffic: func() (map[string]dumaos.Counters, error) {
			if poll == 0 {
				return map[string]dumaos.Counters{"AA:BB:CC": {RxBytes: 1000}}, nil
			}
			return map[string]dumaos.Counters{"AA:BB:CC": {RxBytes: 1500}}, nil
		},
		status: okStatus,
	}
	coord, pub := newTestCoordinator(t, f)
	reg := coord.cfg.Registry

	require.NoError(t, coord.RunCycle(context.Background()))

	// Fake the elapsed time by rewinding the stored baseline.
	poll = 1
	reg.mu.Lock()
	reg.devices["AA:BB:CC"].prev.Timestamp = reg.devices["AA:BB:CC"].prev.Timestamp.Add(-10 * time.Second)
	reg.mu.Unlock()

	require.NoError(t, coord.RunCycle(context.Background()))

	snap := pub.Snapshot()
	require.NotNil(t, snap)
	require.Len(t, snap.Devices, 1)
	dev := snap.Devices[0]
	assert.True(t, dev.Online)
	assert.InDelta(t, 50.0, dev.RxRate, 1.0)
	assert.Equal(t, ValidityValid, dev.RateValidity)
	assert.Equal(t, "4.0.119", snap.Status.Firmware)
}

func TestRunCycleScenarioB(t *testing.T) {
	// Present in cycle 1, absent in cycle 2.
	var absent bool
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) {
			if absent {
				return nil, nil
			}
			return []dumaos.DeviceEntry{{ID: "AA:BB:CC", Name: "laptop", Online: true}}, nil
		},
		traffic: func() (map[string]dumaos.Counters, error) {
			return map[string]dumaos.Counters{"AA:BB:CC": {RxBytes: 1000, TxBytes: 400}}, nil
		},
		status: okStatus,
	}
	coord, pub := newTestCoordinator(t, f)

	var transitions []Transition
	pub.OnTransition(func(tr Transition) { transitions = append(transitions, tr) })

	require.NoError(t, coord.RunCycle(context.Background()))
	require.Len(t, transitions, 1, "first appearance is an online transition")
	assert.True(t, transitions[0].IsOnline)

	absent = true
	require.NoError(t, coord.RunCycle(context.Background()))

	require.Len(t, transitions, 2)
	assert.False(t, transitions[1].IsOnline)

	snap := pub.Snapshot()
	require.Len(t, snap.Devices, 1, "absent device remains in the registry")
	assert.False(t, snap.Devices[0].Online)
	assert.Equal(t, uint64(1000), snap.Devices[0].RxBytesTotal, "last counters retained unchanged")
	assert.Equal(t, uint64(400), snap.Devices[0].TxBytesTotal)
}

func TestRunCycleScenarioD(t *testing.T) {
	// Device-list fetch times out; traffic and status succeed.
	var failDevices bool
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) {
			if failDevices {
				return nil, &dumaos.TransportError{Kind: dumaos.ErrTimeout, Method: "get_all_devices", Err: context.DeadlineExceeded}
			}
			return []dumaos.DeviceEntry{{ID: "a", Name: "one", Online: true}}, nil
		},
		traffic: func() (map[string]dumaos.Counters, error) {
			return map[string]dumaos.Counters{"a": {RxBytes: 100}}, nil
		},
		status: okStatus,
	}
	coord, pub := newTestCoordinator(t, f)

	require.NoError(t, coord.RunCycle(context.Background()))
	firstDevices := pub.Snapshot().LastSuccess.Devices

	failDevices = true
	err := coord.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialCycle)

	snap := pub.Snapshot()
	require.Len(t, snap.Devices, 1)
	assert.True(t, snap.Devices[0].Online, "unreachable device list must not mark devices offline")
	assert.Equal(t, firstDevices, snap.LastSuccess.Devices, "device category is stale")
	assert.True(t, snap.LastSuccess.Traffic.After(firstDevices), "traffic category stayed fresh")
}

func TestRunCycleAllFetchesFail(t *testing.T) {
	boom := &dumaos.TransportError{Kind: dumaos.ErrUnreachable, Method: "x", Err: errors.New("connection refused")}
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) { return nil, boom },
		traffic: func() (map[string]dumaos.Counters, error) { return nil, boom },
		status:  func() (*dumaos.SystemInfo, error) { return nil, boom },
	}
	coord, pub := newTestCoordinator(t, f)

	// Seed a known online device, then lose the router entirely.
	coord.cfg.Registry.Upsert("a", "one", nil, nil, time.Now())

	err := coord.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrPartialCycle)

	snap := pub.Snapshot()
	require.NotNil(t, snap, "a failed cycle still publishes the last known state")
	require.Len(t, snap.Devices, 1)
	assert.True(t, snap.Devices[0].Online)
}

func TestRunCycleConcurrentTriggerSkipped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) {
			close(started)
			<-release
			return nil, nil
		},
		traffic: func() (map[string]dumaos.Counters, error) { return nil, nil },
		status:  okStatus,
	}
	coord, _ := newTestCoordinator(t, f)

	done := make(chan error, 1)
	go func() { done <- coord.RunCycle(context.Background()) }()
	<-started

	before := coord.cfg.Registry.Len()
	err := coord.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleSkipped)
	assert.Equal(t, before, coord.cfg.Registry.Len(), "skipped trigger must not mutate state")

	close(release)
	require.NoError(t, <-done)
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var failures int
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) { return nil, nil },
		traffic: func() (map[string]dumaos.Counters, error) { return nil, nil },
		status:  okStatus,
	}
	f.devices = func() ([]dumaos.DeviceEntry, error) {
		if failures < 2 {
			failures++
			return nil, &dumaos.TransportError{Kind: dumaos.ErrTimeout, Method: "get_all_devices", Err: context.DeadlineExceeded}
		}
		return []dumaos.DeviceEntry{{ID: "a", Name: "one", Online: true}}, nil
	}
	coord, pub := newTestCoordinator(t, f)

	require.NoError(t, coord.RunCycle(context.Background()))
	assert.Equal(t, 2, failures)
	assert.True(t, pub.Snapshot().Devices[0].Online)
}

func TestFetchMalformedNotRetried(t *testing.T) {
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) {
			return nil, &dumaos.TransportError{Kind: dumaos.ErrMalformed, Method: "get_all_devices", Err: errors.New("missing devid")}
		},
		traffic: func() (map[string]dumaos.Counters, error) { return nil, nil },
		status:  okStatus,
	}
	coord, _ := newTestCoordinator(t, f)

	err := coord.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrPartialCycle)
	assert.Equal(t, 1, f.devCalls, "malformed responses do not improve on retry")
}

type fakeProber struct {
	uptime int64
	err    error
}

func (p *fakeProber) Probe() (int64, string, error) { return p.uptime, "OpenWrt", p.err }

func TestStatusFallsBackToSNMP(t *testing.T) {
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) { return nil, nil },
		traffic: func() (map[string]dumaos.Counters, error) { return nil, nil },
		status: func() (*dumaos.SystemInfo, error) {
			return nil, &dumaos.TransportError{Kind: dumaos.ErrUnreachable, Method: "get_system_info", Err: errors.New("refused")}
		},
	}
	pub := NewPublisher("test")
	coord := NewCoordinator(Config{
		Name:         "test",
		Fetcher:      f,
		StatusProber: &fakeProber{uptime: 4242},
		Registry:     NewRegistry(16),
		Publisher:    pub,
		MaxAttempts:  1,
		RetryBase:    time.Millisecond,
		Logger:       logger.NewTestLogger(),
	})

	require.NoError(t, coord.RunCycle(context.Background()))
	snap := pub.Snapshot()
	assert.Equal(t, int64(4242), snap.Status.UptimeSeconds)
	assert.False(t, snap.LastSuccess.Status.IsZero())
}

func TestTransitionsSortedByIdentity(t *testing.T) {
	f := &fakeFetcher{
		devices: func() ([]dumaos.DeviceEntry, error) {
			return []dumaos.DeviceEntry{
				{ID: "z", Name: "last", Online: true},
				{ID: "a", Name: "first", Online: true},
			}, nil
		},
		traffic: func() (map[string]dumaos.Counters, error) { return nil, nil },
		status:  okStatus,
	}
	coord, pub := newTestCoordinator(t, f)

	var order []string
	pub.OnTransition(func(tr Transition) { order = append(order, tr.ID) })

	require.NoError(t, coord.RunCycle(context.Background()))
	assert.Equal(t, []string{"a", "z"}, order)
}
