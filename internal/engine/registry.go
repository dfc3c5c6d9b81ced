package engine

import (
	"sort"
	"sync"
	"time"
)

// Registry owns the durable set of known devices across poll cycles.
// Devices are inserted on first appearance and never deleted; a device
// absent from a cycle's device list goes offline but stays registered.
type Registry struct {
	mu         sync.RWMutex
	devices    map[string]*deviceState
	maxHistory int
}

type deviceState struct {
	dev  Device
	prev *Sample // exactly one prior counter sample, or nil
}

// NewRegistry creates an empty Registry. maxHistory bounds the per-device
// rate history ring.
func NewRegistry(maxHistory int) *Registry {
	if maxHistory <= 0 {
		maxHistory = 360
	}
	return &Registry{
		devices:    make(map[string]*deviceState),
		maxHistory: maxHistory,
	}
}

// UpsertResult reports the device state after an upsert plus the online
// flags needed to detect an offline-to-online transition.
type UpsertResult struct {
	Device    Device
	WasOnline bool
	IsOnline  bool
}

// Upsert marks the device online, applies the counter sample if one is
// available this cycle, and returns the resulting state. The update is
// atomic per device and idempotent: re-applying the identical sample is a
// no-op.
func (r *Registry) Upsert(id, name string, macs []string, sample *Sample, now time.Time) UpsertResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.getOrCreate(id, now)
	wasOnline := st.dev.Online

	st.dev.Online = true
	st.dev.LastSeen = now
	if name != "" {
		st.dev.Name = name
	}
	if len(macs) > 0 {
		st.dev.MACs = macs
	}

	if sample != nil {
		r.applySample(st, *sample)
	}

	return UpsertResult{Device: st.dev, WasOnline: wasOnline, IsOnline: true}
}

// RegisterKnown ensures a device the router reports as known-but-offline
// exists in the registry and keeps its display name current. It never
// changes an existing device's online flag; only MarkUnseenOffline does
// that.
func (r *Registry) RegisterKnown(id, name string, macs []string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.getOrCreate(id, now)
	if name != "" {
		st.dev.Name = name
	}
	if len(macs) > 0 {
		st.dev.MACs = macs
	}
}

// UpdateCounters applies a counter sample to an already-known device
// without touching its online flag. Used when the device-list fetch failed
// but traffic counters arrived. Unknown identities are ignored until they
// appear in a device list.
func (r *Registry) UpdateCounters(id string, sample Sample) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.devices[id]
	if !ok {
		return false
	}
	r.applySample(st, sample)
	return true
}

// MarkUnseenOffline flips to offline every online device whose identity is
// not in seen, and returns the resulting transitions ordered by identity.
// Must be called exactly once per cycle, after all upserts, and only when
// the device-list fetch succeeded.
func (r *Registry) MarkUnseenOffline(seen map[string]struct{}) []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()

	var transitions []Transition
	for id, st := range r.devices {
		if _, ok := seen[id]; ok {
			continue
		}
		if !st.dev.Online {
			continue
		}
		st.dev.Online = false
		st.dev.RxRate = 0
		st.dev.TxRate = 0
		transitions = append(transitions, Transition{
			ID:        id,
			Name:      st.dev.Name,
			WasOnline: true,
			IsOnline:  false,
		})
	}
	sort.Slice(transitions, func(i, j int) bool { return transitions[i].ID < transitions[j].ID })
	return transitions
}

// SnapshotAll returns a copy of every known device, ordered by identity.
func (r *Registry) SnapshotAll() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, st := range r.devices {
		devices = append(devices, st.dev)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func (r *Registry) getOrCreate(id string, now time.Time) *deviceState {
	st, ok := r.devices[id]
	if !ok {
		st = &deviceState{
			dev: Device{
				ID:        id,
				FirstSeen: now,
				History:   NewRingBuffer[RatePoint](r.maxHistory),
			},
		}
		r.devices[id] = st
	}
	return st
}

// applySample runs the rate calculation against the stored prior sample
// and advances the baseline when the calculator says to. Re-applying the
// exact sample already on record is a no-op so back-to-back duplicate
// upserts cannot double-count.
func (r *Registry) applySample(st *deviceState, sample Sample) {
	if st.prev != nil && *st.prev == sample {
		return
	}

	res := ComputeRate(st.prev, sample)
	st.dev.RxRate = res.RxRate
	st.dev.TxRate = res.TxRate
	st.dev.RateValidity = res.Validity

	if res.Advance {
		s := sample
		st.prev = &s
		st.dev.RxBytesTotal = sample.RxBytes
		st.dev.TxBytesTotal = sample.TxBytes
		st.dev.LastSampleTime = sample.Timestamp
		st.dev.History.Add(RatePoint{
			Timestamp: sample.Timestamp,
			RxRate:    res.RxRate,
			TxRate:    res.TxRate,
		})
	}
}
