package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(rx, tx uint64, sec int64) *Sample {
	return &Sample{RxBytes: rx, TxBytes: tx, Timestamp: time.Unix(sec, 0)}
}

func TestUpsertInsertsAndReportsTransition(t *testing.T) {
	reg := NewRegistry(10)
	now := time.Unix(100, 0)

	res := reg.Upsert("AA:BB:CC", "laptop", []string{"AA:BB:CC"}, sampleAt(1000, 0, 100), now)
	assert.False(t, res.WasOnline)
	assert.True(t, res.IsOnline)
	assert.Equal(t, "laptop", res.Device.Name)
	assert.Equal(t, uint64(1000), res.Device.RxBytesTotal)
	assert.Equal(t, ValidityNone, res.Device.RateValidity)
	assert.Zero(t, res.Device.RxRate)
}

func TestUpsertComputesRate(t *testing.T) {
	reg := NewRegistry(10)

	reg.Upsert("AA:BB:CC", "laptop", nil, sampleAt(1000, 0, 0), time.Unix(0, 0))
	res := reg.Upsert("AA:BB:CC", "laptop", nil, sampleAt(1500, 0, 10), time.Unix(10, 0))

	assert.Equal(t, 50.0, res.Device.RxRate)
	assert.Equal(t, ValidityValid, res.Device.RateValidity)
	assert.True(t, res.WasOnline)
}

func TestUpsertIdempotent(t *testing.T) {
	reg := NewRegistry(10)

	reg.Upsert("id", "dev", nil, sampleAt(1000, 500, 0), time.Unix(0, 0))
	first := reg.Upsert("id", "dev", nil, sampleAt(1500, 700, 10), time.Unix(10, 0))
	second := reg.Upsert("id", "dev", nil, sampleAt(1500, 700, 10), time.Unix(10, 0))

	assert.Equal(t, first.Device.RxRate, second.Device.RxRate)
	assert.Equal(t, first.Device.TxRate, second.Device.TxRate)
	assert.Equal(t, first.Device.RxBytesTotal, second.Device.RxBytesTotal)
	assert.Equal(t, first.Device.RateValidity, second.Device.RateValidity)
	assert.Equal(t, first.Device.History.Len(), second.Device.History.Len(), "duplicate sample must not add history")
}

func TestCounterResetBecomesNewBaseline(t *testing.T) {
	reg := NewRegistry(10)

	reg.Upsert("id", "dev", nil, sampleAt(50000, 0, 0), time.Unix(0, 0))
	resetRes := reg.Upsert("id", "dev", nil, sampleAt(200, 0, 10), time.Unix(10, 0))
	assert.Equal(t, ValidityReset, resetRes.Device.RateValidity)
	assert.Zero(t, resetRes.Device.RxRate)
	assert.Equal(t, uint64(200), resetRes.Device.RxBytesTotal, "reset sample becomes the stored counters")

	// Next delta is measured against the post-reset baseline.
	after := reg.Upsert("id", "dev", nil, sampleAt(700, 0, 20), time.Unix(20, 0))
	assert.Equal(t, ValidityValid, after.Device.RateValidity)
	assert.Equal(t, 50.0, after.Device.RxRate)
}

func TestBadIntervalKeepsBaseline(t *testing.T) {
	reg := NewRegistry(10)

	reg.Upsert("id", "dev", nil, sampleAt(1000, 0, 10), time.Unix(10, 0))
	skewed := reg.Upsert("id", "dev", nil, sampleAt(2000, 0, 5), time.Unix(11, 0))
	assert.Equal(t, ValidityBadInterval, skewed.Device.RateValidity)
	assert.Zero(t, skewed.Device.RxRate)
	assert.Equal(t, uint64(1000), skewed.Device.RxBytesTotal, "counters stay at the last good observation")

	// The old baseline is still in place for the next good sample.
	good := reg.Upsert("id", "dev", nil, sampleAt(1500, 0, 20), time.Unix(20, 0))
	assert.Equal(t, ValidityValid, good.Device.RateValidity)
	assert.Equal(t, 50.0, good.Device.RxRate)
}

func TestMarkUnseenOffline(t *testing.T) {
	reg := NewRegistry(10)
	now := time.Unix(0, 0)

	reg.Upsert("a", "one", nil, sampleAt(100, 100, 0), now)
	reg.Upsert("b", "two", nil, sampleAt(200, 200, 0), now)
	reg.Upsert("c", "three", nil, sampleAt(300, 300, 0), now)

	transitions := reg.MarkUnseenOffline(map[string]struct{}{"b": {}})
	require.Len(t, transitions, 2)
	assert.Equal(t, "a", transitions[0].ID)
	assert.Equal(t, "c", transitions[1].ID)
	for _, tr := range transitions {
		assert.True(t, tr.WasOnline)
		assert.False(t, tr.IsOnline)
	}

	devices := reg.SnapshotAll()
	require.Len(t, devices, 3, "absent devices stay registered")
	assert.False(t, devices[0].Online)
	assert.True(t, devices[1].Online)
	assert.False(t, devices[2].Online)
	assert.Equal(t, uint64(100), devices[0].RxBytesTotal, "offline device keeps last counters")
}

func TestMarkUnseenOfflineAlreadyOffline(t *testing.T) {
	reg := NewRegistry(10)
	now := time.Unix(0, 0)

	reg.Upsert("a", "one", nil, nil, now)
	reg.MarkUnseenOffline(map[string]struct{}{})

	// Second cycle with the device still absent: no repeat transition.
	transitions := reg.MarkUnseenOffline(map[string]struct{}{})
	assert.Empty(t, transitions)
}

func TestRegisterKnownDoesNotFlipOnline(t *testing.T) {
	reg := NewRegistry(10)
	now := time.Unix(0, 0)

	reg.Upsert("a", "one", nil, nil, now)
	reg.RegisterKnown("a", "renamed", nil, now)
	reg.RegisterKnown("b", "offline-dev", nil, now)

	devices := reg.SnapshotAll()
	require.Len(t, devices, 2)
	assert.True(t, devices[0].Online, "RegisterKnown must not flip an online device")
	assert.Equal(t, "renamed", devices[0].Name)
	assert.False(t, devices[1].Online, "new known device starts offline")
}

func TestUpdateCountersIgnoresUnknown(t *testing.T) {
	reg := NewRegistry(10)

	assert.False(t, reg.UpdateCounters("ghost", Sample{RxBytes: 1, Timestamp: time.Unix(0, 0)}))
	assert.Zero(t, reg.Len())

	reg.Upsert("a", "one", nil, sampleAt(100, 0, 0), time.Unix(0, 0))
	reg.MarkUnseenOffline(map[string]struct{}{})

	// Counters still apply to a known-but-offline device without touching
	// its online flag.
	assert.True(t, reg.UpdateCounters("a", Sample{RxBytes: 600, Timestamp: time.Unix(10, 0)}))
	dev := reg.SnapshotAll()[0]
	assert.False(t, dev.Online)
	assert.Equal(t, uint64(600), dev.RxBytesTotal)
}

func TestSnapshotAllOrdered(t *testing.T) {
	reg := NewRegistry(10)
	now := time.Unix(0, 0)

	for _, id := range []string{"c", "a", "b"} {
		reg.Upsert(id, id, nil, nil, now)
	}

	devices := reg.SnapshotAll()
	require.Len(t, devices, 3)
	assert.Equal(t, "a", devices[0].ID)
	assert.Equal(t, "b", devices[1].ID)
	assert.Equal(t, "c", devices[2].ID)
}

func TestIdentityNeverMerged(t *testing.T) {
	reg := NewRegistry(10)
	now := time.Unix(0, 0)

	// Two devices sharing a display name stay distinct entries.
	reg.Upsert("id-1", "phone", nil, nil, now)
	reg.Upsert("id-2", "phone", nil, nil, now)
	assert.Equal(t, 2, reg.Len())
}
