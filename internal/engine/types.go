package engine

import (
	"encoding/json"
	"time"
)

// Validity describes how trustworthy a device's published rates are for
// the current cycle.
type Validity int

const (
	// ValidityNone means no prior sample existed; rates are zero rather
	// than a spurious first-cycle spike.
	ValidityNone Validity = iota
	// ValidityValid means rates were derived from two good samples.
	ValidityValid
	// ValidityReset means the counters decreased (device or router
	// reboot); rates are zero and the new sample is the fresh baseline.
	ValidityReset
	// ValidityBadInterval means the sample's timestamp did not advance
	// (clock skew or duplicate poll); rates are zero and the previous
	// baseline is retained.
	ValidityBadInterval
)

// MarshalJSON renders the validity as its display string.
func (v Validity) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v Validity) String() string {
	switch v {
	case ValidityNone:
		return "not-yet-valid"
	case ValidityValid:
		return "valid"
	case ValidityReset:
		return "reset-detected"
	case ValidityBadInterval:
		return "invalid-interval"
	default:
		return "unknown"
	}
}

// Sample is one raw counter observation for a device.
type Sample struct {
	RxBytes   uint64
	TxBytes   uint64
	Timestamp time.Time
}

// RatePoint is a derived rate observation kept in per-device history for
// display purposes.
type RatePoint struct {
	Timestamp time.Time
	RxRate    float64
	TxRate    float64
}

// Device is the durable per-device state maintained across poll cycles.
type Device struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MACs           []string `json:"macs"`
	Online         bool `json:"online"`
	RxBytesTotal   uint64 `json:"rx_bytes"`
	TxBytesTotal   uint64 `json:"tx_bytes"`
	RxRate         float64 `json:"rx_rate"`
	TxRate         float64 `json:"tx_rate"`
	RateValidity   Validity `json:"rate_validity"`
	LastSampleTime time.Time `json:"last_sample"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	History        *RingBuffer[RatePoint] `json:"-"`
}

// RouterStatus is the router-level state refreshed each cycle.
type RouterStatus struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
	Firmware      string `json:"firmware"`
	Board         string `json:"board"`
}

// FetchTimes records the last successful fetch per data category so
// consumers can judge staleness.
type FetchTimes struct {
	Devices time.Time `json:"devices"`
	Traffic time.Time `json:"traffic"`
	Status  time.Time `json:"status"`
}

// Snapshot is the complete published state as of the most recently
// completed poll cycle. Devices are ordered by identity.
type Snapshot struct {
	Router      string `json:"router"`
	Host        string `json:"host"`
	Devices     []Device `json:"devices"`
	Status      RouterStatus `json:"status"`
	LastSuccess FetchTimes `json:"last_success"`
	CycleCount  int `json:"cycle_count"`
	LastCycle   time.Time `json:"last_cycle"`
}

// Transition records one device's online flag changing between cycles.
type Transition struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	WasOnline bool `json:"was_online"`
	IsOnline  bool `json:"is_online"`
}

// Event is emitted to subscribers after each poll cycle.
type Event struct {
	Router      string
	Snapshot    *Snapshot
	Transitions []Transition
}

// Info provides summary information about a running poll loop.
type Info struct {
	Name       string `json:"name"`
	LastCycle  time.Time `json:"last_cycle"`
	CycleCount int `json:"cycle_count"`
	ErrorCount int `json:"error_count"`
}
