package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeRateFirstObservation(t *testing.T) {
	curr := Sample{RxBytes: 1000, TxBytes: 500, Timestamp: time.Unix(100, 0)}
	res := ComputeRate(nil, curr)

	assert.Zero(t, res.RxRate)
	assert.Zero(t, res.TxRate)
	assert.Equal(t, ValidityNone, res.Validity)
	assert.True(t, res.Advance)
}

func TestComputeRateValid(t *testing.T) {
	prev := &Sample{RxBytes: 1000, TxBytes: 500, Timestamp: time.Unix(0, 0)}
	curr := Sample{RxBytes: 1500, TxBytes: 700, Timestamp: time.Unix(10, 0)}

	res := ComputeRate(prev, curr)
	assert.Equal(t, ValidityValid, res.Validity)
	assert.Equal(t, 50.0, res.RxRate)
	assert.Equal(t, 20.0, res.TxRate)
	assert.True(t, res.Advance)
}

func TestComputeRateCounterReset(t *testing.T) {
	prev := &Sample{RxBytes: 50000, TxBytes: 40000, Timestamp: time.Unix(0, 0)}
	curr := Sample{RxBytes: 200, TxBytes: 41000, Timestamp: time.Unix(10, 0)}

	res := ComputeRate(prev, curr)
	assert.Equal(t, ValidityReset, res.Validity)
	assert.Zero(t, res.RxRate)
	assert.Zero(t, res.TxRate)
	assert.True(t, res.Advance, "reset establishes a fresh baseline")
}

func TestComputeRateBadInterval(t *testing.T) {
	prev := &Sample{RxBytes: 1000, TxBytes: 500, Timestamp: time.Unix(10, 0)}

	for _, ts := range []time.Time{time.Unix(10, 0), time.Unix(5, 0)} {
		curr := Sample{RxBytes: 2000, TxBytes: 600, Timestamp: ts}
		res := ComputeRate(prev, curr)
		assert.Equal(t, ValidityBadInterval, res.Validity)
		assert.Zero(t, res.RxRate)
		assert.Zero(t, res.TxRate)
		assert.False(t, res.Advance, "bad interval must keep the last good baseline")
	}
}

func TestComputeRateNeverNegative(t *testing.T) {
	prev := &Sample{RxBytes: 1000, TxBytes: 1000, Timestamp: time.Unix(0, 0)}
	curr := Sample{RxBytes: 1000, TxBytes: 1000, Timestamp: time.Unix(10, 0)}

	res := ComputeRate(prev, curr)
	assert.Equal(t, ValidityValid, res.Validity)
	assert.GreaterOrEqual(t, res.RxRate, 0.0)
	assert.GreaterOrEqual(t, res.TxRate, 0.0)
}
