package engine

// RateResult is the outcome of comparing two counter samples.
type RateResult struct {
	RxRate   float64
	TxRate   float64
	Validity Validity
	// Advance reports whether the current sample becomes the new
	// baseline. A bad interval keeps the last good baseline so the next
	// comparison still has something to diff against.
	Advance bool
}

// ComputeRate derives instantaneous byte rates from a previous and current
// sample. It is stateless; the registry owns which sample is "previous".
//
// A nil previous sample yields zero rates marked not-yet-valid. A counter
// decrease in either direction is a reset: zero rates, current sample
// becomes the baseline. A non-positive time delta yields zero rates and
// leaves the baseline unadvanced. Rates are never negative.
func ComputeRate(prev *Sample, curr Sample) RateResult {
	if prev == nil {
		return RateResult{Validity: ValidityNone, Advance: true}
	}

	elapsed := curr.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return RateResult{Validity: ValidityBadInterval, Advance: false}
	}

	if curr.RxBytes < prev.RxBytes || curr.TxBytes < prev.TxBytes {
		return RateResult{Validity: ValidityReset, Advance: true}
	}

	return RateResult{
		RxRate:   float64(curr.RxBytes-prev.RxBytes) / elapsed,
		TxRate:   float64(curr.TxBytes-prev.TxBytes) / elapsed,
		Validity: ValidityValid,
		Advance:  true,
	}
}
