package engine

import (
	"testing"
	"time"
)

func TestRingBufferAdd(t *testing.T) {
	rb := NewRingBuffer[RatePoint](5)
	for i := 0; i < 3; i++ {
		rb.Add(RatePoint{Timestamp: time.Now(), RxRate: float64(i)})
	}
	if rb.Len() != 3 {
		t.Errorf("expected len 3, got %d", rb.Len())
	}
}

func TestRingBufferWrap(t *testing.T) {
	rb := NewRingBuffer[RatePoint](3)
	for i := 0; i < 5; i++ {
		rb.Add(RatePoint{RxRate: float64(i)})
	}
	if rb.Len() != 3 {
		t.Errorf("expected len 3, got %d", rb.Len())
	}
	items := rb.All()
	if items[0].RxRate != 2 {
		t.Errorf("expected oldest item RxRate=2, got %f", items[0].RxRate)
	}
	if items[2].RxRate != 4 {
		t.Errorf("expected newest item RxRate=4, got %f", items[2].RxRate)
	}
}

func TestRingBufferEmpty(t *testing.T) {
	rb := NewRingBuffer[RatePoint](10)
	if rb.Len() != 0 {
		t.Error("new ring buffer should be empty")
	}
	items := rb.All()
	if len(items) != 0 {
		t.Error("All() on empty buffer should return empty slice")
	}
}

func TestRingBufferLast(t *testing.T) {
	rb := NewRingBuffer[RatePoint](5)
	rb.Add(RatePoint{RxRate: 1})
	rb.Add(RatePoint{RxRate: 2})
	rb.Add(RatePoint{RxRate: 3})
	last, ok := rb.Last()
	if !ok {
		t.Fatal("Last() should return true for non-empty buffer")
	}
	if last.RxRate != 3 {
		t.Errorf("expected RxRate=3, got %f", last.RxRate)
	}
}
