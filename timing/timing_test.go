package timing

import (
	"errors"
	"testing"
	"time"
)

func TestMeasureReturnsValue(t *testing.T) {
	v, elapsed, err := Measure(func() (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	if v != "ok" {
		t.Errorf("value = %q, want ok", v)
	}
	if elapsed < 0 {
		t.Errorf("elapsed = %f, want >= 0", elapsed)
	}
}

func TestMeasureKeepsElapsedOnError(t *testing.T) {
	boom := errors.New("boom")

	_, elapsed, err := Measure(func() (int, error) {
		time.Sleep(2 * time.Millisecond)
		return 0, boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if elapsed < 2 {
		t.Errorf("elapsed = %f, want >= 2ms", elapsed)
	}
}

func TestMeasureCallsOnce(t *testing.T) {
	calls := 0

	_, _, _ = Measure(func() (struct{}, error) {
		calls++
		return struct{}{}, errors.New("fail")
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestMillis(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  float64
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 1.5},
		{2 * time.Second, 2000},
	}

	for _, tt := range tests {
		got := Millis(tt.input)
		if got != tt.want {
			t.Errorf("Millis(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStopwatch(t *testing.T) {
	sw := Start()
	time.Sleep(time.Millisecond)

	if got := sw.ElapsedMs(); got < 1 {
		t.Errorf("ElapsedMs = %f, want >= 1", got)
	}
}
