package fsrs

import (
	"testing"
	"time"
)

func TestFormatInterval(t *testing.T) {
	testCases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "<1m"},
		{time.Minute, "1m"},
		{5*time.Minute + 30*time.Second, "6m"},
		{10 * time.Minute, "10m"},
		{3 * time.Hour, "3h"},
		{4 * day, "4d"},
		{61 * day, "2mo"},
		{548 * day, "1.5y"},
		{730 * day, "2y"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			if got := FormatInterval(t0, t0.Add(tc.d)); got != tc.want {
				t.Errorf("FormatInterval(%v) = %q, want %q", tc.d, got, tc.want)
			}
		})
	}
}
