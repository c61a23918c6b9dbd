package doccache

import (
	"testing"
	"time"
)

func TestEntry_Expired(t *testing.T) {
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	maxAge := 30 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{
			name: "fresh entry",
			now:  base.Add(1 * time.Minute),
			want: false,
		},
		{
			name: "exactly at max age",
			now:  base.Add(maxAge),
			want: false,
		},
		{
			name: "just past max age",
			now:  base.Add(maxAge + time.Nanosecond),
			want: true,
		},
		{
			name: "long expired",
			now:  base.Add(24 * time.Hour),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{CreatedAt: base}
			if got := entry.Expired(tt.now, maxAge); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_Age(t *testing.T) {
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	entry := &Entry{CreatedAt: base}

	if got := entry.Age(base.Add(5 * time.Minute)); got != 5*time.Minute {
		t.Errorf("Age() = %v, want 5m", got)
	}
}
