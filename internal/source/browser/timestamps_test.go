package browser

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChromiumToUnix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		micros int64
		want   int64
	}{
		{name: "unix epoch", micros: 11_644_473_600_000_000, want: 0},
		{name: "sub-second is floored", micros: 11_644_473_600_999_999, want: 0},
		{name: "known instant", micros: 13_404_473_600_123_456, want: 1_760_000_000},
		{name: "1601 origin", micros: 0, want: -11_644_473_600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, chromiumToUnix(tt.micros))
		})
	}
}

func TestChromiumToUnix_Property(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		// Any realistic timestamp between 1601 and ~2500
		micros := r.Int63n(28_000_000_000_000_000)
		want := micros/1_000_000 - 11_644_473_600
		assert.Equal(t, want, chromiumToUnix(micros), "micros=%d", micros)
	}
}

func TestWebKitToUnix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(978_307_200), webkitToUnix(0))
	assert.Equal(t, int64(1_760_000_000), webkitToUnix(781_692_800))
	assert.Equal(t, int64(1_760_000_000), webkitToUnix(781_692_800.75))

	r := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		secs := r.Int63n(2_000_000_000)
		assert.Equal(t, secs+978_307_200, webkitToUnix(float64(secs)))
	}
}

func TestRoundTripConversions(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 10, 16, 8, 30, 15, 0, time.UTC)
	assert.Equal(t, ts.Unix(), chromiumToUnix(unixToChromium(ts)))
	assert.Equal(t, ts.Unix(), webkitToUnix(unixToWebKit(ts)))
}
