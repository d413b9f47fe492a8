package browser

import (
	"math"
	"time"
)

// Epoch offsets between vendor timestamp origins and the Unix epoch
const (
	// chromiumEpochOffset is the number of seconds from 1601-01-01 to 1970-01-01
	chromiumEpochOffset int64 = 11_644_473_600
	// webkitEpochOffset is the number of seconds from 1970-01-01 to 2001-01-01
	webkitEpochOffset int64 = 978_307_200
)

// chromiumToUnix converts microseconds since 1601-01-01 to Unix seconds
func chromiumToUnix(micros int64) int64 {
	return floorDiv(micros, 1_000_000) - chromiumEpochOffset
}

// unixToChromium converts a time to microseconds since 1601-01-01
func unixToChromium(t time.Time) int64 {
	return (t.Unix()+chromiumEpochOffset)*1_000_000 + int64(t.Nanosecond()/1000)
}

// webkitToUnix converts seconds since 2001-01-01 to Unix seconds
func webkitToUnix(secs float64) int64 {
	return int64(math.Floor(secs)) + webkitEpochOffset
}

// unixToWebKit converts a time to seconds since 2001-01-01
func unixToWebKit(t time.Time) float64 {
	return float64(t.UnixNano())/1e9 - float64(webkitEpochOffset)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
