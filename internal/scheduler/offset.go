package scheduler

import "time"

// Offset shortens the base interval by the expected per-tick overhead and
// never returns less than one second.
func Offset(baseSeconds int, offsetPercent float64) float64 {
	return max(1, float64(baseSeconds)*(1-offsetPercent/100))
}

func offsetDuration(baseSeconds int, offsetPercent float64) time.Duration {
	return time.Duration(Offset(baseSeconds, offsetPercent) * float64(time.Second))
}
