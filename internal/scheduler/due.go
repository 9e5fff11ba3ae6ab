package scheduler

// Due reports whether a group with frequency f runs on tick i. Groups run
// on ticks 1, f+1, 2f+1, ...; f <= 1 runs every tick.
func Due(i, f int) bool {
	if f <= 1 {
		return true
	}
	return i%f == 1
}
