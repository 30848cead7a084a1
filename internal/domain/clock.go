package domain

// NextTime advances a simulated clock by one sample interval.
// It cannot fail: running past the end of the series is detected by the
// caller when PriceSeries.Lookup returns ErrUnknownTimestamp.
func NextTime(current, interval int64) int64 {
	return current + interval
}
