package util

import "time"

func NowMillis() int64 {
	return time.Now().UnixMilli()
}

func FromMillis(m int64) time.Time {
	return time.UnixMilli(m)
}

// SinceMillis is the time elapsed since the given millisecond timestamp.
func SinceMillis(m int64) time.Duration {
	return time.Since(FromMillis(m))
}
