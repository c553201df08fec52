package geospatial

import "time"

// TimeDelta returns the absolute elapsed time between t1 and t2 in whole
// seconds, truncated toward zero.
func TimeDelta(t1, t2 time.Time) int64 {
	d := t2.Sub(t1)
	if d < 0 {
		d = -d
	}
	return int64(d / time.Second)
}
