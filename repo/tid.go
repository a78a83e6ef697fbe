package repo

import (
	"sync"
	"time"
)

// base32-sortable alphabet; lexicographic order of TIDs follows numeric order
const tidAlphabet = "234567abcdefghijklmnopqrstuvwxyz"

// TidClock issues strictly increasing revision identifiers: 13 characters
// encoding (unixMicros << 10) | clockID.
type TidClock struct {
	mu      sync.Mutex
	clockID uint64
	last    uint64
}

func NewTidClock(clockID uint64) *TidClock {
	return &TidClock{clockID: clockID & 0x3ff}
}

// Next returns a TID greater than every TID this clock has returned before,
// even when called twice within the same microsecond.
func (c *TidClock) Next(now time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	micros := uint64(now.UnixMicro())
	if micros <= c.last {
		micros = c.last + 1
	}
	c.last = micros
	return formatTid(micros, c.clockID)
}

func formatTid(micros, clockID uint64) string {
	v := micros<<10 | (clockID & 0x3ff)
	var b [13]byte
	for i := 12; i >= 0; i-- {
		b[i] = tidAlphabet[v&0x1f]
		v >>= 5
	}
	return string(b[:])
}
