package upload

import (
	"path"
	"regexp"
	"strconv"
	"sync"
	"time"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeName replaces every character other than ASCII letters, digits, '.' and '-' with '_'.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// Clock hands out strictly increasing millisecond timestamps. Two calls in the
// same millisecond get consecutive values, so stored names never collide.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClock returns a clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Next returns the next timestamp in Unix milliseconds.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

var defaultClock = NewClock()

// StoredName composes "<ownerKey>_<timestamp>_<sanitizedName>".
func StoredName(ownerKey string, timestamp int64, displayName string) string {
	return ownerKey + "_" + strconv.FormatInt(timestamp, 10) + "_" + SanitizeName(displayName)
}

// StoragePath composes "<collection>/<ownerKey>/<storedName>".
func StoragePath(collection, ownerKey, storedName string) string {
	return path.Join(collection, ownerKey, storedName)
}

// NewStoredName derives a fresh stored name from the process-wide clock.
func NewStoredName(ownerKey, displayName string) string {
	return StoredName(ownerKey, defaultClock.Next(), displayName)
}

// Names derives a fresh stored name and storage path from the process-wide clock.
func Names(collection, ownerKey, displayName string) (storedName, storagePath string) {
	storedName = NewStoredName(ownerKey, displayName)
	return storedName, StoragePath(collection, ownerKey, storedName)
}
