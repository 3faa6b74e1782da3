package upload

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my_logo__1_.png", SanitizeName("my logo (1).png"))
	assert.Equal(t, "a-b.c", SanitizeName("a-b.c"))
	assert.Equal(t, "caf_.pdf", SanitizeName("café.pdf"))
}

func TestStoredNameAndPath(t *testing.T) {
	stored := StoredName("d1", 1700000000000, "logo.png")
	assert.Equal(t, "d1_1700000000000_logo.png", stored)
	assert.Equal(t, "domains/d1/d1_1700000000000_logo.png", StoragePath("domains", "d1", stored))
}

func TestClock_StrictlyIncreasingWithinSameMillisecond(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	c := &Clock{now: func() time.Time { return frozen }}

	assert.Equal(t, int64(1700000000000), c.Next())
	assert.Equal(t, int64(1700000000001), c.Next())
	assert.Equal(t, int64(1700000000002), c.Next())
}

func TestNames_UniqueUnderConcurrency(t *testing.T) {
	const n = 200
	var (
		mu    sync.Mutex
		seen  = make(map[string]struct{}, n)
		wg    sync.WaitGroup
		dupes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, _ := Names("domains", "d1", "logo.png")
			mu.Lock()
			defer mu.Unlock()
			if _, ok := seen[stored]; ok {
				dupes++
			}
			seen[stored] = struct{}{}
		}()
	}
	wg.Wait()
	assert.Zero(t, dupes)
	assert.Len(t, seen, n)
}
