package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURILocksFIFOOrdering(t *testing.T) {
	locks := newURILocks()
	const n = 20

	// Enqueue tickets from the test goroutine, in order, so ticket
	// order is pinned regardless of goroutine scheduling; only the
	// actual wait-and-run happens concurrently.
	type ticket struct {
		wait    <-chan struct{}
		release func()
	}
	tickets := make([]ticket, n)
	for i := 0; i < n; i++ {
		wait, release := locks.enqueue("file:///a.go")
		tickets[i] = ticket{wait, release}
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-tickets[i].wait
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			tickets[i].release()
		}(i)
	}
	wg.Wait()

	require.Len(t, order, n)
	for i, v := range order {
		assert.Equal(t, i, v, "lock should be granted in submission order")
	}
}

func TestURILocksIndependentPerURI(t *testing.T) {
	locks := newURILocks()
	releaseA := locks.Acquire("file:///a.go")
	done := make(chan struct{})
	go func() {
		release := locks.Acquire("file:///b.go")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different URI should not block")
	}
	releaseA()
}
