package preempt

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPin_Nested(t *testing.T) {
	var g Guard = Pin{}

	// Nested sections must not unpin the outer one early or panic.
	g.Enter()
	g.Enter()
	g.Leave()
	g.Leave()
}

func TestPin_DoesNotExclude(t *testing.T) {
	var g Guard = Pin{}

	const goroutines = 4
	var inside, maxInside atomic.Int32
	var ready sync.WaitGroup
	ready.Add(goroutines)
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Enter()
			defer g.Leave()

			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			ready.Done()
			<-release
			inside.Add(-1)
		}()
	}

	// All goroutines are inside their sections at once.
	ready.Wait()
	close(release)
	wg.Wait()

	assert.Equal(t, int32(goroutines), maxInside.Load())
}

func TestNoop(t *testing.T) {
	var g Guard = Noop{}
	g.Enter()
	g.Leave()
}
