package concurrent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	k := NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("key")
			defer unlock()
			// not atomic, only safe because of the lock
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	// no locks linger once released
	assert.Equal(t, 0, k.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := NewKeyedMutex()

	unlockA := k.Lock("a")
	// a different key does not block
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.Len())

	unlockB()
	unlockA()
	assert.Equal(t, 0, k.Len())
}
