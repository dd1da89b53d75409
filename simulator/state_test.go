package simulator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateStore(t *testing.T) {
	s := NewStateStore[int]()

	s.Put("b", 2)
	assert.True(t, s.PutIfAbsent("a", 1))
	assert.False(t, s.PutIfAbsent("a", 100))

	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Update("b", func(v *int) { *v *= 10 }))
	assert.False(t, s.Update("missing", func(*int) {}))
	v, _ = s.Get("b")
	assert.Equal(t, 20, v)

	v, ok = s.Delete("b")
	assert.True(t, ok)
	assert.Equal(t, 20, v)
	_, ok = s.Delete("b")
	assert.False(t, ok)
}

func TestStateStoreConcurrentPutIfAbsent(t *testing.T) {
	s := NewStateStore[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.PutIfAbsent("k", i) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
