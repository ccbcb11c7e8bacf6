package observable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject_ReplaysLatestOnSubscribe(t *testing.T) {
	for n := 0; n <= 3; n++ {
		s := NewSubject(0)
		for i := 1; i <= n; i++ {
			s.Publish(i)
		}

		var got []int
		s.Subscribe(func(v int) { got = append(got, v) })

		require.Len(t, got, 1)
		assert.Equal(t, n, got[0], "subscriber should see the latest value after %d publishes", n)
	}
}

func TestSubject_DeliversInPublishOrder(t *testing.T) {
	s := NewSubject("initial")

	var first, second []string
	s.Subscribe(func(v string) { first = append(first, v) })
	s.Publish("a")
	s.Subscribe(func(v string) { second = append(second, v) })
	s.Publish("b")
	s.Publish("c")

	assert.Equal(t, []string{"initial", "a", "b", "c"}, first)
	assert.Equal(t, []string{"a", "b", "c"}, second)
	assert.Equal(t, "c", s.Value())
}

func TestSubject_Unsubscribe(t *testing.T) {
	s := NewSubject(0)

	var got []int
	sub := s.Subscribe(func(v int) { got = append(got, v) })
	s.Publish(1)
	sub.Unsubscribe()
	sub.Unsubscribe()
	s.Publish(2)

	assert.Equal(t, []int{0, 1}, got)
	assert.Equal(t, 0, s.Subscribers())
}

func TestSubject_SnapshotsAreNotMutatedByLaterPublishes(t *testing.T) {
	s := NewSubject([]string{"a"})

	var captured []string
	s.Subscribe(func(v []string) { captured = v })
	before := captured

	next := append([]string(nil), s.Value()...)
	next = append(next, "b")
	s.Publish(next)

	assert.Equal(t, []string{"a"}, before)
	assert.Equal(t, []string{"a", "b"}, captured)
}

func TestSubject_ConcurrentReadsAndPublishes(t *testing.T) {
	s := NewSubject(0)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Publish(base*1000 + j)
				_ = s.Value()
			}
		}(i)
	}

	var mu sync.Mutex
	deliveries := 0
	sub := s.Subscribe(func(int) {
		mu.Lock()
		deliveries++
		mu.Unlock()
	})
	wg.Wait()
	sub.Unsubscribe()

	assert.GreaterOrEqual(t, deliveries, 1)
}
