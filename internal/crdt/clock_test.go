package crdt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLamportClock(t *testing.T) {
	clock := NewLamportClock()

	require.NotNil(t, clock)
	assert.Equal(t, int64(0), clock.GetTimestamp(), "Initial counter should be 0")
	assert.NotEmpty(t, clock.GetNodeID(), "NodeID should not be empty")
	assert.NotEqual(t, clock.GetNodeID(), NewLamportClock().GetNodeID())
}

func TestLamportClock_Tick(t *testing.T) {
	clock := NewLamportClockWithNodeID("node-a")

	var previous Stamp
	for i := 1; i <= 50; i++ {
		stamp := clock.Tick()
		assert.Equal(t, int64(i), stamp.Counter)
		assert.Equal(t, "node-a", stamp.NodeID)
		assert.True(t, previous.Less(stamp), "Tick should always increase")
		previous = stamp
	}
}

func TestLamportClock_Observe(t *testing.T) {
	tests := []struct {
		name     string
		local    int64
		remote   int64
		expected int64
	}{
		{name: "remote ahead", local: 5, remote: 10, expected: 10},
		{name: "remote behind", local: 15, remote: 10, expected: 15},
		{name: "equal", local: 10, remote: 10, expected: 10},
		{name: "zero remote", local: 3, remote: 0, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewLamportClockWithNodeID("n")
			clock.SetTimestamp(tt.local)

			clock.Observe(tt.remote)

			assert.Equal(t, tt.expected, clock.GetTimestamp())
			assert.Equal(t, tt.expected+1, clock.Tick().Counter)
		})
	}
}

func TestStamp_Less(t *testing.T) {
	tests := []struct {
		name string
		a, b Stamp
		less bool
	}{
		{name: "lower counter", a: Stamp{Counter: 1, NodeID: "z"}, b: Stamp{Counter: 2, NodeID: "a"}, less: true},
		{name: "higher counter", a: Stamp{Counter: 3, NodeID: "a"}, b: Stamp{Counter: 2, NodeID: "z"}, less: false},
		{name: "node tiebreak", a: Stamp{Counter: 2, NodeID: "a"}, b: Stamp{Counter: 2, NodeID: "b"}, less: true},
		{name: "equal", a: Stamp{Counter: 2, NodeID: "a"}, b: Stamp{Counter: 2, NodeID: "a"}, less: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.less, tt.a.Less(tt.b))
		})
	}

	assert.True(t, Stamp{}.IsZero())
	assert.Equal(t, "7@node", Stamp{Counter: 7, NodeID: "node"}.String())
}

func TestLamportClock_ConcurrentTick(t *testing.T) {
	clock := NewLamportClock()
	const goroutines = 20
	const ticks = 100

	seen := make(chan int64, goroutines*ticks)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < ticks; j++ {
				seen <- clock.Tick().Counter
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for counter := range seen {
		assert.False(t, unique[counter], "duplicate counter %d", counter)
		unique[counter] = true
	}
	assert.Equal(t, int64(goroutines*ticks), clock.GetTimestamp())
}
