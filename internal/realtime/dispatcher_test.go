package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDispatcher(t *testing.T) (*Registry, *Dispatcher) {
	t.Helper()
	r := NewRegistry(testLogger())
	return r, NewDispatcher(r, testLogger())
}

func drain(sink *BufferedSink) []string {
	var frames []string
	for {
		select {
		case f := <-sink.Frames():
			frames = append(frames, string(f))
		default:
			return frames
		}
	}
}

func TestDispatcher_PublishExcludesOriginatorConnection(t *testing.T) {
	r, d := setupDispatcher(t)
	a, b := NewBufferedSink(4), NewBufferedSink(4)
	require.NoError(t, r.Register("a", "alice", a))
	require.NoError(t, r.Register("b", "bob", b))
	require.NoError(t, r.Join("a", "conv"))
	require.NoError(t, r.Join("b", "conv"))

	report := d.Publish(context.Background(), Event{
		Kind:         KindCreated,
		Topic:        "conv",
		OriginatorID: "alice",
		Payload:      []byte("hello"),
	}, PublishOptions{ExcludeConnection: "a"})

	assert.Equal(t, []string{"b"}, report.Attempted)
	assert.Equal(t, []string{"b"}, report.Succeeded)
	assert.Empty(t, report.Dropped)
	assert.Empty(t, drain(a))
	assert.Equal(t, []string{"hello"}, drain(b))
}

func TestDispatcher_ReadEventSkipsAllOriginatorConnections(t *testing.T) {
	r, d := setupDispatcher(t)
	phone, laptop, other := NewBufferedSink(4), NewBufferedSink(4), NewBufferedSink(4)
	require.NoError(t, r.Register("phone", "alice", phone))
	require.NoError(t, r.Register("laptop", "alice", laptop))
	require.NoError(t, r.Register("other", "bob", other))
	for _, id := range []string{"phone", "laptop", "other"} {
		require.NoError(t, r.Join(id, "conv"))
	}

	report := d.Publish(context.Background(), Event{
		Kind:         KindRead,
		Topic:        "conv",
		OriginatorID: "alice",
		Payload:      []byte("read"),
	}, PublishOptions{ExcludeConnection: "phone"})

	assert.Equal(t, []string{"other"}, report.Attempted)
	assert.Empty(t, drain(laptop))
	assert.Equal(t, []string{"read"}, drain(other))
}

// Три подписчика, буфер третьего заполнен: первые два получают событие,
// третий отключается и исчезает из всех тем.
func TestDispatcher_SlowSubscriberIsDropped(t *testing.T) {
	r, d := setupDispatcher(t)
	a, b, c := NewBufferedSink(4), NewBufferedSink(4), NewBufferedSink(1)
	require.NoError(t, r.Register("a", "alice", a))
	require.NoError(t, r.Register("b", "bob", b))
	require.NoError(t, r.Register("c", "carol", c))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Join(id, "conv"))
	}
	require.NoError(t, r.Join("c", "other-conv"))
	require.NoError(t, c.Send([]byte("backlog")))

	report := d.Publish(context.Background(), Event{
		Kind:    KindCreated,
		Topic:   "conv",
		Payload: []byte("msg"),
	}, PublishOptions{})

	assert.Equal(t, []string{"a", "b", "c"}, report.Attempted)
	assert.Equal(t, []string{"a", "b"}, report.Succeeded)
	assert.Equal(t, []string{"c"}, report.Dropped)

	assert.Equal(t, []string{"a", "b"}, r.SubscribersOf("conv"))
	assert.Empty(t, r.SubscribersOf("other-conv"))
	_, ok := r.Lookup("c")
	assert.False(t, ok)
}

func TestDispatcher_PerTopicOrder(t *testing.T) {
	r, d := setupDispatcher(t)
	sink := NewBufferedSink(100)
	require.NoError(t, r.Register("a", "alice", sink))
	require.NoError(t, r.Join("a", "conv"))

	for i := 0; i < 10; i++ {
		d.Publish(context.Background(), Event{Kind: KindCreated, Topic: "conv", Payload: []byte(fmt.Sprint(i))}, PublishOptions{})
	}

	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, drain(sink))
}

func TestDispatcher_ConcurrentPublishAndUnregister(t *testing.T) {
	r, d := setupDispatcher(t)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("c%02d", i)
		require.NoError(t, r.Register(id, "u", NewBufferedSink(1000)))
		require.NoError(t, r.Join(id, "conv"))
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				d.Publish(context.Background(), Event{Kind: KindUpdated, Topic: "conv", Payload: []byte("x")}, PublishOptions{})
			}
		}()
		go func(i int) {
			defer wg.Done()
			r.Unregister(fmt.Sprintf("c%02d", i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.SubscribersOf("conv"), 10)
}

func TestDispatcher_EmptyTopicAndCanceledContext(t *testing.T) {
	r, d := setupDispatcher(t)
	require.NoError(t, r.Register("a", "alice", NewBufferedSink(1)))
	require.NoError(t, r.Join("a", "conv"))

	report := d.Publish(context.Background(), Event{Topic: "nobody"}, PublishOptions{})
	assert.Empty(t, report.Attempted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report = d.Publish(ctx, Event{Topic: "conv", Payload: []byte("x")}, PublishOptions{})
	assert.Empty(t, report.Attempted)
}
