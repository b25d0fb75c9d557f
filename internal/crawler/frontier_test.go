package crawler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontier_DepthGuard(t *testing.T) {
	t.Parallel()

	f := NewFrontier(Task{URL: "seed", Depth: 0}, 2)
	assert.True(t, f.Push(Task{URL: "a", Depth: 1}))
	assert.False(t, f.Push(Task{URL: "b", Depth: 2}))
	assert.False(t, f.Push(Task{URL: "c", Depth: 7}))
	assert.Equal(t, 2, f.Len())
}

func TestFrontier_SeedAdmittedAtZeroDepth(t *testing.T) {
	t.Parallel()

	f := NewFrontier(Task{URL: "seed"}, 0)
	task, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, "seed", task.URL)
	assert.False(t, f.Push(Task{URL: "child", Depth: 1}))
	f.Done()

	_, ok = f.Pop()
	assert.False(t, ok)
}

func TestFrontier_PopWaitsForInFlight(t *testing.T) {
	t.Parallel()

	f := NewFrontier(Task{URL: "seed"}, 3)
	_, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, f.InFlight())

	popped := make(chan Task, 1)
	go func() {
		task, ok := f.Pop()
		if ok {
			popped <- task
		}
		close(popped)
	}()

	// The second Pop must block: the queue is empty but the seed is in flight.
	select {
	case <-popped:
		t.Fatal("pop returned while work was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	require.True(t, f.Push(Task{URL: "child", Depth: 1}))
	f.Done()

	select {
	case task, ok := <-popped:
		require.True(t, ok)
		assert.Equal(t, "child", task.URL)
	case <-time.After(time.Second):
		t.Fatal("pop never received pushed task")
	}
}

func TestFrontier_DrainReleasesAllWaiters(t *testing.T) {
	t.Parallel()

	f := NewFrontier(Task{URL: "seed"}, 3)
	drained := make(chan struct{})
	f.OnDrain(func() { close(drained) })

	_, ok := f.Pop()
	require.True(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := f.Pop()
			assert.False(t, ok)
		}()
	}
	f.Done()
	wg.Wait()

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("drain callback not invoked")
	}
	assert.False(t, f.Push(Task{URL: "late", Depth: 1}))
}

func TestFrontier_Close(t *testing.T) {
	t.Parallel()

	f := NewFrontier(Task{URL: "seed"}, 3)
	_, ok := f.Pop()
	require.True(t, ok)
	require.True(t, f.Push(Task{URL: "a", Depth: 1}))

	f.Close()
	_, ok = f.Pop()
	assert.False(t, ok)
	assert.Zero(t, f.Len())
	assert.False(t, f.Push(Task{URL: "b", Depth: 1}))
}
