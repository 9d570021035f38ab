package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()

	l := New(nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Start(context.Background())
	}()
	require.Eventually(t, l.IsRunning, time.Second, time.Millisecond)

	t.Cleanup(func() {
		l.Stop()
		<-done
	})
	return l
}

func TestPostRunsInOrder(t *testing.T) {
	l := startLoop(t)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}

	require.NoError(t, l.Call(context.Background(), func() {}))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPostFromLoopRunsAfterCurrentTask(t *testing.T) {
	l := startLoop(t)

	var order []string
	require.NoError(t, l.Call(context.Background(), func() {
		l.Post(func() { order = append(order, "posted") })
		order = append(order, "current")
	}))
	require.NoError(t, l.Call(context.Background(), func() {}))

	assert.Equal(t, []string{"current", "posted"}, order)
}

func TestAfterFuncAndStop(t *testing.T) {
	l := startLoop(t)

	var fired atomic.Int32
	l.AfterFunc(5*time.Millisecond, func() { fired.Add(1) })
	canceled := l.AfterFunc(5*time.Millisecond, func() { fired.Add(100) })
	assert.True(t, canceled.Stop())
	assert.False(t, canceled.Stop())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestEvery(t *testing.T) {
	l := startLoop(t)

	var ticks atomic.Int32
	p := l.Every(time.Millisecond, func() { ticks.Add(1) })
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	assert.True(t, p.Stop())
	assert.False(t, p.Stop())

	require.NoError(t, l.Call(context.Background(), func() {}))
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestPanicDoesNotKillLoop(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, l.Call(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestStopped(t *testing.T) {
	l := New(nil)
	l.Stop()

	assert.False(t, l.Post(func() {}))
	assert.True(t, errors.Is(l.Call(context.Background(), func() {}), ErrStopped))
	assert.True(t, errors.Is(l.Start(context.Background()), ErrStopped))
}

func TestStartTwice(t *testing.T) {
	l := startLoop(t)
	assert.Error(t, l.Start(context.Background()))
}

func TestStartContextCanceled(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Start(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, l.Post(func() {}))
}

func TestManual(t *testing.T) {
	m := NewManual()

	var got []string
	m.AfterFunc(3*time.Second, func() { got = append(got, "3s") })
	m.AfterFunc(time.Second, func() {
		got = append(got, "1s")
		m.AfterFunc(time.Second, func() { got = append(got, "2s") })
	})
	stopped := m.AfterFunc(2*time.Second, func() { got = append(got, "never") })
	assert.True(t, stopped.Stop())

	m.Advance(2500 * time.Millisecond)
	assert.Equal(t, []string{"1s", "2s"}, got)
	assert.Equal(t, 1, m.Pending())

	m.Advance(time.Second)
	assert.Equal(t, []string{"1s", "2s", "3s"}, got)
	assert.False(t, stopped.Stop())
}
