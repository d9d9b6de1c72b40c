package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N int `json:"n"`
}

type recordingNotifier struct {
	mu     sync.Mutex
	failed []string
}

func (r *recordingNotifier) MutationFailed(name string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, name)
}

func (r *recordingNotifier) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

func newTestCoordinator() (*Coordinator, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewCoordinator(NewCache(), n), n
}

func TestFetch_CachesAndSharesLoads(t *testing.T) {
	co, _ := newTestCoordinator()
	ctx := context.Background()

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (counter, error) {
		loads.Add(1)
		<-release
		return counter{N: 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]counter, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(ctx, co, "k", load)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	// Let every caller join the flight before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		assert.Equal(t, 7, r.N)
	}

	v, err := Fetch(ctx, co, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 7, v.N)
	assert.Equal(t, int32(1), loads.Load(), "fresh value must come from the cache")

	co.Cache().MarkStale("k")
	_, err = Fetch(ctx, co, "k", load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
	assert.False(t, co.Cache().IsStale("k"))
}

func TestFetch_LoadError(t *testing.T) {
	co, _ := newTestCoordinator()
	boom := errors.New("boom")

	_, err := Fetch(context.Background(), co, "k", func(context.Context) (counter, error) {
		return counter{}, boom
	})
	assert.ErrorIs(t, err, boom)

	var c counter
	ok, err := co.Cache().Get(context.Background(), "k", &c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMutate_CommitMergesResult(t *testing.T) {
	co, n := newTestCoordinator()
	ctx := context.Background()
	require.NoError(t, co.Cache().Set(ctx, "k", counter{N: 1}))

	res, err := Mutate(ctx, co, Mutation[int]{
		Name: "add",
		Keys: []string{"k"},
		Apply: func(tx *Tx) error {
			return Modify(tx, "k", func(c *counter) { c.N++ })
		},
		Dispatch: func(context.Context) (int, error) { return 10, nil },
		Commit: func(tx *Tx, server int) error {
			return Modify(tx, "k", func(c *counter) { c.N = server })
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res)

	var c counter
	_, err = co.Cache().Get(ctx, "k", &c)
	require.NoError(t, err)
	assert.Equal(t, 10, c.N)
	assert.True(t, co.Cache().IsStale("k"))
	assert.Empty(t, n.names())
}

func TestMutate_FailureRestoresSnapshot(t *testing.T) {
	co, n := newTestCoordinator()
	ctx := context.Background()
	require.NoError(t, co.Cache().Set(ctx, "a", counter{N: 1}))
	require.NoError(t, co.Cache().Set(ctx, "b", []string{"x", "y"}))
	beforeA, _ := co.Cache().raw(ctx, "a")
	beforeB, _ := co.Cache().raw(ctx, "b")

	rejected := errors.New("rejected")
	_, err := Mutate(ctx, co, Mutation[struct{}]{
		Name: "break",
		Keys: []string{"b", "a", "a"},
		Apply: func(tx *Tx) error {
			if err := Modify(tx, "a", func(c *counter) { c.N = 99 }); err != nil {
				return err
			}
			return Modify(tx, "b", func(s *[]string) { *s = nil })
		},
		Dispatch: func(context.Context) (struct{}, error) { return struct{}{}, rejected },
	})
	assert.ErrorIs(t, err, rejected)

	afterA, _ := co.Cache().raw(ctx, "a")
	afterB, _ := co.Cache().raw(ctx, "b")
	assert.Equal(t, beforeA, afterA)
	assert.Equal(t, beforeB, afterB)
	assert.Equal(t, []string{"break"}, n.names())
	assert.True(t, co.Cache().IsStale("a"))
	assert.True(t, co.Cache().IsStale("b"))
}

func TestMutate_ApplyErrorSkipsDispatch(t *testing.T) {
	co, n := newTestCoordinator()
	ctx := context.Background()

	dispatched := false
	_, err := Mutate(ctx, co, Mutation[int]{
		Name:  "undeclared",
		Keys:  []string{"a"},
		Apply: func(tx *Tx) error { return Modify(tx, "b", func(*counter) {}) },
		Dispatch: func(context.Context) (int, error) {
			dispatched = true
			return 0, nil
		},
	})
	assert.ErrorIs(t, err, errUndeclaredKey)
	assert.False(t, dispatched)
	assert.Empty(t, n.names())
}

func TestMutate_CancelsInFlightRead(t *testing.T) {
	co, _ := newTestCoordinator()
	ctx := context.Background()
	require.NoError(t, co.Cache().Set(ctx, "k", counter{N: 1}))
	co.Cache().MarkStale("k")

	loading := make(chan struct{})
	applied := make(chan struct{})
	fetched := make(chan counter, 1)

	go func() {
		v, err := Fetch(ctx, co, "k", func(readCtx context.Context) (counter, error) {
			close(loading)
			<-readCtx.Done()
			<-applied
			// A response that arrives after the cancellation.
			return counter{N: 1}, nil
		})
		assert.NoError(t, err)
		fetched <- v
	}()
	<-loading

	_, err := Mutate(ctx, co, Mutation[struct{}]{
		Name: "set",
		Keys: []string{"k"},
		Apply: func(tx *Tx) error {
			defer close(applied)
			return Modify(tx, "k", func(c *counter) { c.N = 2 })
		},
		Dispatch: func(context.Context) (struct{}, error) {
			assert.Equal(t, 2, (<-fetched).N, "the read must see the speculative value")
			return struct{}{}, nil
		},
	})
	require.NoError(t, err)

	var c counter
	_, err = co.Cache().Get(ctx, "k", &c)
	require.NoError(t, err)
	assert.Equal(t, 2, c.N, "the late read must not overwrite the mutation")
}

func TestInvalidate_LateReadDoesNotClearStale(t *testing.T) {
	co, _ := newTestCoordinator()
	ctx := context.Background()

	var server atomic.Int32
	server.Store(1)
	loading := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, err := Fetch(ctx, co, "k", func(context.Context) (counter, error) {
			n := int(server.Load())
			close(loading)
			<-release
			return counter{N: n}, nil
		})
		assert.NoError(t, err)
	}()
	<-loading

	server.Store(2)
	co.Invalidate("k")
	close(release)
	<-done

	assert.True(t, co.Cache().IsStale("k"))

	v, err := Fetch(ctx, co, "k", func(context.Context) (counter, error) {
		return counter{N: int(server.Load())}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.N)
	assert.False(t, co.Cache().IsStale("k"))
}

func TestMutate_SerializesOverlappingKeys(t *testing.T) {
	co, n := newTestCoordinator()
	ctx := context.Background()
	require.NoError(t, co.Cache().Set(ctx, "k", counter{N: 0}))

	firstDispatching := make(chan struct{})
	releaseFirst := make(chan struct{})
	secondApplied := make(chan int, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := Mutate(ctx, co, Mutation[struct{}]{
			Name:  "first",
			Keys:  []string{"k"},
			Apply: func(tx *Tx) error { return Modify(tx, "k", func(c *counter) { c.N = 100 }) },
			Dispatch: func(context.Context) (struct{}, error) {
				close(firstDispatching)
				<-releaseFirst
				return struct{}{}, errors.New("rejected")
			},
		})
		assert.Error(t, err)
	}()
	<-firstDispatching

	go func() {
		defer wg.Done()
		_, err := Mutate(ctx, co, Mutation[struct{}]{
			Name: "second",
			Keys: []string{"other", "k"},
			Apply: func(tx *Tx) error {
				return Modify(tx, "k", func(c *counter) {
					secondApplied <- c.N
					c.N++
				})
			},
			Dispatch: func(context.Context) (struct{}, error) { return struct{}{}, nil },
		})
		assert.NoError(t, err)
	}()

	select {
	case <-secondApplied:
		t.Fatal("second mutation applied while the first was pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseFirst)
	assert.Equal(t, 0, <-secondApplied, "second snapshot must follow the first rollback")
	wg.Wait()

	var c counter
	_, err := co.Cache().Get(ctx, "k", &c)
	require.NoError(t, err)
	assert.Equal(t, 1, c.N)
	assert.Equal(t, []string{"first"}, n.names())
}

func TestModify_MissingKeyIsNoop(t *testing.T) {
	co, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := Mutate(ctx, co, Mutation[struct{}]{
		Name: "noop",
		Keys: []string{"k"},
		Apply: func(tx *Tx) error {
			return Modify(tx, "k", func(c *counter) { c.N = 5 })
		},
		Dispatch: func(context.Context) (struct{}, error) { return struct{}{}, errors.New("no") },
	})
	assert.Error(t, err)

	var c counter
	ok, err := co.Cache().Get(ctx, "k", &c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTempID(t *testing.T) {
	id := TempID()
	assert.True(t, IsTempID(id))
	assert.NotEqual(t, id, TempID())
	assert.False(t, IsTempID("cq1ab2cd3ef4gh5ij6kl"))
}
