package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

const tempPrefix = "temp-"

// TempID returns a placeholder id for an entity created speculatively. It is
// replaced by the server's id once the mutation succeeds.
func TempID() string { return tempPrefix + uuid.NewString() }

func IsTempID(id string) bool { return strings.HasPrefix(id, tempPrefix) }

// Notifier is told about every mutation that was rolled back.
type Notifier interface {
	MutationFailed(name string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(name string, err error)

func (f NotifierFunc) MutationFailed(name string, err error) { f(name, err) }

// keyState tracks one cache key.
//
// lock serializes mutations of the key for their whole lifetime. gen,
// pending and reads are guarded by Coordinator.mu: a read may only store its
// result if gen is unchanged since it started and no mutation is pending.
type keyState struct {
	lock    sync.Mutex
	gen     uint64
	pending int
	reads   map[uint64]context.CancelFunc
	nextID  uint64
}

// Coordinator keeps the cache consistent between server reads and
// optimistic mutations.
type Coordinator struct {
	cache    *Cache
	notifier Notifier
	group    singleflight.Group

	mu   sync.Mutex
	keys map[string]*keyState
}

func NewCoordinator(c *Cache, n Notifier) *Coordinator {
	if n == nil {
		n = NotifierFunc(func(string, error) {})
	}
	return &Coordinator{cache: c, notifier: n, keys: make(map[string]*keyState)}
}

func (co *Coordinator) Cache() *Cache { return co.cache }

// state must be called with co.mu held.
func (co *Coordinator) state(key string) *keyState {
	st, ok := co.keys[key]
	if !ok {
		st = &keyState{reads: make(map[uint64]context.CancelFunc)}
		co.keys[key] = st
	}
	return st
}

// beginRead registers a cancellable read of key. The returned context is
// detached from the caller's so that one waiter giving up does not fail the
// other callers sharing the flight.
func (co *Coordinator) beginRead(ctx context.Context, key string) (context.Context, uint64, func()) {
	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	co.mu.Lock()
	st := co.state(key)
	st.nextID++
	id := st.nextID
	st.reads[id] = cancel
	gen := st.gen
	co.mu.Unlock()

	return readCtx, gen, func() {
		co.mu.Lock()
		delete(st.reads, id)
		co.mu.Unlock()
		cancel()
	}
}

// commitRead stores data unless a mutation touched key since the read began.
// It returns the bytes the caller should see.
func (co *Coordinator) commitRead(ctx context.Context, key string, gen uint64, data []byte) ([]byte, error) {
	co.mu.Lock()
	defer co.mu.Unlock()

	st := co.state(key)
	if st.gen != gen || st.pending > 0 {
		if current, ok := co.cache.raw(ctx, key); ok {
			return current, nil
		}
		return data, nil
	}
	if err := co.cache.setRaw(ctx, key, data); err != nil {
		return nil, err
	}
	co.cache.clearStale(key)
	return data, nil
}

// Fetch returns the cached value of key, or loads it when missing or stale.
// Concurrent loads of the same key share one call to load.
func Fetch[T any](ctx context.Context, co *Coordinator, key string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if !co.cache.IsStale(key) {
		if ok, err := co.cache.Get(ctx, key, &out); err != nil || ok {
			return out, err
		}
	}

	ch := co.group.DoChan(key, func() (any, error) {
		readCtx, gen, done := co.beginRead(ctx, key)
		defer done()

		v, err := load(readCtx)
		if err != nil {
			// Cancelled by a mutation: the speculative value is the answer.
			if readCtx.Err() != nil {
				if current, ok := co.cache.raw(ctx, key); ok {
					return current, nil
				}
			}
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cache: encoding %s: %w", key, err)
		}
		return co.commitRead(ctx, key, gen, data)
	})

	select {
	case <-ctx.Done():
		return out, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return out, res.Err
		}
		if err := json.Unmarshal(res.Val.([]byte), &out); err != nil {
			return out, fmt.Errorf("cache: decoding %s: %w", key, err)
		}
		return out, nil
	}
}

// Mutation describes one optimistic change.
type Mutation[R any] struct {
	// Name identifies the mutation to the Notifier, e.g. "message.create".
	Name string
	// Keys lists every cache key Apply or Commit may write.
	Keys []string
	// Apply writes the speculative state.
	Apply func(tx *Tx) error
	// Dispatch calls the server.
	Dispatch func(ctx context.Context) (R, error)
	// Commit merges the server's result. Optional.
	Commit func(tx *Tx, result R) error
}

type snapshot struct {
	data    []byte
	present bool
}

// Mutate runs m through the optimistic protocol: lock the keys, cancel their
// reads, snapshot, apply, dispatch, then commit or restore. Touched keys are
// always marked stale before unlocking.
//
// Mutations sharing a key run one after the other, so a rollback only ever
// restores state that its own mutation observed.
func Mutate[R any](ctx context.Context, co *Coordinator, m Mutation[R]) (R, error) {
	var zero R
	keys := lo.Uniq(m.Keys)
	slices.Sort(keys)

	states := co.acquire(keys)
	defer co.release(keys, states)

	snaps := make(map[string]snapshot, len(keys))
	for _, k := range keys {
		data, ok := co.cache.raw(ctx, k)
		snaps[k] = snapshot{data: data, present: ok}
	}

	tx := &Tx{ctx: ctx, cache: co.cache, keys: lo.SliceToMap(keys, func(k string) (string, struct{}) {
		return k, struct{}{}
	})}

	if m.Apply != nil {
		if err := m.Apply(tx); err != nil {
			return zero, errors.Join(err, co.restore(ctx, snaps))
		}
	}

	result, err := m.Dispatch(ctx)
	if err != nil {
		if rerr := co.restore(ctx, snaps); rerr != nil {
			err = errors.Join(err, rerr)
		}
		co.notifier.MutationFailed(m.Name, err)
		return zero, err
	}

	if m.Commit != nil {
		if err := m.Commit(tx, result); err != nil {
			return result, fmt.Errorf("%s: merging result: %w", m.Name, err)
		}
	}
	return result, nil
}

// acquire locks keys in the given (sorted) order, then cancels their reads
// and bumps their generations.
func (co *Coordinator) acquire(keys []string) []*keyState {
	co.mu.Lock()
	states := lo.Map(keys, func(k string, _ int) *keyState { return co.state(k) })
	co.mu.Unlock()

	for _, st := range states {
		st.lock.Lock()
	}

	co.mu.Lock()
	for i, st := range states {
		st.gen++
		st.pending++
		for id, cancel := range st.reads {
			cancel()
			delete(st.reads, id)
		}
		co.group.Forget(keys[i])
	}
	co.mu.Unlock()
	return states
}

func (co *Coordinator) release(keys []string, states []*keyState) {
	co.cache.MarkStale(keys...)

	co.mu.Lock()
	for _, st := range states {
		// Reads started while the mutation ran saw pre-dispatch data.
		st.gen++
		st.pending--
	}
	co.mu.Unlock()

	for i := len(states) - 1; i >= 0; i-- {
		states[i].lock.Unlock()
	}
}

// Invalidate marks keys stale after a write the cache did not take part in.
// Reads already in flight still answer their callers but can no longer store
// their result, and the next Fetch starts a fresh load.
func (co *Coordinator) Invalidate(keys ...string) {
	co.mu.Lock()
	defer co.mu.Unlock()
	for _, k := range keys {
		co.state(k).gen++
		co.group.Forget(k)
	}
	co.cache.MarkStale(keys...)
}

func (co *Coordinator) restore(ctx context.Context, snaps map[string]snapshot) error {
	var errs []error
	for k, s := range snaps {
		if s.present {
			errs = append(errs, co.cache.setRaw(ctx, k, s.data))
		} else {
			errs = append(errs, co.cache.delete(ctx, k))
		}
	}
	return errors.Join(errs...)
}

// Tx gives a mutation access to the keys it declared.
type Tx struct {
	ctx   context.Context
	cache *Cache
	keys  map[string]struct{}
}

var errUndeclaredKey = errors.New("key not declared by the mutation")

func (tx *Tx) check(key string) error {
	if _, ok := tx.keys[key]; !ok {
		return fmt.Errorf("%s: %w", key, errUndeclaredKey)
	}
	return nil
}

// Modify applies fn to the cached value of key. Keys that are not cached are
// left alone: there is nothing on screen to update.
func Modify[T any](tx *Tx, key string, fn func(v *T)) error {
	if err := tx.check(key); err != nil {
		return err
	}
	var v T
	ok, err := tx.cache.Get(tx.ctx, key, &v)
	if err != nil || !ok {
		return err
	}
	fn(&v)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encoding %s: %w", key, err)
	}
	return tx.cache.setRaw(tx.ctx, key, data)
}
