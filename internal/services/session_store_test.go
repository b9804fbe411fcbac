package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/internal/shared/testutil"
	"kpidash/pkg/contracts/domain"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(ttl time.Duration, max int) (*SessionStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewSessionStore(ttl, max)
	store.now = clock.Now
	return store, clock
}

func TestSessionStoreCreate(t *testing.T) {
	store, _ := newTestStore(time.Minute, 0)
	ds := testutil.Dataset(
		testutil.Rec("2024-01-01", "S1", "A", "C1", 1, 99),
		testutil.Rec("2024-01-03", "S2", "B", "C2", 2, 98),
	)

	t.Run("with dataset", func(t *testing.T) {
		sess, err := store.Create(ds)
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)
		assert.Same(t, ds, sess.Dataset)
		assert.Equal(t, testutil.Day("2024-01-01"), sess.State.Start)
		assert.Equal(t, testutil.Day("2024-01-03"), sess.State.End)
		assert.Equal(t, domain.Wildcard, sess.State.Site)
	})

	t.Run("without dataset", func(t *testing.T) {
		sess, err := store.Create(nil)
		require.NoError(t, err)
		assert.Nil(t, sess.Dataset)
		assert.Equal(t, domain.FilterState{}, sess.State)
	})

	assert.Equal(t, 2, store.Len())
}

func TestSessionStoreGetReturnsCopy(t *testing.T) {
	store, _ := newTestStore(time.Minute, 0)
	sess, err := store.Create(nil)
	require.NoError(t, err)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	got.State.Site = "mutated"

	again, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, again.State.Site)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreUpdate(t *testing.T) {
	store, clock := newTestStore(time.Minute, 0)
	sess, err := store.Create(nil)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	updated, err := store.Update(sess.ID, func(s *Session) error {
		s.State.Site = "S1"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "S1", updated.State.Site)
	assert.Equal(t, clock.Now(), updated.LastSeen)

	_, err = store.Update(sess.ID, func(s *Session) error { return ErrInvalidFilter })
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = store.Update("missing", func(s *Session) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreDelete(t *testing.T) {
	store, _ := newTestStore(time.Minute, 0)
	sess, err := store.Create(nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(sess.ID))
	assert.ErrorIs(t, store.Delete(sess.ID), ErrSessionNotFound)
	assert.Zero(t, store.Len())
}

func TestSessionStoreSweep(t *testing.T) {
	store, clock := newTestStore(time.Minute, 0)

	stale, err := store.Create(nil)
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	fresh, err := store.Create(nil)
	require.NoError(t, err)

	var notified []string
	store.OnExpire(func(ids []string) { notified = append(notified, ids...) })

	clock.Advance(30 * time.Second)
	assert.Equal(t, []string{stale.ID}, store.Sweep())
	assert.Equal(t, []string{stale.ID}, notified)
	assert.Empty(t, store.Sweep())
	assert.Len(t, notified, 1)

	_, err = store.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestSessionStoreLimit(t *testing.T) {
	store, clock := newTestStore(time.Minute, 2)
	var notified []string
	store.OnExpire(func(ids []string) { notified = append(notified, ids...) })

	first, err := store.Create(nil)
	require.NoError(t, err)
	second, err := store.Create(nil)
	require.NoError(t, err)

	_, err = store.Create(nil)
	assert.ErrorIs(t, err, ErrSessionLimit)
	assert.Empty(t, notified)

	// expired sessions free their slots
	clock.Advance(2 * time.Minute)
	_, err = store.Create(nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.ElementsMatch(t, []string{first.ID, second.ID}, notified)
}

func TestSessionStoreRun(t *testing.T) {
	store := NewSessionStore(time.Nanosecond, 0)
	_, err := store.Create(nil)
	require.NoError(t, err)

	logger, handler := testutil.NewTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	swept := make(chan []string, 1)
	store.OnExpire(func(ids []string) {
		select {
		case swept <- ids:
		default:
		}
	})
	done := make(chan error, 1)
	go func() {
		done <- store.Run(ctx, 5*time.Millisecond, logger)
	}()

	select {
	case ids := <-swept:
		assert.Len(t, ids, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}
	cancel()
	assert.NoError(t, <-done)
	assert.True(t, handler.ContainsMessage("Expired idle sessions"))
}
