package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	calls    int
	products []catalog.Product
	err      error
}

func (s *stubAPI) ListAll(context.Context) ([]catalog.Product, error) {
	s.calls++
	return s.products, s.err
}

func (s *stubAPI) Get(context.Context, string) (*catalog.Product, error) {
	return nil, s.err
}

func (s *stubAPI) Create(_ context.Context, p catalog.Product) (*catalog.Product, error) {
	return &p, s.err
}

func (s *stubAPI) Update(_ context.Context, _ string, p catalog.Product) (*catalog.Product, error) {
	return &p, s.err
}

func (s *stubAPI) Delete(context.Context, string) error {
	return s.err
}

func newTestStore(api *stubAPI, ttl time.Duration) (*Store, *time.Time) {
	return newLimitedStore(api, ttl, 0)
}

func newLimitedStore(api *stubAPI, ttl time.Duration, maxSessions int) (*Store, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(api, 20, ttl, maxSessions, slog.New(slog.NewTextHandler(io.Discard, nil)))
	store.now = func() time.Time { return now }
	return store, &now
}

func TestStore_GetCreatesAndEnsureLoads(t *testing.T) {
	// given
	api := &stubAPI{products: []catalog.Product{{ID: "1", Model: "X", Quality: "oled"}}}
	store, _ := newTestStore(api, time.Minute)

	// when
	sess := store.Get(context.Background(), "")

	// then
	assert.NotEmpty(t, sess.ID)
	assert.Zero(t, api.calls, "a new session does not call the API by itself")
	assert.False(t, sess.View.Loaded())

	// when
	sess.Ensure(context.Background())
	again := store.Get(context.Background(), sess.ID)
	again.Ensure(context.Background())

	// then
	assert.Same(t, sess, again)
	assert.Equal(t, 1, api.calls, "an existing session is not reloaded")
	assert.True(t, sess.View.Loaded())
	assert.Len(t, sess.View.Render().Rows, 1)
}

func TestStore_SessionCountIsBounded(t *testing.T) {
	// given
	api := &stubAPI{products: []catalog.Product{{ID: "1", Model: "X", Quality: "oled"}}}
	store, _ := newLimitedStore(api, time.Hour, 100)

	// when
	for range 1000 {
		_ = store.Get(context.Background(), "")
	}

	// then
	assert.Equal(t, 100, store.Len())
	assert.Zero(t, api.calls)
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	// given
	api := &stubAPI{}
	store, now := newLimitedStore(api, time.Hour, 2)
	first := store.Get(context.Background(), "")
	*now = now.Add(time.Second)
	second := store.Get(context.Background(), "")
	*now = now.Add(time.Second)
	require.Same(t, first, store.Get(context.Background(), first.ID))
	*now = now.Add(time.Second)

	// when
	third := store.Get(context.Background(), "")

	// then
	assert.Equal(t, 2, store.Len())
	assert.Same(t, first, store.Get(context.Background(), first.ID))
	assert.Same(t, third, store.Get(context.Background(), third.ID))
	assert.NotEqual(t, second.ID, store.Get(context.Background(), second.ID).ID, "the idle session was dropped")
}

func TestStore_ExpiredSessionsMakeRoomFirst(t *testing.T) {
	// given
	api := &stubAPI{}
	store, now := newLimitedStore(api, time.Minute, 2)
	stale := store.Get(context.Background(), "")
	*now = now.Add(2 * time.Minute)
	fresh := store.Get(context.Background(), "")

	// when
	*now = now.Add(time.Second)
	_ = store.Get(context.Background(), "")

	// then
	assert.Equal(t, 2, store.Len())
	assert.Same(t, fresh, store.Get(context.Background(), fresh.ID))
	assert.NotEqual(t, stale.ID, store.Get(context.Background(), stale.ID).ID)
}

func TestStore_LoadFailureIsFlashed(t *testing.T) {
	// given
	api := &stubAPI{err: errors.New("connection refused")}
	store, _ := newTestStore(api, time.Minute)

	// when
	sess := store.Get(context.Background(), "unknown")
	sess.Ensure(context.Background())

	// then
	assert.NotEqual(t, "unknown", sess.ID)
	assert.False(t, sess.View.Loaded())
	assert.Equal(t, []string{"connection refused"}, sess.Flash.Pop())
	assert.Empty(t, sess.Flash.Pop(), "alerts are shown once")
}

func TestStore_Expiry(t *testing.T) {
	// given
	api := &stubAPI{}
	store, now := newTestStore(api, time.Minute)
	first := store.Get(context.Background(), "")
	second := store.Get(context.Background(), "")
	require.Equal(t, 2, store.Len())

	// when
	*now = now.Add(30 * time.Second)
	_ = store.Get(context.Background(), second.ID)
	*now = now.Add(45 * time.Second)
	removed := store.Sweep()

	// then
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
	renewed := store.Get(context.Background(), first.ID)
	assert.NotEqual(t, first.ID, renewed.ID, "an expired id gets a new session")
}
