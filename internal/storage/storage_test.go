package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cartLine struct {
	ID  int64 `json:"id"`
	Qty int   `json:"qty"`
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	bolt, err := OpenBolt(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"bolt":   bolt,
	}
}

func TestBackends_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer b.Close()

			_, ok, err := b.Get(ctx, "profile:a", "cart")
			require.NoError(t, err)
			assert.False(t, ok, "missing key should not be found")

			require.NoError(t, b.Put(ctx, "profile:a", "cart", []byte(`[1]`)))
			got, ok, err := b.Get(ctx, "profile:a", "cart")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[1]`, string(got))

			// Namespaces are isolated.
			_, ok, err = b.Get(ctx, "profile:b", "cart")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Put(ctx, "profile:a", "cart", []byte(`[2]`)))
			got, _, _ = b.Get(ctx, "profile:a", "cart")
			assert.Equal(t, `[2]`, string(got), "put should overwrite")

			require.NoError(t, b.Delete(ctx, "profile:a", "cart"))
			_, ok, err = b.Get(ctx, "profile:a", "cart")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, b.Delete(ctx, "profile:missing", "cart"), "deleting a missing key is a no-op")
		})
	}
}

func TestBoltBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	b, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, SharedNamespace, "users", []byte(`[]`)))
	require.NoError(t, b.Close())

	b, err = OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()
	got, ok, err := b.Get(ctx, SharedNamespace, "users")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(got))
}

func TestLoad_MissingOrMalformed(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := New(backend, testLogger())

	tests := []struct {
		name string
		raw  string
		want []cartLine
	}{
		{"valid", `[{"id":1,"qty":2}]`, []cartLine{{ID: 1, Qty: 2}}},
		{"malformed JSON", `[{"id":1,`, nil},
		{"wrong shape", `{"id":1}`, nil},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, backend.Put(ctx, "profile:x", "cart", []byte(tt.raw)))
			got, err := Load[[]cartLine](ctx, s, "profile:x", "cart")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := Load[[]cartLine](ctx, s, "profile:x", "never-written")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SaveRoundTripAndNotify(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), testLogger())
	defer s.Close()

	sub := s.Subscribe("profile:a")
	defer sub.Close()
	other := s.Subscribe("profile:b")
	defer other.Close()

	lines := []cartLine{{ID: 7, Qty: 1}}
	require.NoError(t, s.Save(ctx, "profile:a", "cart", "tab-1", lines))

	got, err := Load[[]cartLine](ctx, s, "profile:a", "cart")
	require.NoError(t, err)
	assert.Equal(t, lines, got)

	select {
	case c := <-sub.C:
		assert.Equal(t, "profile:a", c.Namespace)
		assert.Equal(t, "cart", c.Key)
		assert.Equal(t, "tab-1", c.Origin)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}

	select {
	case c := <-other.C:
		t.Fatalf("unexpected notification in other namespace: %+v", c)
	default:
	}

	require.NoError(t, s.Remove(ctx, "profile:a", "cart", "tab-2"))
	c := <-sub.C
	assert.Equal(t, "tab-2", c.Origin)
}

func TestNotifier_SlowSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier(testLogger())
	sub := n.Subscribe("profile:a")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultSubscriptionBuffer*3; i++ {
			n.Publish(Change{Namespace: "profile:a", Key: "cart"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, sub.C, DefaultSubscriptionBuffer)
}

func TestSubscription_Close(t *testing.T) {
	n := NewNotifier(testLogger())
	a := n.Subscribe("profile:a")
	b := n.Subscribe("profile:a")
	assert.Equal(t, 2, n.SubscriberCount("profile:a"))

	a.Close()
	a.Close()
	assert.Equal(t, 1, n.SubscriberCount("profile:a"))

	_, open := <-a.C
	assert.False(t, open, "closed subscription channel should be closed")

	n.Publish(Change{Namespace: "profile:a", Key: "wishlist"})
	c := <-b.C
	assert.Equal(t, "wishlist", c.Key)

	b.Close()
	assert.Equal(t, 0, n.SubscriberCount("profile:a"))
}

func TestSubscription_OwnBusTopic(t *testing.T) {
	n := NewNotifier(testLogger())
	a := n.Subscribe("profile:a")
	b := n.Subscribe("profile:a")
	other := n.Subscribe("profile:b")
	defer b.Close()
	defer other.Close()

	assert.NotEqual(t, a.topic, b.topic)
	assert.True(t, n.bus.HasCallback(a.topic))

	a.Close()
	assert.False(t, n.bus.HasCallback(a.topic))
	assert.True(t, n.bus.HasCallback(b.topic), "closing one subscription must keep its sibling's handler")

	n.Publish(Change{Namespace: "profile:a", Key: "cart"})
	c := <-b.C
	assert.Equal(t, "cart", c.Key)
	assert.Empty(t, other.C)
}

func TestOpen(t *testing.T) {
	b, err := Open(KindMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = Open(KindBolt, filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &BoltBackend{}, b)
	b.Close()

	_, err = Open("redis", "")
	assert.Error(t, err)
}
