package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryKV is an in-memory KV for tests.
type memoryKV struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMemoryKV())

	state := NewState(&RestaurantInfo{ID: "r1", Name: "Example Bistro", Cuisines: []string{"italian"}})
	state.Dishes[0].Name = "Margherita Pizza"
	require.NoError(t, store.Persist(ctx, "u1", "r1", &state))

	restored, ok := store.Restore(ctx, "u1", "r1")
	require.True(t, ok)
	assert.Equal(t, "Margherita Pizza", restored.Dishes[0].Name)
	assert.Equal(t, state.Visit.VisitID, restored.Visit.VisitID)
}

func TestStoreRestoreMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := NewStore(kv)

	_, ok := store.Restore(ctx, "u1", "r1")
	assert.False(t, ok)

	// Corrupt data is treated as absent, never fatal.
	kv.data[store.Key("u1", "r1")] = "{not json"
	_, ok = store.Restore(ctx, "u1", "r1")
	assert.False(t, ok)
}

func TestStorePersistFiltersUnuploadedMedia(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMemoryKV())

	state := NewState(nil)
	state.Media = []LocalMediaItem{
		{ID: "done", Kind: MediaPhoto, Status: MediaUploaded, URL: "https://cdn/x.jpg", LocalName: "x.jpg"},
		{ID: "pending", Kind: MediaPhoto, Status: MediaUploading, LocalName: "y.jpg"},
		{ID: "broken", Kind: MediaVideo, Status: MediaError, ErrorMessage: "network"},
	}
	state.Dishes[0].MediaIDs = []string{"pending", "done", "broken"}

	require.NoError(t, store.Persist(ctx, "u1", "", &state))

	restored, ok := store.Restore(ctx, "u1", "")
	require.True(t, ok)
	require.Len(t, restored.Media, 1)
	assert.Equal(t, "done", restored.Media[0].ID)
	assert.Equal(t, MediaUploaded, restored.Media[0].Status)
	assert.Empty(t, restored.Media[0].LocalName, "local-only references must not be persisted")
	assert.Equal(t, []string{"done"}, restored.Dishes[0].MediaIDs, "dangling dish refs are stripped")

	// The in-memory state is untouched by sanitizing.
	assert.Len(t, state.Media, 3)
	assert.Equal(t, []string{"pending", "done", "broken"}, state.Dishes[0].MediaIDs)
}

func TestStoreKeyPartitions(t *testing.T) {
	store := NewStore(newMemoryKV())
	assert.Equal(t, "draft:u1:r9", store.Key("u1", "r9"))
	assert.Equal(t, "draft:u1:new", store.Key("u1", ""))
}

func TestStoreEvict(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMemoryKV())

	state := NewState(nil)
	require.NoError(t, store.Persist(ctx, "u1", "r1", &state))
	require.NoError(t, store.Evict(ctx, "u1", "r1"))

	_, ok := store.Restore(ctx, "u1", "r1")
	assert.False(t, ok)
}

func TestStorePersistErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	kv.setErr = errors.New("quota exceeded")
	store := NewStore(kv)

	state := NewState(nil)
	err := store.Persist(ctx, "u1", "", &state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
