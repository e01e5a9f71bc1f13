package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DangLinWang11/tip-app-sub004/internal/draft"
	"github.com/DangLinWang11/tip-app-sub004/internal/models"
)

// memKV is an in-memory draft.KV standing in for Redis.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", draft.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type storedObject struct {
	data        []byte
	contentType string
}

// fakeObjectStore records uploads and serves deterministic URLs.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string]storedObject
	failOn  string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string]storedObject)}
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return "", errors.New("storage unavailable")
	}
	f.objects[key] = storedObject{data: data, contentType: contentType}
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjectStore) object(key string) (storedObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[key]
	return o, ok
}

func (f *fakeObjectStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}

// recordingWriter collects created reviews; failOnDish aborts mid-batch.
type recordingWriter struct {
	mu          sync.Mutex
	reviews     []*models.DishReview
	failOnDish  string
	invalidated []uuid.UUID
}

func (w *recordingWriter) CreateDishReview(ctx context.Context, review *models.DishReview) (*models.DishReview, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOnDish != "" && review.DishName == w.failOnDish {
		return nil, errors.New("database write failed")
	}
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	w.reviews = append(w.reviews, review)
	return review, nil
}

func (w *recordingWriter) InvalidateUserReviews(ctx context.Context, userID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.invalidated = append(w.invalidated, userID)
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func newTestSession(t *testing.T, userID string) (*draft.Session, *draft.Store, *memKV) {
	t.Helper()
	kv := newMemKV()
	store := draft.NewStore(kv)
	sess := draft.NewSession(context.Background(), userID, store)
	return sess, store, kv
}
