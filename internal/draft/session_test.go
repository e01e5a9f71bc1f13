package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *memoryKV) {
	t.Helper()
	kv := newMemoryKV()
	return NewSession(context.Background(), "u1", NewStore(kv)), kv
}

func stageUploaded(s *Session, ids ...string) {
	items := make([]LocalMediaItem, len(ids))
	for i, id := range ids {
		items[i] = LocalMediaItem{ID: id, Kind: MediaPhoto, Status: MediaUploaded, URL: "https://cdn/" + id + ".jpg"}
	}
	s.StageMedia(items)
}

func TestToggleMediaCoverOrdering(t *testing.T) {
	s, _ := newTestSession(t)
	stageUploaded(s, "m1", "m2")
	dish := s.Snapshot().Dishes[0]

	require.NoError(t, s.ToggleMediaForDish(dish.ID, "m1"))
	require.NoError(t, s.ToggleMediaForDish(dish.ID, "m2"))

	got := s.Snapshot().Dishes[0].MediaIDs
	assert.Equal(t, []string{"m2", "m1"}, got, "most recently attached item is the cover")
}

func TestToggleMediaIdempotentPairs(t *testing.T) {
	s, _ := newTestSession(t)
	stageUploaded(s, "m1")
	dish := s.Snapshot().Dishes[0]

	require.NoError(t, s.ToggleMediaForDish(dish.ID, "m1"))
	require.NoError(t, s.ToggleMediaForDish(dish.ID, "m1"))
	assert.Empty(t, s.Snapshot().Dishes[0].MediaIDs)

	// No duplicates regardless of how often toggle runs.
	require.NoError(t, s.ToggleMediaForDish(dish.ID, "m1"))
	require.NoError(t, s.ToggleMediaForDish(dish.ID, "m1"))
	require.NoError(t, s.ToggleMediaForDish(dish.ID, "m1"))
	assert.Equal(t, []string{"m1"}, s.Snapshot().Dishes[0].MediaIDs)
}

func TestToggleMediaUnknownID(t *testing.T) {
	s, _ := newTestSession(t)
	dish := s.Snapshot().Dishes[0]
	assert.ErrorIs(t, s.ToggleMediaForDish(dish.ID, "ghost"), ErrMediaNotFound)
}

func TestRemoveMediaCascades(t *testing.T) {
	s, _ := newTestSession(t)
	stageUploaded(s, "shared")
	first := s.Snapshot().Dishes[0]
	second := s.AddDish()

	require.NoError(t, s.ToggleMediaForDish(first.ID, "shared"))
	require.NoError(t, s.ToggleMediaForDish(second.ID, "shared"))

	require.NoError(t, s.RemoveMedia("shared"))

	snap := s.Snapshot()
	assert.Empty(t, snap.Media)
	for _, d := range snap.Dishes {
		assert.NotContains(t, d.MediaIDs, "shared")
	}
}

func TestRemoveDishKeepsSharedMedia(t *testing.T) {
	s, _ := newTestSession(t)
	stageUploaded(s, "m1")
	first := s.Snapshot().Dishes[0]
	second := s.AddDish()
	require.NoError(t, s.ToggleMediaForDish(first.ID, "m1"))
	require.NoError(t, s.ToggleMediaForDish(second.ID, "m1"))

	require.NoError(t, s.RemoveDish(1))

	snap := s.Snapshot()
	require.Len(t, snap.Dishes, 1)
	assert.Equal(t, []string{"m1"}, snap.Dishes[0].MediaIDs)
	require.Len(t, snap.Media, 1, "media stays in the shared pool")
}

func TestRemoveLastDishDisallowed(t *testing.T) {
	s, _ := newTestSession(t)
	assert.ErrorIs(t, s.RemoveDish(0), ErrLastDish)
}

func TestAddDishBecomesActive(t *testing.T) {
	s, _ := newTestSession(t)
	dish := s.AddDish()

	snap := s.Snapshot()
	assert.Len(t, snap.Dishes, 2)
	assert.Equal(t, 1, snap.ActiveDish)
	assert.Contains(t, snap.Expanded, dish.ID)
}

func TestUpdateDishMissingIDIsNoop(t *testing.T) {
	s, _ := newTestSession(t)
	called := false
	s.UpdateDish("gone", func(d *DishDraft) { called = true })
	assert.False(t, called)
}

func TestStepNavigationClampsAndFlushes(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestSession(t)

	assert.Equal(t, 1, s.GoNext(ctx))
	assert.Equal(t, 0, s.GoBack(ctx))
	assert.Equal(t, 0, s.GoBack(ctx), "clamped at the first step")
	assert.Equal(t, LastStep, s.GoToStep(ctx, 99))

	// Step changes persist immediately, not on the debounce timer.
	_, ok := kv.data["draft:u1:new"]
	assert.True(t, ok)
}

func TestSelectRestaurantFreshDraft(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)
	s.UpdateDish(s.Snapshot().Dishes[0].ID, func(d *DishDraft) { d.Name = "stale" })

	s.SelectRestaurant(ctx, &RestaurantInfo{ID: "r1", Name: "Example Bistro", Cuisines: []string{"thai"}}, false)

	snap := s.Snapshot()
	assert.Equal(t, "r1", snap.Visit.RestaurantID)
	require.Len(t, snap.Dishes, 1)
	assert.Empty(t, snap.Dishes[0].Name)
	assert.Equal(t, "thai", snap.Dishes[0].Cuisine)
}

func TestSelectRestaurantRestoresAndEvictsOldPartition(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := NewStore(kv)

	// A prior session left a draft for r1 behind.
	prior := NewState(&RestaurantInfo{ID: "r1", Name: "Example Bistro", Cuisines: []string{"italian"}})
	prior.Dishes[0].Name = "Margherita Pizza"
	require.NoError(t, store.Persist(ctx, "u1", "r1", &prior))

	s := NewSession(ctx, "u1", store)
	s.Flush(ctx)
	genericKey := store.Key("u1", "")
	_, hadGeneric := kv.data[genericKey]
	require.True(t, hadGeneric)

	s.SelectRestaurant(ctx, &RestaurantInfo{ID: "r1", Name: "Example Bistro", Cuisines: []string{"italian"}}, true)

	snap := s.Snapshot()
	assert.Equal(t, "Margherita Pizza", snap.Dishes[0].Name, "stored snapshot adopted verbatim")
	assert.Equal(t, prior.Visit.VisitID, snap.Visit.VisitID)

	_, stillThere := kv.data[genericKey]
	assert.False(t, stillThere, "previous partition evicted after adopting the new one")
}

func TestResetKeepRestaurant(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)
	s.SelectRestaurant(ctx, &RestaurantInfo{ID: "r1", Name: "Example Bistro", Address: "1 Main St", Cuisines: []string{"italian"}}, false)
	s.AddDish()
	s.AddDish()
	stageUploaded(s, "m1", "m2")
	s.UpdateVisit(func(v *VisitDraft) { v.MealTime = "dinner" })

	s.Reset(ctx, true)

	snap := s.Snapshot()
	assert.Len(t, snap.Dishes, 1)
	assert.Empty(t, snap.Media)
	assert.Equal(t, "r1", snap.Visit.RestaurantID)
	assert.Equal(t, "Example Bistro", snap.Visit.RestaurantName)
	assert.Empty(t, snap.Visit.MealTime, "visit-specific answers cleared")

	s.Reset(ctx, false)
	assert.Empty(t, s.Snapshot().Visit.RestaurantID)
}

func TestResetDiscardEvictsStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestSession(t)
	s.SelectRestaurant(ctx, &RestaurantInfo{ID: "r1", Name: "Example Bistro", Cuisines: []string{"italian"}}, false)
	dishID := s.Snapshot().Dishes[0].ID
	s.UpdateDish(dishID, func(d *DishDraft) { d.Name = "Margherita Pizza" })
	s.Flush(ctx)

	s.Reset(ctx, false)

	_, stillThere := kv.data["draft:u1:r1"]
	assert.False(t, stillThere, "discard must destroy the stored snapshot too")

	// Re-selecting with restore starts fresh instead of resurrecting the
	// discarded draft.
	s.SelectRestaurant(ctx, &RestaurantInfo{ID: "r1", Name: "Example Bistro", Cuisines: []string{"italian"}}, true)
	assert.Empty(t, s.Snapshot().Dishes[0].Name)
}

func TestStaleGenerationCompletionDropped(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)
	s.StageMedia([]LocalMediaItem{{ID: "m1", Kind: MediaPhoto, Status: MediaUploading}})
	gen := s.Generation()

	// The user switches restaurants while the upload is in flight.
	s.SelectRestaurant(ctx, &RestaurantInfo{ID: "r2"}, false)

	s.CompleteMedia(gen, "m1", UploadResult{StoragePath: "media/m1.jpg", URL: "https://cdn/m1.jpg"})

	for _, m := range s.Snapshot().Media {
		assert.NotEqual(t, "m1", m.ID, "stale completion must not touch the new draft")
	}
}

func TestCurrentGenerationCompletionApplies(t *testing.T) {
	s, _ := newTestSession(t)
	s.StageMedia([]LocalMediaItem{{ID: "m1", Kind: MediaPhoto, Status: MediaUploading}})

	s.CompleteMedia(s.Generation(), "m1", UploadResult{
		StoragePath: "media/m1.jpg",
		URL:         "https://cdn/m1.jpg",
		ThumbPath:   "media/m1_thumb.jpg",
		ThumbURL:    "https://cdn/m1_thumb.jpg",
		MediumPath:  "media/m1_med.jpg",
		MediumURL:   "https://cdn/m1_med.jpg",
	})

	snap := s.Snapshot()
	require.Len(t, snap.Media, 1)
	assert.Equal(t, MediaUploaded, snap.Media[0].Status)
	assert.Equal(t, "https://cdn/m1.jpg", snap.Media[0].URL)
	assert.Equal(t, "https://cdn/m1_thumb.jpg", snap.Media[0].ThumbURL)
	assert.Equal(t, "https://cdn/m1_med.jpg", snap.Media[0].MediumURL)
}

func TestFailMediaSetsMessage(t *testing.T) {
	s, _ := newTestSession(t)
	s.StageMedia([]LocalMediaItem{{ID: "m1", Kind: MediaVideo, Status: MediaUploading}})

	s.FailMedia(s.Generation(), "m1", "video exceeds 20s")

	snap := s.Snapshot()
	assert.Equal(t, MediaError, snap.Media[0].Status)
	assert.Equal(t, "video exceeds 20s", snap.Media[0].ErrorMessage)
}

func TestAutosaveErrorFlagOnQuotaFailure(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	s := NewSession(ctx, "u1", NewStore(kv))
	kv.setErr = errors.New("quota exceeded")

	dishID := s.Snapshot().Dishes[0].ID
	s.UpdateDish(dishID, func(d *DishDraft) { d.Name = "Pad Thai" })
	s.Flush(ctx)

	assert.Equal(t, AutosaveError, s.Autosave())
	// The in-memory draft stays intact and editable.
	assert.Equal(t, "Pad Thai", s.Snapshot().Dishes[0].Name)

	kv.setErr = nil
	s.UpdateDish(dishID, func(d *DishDraft) { d.Caption = "great" })
	s.Flush(ctx)
	assert.Equal(t, AutosaveSaved, s.Autosave())
}

func TestCompleteSubmissionResetsEverything(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t)
	s.SelectRestaurant(ctx, &RestaurantInfo{ID: "r1", Name: "Example Bistro"}, false)
	s.AddDish()
	stageUploaded(s, "m1")
	s.GoNext(ctx)

	s.CompleteSubmission()

	snap := s.Snapshot()
	assert.Empty(t, snap.Visit.RestaurantID)
	assert.Len(t, snap.Dishes, 1)
	assert.Empty(t, snap.Media)
	assert.Equal(t, FirstStep, snap.Step)
}

func TestManagerReturnsSameSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewStore(newMemoryKV()))
	a := m.Session(ctx, "u1")
	b := m.Session(ctx, "u1")
	c := m.Session(ctx, "u2")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestManagerEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	m := NewManager(NewStore(kv))
	clock := time.Now()
	m.now = func() time.Time { return clock }

	a := m.Session(ctx, "u1")
	dishID := a.Snapshot().Dishes[0].ID
	a.UpdateDish(dishID, func(d *DishDraft) { d.Name = "Pho" })

	// A touch inside the TTL keeps the session alive.
	clock = clock.Add(sessionIdleTTL - time.Minute)
	assert.Same(t, a, m.Session(ctx, "u1"))

	clock = clock.Add(sessionIdleTTL + time.Minute)
	b := m.Session(ctx, "u1")
	assert.NotSame(t, a, b, "an idle session is dropped and rebuilt")

	// The pending edit was flushed on eviction and restored into the
	// replacement session.
	assert.Equal(t, "Pho", b.Snapshot().Dishes[0].Name)
}
