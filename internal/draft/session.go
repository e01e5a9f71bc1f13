package draft

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrLastDish      = errors.New("draft: cannot remove the only dish")
	ErrDishNotFound  = errors.New("draft: dish not found")
	ErrMediaNotFound = errors.New("draft: media not found")
)

// AutosaveState is the user-visible status of the last persistence attempt.
// Persistence failures degrade to this flag and never block editing.
type AutosaveState string

const (
	AutosaveIdle  AutosaveState = "idle"
	AutosaveSaved AutosaveState = "saved"
	AutosaveError AutosaveState = "error"
)

// persistDelay is the autosave coalescing window.
const persistDelay = 400 * time.Millisecond

// Session is the single surface through which a user's draft is read and
// mutated. All edits run under one mutex, so every update sees the previous
// state rather than a stale snapshot; this is what makes last-writer-wins
// safe for the media pool, which is touched by both user edits and upload
// completions.
type Session struct {
	userID string
	store  *Store
	sched  *flushScheduler

	mu       sync.Mutex
	state    MultiDishCreateState
	gen      int64
	autosave AutosaveState
}

// NewSession creates a session holding a fresh draft. If the generic
// partition has a stored snapshot it is adopted, so a user who backgrounded
// mid-wizard resumes where they left off.
func NewSession(ctx context.Context, userID string, store *Store) *Session {
	s := &Session{
		userID:   userID,
		store:    store,
		state:    NewState(nil),
		autosave: AutosaveIdle,
	}
	s.sched = newFlushScheduler(persistDelay, s.flushPending)
	if snap, ok := store.Restore(ctx, userID, s.state.Visit.RestaurantID); ok {
		s.state = *snap
	}
	return s
}

func (s *Session) lock()   { s.mu.Lock() }
func (s *Session) unlock() { s.mu.Unlock() }

// Generation returns the current draft generation. Async completions capture
// it when work starts and are dropped if the draft was reset or switched to
// another restaurant in the meantime.
func (s *Session) Generation() int64 {
	s.lock()
	defer s.unlock()
	return s.gen
}

// Snapshot returns a deep copy of the current draft.
func (s *Session) Snapshot() MultiDishCreateState {
	s.lock()
	defer s.unlock()
	return s.state.Clone()
}

// Autosave returns the status of the last persistence attempt.
func (s *Session) Autosave() AutosaveState {
	s.lock()
	defer s.unlock()
	return s.autosave
}

// SelectRestaurant switches the draft to the given restaurant (nil clears the
// selection). The draft resets to a single fresh dish unless restoreDraft is
// set and a prior snapshot exists for that restaurant, in which case the
// snapshot is adopted verbatim. The previous partition's stored snapshot is
// evicted after the new one is adopted.
func (s *Session) SelectRestaurant(ctx context.Context, r *RestaurantInfo, restoreDraft bool) {
	s.lock()
	defer s.unlock()

	prev := s.state.Visit.RestaurantID
	next := ""
	if r != nil {
		next = r.ID
	}

	s.gen++
	adopted := false
	if r != nil && restoreDraft {
		if snap, ok := s.store.Restore(ctx, s.userID, r.ID); ok {
			s.state = *snap
			adopted = true
		}
	}
	if !adopted {
		s.state = NewState(r)
	}

	s.persistLocked(ctx)
	if prev != next {
		if err := s.store.Evict(ctx, s.userID, prev); err != nil {
			log.Printf("[DraftSession] failed to evict stale partition for user %s: %v", s.userID, err)
		}
	}
}

// AddDish appends a dish with defaults and makes it the active, expanded one.
func (s *Session) AddDish() DishDraft {
	s.lock()
	defer s.unlock()

	dish := NewDishDraft(s.state.Visit.RestaurantCuisine)
	s.state.Dishes = append(s.state.Dishes, dish)
	s.state.ActiveDish = len(s.state.Dishes) - 1
	s.state.Expanded = append(s.state.Expanded, dish.ID)
	s.sched.Schedule()
	return dish
}

// RemoveDish removes the dish at index. The last remaining dish cannot be
// removed. Media stays in the shared pool for the other dishes.
func (s *Session) RemoveDish(index int) error {
	s.lock()
	defer s.unlock()

	if len(s.state.Dishes) <= 1 {
		return ErrLastDish
	}
	if index < 0 || index >= len(s.state.Dishes) {
		return ErrDishNotFound
	}
	removed := s.state.Dishes[index]
	s.state.Dishes = append(s.state.Dishes[:index], s.state.Dishes[index+1:]...)
	if s.state.ActiveDish >= len(s.state.Dishes) {
		s.state.ActiveDish = len(s.state.Dishes) - 1
	}
	expanded := s.state.Expanded[:0]
	for _, id := range s.state.Expanded {
		if id != removed.ID {
			expanded = append(expanded, id)
		}
	}
	s.state.Expanded = expanded
	s.sched.Schedule()
	return nil
}

// UpdateDish applies fn to exactly the dish with the given id. A missing id
// is a no-op: the update may have raced with a removal.
func (s *Session) UpdateDish(id string, fn func(*DishDraft)) {
	s.lock()
	defer s.unlock()

	for i := range s.state.Dishes {
		if s.state.Dishes[i].ID == id {
			fn(&s.state.Dishes[i])
			s.sched.Schedule()
			return
		}
	}
}

// UpdateVisit applies fn to the visit-level answers.
func (s *Session) UpdateVisit(fn func(*VisitDraft)) {
	s.lock()
	defer s.unlock()
	fn(&s.state.Visit)
	s.sched.Schedule()
}

// ToggleMediaForDish attaches the media item to the dish, or detaches it if
// already attached. Attaching puts the item at the front of the dish's list,
// so the most recently chosen item is always the cover image.
func (s *Session) ToggleMediaForDish(dishID, mediaID string) error {
	s.lock()
	defer s.unlock()

	if s.state.mediaByID(mediaID) == nil {
		return ErrMediaNotFound
	}
	for i := range s.state.Dishes {
		if s.state.Dishes[i].ID != dishID {
			continue
		}
		dish := &s.state.Dishes[i]
		for j, id := range dish.MediaIDs {
			if id == mediaID {
				dish.MediaIDs = append(dish.MediaIDs[:j], dish.MediaIDs[j+1:]...)
				s.sched.Schedule()
				return nil
			}
		}
		dish.MediaIDs = append([]string{mediaID}, dish.MediaIDs...)
		s.sched.Schedule()
		return nil
	}
	return ErrDishNotFound
}

// RemoveMedia removes the item from the shared pool, cascading the removal
// through every dish first so no dish ever references an id absent from the
// pool.
func (s *Session) RemoveMedia(mediaID string) error {
	s.lock()
	defer s.unlock()

	if s.state.mediaByID(mediaID) == nil {
		return ErrMediaNotFound
	}
	for i := range s.state.Dishes {
		dish := &s.state.Dishes[i]
		ids := dish.MediaIDs[:0]
		for _, id := range dish.MediaIDs {
			if id != mediaID {
				ids = append(ids, id)
			}
		}
		dish.MediaIDs = ids
	}
	media := s.state.Media[:0]
	for _, m := range s.state.Media {
		if m.ID != mediaID {
			media = append(media, m)
		}
	}
	s.state.Media = media
	s.sched.Schedule()
	return nil
}

// StageMedia adds pending pool items created by the upload pipeline.
func (s *Session) StageMedia(items []LocalMediaItem) {
	s.lock()
	defer s.unlock()
	s.state.Media = append(s.state.Media, items...)
	// Pending items are filtered from snapshots anyway; no persist needed.
}

// UploadResult carries the storage locations an upload produced. Variant
// URLs are recorded here as the store returned them; presigned URLs cannot
// be derived from the base URL afterwards.
type UploadResult struct {
	StoragePath string
	URL         string
	ThumbPath   string
	ThumbURL    string
	MediumPath  string
	MediumURL   string
}

// CompleteMedia marks the item uploaded. Completions carrying a stale
// generation are dropped: the draft they belonged to no longer exists.
func (s *Session) CompleteMedia(gen int64, id string, res UploadResult) {
	s.lock()
	defer s.unlock()

	if gen != s.gen {
		log.Printf("[DraftSession] dropping stale upload completion for media %s", id)
		return
	}
	m := s.state.mediaByID(id)
	if m == nil {
		return
	}
	m.Status = MediaUploaded
	m.StoragePath = res.StoragePath
	m.URL = res.URL
	m.ThumbPath = res.ThumbPath
	m.ThumbURL = res.ThumbURL
	m.MediumPath = res.MediumPath
	m.MediumURL = res.MediumURL
	m.ErrorMessage = ""
	s.sched.Schedule()
}

// FailMedia marks the item failed with a human-readable message.
func (s *Session) FailMedia(gen int64, id, message string) {
	s.lock()
	defer s.unlock()

	if gen != s.gen {
		return
	}
	m := s.state.mediaByID(id)
	if m == nil {
		return
	}
	m.Status = MediaError
	m.ErrorMessage = message
}

// GoToStep flushes the draft durably, then clamps and applies the step
// change. The flush runs before the step moves so backgrounding mid
// transition cannot lose the latest edits.
func (s *Session) GoToStep(ctx context.Context, step int) int {
	s.lock()
	defer s.unlock()

	s.persistLocked(ctx)
	if step < FirstStep {
		step = FirstStep
	}
	if step > LastStep {
		step = LastStep
	}
	s.state.Step = step
	return step
}

// GoNext advances one step.
func (s *Session) GoNext(ctx context.Context) int {
	return s.GoToStep(ctx, s.currentStep()+1)
}

// GoBack moves one step back.
func (s *Session) GoBack(ctx context.Context) int {
	return s.GoToStep(ctx, s.currentStep()-1)
}

func (s *Session) currentStep() int {
	s.lock()
	defer s.unlock()
	return s.state.Step
}

// Reset clears the draft back to one fresh dish and an empty media pool.
// With keepRestaurant the restaurant identity survives but every
// visit-specific answer is cleared. A full discard also evicts the stored
// snapshot for the abandoned restaurant, so re-selecting it with restore
// cannot resurrect the destroyed draft.
func (s *Session) Reset(ctx context.Context, keepRestaurant bool) {
	s.lock()
	defer s.unlock()

	s.gen++
	prev := s.state.Visit.RestaurantID
	var r *RestaurantInfo
	if keepRestaurant && prev != "" {
		r = &RestaurantInfo{
			ID:       prev,
			Name:     s.state.Visit.RestaurantName,
			Address:  s.state.Visit.RestaurantAddress,
			Cuisines: []string{s.state.Visit.RestaurantCuisine},
		}
	}
	s.state = NewState(r)
	s.persistLocked(ctx)
	if !keepRestaurant && prev != "" {
		if err := s.store.Evict(ctx, s.userID, prev); err != nil {
			log.Printf("[DraftSession] failed to evict discarded partition for user %s: %v", s.userID, err)
		}
	}
}

// CompleteSubmission atomically empties the session after a successful
// submit: no restaurant, no media, step zero. The generation bump suppresses
// any late upload completions from the submitted draft.
func (s *Session) CompleteSubmission() {
	s.lock()
	defer s.unlock()

	s.gen++
	s.sched.Stop()
	s.state = NewState(nil)
	s.autosave = AutosaveIdle
}

// Flush forces the debounced write now.
func (s *Session) Flush(ctx context.Context) {
	s.lock()
	defer s.unlock()
	s.persistLocked(ctx)
}

// flushPending is the scheduler callback for the debounced write.
func (s *Session) flushPending() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.lock()
	defer s.unlock()
	s.persistLocked(ctx)
}

// persistLocked writes the current snapshot. Failures degrade to the
// autosave flag: the in-memory draft stays valid and editable.
func (s *Session) persistLocked(ctx context.Context) {
	s.sched.Stop()
	if err := s.store.Persist(ctx, s.userID, s.state.Visit.RestaurantID, &s.state); err != nil {
		log.Printf("[DraftSession] autosave failed for user %s: %v", s.userID, err)
		s.autosave = AutosaveError
		return
	}
	s.autosave = AutosaveSaved
}
