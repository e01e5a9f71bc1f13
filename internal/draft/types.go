// Package draft holds the in-progress state of one restaurant visit: the
// visit-level answers, the dish drafts and the shared media pool, plus the
// durable snapshot machinery that keeps a local copy restorable across
// sessions.
package draft

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DishCategory is the closed set of dish categories.
type DishCategory string

const (
	CategoryAppetizer DishCategory = "appetizer"
	CategoryEntree    DishCategory = "entree"
	CategoryHandheld  DishCategory = "handheld"
	CategorySide      DishCategory = "side"
	CategoryDessert   DishCategory = "dessert"
	CategoryDrink     DishCategory = "drink"
)

// Valid reports whether c is a known category.
func (c DishCategory) Valid() bool {
	switch c {
	case CategoryAppetizer, CategoryEntree, CategoryHandheld, CategorySide, CategoryDessert, CategoryDrink:
		return true
	}
	return false
}

// ReturnIntent captures whether the reviewer would come back for this dish.
type ReturnIntent string

const (
	ReturnForThis   ReturnIntent = "for_this"
	ReturnForOthers ReturnIntent = "for_others"
	ReturnNo        ReturnIntent = "no"
)

type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// MediaStatus is the per-item upload state machine:
// uploading -> uploaded | error. Consumers must tolerate items whose URL is
// not resolved yet.
type MediaStatus string

const (
	MediaUploading MediaStatus = "uploading"
	MediaUploaded  MediaStatus = "uploaded"
	MediaError     MediaStatus = "error"
)

// LocalMediaItem is one user-selected photo or video, shared across all
// dishes of the current visit. The ID is stable through every upload state.
type LocalMediaItem struct {
	ID           string      `json:"id"`
	Kind         MediaKind   `json:"kind"`
	Status       MediaStatus `json:"status"`
	LocalName    string      `json:"local_name,omitempty"`
	StoragePath  string      `json:"storage_path,omitempty"`
	URL          string      `json:"url,omitempty"`
	ThumbPath    string      `json:"thumb_path,omitempty"`
	ThumbURL     string      `json:"thumb_url,omitempty"`
	MediumPath   string      `json:"medium_path,omitempty"`
	MediumURL    string      `json:"medium_url,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// Rating bounds and the default applied to a fresh dish.
const (
	MinRating     = 0.1
	MaxRating     = 10.0
	DefaultRating = 7.5
)

// DishDraft is one dish within the visit. MediaIDs is ordered, first entry is
// the cover image, and never contains duplicates.
type DishDraft struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Category        DishCategory `json:"category"`
	Cuisine         string       `json:"cuisine"`
	Rating          float64      `json:"rating"`
	Caption         string       `json:"caption"`
	MediaIDs        []string     `json:"media_ids"`
	PricePerception string       `json:"price_perception"`
	PositiveTags    []string     `json:"positive_tags"`
	NegativeTags    []string     `json:"negative_tags"`
	OrderAgain      bool         `json:"order_again"`
	Recommend       bool         `json:"recommend"`
	Audience        []string     `json:"audience"`
	ReturnIntent    ReturnIntent `json:"return_intent"`
}

// NewDishDraft returns a dish with the defaults a fresh dish starts with.
func NewDishDraft(cuisine string) DishDraft {
	return DishDraft{
		ID:         uuid.New().String(),
		Cuisine:    cuisine,
		Rating:     DefaultRating,
		OrderAgain: true,
		Recommend:  true,
	}
}

// Validate checks the fields submission requires. Drafts are allowed to be
// incomplete while editing; this runs only at submit time.
func (d *DishDraft) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("dish name is required")
	}
	if !d.Category.Valid() {
		return fmt.Errorf("dish %q: invalid category %q", d.Name, d.Category)
	}
	if d.Cuisine == "" {
		return fmt.Errorf("dish %q: cuisine is required", d.Name)
	}
	if d.Rating < MinRating || d.Rating > MaxRating {
		return fmt.Errorf("dish %q: rating %.1f out of range [%.1f, %.1f]", d.Name, d.Rating, MinRating, MaxRating)
	}
	return nil
}

// VisitDraft is the visit-level half of the draft.
type VisitDraft struct {
	VisitID            string   `json:"visit_id"`
	RestaurantID       string   `json:"restaurant_id"`
	RestaurantName     string   `json:"restaurant_name"`
	RestaurantAddress  string   `json:"restaurant_address"`
	RestaurantCuisine  string   `json:"restaurant_cuisine"`
	MealTime           string   `json:"meal_time"`
	ServiceSpeed       string   `json:"service_speed"`
	PriceLevel         string   `json:"price_level"`
	BusinessCaption    string   `json:"business_caption"`
	StandoutTags       []string `json:"standout_tags"`
}

// Wizard step bounds. Navigation clamps to this range and never gates on
// validation; incomplete data is allowed until submission.
const (
	FirstStep = 0
	LastStep  = 3
)

// MultiDishCreateState is the full serialized draft: visit + dishes + media
// pool + transient wizard position. This is the unit persisted to and
// restored from the draft store.
type MultiDishCreateState struct {
	Visit      VisitDraft       `json:"visit"`
	Dishes     []DishDraft      `json:"dishes"`
	Media      []LocalMediaItem `json:"media"`
	Step       int              `json:"step"`
	ActiveDish int              `json:"active_dish"`
	Expanded   []string         `json:"expanded"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// RestaurantInfo is the denormalized restaurant metadata a draft keeps.
type RestaurantInfo struct {
	ID       string
	Name     string
	Address  string
	Cuisines []string
}

func (r *RestaurantInfo) primaryCuisine() string {
	if r == nil || len(r.Cuisines) == 0 {
		return ""
	}
	return r.Cuisines[0]
}

// NewState builds a fresh draft for the given restaurant (nil for none
// selected) with a new visit id and a single default dish.
func NewState(r *RestaurantInfo) MultiDishCreateState {
	visit := VisitDraft{VisitID: uuid.New().String()}
	if r != nil {
		visit.RestaurantID = r.ID
		visit.RestaurantName = r.Name
		visit.RestaurantAddress = r.Address
		visit.RestaurantCuisine = r.primaryCuisine()
	}
	dish := NewDishDraft(visit.RestaurantCuisine)
	return MultiDishCreateState{
		Visit:      visit,
		Dishes:     []DishDraft{dish},
		Media:      []LocalMediaItem{},
		Step:       FirstStep,
		ActiveDish: 0,
		Expanded:   []string{dish.ID},
	}
}

// mediaByID returns the pool item with the given id, or nil.
func (s *MultiDishCreateState) mediaByID(id string) *LocalMediaItem {
	for i := range s.Media {
		if s.Media[i].ID == id {
			return &s.Media[i]
		}
	}
	return nil
}

// MediaByID is the read-only lookup used by submission.
func (s *MultiDishCreateState) MediaByID(id string) (LocalMediaItem, bool) {
	if m := s.mediaByID(id); m != nil {
		return *m, true
	}
	return LocalMediaItem{}, false
}

// HasUploading reports whether any pool item is still in flight.
func (s *MultiDishCreateState) HasUploading() bool {
	for i := range s.Media {
		if s.Media[i].Status == MediaUploading {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; sessions hand these out so callers never alias
// the live draft.
func (s *MultiDishCreateState) Clone() MultiDishCreateState {
	out := *s
	out.Dishes = make([]DishDraft, len(s.Dishes))
	for i, d := range s.Dishes {
		d.MediaIDs = append([]string(nil), d.MediaIDs...)
		d.PositiveTags = append([]string(nil), d.PositiveTags...)
		d.NegativeTags = append([]string(nil), d.NegativeTags...)
		d.Audience = append([]string(nil), d.Audience...)
		out.Dishes[i] = d
	}
	out.Media = append([]LocalMediaItem(nil), s.Media...)
	out.Expanded = append([]string(nil), s.Expanded...)
	out.Visit.StandoutTags = append([]string(nil), s.Visit.StandoutTags...)
	return out
}
