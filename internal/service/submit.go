package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/DangLinWang11/tip-app-sub004/internal/draft"
	"github.com/DangLinWang11/tip-app-sub004/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("submit: user is not authenticated")
	ErrNoRestaurant     = errors.New("submit: no restaurant selected")
	ErrNoDishes         = errors.New("submit: the visit has no dishes")
	ErrMediaInFlight    = errors.New("submit: media uploads are still in progress")
)

// SubmitService converts the in-memory draft into persisted review records:
// one DishReview per dish, all sharing the visit id.
type SubmitService struct {
	writer ReviewWriter
	store  *draft.Store
}

func NewSubmitService(writer ReviewWriter, store *draft.Store) *SubmitService {
	return &SubmitService{
		writer: writer,
		store:  store,
	}
}

// SubmitVisit materializes the session's draft. Every dish is validated
// before the first write, so a validation failure never leaves partial rows
// behind. A write failure partway through returns the error with the draft
// and the already-written rows intact for manual retry; nothing is rolled
// back silently.
func (s *SubmitService) SubmitVisit(ctx context.Context, userID uuid.UUID, sess *draft.Session) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	snap := sess.Snapshot()
	if snap.Visit.RestaurantID == "" {
		return nil, ErrNoRestaurant
	}
	if len(snap.Dishes) == 0 {
		return nil, ErrNoDishes
	}
	if snap.HasUploading() {
		return nil, ErrMediaInFlight
	}

	restaurantID, err := uuid.Parse(snap.Visit.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("submit: invalid restaurant id: %w", err)
	}

	// Validate everything up front; no writes happen past this loop until
	// all dishes pass.
	for _, dish := range snap.Dishes {
		if err := dish.Validate(); err != nil {
			return nil, fmt.Errorf("submit: %w", err)
		}
	}

	visitID, err := uuid.Parse(snap.Visit.VisitID)
	if err != nil {
		visitID = uuid.New()
	}

	vibePhotos := collectVibePhotos(&snap)

	var reviewIDs []uuid.UUID
	for _, dish := range snap.Dishes {
		bundle := buildMediaBundle(&snap, &dish)
		review := &models.DishReview{
			UserID:          userID,
			RestaurantID:    restaurantID,
			VisitID:         visitID,
			DishName:        dish.Name,
			Category:        string(dish.Category),
			Cuisine:         dish.Cuisine,
			Rating:          dish.Rating,
			Caption:         dish.Caption,
			PhotoURLs:       bundle.photos,
			ThumbURLs:       bundle.thumbs,
			MediumURLs:      bundle.mediums,
			VideoURLs:       bundle.videos,
			VideoThumbURLs:  bundle.videoThumbs,
			VibePhotoURLs:   vibePhotos,
			Tags:            mergeTags(&snap.Visit, &dish),
			Audience:        dish.Audience,
			OrderAgain:      dish.OrderAgain,
			Recommend:       dish.Recommend,
			ReturnIntent:    string(dish.ReturnIntent),
			MealTime:        snap.Visit.MealTime,
			ServiceSpeed:    snap.Visit.ServiceSpeed,
			PricePerception: dish.PricePerception,
			VisitCaption:    snap.Visit.BusinessCaption,
		}
		created, err := s.writer.CreateDishReview(ctx, review)
		if err != nil {
			// The draft and any rows already written stay put for retry.
			return reviewIDs, fmt.Errorf("submit: dish %q: %w", dish.Name, err)
		}
		reviewIDs = append(reviewIDs, created.ID)
	}

	// Full success: clear both stored partitions, invalidate the read cache
	// and empty the in-memory draft.
	if err := s.store.Evict(ctx, userID.String(), snap.Visit.RestaurantID); err != nil {
		log.Printf("[SubmitService] failed to evict draft partition for user %s: %v", userID, err)
	}
	if err := s.store.Evict(ctx, userID.String(), ""); err != nil {
		log.Printf("[SubmitService] failed to evict generic draft partition for user %s: %v", userID, err)
	}
	s.writer.InvalidateUserReviews(ctx, userID)
	sess.CompleteSubmission()

	return reviewIDs, nil
}

type mediaBundle struct {
	photos      []string
	thumbs      []string
	mediums     []string
	videos      []string
	videoThumbs []string
}

// buildMediaBundle resolves a dish's media ids against the pool, in cover
// order. Photo variant URLs come from deterministic filename suffixing.
func buildMediaBundle(snap *draft.MultiDishCreateState, dish *draft.DishDraft) mediaBundle {
	var b mediaBundle
	for _, id := range dish.MediaIDs {
		item, ok := snap.MediaByID(id)
		if !ok || item.Status != draft.MediaUploaded {
			continue
		}
		switch item.Kind {
		case draft.MediaPhoto:
			b.photos = append(b.photos, item.URL)
			b.thumbs = append(b.thumbs, photoVariant(item.ThumbURL, item.URL, "_thumb"))
			b.mediums = append(b.mediums, photoVariant(item.MediumURL, item.URL, "_med"))
		case draft.MediaVideo:
			b.videos = append(b.videos, item.URL)
			if item.ThumbURL != "" {
				b.videoThumbs = append(b.videoThumbs, item.ThumbURL)
			}
		}
	}
	return b
}

// collectVibePhotos returns the URLs of uploaded photos no dish claimed.
// They become visit-level photos attached to every emitted record.
func collectVibePhotos(snap *draft.MultiDishCreateState) []string {
	used := make(map[string]struct{})
	for _, dish := range snap.Dishes {
		for _, id := range dish.MediaIDs {
			used[id] = struct{}{}
		}
	}
	var vibes []string
	for _, item := range snap.Media {
		if item.Kind != draft.MediaPhoto || item.Status != draft.MediaUploaded {
			continue
		}
		if _, ok := used[item.ID]; ok {
			continue
		}
		vibes = append(vibes, item.URL)
	}
	return vibes
}

// photoVariant prefers the URL the upload pipeline recorded for the variant
// object. Suffix derivation is the fallback for snapshots stored before the
// variants were recorded.
func photoVariant(recorded, baseURL, suffix string) string {
	if recorded != "" {
		return recorded
	}
	return variantURL(baseURL, suffix)
}

// variantURL inserts the suffix before the file extension:
// media/abc.jpg -> media/abc_thumb.jpg. Any query string is stripped first;
// a signature for the base object would not cover the variant anyway.
func variantURL(url, suffix string) string {
	if q := strings.Index(url, "?"); q >= 0 {
		url = url[:q]
	}
	dot := strings.LastIndex(url, ".")
	slash := strings.LastIndex(url, "/")
	if dot <= slash {
		return url + suffix
	}
	return url[:dot] + suffix + url[dot:]
}

// mergeTags folds explicit and derived tags into one deduplicated set,
// preserving first-seen order.
func mergeTags(visit *draft.VisitDraft, dish *draft.DishDraft) []string {
	var tags []string
	seen := make(map[string]struct{})
	add := func(values ...string) {
		for _, v := range values {
			v = strings.TrimSpace(strings.ToLower(v))
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			tags = append(tags, v)
		}
	}

	add(dish.Cuisine, string(dish.Category))
	add(dish.PositiveTags...)
	add(dish.NegativeTags...)
	add(priceSentimentTag(dish.PricePerception))
	add(visit.MealTime, visit.ServiceSpeed)
	add(visit.StandoutTags...)
	return tags
}

// priceSentimentTag derives a sentiment tag from the price perception.
func priceSentimentTag(perception string) string {
	switch perception {
	case "worth_it", "great_value":
		return "good_value"
	case "overpriced":
		return "overpriced"
	default:
		return ""
	}
}
