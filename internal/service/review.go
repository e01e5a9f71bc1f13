package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DangLinWang11/tip-app-sub004/internal/models"
)

const reviewCacheTTL = 5 * time.Minute

// ReviewService writes and reads persisted dish reviews. Reads of a user's
// own review list go through a Redis read-through cache that submission
// invalidates.
type ReviewService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewReviewService(db *gorm.DB, redisClient *redis.Client) *ReviewService {
	return &ReviewService{
		db:    db,
		redis: redisClient,
	}
}

// CreateDishReview persists one review record
func (s *ReviewService) CreateDishReview(ctx context.Context, review *models.DishReview) (*models.DishReview, error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// GetReview retrieves a review by ID
func (s *ReviewService) GetReview(ctx context.Context, id uuid.UUID) (*models.DishReview, error) {
	var review models.DishReview
	if err := s.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// ListUserReviews lists a user's reviews, newest first.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uuid.UUID) ([]*models.DishReview, error) {
	key := s.userCacheKey(userID)
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var cached []*models.DishReview
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var reviews []models.DishReview
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, err
	}
	result := make([]*models.DishReview, len(reviews))
	for i := range reviews {
		result[i] = &reviews[i]
	}

	if s.redis != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.redis.Set(ctx, key, data, reviewCacheTTL).Err(); err != nil {
				log.Printf("[ReviewService] failed to cache reviews for user %s: %v", userID, err)
			}
		}
	}
	return result, nil
}

// ListVisitReviews returns every review sharing the visit id, in creation
// order. This is the downstream join that reconstructs "all reviews from one
// visit".
func (s *ReviewService) ListVisitReviews(ctx context.Context, visitID uuid.UUID) ([]*models.DishReview, error) {
	var reviews []models.DishReview
	if err := s.db.WithContext(ctx).Where("visit_id = ?", visitID).Order("created_at ASC").Find(&reviews).Error; err != nil {
		return nil, err
	}
	result := make([]*models.DishReview, len(reviews))
	for i := range reviews {
		result[i] = &reviews[i]
	}
	return result, nil
}

// InvalidateUserReviews drops the user's cached review list.
func (s *ReviewService) InvalidateUserReviews(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.userCacheKey(userID)).Err(); err != nil {
		log.Printf("[ReviewService] failed to invalidate review cache for user %s: %v", userID, err)
	}
}

func (s *ReviewService) userCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("reviews:user:%s", userID)
}
