package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/DangLinWang11/tip-app-sub004/internal/models"
)

// ReviewWriter is the collaborator that persists one assembled review record.
type ReviewWriter interface {
	CreateDishReview(ctx context.Context, review *models.DishReview) (*models.DishReview, error)
	InvalidateUserReviews(ctx context.Context, userID uuid.UUID)
}

// Ensure ReviewService implements ReviewWriter
var _ ReviewWriter = (*ReviewService)(nil)

// ObjectStore accepts a binary blob at a generated key and returns a
// resolvable URL for it.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
