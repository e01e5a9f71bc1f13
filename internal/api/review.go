package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DangLinWang11/tip-app-sub004/internal/middleware"
	"github.com/DangLinWang11/tip-app-sub004/internal/models"
	"github.com/DangLinWang11/tip-app-sub004/internal/service"
)

// ReviewHandler serves persisted reviews and the restaurant lookups the
// wizard needs before a draft exists.
type ReviewHandler struct {
	reviews     *service.ReviewService
	restaurants *service.RestaurantService
	validator   middleware.TokenValidator
}

func NewReviewHandler(reviews *service.ReviewService, restaurants *service.RestaurantService, validator middleware.TokenValidator) *ReviewHandler {
	return &ReviewHandler{
		reviews:     reviews,
		restaurants: restaurants,
		validator:   validator,
	}
}

func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/reviews", middleware.AuthMiddleware(h.validator), h.ListMyReviews)
	router.GET("/reviews/:id", h.GetReview)
	router.GET("/visits/:visitID/reviews", h.ListVisitReviews)

	restaurants := router.Group("/restaurants")
	{
		restaurants.GET("/:id", h.GetRestaurant)
		restaurants.GET("/:id/menu", h.SearchMenu)
	}
}

// reviewWithOwnership decorates a review with whether the viewer owns the
// reviewed restaurant, so owner self-reviews can be rendered differently.
type reviewWithOwnership struct {
	*models.DishReview
	IsOwner bool `json:"is_owner"`
}

func (h *ReviewHandler) ListMyReviews(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	reviews, err := h.reviews.ListUserReviews(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	ownedSet := make(map[uuid.UUID]struct{})
	if owned, err := h.restaurants.OwnedRestaurantIDs(ctx, userID); err == nil {
		for _, id := range owned {
			ownedSet[id] = struct{}{}
		}
	}
	// An ownership lookup failure only loses the flags, never the list.

	out := make([]reviewWithOwnership, len(reviews))
	for i, review := range reviews {
		_, isOwner := ownedSet[review.RestaurantID]
		out[i] = reviewWithOwnership{DishReview: review, IsOwner: isOwner}
	}
	c.JSON(http.StatusOK, gin.H{"reviews": out})
}

func (h *ReviewHandler) GetReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review id"})
		return
	}
	review, err := h.reviews.GetReview(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) ListVisitReviews(c *gin.Context) {
	visitID, err := uuid.Parse(c.Param("visitID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid visit id"})
		return
	}
	reviews, err := h.reviews.ListVisitReviews(c.Request.Context(), visitID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *ReviewHandler) GetRestaurant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid restaurant id"})
		return
	}
	restaurant, err := h.restaurants.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *ReviewHandler) SearchMenu(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid restaurant id"})
		return
	}
	items, err := h.restaurants.SearchMenuItems(c.Request.Context(), id, c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search menu"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
