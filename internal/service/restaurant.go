package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DangLinWang11/tip-app-sub004/internal/models"
)

// OwnedRestaurantCache caches the set of restaurant ids each user owns, with
// an explicit TTL and invalidation so staleness is testable in isolation.
type OwnedRestaurantCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]ownedEntry
}

type ownedEntry struct {
	ids       []uuid.UUID
	fetchedAt time.Time
}

func NewOwnedRestaurantCache(ttl time.Duration) *OwnedRestaurantCache {
	return &OwnedRestaurantCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]ownedEntry),
	}
}

// Get returns the cached ids for the user, or false when absent or expired.
func (c *OwnedRestaurantCache) Get(userID uuid.UUID) ([]uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userID]
	if !ok || c.now().Sub(e.fetchedAt) > c.ttl {
		return nil, false
	}
	return e.ids, true
}

// Put stores the ids for the user.
func (c *OwnedRestaurantCache) Put(userID uuid.UUID, ids []uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = ownedEntry{ids: ids, fetchedAt: c.now()}
}

// Invalidate drops the user's entry.
func (c *OwnedRestaurantCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// RestaurantService handles restaurant and menu lookups
type RestaurantService struct {
	db    *gorm.DB
	owned *OwnedRestaurantCache
}

func NewRestaurantService(db *gorm.DB) *RestaurantService {
	return &RestaurantService{
		db:    db,
		owned: NewOwnedRestaurantCache(5 * time.Minute),
	}
}

// GetRestaurant retrieves a restaurant by ID
func (s *RestaurantService) GetRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := s.db.First(&restaurant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

// SearchMenuItems returns the restaurant's menu items matching the partial
// dish name, best matches first.
func (s *RestaurantService) SearchMenuItems(ctx context.Context, restaurantID uuid.UUID, query string) ([]*models.MenuItem, error) {
	var items []models.MenuItem

	dbQuery := s.db.Where("restaurant_id = ?", restaurantID)
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		dbQuery = dbQuery.Where("LOWER(name) LIKE ?", like)
		if s.db.Dialector.Name() == "postgres" {
			vec := MenuEmbedding(query)
			dbQuery = dbQuery.Clauses(clause.OrderBy{
				Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []interface{}{vec}},
			})
		}
	}

	if err := dbQuery.Find(&items).Error; err != nil {
		return nil, err
	}

	result := make([]*models.MenuItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

// OwnedRestaurantIDs returns the ids of restaurants the user owns, through
// the TTL cache.
func (s *RestaurantService) OwnedRestaurantIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if ids, ok := s.owned.Get(userID); ok {
		return ids, nil
	}

	var restaurants []models.Restaurant
	if err := s.db.Select("id").Where("owner_id = ?", userID).Find(&restaurants).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(restaurants))
	for i := range restaurants {
		ids[i] = restaurants[i].ID
	}
	s.owned.Put(userID, ids)
	return ids, nil
}

// InvalidateOwned drops the user's cached ownership entry, for when a
// restaurant changes hands.
func (s *RestaurantService) InvalidateOwned(userID uuid.UUID) {
	s.owned.Invalidate(userID)
}
