package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DangLinWang11/tip-app-sub004/internal/models"
	"github.com/DangLinWang11/tip-app-sub004/internal/testdb"
)

func seedRestaurant(t *testing.T, svc *RestaurantService, owner *uuid.UUID) *models.Restaurant {
	t.Helper()
	r := &models.Restaurant{
		ID:       uuid.New(),
		Name:     "Trattoria Nonna",
		Address:  "12 Via Roma",
		Cuisines: models.JSONBStringArray{"italian"},
		OwnerID:  owner,
	}
	require.NoError(t, svc.db.Create(r).Error)
	return r
}

func TestGetRestaurant(t *testing.T) {
	db := testdb.NewSQLite(t)
	svc := NewRestaurantService(db)
	r := seedRestaurant(t, svc, nil)

	got, err := svc.GetRestaurant(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trattoria Nonna", got.Name)
	assert.Equal(t, models.JSONBStringArray{"italian"}, got.Cuisines)

	_, err = svc.GetRestaurant(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestSearchMenuItems(t *testing.T) {
	db := testdb.NewSQLite(t)
	svc := NewRestaurantService(db)
	r := seedRestaurant(t, svc, nil)

	for _, name := range []string{"Cacio e Pepe", "Carbonara", "Tiramisu"} {
		item := &models.MenuItem{
			ID:           uuid.New(),
			RestaurantID: r.ID,
			Name:         name,
			Category:     "entree",
			Cuisine:      "italian",
			Embedding:    MenuEmbedding(name),
		}
		require.NoError(t, db.Create(item).Error)
	}

	items, err := svc.SearchMenuItems(context.Background(), r.ID, "ca")
	require.NoError(t, err)
	require.Len(t, items, 2)
	names := []string{items[0].Name, items[1].Name}
	assert.Contains(t, names, "Cacio e Pepe")
	assert.Contains(t, names, "Carbonara")

	all, err := svc.SearchMenuItems(context.Background(), r.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOwnedRestaurantIDsCaches(t *testing.T) {
	db := testdb.NewSQLite(t)
	svc := NewRestaurantService(db)
	owner := uuid.New()
	r := seedRestaurant(t, svc, &owner)

	ids, err := svc.OwnedRestaurantIDs(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{r.ID}, ids)

	// A second restaurant is invisible until the cache entry expires or is
	// invalidated.
	second := &models.Restaurant{
		ID:       uuid.New(),
		Name:     "Osteria Due",
		Cuisines: models.JSONBStringArray{"italian"},
		OwnerID:  &owner,
	}
	require.NoError(t, db.Create(second).Error)

	ids, err = svc.OwnedRestaurantIDs(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	svc.InvalidateOwned(owner)
	ids, err = svc.OwnedRestaurantIDs(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestOwnedRestaurantCacheTTL(t *testing.T) {
	cache := NewOwnedRestaurantCache(5 * time.Minute)
	current := time.Now()
	cache.now = func() time.Time { return current }

	userID := uuid.New()
	want := []uuid.UUID{uuid.New()}
	cache.Put(userID, want)

	got, ok := cache.Get(userID)
	require.True(t, ok)
	assert.Equal(t, want, got)

	current = current.Add(5*time.Minute + time.Second)
	_, ok = cache.Get(userID)
	assert.False(t, ok, "entries past the TTL must miss")
}
