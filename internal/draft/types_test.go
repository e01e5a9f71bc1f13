package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDishDraftDefaults(t *testing.T) {
	dish := NewDishDraft("italian")
	assert.NotEmpty(t, dish.ID)
	assert.Equal(t, "italian", dish.Cuisine)
	assert.Equal(t, DefaultRating, dish.Rating)
	assert.True(t, dish.OrderAgain)
	assert.True(t, dish.Recommend)
}

func TestDishValidateRatingBounds(t *testing.T) {
	dish := NewDishDraft("italian")
	dish.Name = "Margherita Pizza"
	dish.Category = CategoryEntree

	dish.Rating = MinRating
	assert.NoError(t, dish.Validate())

	dish.Rating = MaxRating
	assert.NoError(t, dish.Validate())

	dish.Rating = 0.0
	assert.Error(t, dish.Validate())

	dish.Rating = 10.1
	assert.Error(t, dish.Validate())
}

func TestDishValidateRequiredFields(t *testing.T) {
	dish := NewDishDraft("")
	assert.Error(t, dish.Validate(), "name missing")

	dish.Name = "Tiramisu"
	assert.Error(t, dish.Validate(), "category missing")

	dish.Category = DishCategory("brunch")
	assert.Error(t, dish.Validate(), "unknown category")

	dish.Category = CategoryDessert
	assert.Error(t, dish.Validate(), "cuisine missing")

	dish.Cuisine = "italian"
	assert.NoError(t, dish.Validate())
}

func TestNewStateFreshVisit(t *testing.T) {
	state := NewState(&RestaurantInfo{
		ID:       "r1",
		Name:     "Example Bistro",
		Address:  "1 Main St",
		Cuisines: []string{"italian", "pizza"},
	})

	assert.NotEmpty(t, state.Visit.VisitID)
	assert.Equal(t, "r1", state.Visit.RestaurantID)
	assert.Equal(t, "italian", state.Visit.RestaurantCuisine)
	assert.Len(t, state.Dishes, 1)
	assert.Equal(t, "italian", state.Dishes[0].Cuisine)
	assert.Equal(t, FirstStep, state.Step)
	assert.Equal(t, []string{state.Dishes[0].ID}, state.Expanded)
}

func TestCloneDoesNotAlias(t *testing.T) {
	state := NewState(nil)
	state.Media = append(state.Media, LocalMediaItem{ID: "m1", Kind: MediaPhoto, Status: MediaUploaded})
	state.Dishes[0].MediaIDs = []string{"m1"}

	clone := state.Clone()
	clone.Dishes[0].MediaIDs[0] = "changed"
	clone.Media[0].ID = "changed"

	assert.Equal(t, "m1", state.Dishes[0].MediaIDs[0])
	assert.Equal(t, "m1", state.Media[0].ID)
}
