package main

import (
	"flag"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DangLinWang11/tip-app-sub004/config"
	"github.com/DangLinWang11/tip-app-sub004/internal/database"
	"github.com/DangLinWang11/tip-app-sub004/internal/models"
	"github.com/DangLinWang11/tip-app-sub004/internal/service"
)

func main() {
	seed := flag.Bool("seed", false, "insert sample restaurants and menu items after migrating")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration complete")

	if *seed {
		if err := seedData(db); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Seed data inserted")
	}
}

func seedData(db *gorm.DB) error {
	restaurants := []struct {
		name    string
		address string
		cuisine string
		menu    []string
	}{
		{"Trattoria Nonna", "12 Via Roma", "italian", []string{"Cacio e Pepe", "Carbonara", "Tiramisu"}},
		{"Sakura House", "88 Blossom Ave", "japanese", []string{"Tonkotsu Ramen", "Salmon Nigiri", "Matcha Cheesecake"}},
		{"El Fogon", "5 Mercado St", "mexican", []string{"Tacos al Pastor", "Elote", "Churros"}},
	}

	for _, r := range restaurants {
		restaurant := models.Restaurant{
			ID:       uuid.New(),
			Name:     r.name,
			Address:  r.address,
			Cuisines: models.JSONBStringArray{r.cuisine},
		}
		if err := db.Create(&restaurant).Error; err != nil {
			return err
		}
		for _, dish := range r.menu {
			item := models.MenuItem{
				ID:           uuid.New(),
				RestaurantID: restaurant.ID,
				Name:         dish,
				Cuisine:      r.cuisine,
				Embedding:    service.MenuEmbedding(dish),
			}
			if err := db.Create(&item).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
