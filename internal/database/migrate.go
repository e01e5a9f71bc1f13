package database

import (
	"log"

	"gorm.io/gorm"

	"github.com/DangLinWang11/tip-app-sub004/internal/models"
)

// Migrate brings the schema up to date. On PostgreSQL the vector extension
// must exist before the menu item table is created.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return err
		}
	}

	log.Printf("Running schema migration")
	return db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.DishReview{},
	)
}
