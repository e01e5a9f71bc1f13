package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// DishReview is one persisted review record. A visit that covered several
// dishes produces several rows sharing the same VisitID.
type DishReview struct {
	ID        uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID       uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	RestaurantID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	VisitID      uuid.UUID `gorm:"type:varchar(36);not null;index" json:"visit_id"`

	DishName string  `gorm:"size:255;not null" json:"dish_name"`
	Category string  `gorm:"size:50;not null" json:"category"`
	Cuisine  string  `gorm:"size:50;not null" json:"cuisine"`
	Rating   float64 `gorm:"not null" json:"rating"`
	Caption  string  `gorm:"type:text" json:"caption"`

	PhotoURLs      JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"photo_urls"`
	ThumbURLs      JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"thumb_urls"`
	MediumURLs     JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"medium_urls"`
	VideoURLs      JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"video_urls"`
	VideoThumbURLs JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"video_thumb_urls"`
	VibePhotoURLs  JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"vibe_photo_urls"`

	Tags     JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"tags"`
	Audience JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"audience"`

	OrderAgain      bool   `json:"order_again"`
	Recommend       bool   `json:"recommend"`
	ReturnIntent    string `gorm:"size:20" json:"return_intent"`
	MealTime        string `gorm:"size:20" json:"meal_time"`
	ServiceSpeed    string `gorm:"size:20" json:"service_speed"`
	PricePerception string `gorm:"size:20" json:"price_perception"`
	VisitCaption    string `gorm:"type:text" json:"visit_caption"`
}
