package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultImageModel = "fal-ai/flux/schnell"

// Image is a generated image and its swipe state.
// Liked is nil while the image is pending.
type Image struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ImageURL  string    `gorm:"type:text;not null" json:"imageUrl"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	Model     string    `gorm:"type:text;not null;default:'fal-ai/flux/schnell'" json:"model"`
	Liked     *bool     `gorm:"index" json:"liked"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}

// BeforeCreate generates a UUID if not set
func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Model == "" {
		i.Model = DefaultImageModel
	}
	return nil
}

// IsPending reports whether the image has not been swiped yet
func (i *Image) IsPending() bool {
	return i.Liked == nil
}

// Stats is the aggregate swipe summary. Pending images are not counted.
type Stats struct {
	Liked    int64 `json:"liked"`
	Disliked int64 `json:"disliked"`
	Total    int64 `json:"total"`
}
