package models

import (
	"regexp"

	"gorm.io/gorm"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:100;not null" json:"name"`
	Slug  string `gorm:"size:50;uniqueIndex:idx_tags_slug;not null" json:"slug"`
	Color string `gorm:"size:7;not null" json:"color"`
}

func (Tag) TableName() string {
	return "tags"
}

// ValidColor reports whether color is #RGB or #RRGGBB
func ValidColor(color string) bool {
	return colorPattern.MatchString(color)
}

func (t *Tag) BeforeSave(tx *gorm.DB) error {
	if !ValidColor(t.Color) {
		return &FieldError{Field: "color", Message: "Color must be a hex value like #RGB or #RRGGBB."}
	}
	return nil
}
