package models

type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:100;not null;index:idx_ingredients_name" json:"name"`
	MeasurementUnit string `gorm:"size:30;not null" json:"measurement_unit"`
}

func (Ingredient) TableName() string {
	return "ingredients"
}
