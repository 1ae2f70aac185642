package types

// TagCreateRequest is the body of POST /tags/
type TagCreateRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Slug  string `json:"slug" binding:"required,max=50,slug"`
	Color string `json:"color" binding:"required,hexcolor3or6"`
}

// IngredientResponse is the representation of an ingredient
type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}
