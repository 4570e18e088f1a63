// Package products serves the demonstration product catalogue guarded by the
// products row of the permission matrix.
package products

// Product is a catalogue entry. OwnerID is zero for stock items.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	OwnerID     int64  `json:"owner_id,omitempty"`
}

// Input is the body accepted when creating a product.
type Input struct {
	Name        string `json:"name" validate:"max=100"`
	Description string `json:"description" validate:"max=500"`
	Price       int64  `json:"price" validate:"gte=0"`
}

// Patch is the body accepted when updating a product.
type Patch struct {
	Name        *string `json:"name" validate:"omitnil,max=100"`
	Description *string `json:"description" validate:"omitnil,max=500"`
	Price       *int64  `json:"price" validate:"omitnil,gte=0"`
}

func (p Patch) apply(product Product) Product {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	return product
}

// Stock returns the items every fresh catalogue starts with.
func Stock() []Product {
	return []Product{
		{ID: 1, Price: 100},
		{ID: 2, Price: 200},
		{ID: 3, Price: 300},
	}
}
