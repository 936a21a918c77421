package tag

import "time"

// Type groups tags into the four facets a transaction can be labelled with.
type Type string

const (
	TypePayee         Type = "payee"          // Shopkeeper, Mart, Amazon, Uber
	TypeCategory      Type = "category"       // Shopping, Food, Healthcare
	TypePaymentMethod Type = "payment_method" // Cash, UPI, Visa Credit Card
	TypeStatus        Type = "status"         // Done, Pending, InFuture
)

func (t Type) Valid() bool {
	switch t {
	case TypePayee, TypeCategory, TypePaymentMethod, TypeStatus:
		return true
	}
	return false
}

// Tag is a user-defined label applied to transactions.
type Tag struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Type      Type      `json:"type" bson:"type"`
	Color     string    `json:"color,omitempty" bson:"color,omitempty"`
	Icon      string    `json:"icon,omitempty" bson:"icon,omitempty"`
	IsDefault bool      `json:"is_default" bson:"is_default"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type CreateTagRequest struct {
	Name  string `json:"name" binding:"required"`
	Type  Type   `json:"type" binding:"required"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type UpdateTagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}
