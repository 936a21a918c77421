package tag

// DefaultTags is the seed set installed on first startup so the app is
// usable before the user defines any labels of their own.
func DefaultTags() []Tag {
	return []Tag{
		{Name: "Shopkeeper", Type: TypePayee, IsDefault: true},
		{Name: "Mart", Type: TypePayee, IsDefault: true},
		{Name: "Amazon", Type: TypePayee, IsDefault: true},
		{Name: "Uber", Type: TypePayee, IsDefault: true},
		{Name: "Other", Type: TypePayee, IsDefault: true},

		{Name: "Shopping", Type: TypeCategory, Color: "#FF5722", IsDefault: true},
		{Name: "Food", Type: TypeCategory, Color: "#4CAF50", IsDefault: true},
		{Name: "Healthcare", Type: TypeCategory, Color: "#E91E63", IsDefault: true},
		{Name: "Insurance", Type: TypeCategory, Color: "#9C27B0", IsDefault: true},
		{Name: "Loan", Type: TypeCategory, Color: "#F44336", IsDefault: true},
		{Name: "Transportation", Type: TypeCategory, Color: "#2196F3", IsDefault: true},
		{Name: "Entertainment", Type: TypeCategory, Color: "#FF9800", IsDefault: true},
		{Name: "Utilities", Type: TypeCategory, Color: "#607D8B", IsDefault: true},
		{Name: "Salary", Type: TypeCategory, Color: "#8BC34A", IsDefault: true},
		{Name: "Investment", Type: TypeCategory, Color: "#00BCD4", IsDefault: true},
		{Name: "Other", Type: TypeCategory, Color: "#795548", IsDefault: true},

		{Name: "Cash", Type: TypePaymentMethod, IsDefault: true},
		{Name: "Visa Credit Card", Type: TypePaymentMethod, IsDefault: true},
		{Name: "Master Credit Card", Type: TypePaymentMethod, IsDefault: true},
		{Name: "UPI", Type: TypePaymentMethod, IsDefault: true},
		{Name: "Debit Card", Type: TypePaymentMethod, IsDefault: true},
		{Name: "Net Banking", Type: TypePaymentMethod, IsDefault: true},
		{Name: "Other", Type: TypePaymentMethod, IsDefault: true},

		{Name: "Done", Type: TypeStatus, Color: "#4CAF50", IsDefault: true},
		{Name: "Pending", Type: TypeStatus, Color: "#FF9800", IsDefault: true},
		{Name: "InFuture", Type: TypeStatus, Color: "#2196F3", IsDefault: true},
	}
}
