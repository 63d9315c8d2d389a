package backend

// ListSummary mirrors one element of GET /grocery.
type ListSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	Store         string  `json:"store,omitempty"`
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	ItemCount     int     `json:"item_count"`
	CreatedAt     string  `json:"created_at,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

// GroceryList mirrors GET /grocery/{list_id}.
type GroceryList struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Status        string        `json:"status"`
	Store         string        `json:"store,omitempty"`
	EstimatedCost float64       `json:"estimated_cost,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Items         []GroceryItem `json:"items"`
	CreatedAt     string        `json:"created_at,omitempty"`
	UpdatedAt     string        `json:"updated_at,omitempty"`
}

// GroceryItem is a line on a grocery list.
type GroceryItem struct {
	ID             string  `json:"id"`
	ListID         string  `json:"list_id,omitempty"`
	ItemName       string  `json:"item_name"`
	Quantity       float64 `json:"quantity,omitempty"`
	Unit           string  `json:"unit,omitempty"`
	Category       string  `json:"category,omitempty"`
	EstimatedPrice float64 `json:"estimated_price,omitempty"`
	Checked        bool    `json:"checked"`
	CheckedAt      string  `json:"checked_at,omitempty"`
	AddedToPantry  bool    `json:"added_to_pantry"`
	Source         string  `json:"source,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

type itemPatch struct {
	Checked bool `json:"checked"`
}

// PantryResult mirrors the to-pantry response.
type PantryResult struct {
	Message      string `json:"message"`
	PantryItemID string `json:"pantry_item_id"`
}
