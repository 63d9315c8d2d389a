package fakeapi

import "github.com/dixonjam77-max/kitchen-command-center-sub000/internal/backend"

// SampleLists is the data kitchen-fakeapi serves on startup.
func SampleLists() []backend.GroceryList {
	return []backend.GroceryList{
		{
			ID:            "weekly",
			Name:          "Weekly shop",
			Status:        "active",
			Store:         "Corner Market",
			EstimatedCost: 42.5,
			CreatedAt:     "2026-10-12T09:00:00Z",
			Items: []backend.GroceryItem{
				{ID: "milk", ItemName: "Milk", Quantity: 2, Unit: "l", Category: "dairy", EstimatedPrice: 2.4},
				{ID: "eggs", ItemName: "Eggs", Quantity: 12, Category: "dairy", EstimatedPrice: 3.1},
				{ID: "spinach", ItemName: "Spinach (baby)", Quantity: 200, Unit: "g", Category: "produce", EstimatedPrice: 2},
				{ID: "rice", ItemName: "Basmati rice", Quantity: 1, Unit: "kg", Category: "pantry", EstimatedPrice: 3.5},
			},
		},
		{
			ID:        "party",
			Name:      "Saturday dinner",
			Status:    "draft",
			Notes:     "six guests",
			CreatedAt: "2026-10-14T18:30:00Z",
			Items: []backend.GroceryItem{
				{ID: "salmon", ItemName: "Salmon fillet", Quantity: 1.2, Unit: "kg", Category: "seafood", EstimatedPrice: 24},
				{ID: "lemons", ItemName: "Lemons", Quantity: 4, Category: "produce", EstimatedPrice: 1.6},
			},
		},
	}
}
