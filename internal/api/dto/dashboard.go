package dto

import "github.com/shopspring/decimal"

// DashboardResponse is the registry-wide summary shown on the landing page
type DashboardResponse struct {
	Assets    AssetSummary     `json:"assets"`
	Inventory InventorySummary `json:"inventory"`
	Livestock LivestockSummary `json:"livestock"`
	Users     UserSummary      `json:"users"`
}

type AssetSummary struct {
	Total      int             `json:"total"`
	Active     int             `json:"active"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type InventorySummary struct {
	Total int `json:"total"`
	// LowStock includes items that are out of stock
	LowStock   int             `json:"lowStock"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type LivestockSummary struct {
	Total      int             `json:"total"`
	Healthy    int             `json:"healthy"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type UserSummary struct {
	Total  int            `json:"total"`
	Active int            `json:"active"`
	ByRole map[string]int `json:"byRole"`
}
