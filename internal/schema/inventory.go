package schema

import (
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
)

var (
	InventoryCategories = []string{"Office Supplies", "Veterinary Supplies", "Medical Equipment", "Cleaning Supplies", "Stationery", "IT Consumables", "Other"}
	InventoryStatuses   = []string{InventoryStatusActive, InventoryStatusLowStock, InventoryStatusOutOfStock, InventoryStatusDiscontinued}
)

const (
	InventoryStatusActive       = "Active"
	InventoryStatusLowStock     = "Low Stock"
	InventoryStatusOutOfStock   = "Out of Stock"
	InventoryStatusDiscontinued = "Discontinued"

	EventInventoryLowStock = "inventory:lowStock"
)

// LowStock is the computed filter currentStock <= minimumStock
var LowStock = types.CompareFields{Left: "currentStock", Op: types.OpLTE, Right: "minimumStock"}

// Inventory describes the KEW.PS store register
func Inventory() *Entity {
	return &Entity{
		Name:    EntityInventory,
		Module:  "Inventory",
		Event:   "inventory",
		Table:   "inventory",
		ListKey: "items",
		ItemKey: "item",
		Owner:   "userId",
		Fields: []Field{
			{Name: "itemCode", Type: TypeString, Required: true, MaxLen: 50, Unique: true},
			{Name: "itemName", Type: TypeString, Required: true, MaxLen: 200},
			{Name: "category", Type: TypeString, Required: true, Enum: InventoryCategories},
			{Name: "description", Type: TypeText},
			{Name: "unit", Type: TypeString, Required: true, MaxLen: 20},
			{Name: "currentStock", Type: TypeInt, Min: minOf(0), Default: int64(0)},
			{Name: "minimumStock", Type: TypeInt, Min: minOf(0), Default: int64(10)},
			{Name: "maximumStock", Type: TypeInt, Min: minOf(0)},
			{Name: "unitPrice", Type: TypeDecimal, Min: minOf(0), Default: decimalZero()},
			{Name: "totalValue", Type: TypeDecimal, ReadOnly: true, Default: decimalZero()},
			{Name: "location", Type: TypeString, Required: true, MaxLen: 200},
			{Name: "shelf", Type: TypeString, MaxLen: 50},
			{Name: "supplier", Type: TypeString, MaxLen: 200},
			{Name: "lastRestockDate", Type: TypeDate},
			{Name: "expiryDate", Type: TypeDate},
			{Name: "abcClassification", Type: TypeString, Enum: []string{"A", "B", "C"}},
			{Name: "status", Type: TypeString, Enum: InventoryStatuses, Default: InventoryStatusActive},
			{Name: "kewpsForm", Type: TypeString, MaxLen: 20},
		},
		Filters: []Filter{
			{Param: "category", Field: "category", Kind: FilterExact},
			{Param: "status", Field: "status", Kind: FilterExact},
			{Param: "location", Field: "location", Kind: FilterContains},
			{Param: "supplier", Field: "supplier", Kind: FilterContains},
			{Param: "lowStock", Field: "currentStock", Kind: FilterCompare, Compare: &LowStock},
			{Param: "expiryDate", Field: "expiryDate", Kind: FilterRange},
		},
		Search:     []string{"itemCode", "itemName", "description"},
		Delete:     SoftDelete,
		Transforms: []Transform{DeriveStockLevel},
		Alerts: []Alert{
			{Event: EventInventoryLowStock, Condition: IsLowStock},
		},
		Relations: []Relation{{Name: "user", Field: "userId", Target: RelationUsers}},
		Stats: Stats{
			GroupBy: []string{"category", "status"},
			Counters: []Counter{
				{Name: "lowStockItems", Predicate: LowStock},
				{Name: "outOfStockItems", Predicate: types.Eq{Field: "currentStock", Value: int64(0)}},
			},
			SumField: "totalValue",
			SumAs:    "totalValue",
			Groups: []GroupSum{
				{Name: "valueByCategory", Field: "category", SumField: "totalValue"},
			},
		},
		Access: Access{
			Write:  []types.Role{types.RoleAdmin, types.RoleManager, types.RoleStaff},
			Delete: []types.Role{types.RoleAdmin, types.RoleManager},
		},
	}
}

// DeriveStockLevel recomputes totalValue and the stock status. Discontinued
// items keep their status until it is changed explicitly.
func DeriveStockLevel(values map[string]any) error {
	stock, _ := values["currentStock"].(int64)
	minimum, _ := values["minimumStock"].(int64)
	price, ok := values["unitPrice"].(decimal.Decimal)
	if !ok {
		price = decimal.Zero
	}

	values["totalValue"] = price.Mul(decimal.NewFromInt(stock))

	if status, _ := values["status"].(string); status == InventoryStatusDiscontinued {
		return nil
	}
	switch {
	case stock <= 0:
		values["status"] = InventoryStatusOutOfStock
	case stock <= minimum:
		values["status"] = InventoryStatusLowStock
	default:
		values["status"] = InventoryStatusActive
	}
	return nil
}

// IsLowStock reports the stock alert condition
func IsLowStock(values map[string]any) bool {
	status, _ := values["status"].(string)
	return status == InventoryStatusLowStock || status == InventoryStatusOutOfStock
}

func decimalZero() decimal.Decimal {
	return decimal.Zero
}
