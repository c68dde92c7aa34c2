package schema

import (
	"github.com/kewsys/registry/internal/types"
)

var (
	AssetCategories = []string{"Computer & IT", "Furniture", "Vehicle", "Machinery", "Equipment", "Other"}
	AssetStatuses   = []string{"Active", "Under Maintenance", "Disposed", "Lost", "Damaged", "Reserved"}
	AssetConditions = []string{"Excellent", "Good", "Fair", "Poor"}
)

// Asset describes the KEW.PA fixed asset register
func Asset() *Entity {
	return &Entity{
		Name:    EntityAssets,
		Module:  "Asset",
		Event:   "asset",
		Table:   "assets",
		ListKey: "assets",
		ItemKey: "asset",
		Owner:   "userId",
		Fields: []Field{
			{Name: "assetCode", Type: TypeString, Required: true, MaxLen: 50, Unique: true},
			{Name: "assetName", Type: TypeString, Required: true, MaxLen: 200},
			{Name: "category", Type: TypeString, Required: true, Enum: AssetCategories},
			{Name: "subCategory", Type: TypeString, MaxLen: 100},
			{Name: "description", Type: TypeText},
			{Name: "brand", Type: TypeString, MaxLen: 100},
			{Name: "model", Type: TypeString, MaxLen: 100},
			{Name: "serialNumber", Type: TypeString, MaxLen: 100},
			{Name: "purchaseDate", Type: TypeDate, Required: true},
			{Name: "purchasePrice", Type: TypeDecimal, Required: true, Min: minOf(0), Default: decimalZero()},
			{Name: "supplier", Type: TypeString, MaxLen: 200},
			{Name: "warrantyExpiry", Type: TypeDate},
			{Name: "location", Type: TypeString, Required: true, MaxLen: 200},
			{Name: "department", Type: TypeString, Required: true, MaxLen: 100},
			{Name: "custodian", Type: TypeString, MaxLen: 100},
			{Name: "status", Type: TypeString, Enum: AssetStatuses, Default: "Active"},
			{Name: "condition", Type: TypeString, Enum: AssetConditions, Default: "Good"},
			{Name: "notes", Type: TypeText},
			{Name: "kewpaForm", Type: TypeString, MaxLen: 20},
		},
		Filters: []Filter{
			{Param: "category", Field: "category", Kind: FilterExact},
			{Param: "status", Field: "status", Kind: FilterExact},
			{Param: "condition", Field: "condition", Kind: FilterExact},
			{Param: "location", Field: "location", Kind: FilterContains},
			{Param: "department", Field: "department", Kind: FilterContains},
			{Param: "userId", Field: "userId", Kind: FilterExact},
			{Param: "purchaseDate", Field: "purchaseDate", Kind: FilterRange},
		},
		Search:    []string{"assetCode", "assetName", "description", "serialNumber"},
		DateRange: "purchaseDate",
		Delete:    SoftDelete,
		Relations: []Relation{{Name: "user", Field: "userId", Target: RelationUsers}},
		Stats: Stats{
			GroupBy: []string{"category", "status"},
			Counters: []Counter{
				{Name: "active", Predicate: types.Eq{Field: "status", Value: "Active"}},
				{Name: "maintenance", Predicate: types.Eq{Field: "status", Value: "Under Maintenance"}},
				{Name: "disposed", Predicate: types.Eq{Field: "status", Value: "Disposed"}},
			},
			SumField: "purchasePrice",
			SumAs:    "totalValue",
		},
		Access: Access{
			Write:  []types.Role{types.RoleAdmin, types.RoleManager, types.RoleStaff},
			Delete: []types.Role{types.RoleAdmin, types.RoleManager},
		},
	}
}
