package schema

import (
	"github.com/kewsys/registry/internal/types"
)

var (
	Species             = []string{"Cattle", "Buffalo", "Goat", "Sheep", "Horse", "Poultry", "Other"}
	Genders             = []string{"Male", "Female", "Unknown"}
	AcquisitionTypes    = []string{"Purchase", "Birth", "Donation", "Transfer"}
	HealthStatuses      = []string{HealthHealthy, HealthSick, "Under Treatment", "Quarantine", "Deceased"}
	VaccinationStatuses = []string{"Up to Date", "Due", "Overdue", "Not Required"}
	LivestockStatuses   = []string{"Active", "Sold", "Deceased", "Transferred", "Disposed"}
)

const (
	HealthHealthy = "Healthy"
	HealthSick    = "Sick"

	EventLivestockHealthAlert = "livestock:healthAlert"
)

var (
	livestockWriters  = []types.Role{types.RoleAdmin, types.RoleManager, types.RoleVeterinarian}
	livestockManagers = []types.Role{types.RoleAdmin, types.RoleManager}
)

// Livestock describes the KEW.AH animal register. motherId and fatherId are
// weak references into the same table and may dangle.
func Livestock() *Entity {
	return &Entity{
		Name:    EntityLivestock,
		Module:  "Livestock",
		Event:   "livestock",
		Table:   "livestock",
		ListKey: "livestock",
		ItemKey: "livestock",
		Owner:   "userId",
		Fields: []Field{
			{Name: "animalCode", Type: TypeString, Required: true, MaxLen: 50, Unique: true},
			{Name: "species", Type: TypeString, Required: true, Enum: Species},
			{Name: "breed", Type: TypeString, MaxLen: 100},
			{Name: "name", Type: TypeString, MaxLen: 100},
			{Name: "gender", Type: TypeString, Required: true, Enum: Genders},
			{Name: "dateOfBirth", Type: TypeDate},
			{Name: "color", Type: TypeString, MaxLen: 50},
			{Name: "markings", Type: TypeText},
			{Name: "weight", Type: TypeDecimal, Min: minOf(0)},
			{Name: "acquisitionDate", Type: TypeDate, Required: true},
			{Name: "acquisitionType", Type: TypeString, Required: true, Enum: AcquisitionTypes},
			{Name: "acquisitionPrice", Type: TypeDecimal, Min: minOf(0)},
			{Name: "location", Type: TypeString, Required: true, MaxLen: 200},
			{Name: "pen", Type: TypeString, MaxLen: 50},
			{Name: "healthStatus", Type: TypeString, Enum: HealthStatuses, Default: HealthHealthy},
			{Name: "vaccinationStatus", Type: TypeString, Enum: VaccinationStatuses, Default: "Not Required"},
			{Name: "lastVaccinationDate", Type: TypeDate},
			{Name: "nextVaccinationDate", Type: TypeDate},
			{Name: "motherId", Type: TypeRef},
			{Name: "fatherId", Type: TypeRef},
			{Name: "status", Type: TypeString, Enum: LivestockStatuses, Default: "Active"},
			{Name: "notes", Type: TypeText},
			{Name: "kewahForm", Type: TypeString, MaxLen: 20},
		},
		Filters: []Filter{
			{Param: "species", Field: "species", Kind: FilterExact},
			{Param: "gender", Field: "gender", Kind: FilterExact},
			{Param: "healthStatus", Field: "healthStatus", Kind: FilterExact},
			{Param: "vaccinationStatus", Field: "vaccinationStatus", Kind: FilterExact},
			{Param: "status", Field: "status", Kind: FilterExact},
			{Param: "location", Field: "location", Kind: FilterContains},
			{Param: "motherId", Field: "motherId", Kind: FilterExact},
			{Param: "fatherId", Field: "fatherId", Kind: FilterExact},
			{Param: "acquisitionDate", Field: "acquisitionDate", Kind: FilterRange},
		},
		Search:    []string{"animalCode", "name", "breed"},
		DateRange: "acquisitionDate",
		Delete:    SoftDelete,
		Alerts: []Alert{
			{Event: EventLivestockHealthAlert, Condition: IsSick},
		},
		Relations: []Relation{
			{Name: "user", Field: "userId", Target: RelationUsers},
			{Name: "mother", Field: "motherId", Target: EntityLivestock},
			{Name: "father", Field: "fatherId", Target: EntityLivestock},
		},
		Stats: Stats{
			GroupBy: []string{"species", "healthStatus", "gender", "status"},
			Counters: []Counter{
				{Name: "healthy", Predicate: types.Eq{Field: "healthStatus", Value: HealthHealthy}},
				{Name: "sick", Predicate: types.Eq{Field: "healthStatus", Value: HealthSick}},
			},
			SumField: "acquisitionPrice",
			SumAs:    "totalValue",
		},
		Access: Access{
			Write:  livestockWriters,
			Delete: livestockManagers,
		},
	}
}

// IsSick is the health alert condition
func IsSick(values map[string]any) bool {
	status, _ := values["healthStatus"].(string)
	return status == HealthSick
}

// LivestockCareRecord describes vaccination, deworming and treatment entries
func LivestockCareRecord() *Entity {
	return &Entity{
		Name:    EntityLivestockCareRecords,
		Module:  "LivestockCareRecord",
		Table:   "livestock_care_records",
		ListKey: "records",
		ItemKey: "record",
		Owner:   "recordedBy",
		Fields: []Field{
			{Name: "livestockId", Type: TypeRef, Required: true},
			{Name: "registrationNumber", Type: TypeString, MaxLen: 100},
			{Name: "dateOfCare", Type: TypeTimestamp, Required: true},
			{Name: "careType", Type: TypeString, Required: true, Enum: []string{"Vaccination", "Deworming", "Treatment", "Feed", "Checkup", "Other"}},
			{Name: "description", Type: TypeText},
			{Name: "veterinarian", Type: TypeString, MaxLen: 150},
			{Name: "contractRef", Type: TypeString, MaxLen: 150},
			{Name: "cost", Type: TypeDecimal, Min: minOf(0)},
			{Name: "notes", Type: TypeText},
		},
		Filters: []Filter{
			{Param: "livestockId", Field: "livestockId", Kind: FilterExact},
			{Param: "careType", Field: "careType", Kind: FilterExact},
			{Param: "veterinarian", Field: "veterinarian", Kind: FilterContains},
		},
		Search:      []string{"registrationNumber", "description", "veterinarian"},
		DateRange:   "dateOfCare",
		DefaultSort: "dateOfCare",
		Delete:      HardDelete,
		Relations: []Relation{
			{Name: "livestock", Field: "livestockId", Target: EntityLivestock},
			{Name: "recorder", Field: "recordedBy", Target: RelationUsers},
		},
		Stats: Stats{
			GroupBy:  []string{"careType"},
			SumField: "cost",
			SumAs:    "totalCost",
		},
		Access: Access{
			Write:  livestockWriters,
			Delete: livestockManagers,
		},
	}
}

// LivestockCategoryB describes group-kept animals counted by family rather than individually
func LivestockCategoryB() *Entity {
	return &Entity{
		Name:    EntityLivestockCategoryB,
		Module:  "LivestockCategoryB",
		Table:   "livestock_category_b",
		ListKey: "records",
		ItemKey: "record",
		Owner:   "recordedById",
		Fields: []Field{
			{Name: "family", Type: TypeString, Required: true, MaxLen: 150},
			{Name: "breed", Type: TypeString, MaxLen: 150},
			{Name: "unit", Type: TypeString, Enum: []string{"Individual", "Weight", "Colony", "Batch"}, Default: "Individual"},
			{Name: "quantity", Type: TypeInt, Required: true, Min: minOf(0)},
			{Name: "acquisitionType", Type: TypeString, Enum: AcquisitionTypes, Default: "Purchase"},
			{Name: "acquisitionRef", Type: TypeString, MaxLen: 150},
			{Name: "acquisitionDate", Type: TypeDate},
			{Name: "originalValue", Type: TypeDecimal, Min: minOf(0)},
			{Name: "currentEstimatedValue", Type: TypeDecimal, Min: minOf(0)},
			{Name: "location", Type: TypeString, MaxLen: 255},
			{Name: "status", Type: TypeString, Enum: []string{"Active", "Disposed"}, Default: "Active"},
			{Name: "notes", Type: TypeText},
		},
		Filters: []Filter{
			{Param: "family", Field: "family", Kind: FilterContains},
			{Param: "breed", Field: "breed", Kind: FilterContains},
			{Param: "status", Field: "status", Kind: FilterExact},
			{Param: "unit", Field: "unit", Kind: FilterExact},
		},
		Search:    []string{"family", "breed", "acquisitionRef"},
		DateRange: "acquisitionDate",
		Delete:    SoftDelete,
		Relations: []Relation{{Name: "recorder", Field: "recordedById", Target: RelationUsers}},
		Stats: Stats{
			GroupBy:  []string{"family", "unit"},
			SumField: "currentEstimatedValue",
			SumAs:    "totalValue",
			Groups: []GroupSum{
				{Name: "quantityByFamily", Field: "family", SumField: "quantity"},
			},
		},
		Access: Access{
			Write:  livestockWriters,
			Delete: []types.Role{types.RoleAdmin},
		},
	}
}
