package schema

import (
	"github.com/kewsys/registry/internal/types"
)

var (
	DisposalMethods = []string{"SaleTender", "SaleAuction", "SaleDirect", "Handover", "Release", "Destruction", "Other"}
	IncidentTypes   = []string{"Illness", "Injury", "Death", "Missing", "Outbreak"}
	LossMethods     = []string{"Theft", "Fraud", "Negligence", "Unknown"}
)

var (
	inventoryWriters  = []types.Role{types.RoleAdmin, types.RoleManager, types.RoleStaff}
	workflowDeleters  = []types.Role{types.RoleAdmin}
	workflowApprovers = []types.Role{types.RoleAdmin, types.RoleManager}
)

func workflowStats(sumField, sumAs string) Stats {
	return Stats{
		GroupBy: []string{FieldStatus},
		Counters: []Counter{
			{Name: "pending", Predicate: types.Eq{Field: FieldStatus, Value: string(types.WorkflowStatusPending)}},
		},
		SumField: sumField,
		SumAs:    sumAs,
	}
}

// LivestockMovement is a request to move an animal that is approved and later returned
func LivestockMovement() *Entity {
	return &Entity{
		Name:    EntityLivestockMovements,
		Module:  "LivestockMovement",
		Event:   "livestockMovement",
		Table:   "livestock_movements",
		ListKey: "movements",
		ItemKey: "movement",
		Owner:   "movedById",
		Fields: []Field{
			{Name: "livestockId", Type: TypeRef, Required: true},
			{Name: "registrationNumber", Type: TypeString, MaxLen: 100},
			{Name: "requesterName", Type: TypeString, MaxLen: 150},
			{Name: "requesterPosition", Type: TypeString, MaxLen: 150},
			{Name: "purpose", Type: TypeString, MaxLen: 255},
			{Name: "fromLocation", Type: TypeString, MaxLen: 255},
			{Name: "toLocation", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "dateRequested", Type: TypeTimestamp, DefaultNow: true},
			{Name: "dateExpectedReturn", Type: TypeTimestamp},
			{Name: "returnedCondition", Type: TypeString, MaxLen: 255, ReadOnly: true},
			{Name: "remarks", Type: TypeText, ReadOnly: true},
		},
		Filters: []Filter{
			{Param: "livestockId", Field: "livestockId", Kind: FilterExact},
			{Param: "status", Field: FieldStatus, Kind: FilterExact},
			{Param: "toLocation", Field: "toLocation", Kind: FilterContains},
			{Param: "fromLocation", Field: "fromLocation", Kind: FilterContains},
		},
		Search:      []string{"registrationNumber", "requesterName", "purpose"},
		DateRange:   "dateRequested",
		DefaultSort: "dateRequested",
		Delete:      HardDelete,
		Workflow: approvalWorkflow(Transition{
			Name:       types.TransitionReturn,
			From:       []types.WorkflowStatus{types.WorkflowStatusApproved},
			To:         types.WorkflowStatusReturned,
			Permission: ActionWrite,
			ActorField: "returnedBy",
			TimeField:  "dateActualReturn",
			Params:     []string{"returnedCondition", "remarks"},
			Required:   []string{"returnedCondition"},
		}),
		Relations: []Relation{
			{Name: "livestock", Field: "livestockId", Target: EntityLivestock},
			{Name: "movedBy", Field: "movedById", Target: RelationUsers},
		},
		Stats: workflowStats("", ""),
		Access: Access{
			Write:   livestockWriters,
			Delete:  workflowDeleters,
			Approve: workflowApprovers,
		},
	}
}

// LivestockTransfer moves animals between departments, completed on receipt
func LivestockTransfer() *Entity {
	wf := approvalWorkflow(Transition{
		Name:       types.TransitionComplete,
		From:       []types.WorkflowStatus{types.WorkflowStatusApproved},
		To:         types.WorkflowStatusCompleted,
		Permission: ActionApprove,
		ActorField: "receivedBy",
		TimeField:  "receivedDate",
		NotesField: "receiptNotes",
	})
	wf.Transitions[0] = approveTransition("quantityApproved")

	return &Entity{
		Name:    EntityLivestockTransfers,
		Module:  "LivestockTransfer",
		Event:   "livestockTransfer",
		Table:   "livestock_transfers",
		ListKey: "transfers",
		ItemKey: "transfer",
		Owner:   "initiatedById",
		Fields: []Field{
			{Name: "livestockId", Type: TypeRef, Required: true},
			{Name: "registrationNumber", Type: TypeString, MaxLen: 100},
			{Name: "fromDepartment", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "toDepartment", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "quantityRequested", Type: TypeInt, Min: minOf(1), Default: int64(1)},
			{Name: "quantityApproved", Type: TypeInt, Min: minOf(0), ReadOnly: true},
			{Name: "requestingOfficerName", Type: TypeString, MaxLen: 150},
			{Name: "remarks", Type: TypeText},
		},
		Filters: []Filter{
			{Param: "livestockId", Field: "livestockId", Kind: FilterExact},
			{Param: "status", Field: FieldStatus, Kind: FilterExact},
			{Param: "fromDepartment", Field: "fromDepartment", Kind: FilterContains},
			{Param: "toDepartment", Field: "toDepartment", Kind: FilterContains},
		},
		Search:   []string{"registrationNumber", "fromDepartment", "toDepartment"},
		Delete:   HardDelete,
		Workflow: wf,
		Relations: []Relation{
			{Name: "livestock", Field: "livestockId", Target: EntityLivestock},
			{Name: "initiatedBy", Field: "initiatedById", Target: RelationUsers},
		},
		Stats: workflowStats("", ""),
		Access: Access{
			Write:   livestockWriters,
			Delete:  workflowDeleters,
			Approve: workflowApprovers,
		},
	}
}

// LivestockDisposal authorises sale, handover or destruction of animals
func LivestockDisposal() *Entity {
	return &Entity{
		Name:    EntityLivestockDisposals,
		Module:  "LivestockDisposal",
		Event:   "livestockDisposal",
		Table:   "livestock_disposals",
		ListKey: "disposals",
		ItemKey: "disposal",
		Owner:   "authorizedBy",
		Fields: []Field{
			{Name: "livestockId", Type: TypeRef, Required: true},
			{Name: "registrationNumber", Type: TypeString, MaxLen: 100},
			{Name: "quantity", Type: TypeInt, Min: minOf(1), Default: int64(1)},
			{Name: "originalValue", Type: TypeDecimal, Min: minOf(0)},
			{Name: "currentValue", Type: TypeDecimal, Min: minOf(0)},
			{Name: "disposalReason", Type: TypeString, MaxLen: 255},
			{Name: "disposalMethod", Type: TypeString, Enum: DisposalMethods, Default: "Other"},
			{Name: "approvalRef", Type: TypeString, MaxLen: 150},
			{Name: "certificateNumber", Type: TypeString, MaxLen: 150},
			{Name: "notes", Type: TypeText},
			{Name: "saleProceed", Type: TypeDecimal, Min: minOf(0), ReadOnly: true},
		},
		Filters: []Filter{
			{Param: "livestockId", Field: "livestockId", Kind: FilterExact},
			{Param: "status", Field: FieldStatus, Kind: FilterExact},
			{Param: "disposalMethod", Field: "disposalMethod", Kind: FilterExact},
		},
		Search: []string{"registrationNumber", "disposalReason", "certificateNumber"},
		Delete: HardDelete,
		Workflow: approvalWorkflow(
			completeTransition("saleProceed"),
		),
		Relations: []Relation{
			{Name: "livestock", Field: "livestockId", Target: EntityLivestock},
			{Name: "authorizer", Field: "authorizedBy", Target: RelationUsers},
		},
		Stats: workflowStats("saleProceed", "totalProceeds"),
		Access: Access{
			Write:   livestockWriters,
			Delete:  workflowDeleters,
			Approve: workflowApprovers,
		},
	}
}

// LivestockIncident records illness, injury, death or missing animals
func LivestockIncident() *Entity {
	wf := approvalWorkflow(Transition{
		Name:       types.TransitionComplete,
		From:       []types.WorkflowStatus{types.WorkflowStatusApproved},
		To:         types.WorkflowStatusCompleted,
		Permission: ActionApprove,
		ActorField: "resolvedBy",
		TimeField:  "resolvedDate",
		NotesField: "outcomeNotes",
	})
	wf.Transitions[0] = approveTransition("costApproved")

	return &Entity{
		Name:    EntityLivestockIncidents,
		Module:  "LivestockIncident",
		Event:   "livestockIncident",
		Table:   "livestock_incidents",
		ListKey: "incidents",
		ItemKey: "incident",
		Owner:   "reportedById",
		Fields: []Field{
			{Name: "livestockId", Type: TypeRef, Required: true},
			{Name: "registrationNumber", Type: TypeString, MaxLen: 100},
			{Name: "incidentType", Type: TypeString, Required: true, Enum: IncidentTypes},
			{Name: "dateIdentified", Type: TypeTimestamp, Required: true},
			{Name: "description", Type: TypeText},
			{Name: "estimatedTreatmentCost", Type: TypeDecimal, Min: minOf(0)},
			{Name: "recommendation", Type: TypeText},
			{Name: "costApproved", Type: TypeDecimal, Min: minOf(0), ReadOnly: true},
		},
		Filters: []Filter{
			{Param: "livestockId", Field: "livestockId", Kind: FilterExact},
			{Param: "status", Field: FieldStatus, Kind: FilterExact},
			{Param: "incidentType", Field: "incidentType", Kind: FilterExact},
		},
		Search:      []string{"registrationNumber", "description", "recommendation"},
		DateRange:   "dateIdentified",
		DefaultSort: "dateIdentified",
		Delete:      HardDelete,
		Workflow:    wf,
		Relations: []Relation{
			{Name: "livestock", Field: "livestockId", Target: EntityLivestock},
			{Name: "reporter", Field: "reportedById", Target: RelationUsers},
		},
		Stats: Stats{
			GroupBy:  []string{FieldStatus, "incidentType"},
			SumField: "costApproved",
			SumAs:    "totalCostApproved",
		},
		Access: Access{
			Write:   livestockWriters,
			Delete:  workflowDeleters,
			Approve: workflowApprovers,
		},
	}
}

// LivestockLoss records theft, fraud or negligence losses pending write-off
func LivestockLoss() *Entity {
	wf := approvalWorkflow()
	approve := approveTransition("writeOffAmount")
	approve.Set = map[string]any{"writeOffApproved": true}
	wf.Transitions[0] = approve

	return &Entity{
		Name:    EntityLivestockLosses,
		Module:  "LivestockLoss",
		Event:   "livestockLoss",
		Table:   "livestock_losses",
		ListKey: "losses",
		ItemKey: "loss",
		Owner:   "reportedBy",
		Fields: []Field{
			{Name: "livestockId", Type: TypeRef, Required: true},
			{Name: "registrationNumber", Type: TypeString, MaxLen: 100},
			{Name: "quantity", Type: TypeInt, Min: minOf(1), Default: int64(1)},
			{Name: "originalValue", Type: TypeDecimal, Min: minOf(0)},
			{Name: "currentValue", Type: TypeDecimal, Min: minOf(0)},
			{Name: "reportedDate", Type: TypeTimestamp, Required: true},
			{Name: "lossMethod", Type: TypeString, Enum: LossMethods, Default: "Unknown"},
			{Name: "policeReportNumber", Type: TypeString, MaxLen: 150},
			{Name: "investigationStartDate", Type: TypeTimestamp},
			{Name: "investigationEndDate", Type: TypeTimestamp},
			{Name: "investigationFindings", Type: TypeText},
			{Name: "recommendSurcharge", Type: TypeBool, Default: false},
			{Name: "certificateNumber", Type: TypeString, MaxLen: 150},
			{Name: "notes", Type: TypeText},
			{Name: "writeOffAmount", Type: TypeDecimal, Min: minOf(0), ReadOnly: true},
			{Name: "writeOffApproved", Type: TypeBool, Default: false, ReadOnly: true},
		},
		Filters: []Filter{
			{Param: "livestockId", Field: "livestockId", Kind: FilterExact},
			{Param: "status", Field: FieldStatus, Kind: FilterExact},
			{Param: "lossMethod", Field: "lossMethod", Kind: FilterExact},
		},
		Search:      []string{"registrationNumber", "policeReportNumber", "investigationFindings"},
		DateRange:   "reportedDate",
		DefaultSort: "reportedDate",
		Delete:      HardDelete,
		Workflow:    wf,
		Relations: []Relation{
			{Name: "livestock", Field: "livestockId", Target: EntityLivestock},
			{Name: "reporter", Field: "reportedBy", Target: RelationUsers},
		},
		Stats: Stats{
			GroupBy:  []string{FieldStatus, "lossMethod"},
			SumField: "writeOffAmount",
			SumAs:    "totalWriteOff",
		},
		Access: Access{
			Write:   livestockWriters,
			Delete:  workflowDeleters,
			Approve: workflowApprovers,
		},
	}
}

// AnimalRejection records animals refused on delivery. Approval accepts the
// reversal with the supplier and completion marks the case resolved.
func AnimalRejection() *Entity {
	resolve := completeTransition()
	resolve.Set = map[string]any{"resolved": true}

	return &Entity{
		Name:    EntityAnimalRejections,
		Module:  "AnimalRejection",
		Event:   "animalRejection",
		Table:   "animal_rejections",
		ListKey: "rejections",
		ItemKey: "rejection",
		Owner:   "rejectedById",
		Fields: []Field{
			{Name: "rejectionRef", Type: TypeString, MaxLen: 100, Unique: true},
			{Name: "supplierName", Type: TypeString, Required: true, MaxLen: 255},
			{Name: "supplierAddress", Type: TypeText},
			{Name: "purchaseOrderNumber", Type: TypeString, MaxLen: 100},
			{Name: "deliveryNoteNumber", Type: TypeString, MaxLen: 100},
			{Name: "totalQuantity", Type: TypeInt, Required: true, Min: minOf(0)},
			{Name: "reason", Type: TypeText},
			{Name: "receivedBy", Type: TypeString, MaxLen: 150},
			{Name: "receivedAt", Type: TypeTimestamp},
			{Name: "notes", Type: TypeText},
			{Name: "resolved", Type: TypeBool, Default: false, ReadOnly: true},
		},
		Filters: []Filter{
			{Param: "status", Field: FieldStatus, Kind: FilterExact},
			{Param: "supplierName", Field: "supplierName", Kind: FilterContains},
			{Param: "purchaseOrderNumber", Field: "purchaseOrderNumber", Kind: FilterExact},
		},
		Search:     []string{"rejectionRef", "supplierName", "purchaseOrderNumber", "deliveryNoteNumber"},
		DateRange:  "receivedAt",
		Delete:     HardDelete,
		Workflow:   approvalWorkflow(resolve),
		Transforms: []Transform{assignRejectionRef},
		Relations: []Relation{
			{Name: "rejectedBy", Field: "rejectedById", Target: RelationUsers},
		},
		Stats: workflowStats("", ""),
		Access: Access{
			Write:   livestockWriters,
			Delete:  workflowDeleters,
			Approve: workflowApprovers,
		},
	}
}

func assignRejectionRef(values map[string]any) error {
	if ref, _ := values["rejectionRef"].(string); ref == "" {
		values["rejectionRef"] = types.GenerateShortIDWithPrefix("AR")
	}
	return nil
}

// InventoryRejection records store items refused on delivery
func InventoryRejection() *Entity {
	return &Entity{
		Name:    EntityInventoryRejections,
		Module:  "InventoryRejection",
		Event:   "inventoryRejection",
		Table:   "inventory_rejections",
		ListKey: "rejections",
		ItemKey: "rejection",
		Owner:   "reportedBy",
		Fields: []Field{
			{Name: "itemCode", Type: TypeString, Required: true, MaxLen: 100},
			{Name: "description", Type: TypeString, MaxLen: 255},
			{Name: "quantityOrdered", Type: TypeInt, Min: minOf(0)},
			{Name: "quantityReceived", Type: TypeInt, Min: minOf(0)},
			{Name: "quantityRejected", Type: TypeInt, Required: true, Min: minOf(0)},
			{Name: "reason", Type: TypeText},
			{Name: "purchaseOrderNumber", Type: TypeString, MaxLen: 150},
			{Name: "deliveryNoteNumber", Type: TypeString, MaxLen: 150},
			{Name: "reportedAt", Type: TypeTimestamp, DefaultNow: true},
			{Name: "notes", Type: TypeText},
		},
		Filters: []Filter{
			{Param: "itemCode", Field: "itemCode", Kind: FilterExact},
			{Param: "status", Field: FieldStatus, Kind: FilterExact},
			{Param: "purchaseOrderNumber", Field: "purchaseOrderNumber", Kind: FilterExact},
		},
		Search:      []string{"itemCode", "description", "purchaseOrderNumber"},
		DateRange:   "reportedAt",
		DefaultSort: "reportedAt",
		Delete:      HardDelete,
		Workflow:    approvalWorkflow(),
		Relations: []Relation{
			{Name: "reporter", Field: "reportedBy", Target: RelationUsers},
		},
		Stats: workflowStats("", ""),
		Access: Access{
			Write:   inventoryWriters,
			Delete:  workflowDeleters,
			Approve: workflowApprovers,
		},
	}
}

// InventoryDisposal authorises write-off of store items
func InventoryDisposal() *Entity {
	return &Entity{
		Name:    EntityInventoryDisposals,
		Module:  "InventoryDisposal",
		Event:   "inventoryDisposal",
		Table:   "inventory_disposals",
		ListKey: "disposals",
		ItemKey: "disposal",
		Owner:   "disposedById",
		Fields: []Field{
			{Name: "inventoryId", Type: TypeRef, Required: true},
			{Name: "itemCode", Type: TypeString, MaxLen: 100},
			{Name: "quantity", Type: TypeInt, Min: minOf(1), Default: int64(1)},
			{Name: "originalValue", Type: TypeDecimal, Min: minOf(0)},
			{Name: "currentValue", Type: TypeDecimal, Min: minOf(0)},
			{Name: "disposalReason", Type: TypeString, MaxLen: 255},
			{Name: "disposalMethod", Type: TypeString, Enum: DisposalMethods, Default: "Other"},
			{Name: "approvalRef", Type: TypeString, MaxLen: 150},
			{Name: "certificateNumber", Type: TypeString, MaxLen: 150},
			{Name: "notes", Type: TypeText},
			{Name: "proceeds", Type: TypeDecimal, Min: minOf(0), ReadOnly: true},
		},
		Filters: []Filter{
			{Param: "inventoryId", Field: "inventoryId", Kind: FilterExact},
			{Param: "itemCode", Field: "itemCode", Kind: FilterExact},
			{Param: "status", Field: FieldStatus, Kind: FilterExact},
			{Param: "disposalMethod", Field: "disposalMethod", Kind: FilterExact},
		},
		Search: []string{"itemCode", "disposalReason", "certificateNumber"},
		Delete: HardDelete,
		Workflow: approvalWorkflow(
			completeTransition("proceeds"),
		),
		Relations: []Relation{
			{Name: "inventory", Field: "inventoryId", Target: EntityInventory},
			{Name: "disposedBy", Field: "disposedById", Target: RelationUsers},
		},
		Stats: workflowStats("proceeds", "totalProceeds"),
		Access: Access{
			Write:   inventoryWriters,
			Delete:  workflowDeleters,
			Approve: workflowApprovers,
		},
	}
}
