package schema

import (
	"github.com/samber/lo"
)

// Entity names double as route segments and RBAC entities
const (
	EntityAssets               = "assets"
	EntityInventory            = "inventory"
	EntityLivestock            = "livestock"
	EntityLivestockCareRecords = "livestock-care-records"
	EntityLivestockCategoryB   = "livestock-category-b"
	EntityLivestockMovements   = "livestock-movements"
	EntityLivestockTransfers   = "livestock-transfers"
	EntityLivestockDisposals   = "livestock-disposals"
	EntityLivestockIncidents   = "livestock-incidents"
	EntityLivestockLosses      = "livestock-losses"
	EntityAnimalRejections     = "animal-rejections"
	EntityInventoryRejections  = "inventory-rejections"
	EntityInventoryDisposals   = "inventory-disposals"
)

// Registry holds the initialised entity descriptors
type Registry struct {
	entities []*Entity
	byName   map[string]*Entity
}

// NewRegistry indexes entities, later duplicates of a name are ignored
func NewRegistry(entities ...*Entity) *Registry {
	r := &Registry{byName: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if _, dup := r.byName[e.Name]; dup {
			continue
		}
		e.init()
		r.entities = append(r.entities, e)
		r.byName[e.Name] = e
	}
	return r
}

// NewDefaultRegistry returns the descriptors of every registry entity
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		Asset(),
		Inventory(),
		Livestock(),
		LivestockCareRecord(),
		LivestockCategoryB(),
		LivestockMovement(),
		LivestockTransfer(),
		LivestockDisposal(),
		LivestockIncident(),
		LivestockLoss(),
		AnimalRejection(),
		InventoryRejection(),
		InventoryDisposal(),
	)
}

// Get returns the entity registered under name
func (r *Registry) Get(name string) (*Entity, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// All returns the entities in registration order
func (r *Registry) All() []*Entity {
	return r.entities
}

// Names returns the registered entity names
func (r *Registry) Names() []string {
	return lo.Map(r.entities, func(e *Entity, _ int) string { return e.Name })
}

func minOf(v float64) *float64 {
	return lo.ToPtr(v)
}
