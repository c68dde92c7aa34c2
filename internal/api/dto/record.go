package dto

import (
	"github.com/kewsys/registry/internal/validator"
)

// AdjustStockRequest moves inventory stock up or down by Adjustment units
type AdjustStockRequest struct {
	Adjustment int64  `json:"adjustment" validate:"ne=0"`
	Reason     string `json:"reason" validate:"required,max=500"`
}

func (r *AdjustStockRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// GroupBreakdown is one row of a grouped count and sum
type GroupBreakdown struct {
	Group string `json:"group"`
	Count int    `json:"count"`
	Total string `json:"total"`
}
