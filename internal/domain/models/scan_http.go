package models

// Requests for scan HTTP endpoints. Defined in domain for consistency and reuse.

type ScanRequest struct {
	Category string `query:"category" json:"category" validate:"required"`
	Screen   string `query:"screen" json:"screen" validate:"omitempty,oneof=actives gainers losers small_cap"`
	Limit    int    `query:"limit" json:"limit" default:"12" validate:"gte=1,lte=50"`
}
