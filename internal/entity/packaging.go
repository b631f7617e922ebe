package entity

import "time"

// PackagingRecord is a generated packaging manifest.
type PackagingRecord struct {
	ID            int64     `json:"id"`
	PalletID      int64     `json:"palletId"`
	JobNumber     string    `json:"jobNumber"`
	PalletName    string    `json:"palletName"`
	FilePath      string    `json:"filePath"`
	Final         bool      `json:"final"`
	TotalQuantity int       `json:"totalQuantity"`
	TotalMass     float64   `json:"totalMass"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
