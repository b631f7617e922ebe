package entity

import "time"

// ScanRecord is a part tag scanned onto a pallet.
type ScanRecord struct {
	ID               int64     `json:"id"`
	JobNumber        string    `json:"jobNumber"`
	PartID           string    `json:"partId"`
	QRCode           string    `json:"qrCode"`
	PalletID         int64     `json:"palletId"`
	ScanDate         time.Time `json:"scanDate"`
	TotalQuantityJob int       `json:"totalQuantityJob"`
	ScannedBy        string    `json:"scannedBy,omitempty"`
}

// DeletedScan is the archived copy of a removed scan.
type DeletedScan struct {
	ID               int64     `json:"id"`
	JobNumber        string    `json:"jobNumber"`
	PartID           string    `json:"partId"`
	QRCode           string    `json:"qrCode"`
	PalletID         int64     `json:"palletId"`
	PalletName       string    `json:"palletName"`
	ScanDate         time.Time `json:"scanDate"`
	DeletedAt        time.Time `json:"deletedDate"`
	TotalQuantityJob int       `json:"totalQuantityJob"`
	DeletedBy        string    `json:"deletedBy,omitempty"`
}

// DeletedScanPage is one page of the deletion archive.
type DeletedScanPage struct {
	Data       []DeletedScan `json:"data"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}
