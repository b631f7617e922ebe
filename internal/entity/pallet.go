package entity

import "time"

// Pallet is a physical grouping of scanned parts for shipment.
type Pallet struct {
	ID             int64     `json:"id"`
	JobNumber      string    `json:"jobNumber"`
	Name           string    `json:"name"`
	SequenceNumber int       `json:"sequenceNumber"`
	CreatedAt      time.Time `json:"createdDate"`
	ScannedItems   int       `json:"scannedItems"`
}

// PalletItem is one scan on a pallet.
type PalletItem struct {
	PartID   string    `json:"partId"`
	QRCode   string    `json:"qrCode"`
	ScanDate time.Time `json:"scanDate"`
}

// PartQuantity counts the scans of one part on a pallet.
type PartQuantity struct {
	PartID   string `json:"partId"`
	Quantity int    `json:"quantity"`
}
