package entity

import "time"

// JobSummary aggregates the scans recorded for a job.
type JobSummary struct {
	JobNumber     string    `json:"jobNumber"`
	TotalParts    int       `json:"totalParts"`
	TotalScanned  int       `json:"totalScanned"`
	TotalPallets  int       `json:"totalPallets"`
	TotalExpected int       `json:"totalExpected"`
	LastScanDate  time.Time `json:"lastScanDate"`
}

// PartScanSummary aggregates the scans of one part within a job.
type PartScanSummary struct {
	PartID       string    `json:"partId"`
	ScannedCount int       `json:"scannedCount"`
	LastScanDate time.Time `json:"lastScanDate"`
	Pallets      []string  `json:"pallets"`
}

// PartScan is one scan of a part, with the pallet it went on.
type PartScan struct {
	PartID     string    `json:"partId,omitempty"`
	QRCode     string    `json:"qrCode"`
	PalletName string    `json:"palletName"`
	ScanDate   time.Time `json:"scanDate"`
	ScannedBy  string    `json:"scannedBy,omitempty"`
}

// DashboardStats are the shop-wide counters.
type DashboardStats struct {
	TotalJobs         int    `json:"totalJobs"`
	TotalUniqueParts  int    `json:"totalUniqueParts"`
	TotalScannedItems int    `json:"totalScannedItems"`
	LatestJob         string `json:"latestJob"`
	TotalPallets      int    `json:"totalPallets"`
}
