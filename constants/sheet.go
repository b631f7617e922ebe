package constants

// Sheet names expected in job workbooks.
const (
	SheetControl = "CONTROLE"
	SheetProject = "PROJET"
	// SheetManifest is the sheet written in generated packaging manifests.
	SheetManifest = "EMBALLAGE"
)
