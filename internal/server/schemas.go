package server

import "github.com/santhosh-tekuri/jsonschema/v5"

var (
	scanSchema = jsonschema.MustCompileString("scan.json", `{
		"type": "object",
		"required": ["jobNumber", "qrCode"],
		"properties": {
			"jobNumber": {"type": "string", "minLength": 1},
			"qrCode":    {"type": "string", "minLength": 1},
			"palletId":  {"type": "integer"}
		}
	}`)

	deleteScanSchema = jsonschema.MustCompileString("delete-scan.json", `{
		"type": "object",
		"required": ["qrCode", "palletId"],
		"properties": {
			"qrCode":   {"type": "string", "minLength": 1},
			"palletId": {"type": "integer", "minimum": 1}
		}
	}`)

	createPalletSchema = jsonschema.MustCompileString("create-pallet.json", `{
		"type": "object",
		"required": ["jobNumber"],
		"properties": {
			"jobNumber": {"type": "string"}
		}
	}`)

	renamePalletSchema = jsonschema.MustCompileString("rename-pallet.json", `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`)

	packagingSchema = jsonschema.MustCompileString("packaging.json", `{
		"type": "object",
		"properties": {
			"palLong":  {"type": "string"},
			"palLarg":  {"type": "string"},
			"palHaut":  {"type": "string"},
			"notes":    {"type": "string"},
			"palFinal": {"type": "boolean"}
		}
	}`)
)
