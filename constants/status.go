package constants

// Operator-facing messages. The shop floor UI displays these verbatim.
const (
	MsgTagValid          = "Tag validé !"
	MsgFileNotFound      = "Fichier Excel introuvable !"
	MsgPartNotFound      = "PartID introuvable dans Excel !"
	MsgQuantityMismatch  = "Erreur QTE : Attendu %d, Scanné %d"
	MsgScanOK            = "Scan Réussi"
	MsgPalletRequired    = "Une palette doit être sélectionnée pour scanner des pièces"
	MsgPalletNotFound    = "Palette introuvable"
	MsgPalletJobMismatch = "Le numéro de job ne correspond pas à celui de la palette sélectionnée"
	MsgDuplicateQRCode   = "Ce Code QR a déjà été scanné"
	MsgScanNotFound      = "Scan non trouvé"
	MsgScanDeleted       = "Scan supprimé avec succès"
	MsgPackagingCreated  = "Fichier d'emballage créé avec succès"
	MsgPackagingNoScans  = "Aucune information trouvée pour cette palette"
)

// PalletNamePrefix prefixes the generated pallet names (PAL1, PAL2, ...).
const PalletNamePrefix = "PAL"

// DeletedScansRetained is how many archived deletions are kept.
const DeletedScansRetained = 1000

// Messages of the pallet and scan endpoints.
const (
	MsgPalletUpdated      = "Palette mise à jour avec succès"
	MsgPalletDeleted      = "Palette supprimée avec succès"
	MsgInvalidJobNumber   = "JobNumber invalide."
	MsgScanUnauthorized   = "L'utilisateur doit être authentifié pour scanner des pièces"
	MsgDeleteUnauthorized = "L'utilisateur doit être authentifié pour supprimer des scans"
)
