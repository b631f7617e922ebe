package constants

import "strings"

// WorkbookExt is the extension of job bill-of-materials workbooks and generated manifests.
const WorkbookExt = "xlsm"

// AllowedExtensions holds the extensions considered when discovering job workbooks.
var AllowedExtensions = map[string]struct{}{
	WorkbookExt: {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsOfficeLockFile reports whether name is an office-suite owner file ("~$...") left
// next to a workbook that is open on a desktop.
func IsOfficeLockFile(name string) bool {
	return strings.HasPrefix(name, "~$")
}
