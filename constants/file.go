package constants

import "strings"

// Source formats stored in import_jobs.format.
const (
	IMAGE = "IMAGE"
	PDF   = "PDF"
	SHEET = "SHEET"
)

// FileTypes holds the allowed values for the format field in ImportJob.
var FileTypes = []string{IMAGE, PDF, SHEET}

// AllowedExtensions holds the default allowed file extensions for attendance ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"xlsx": {},
	"xls":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns IMAGE, PDF or SHEET for a known extension and "" otherwise.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg", "png", "gif", "bmp":
		return IMAGE
	case "pdf":
		return PDF
	case "xlsx", "xls":
		return SHEET
	default:
		return ""
	}
}

// IsAllowedExt reports whether ext is accepted for ingestion.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
