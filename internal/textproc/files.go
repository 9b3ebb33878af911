package textproc

import (
	"path/filepath"
	"strings"
)

// FileType constants
const (
	FileTypePDF = "pdf"
	FileTypeTXT = "txt"
	FileTypeMD  = "md"
)

// DetectFileType returns the lower-case extension of filename without the dot
func DetectFileType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".markdown":
		return FileTypeMD
	case "":
		return ""
	default:
		return ext[1:] // remove leading dot
	}
}

// IsAllowed checks fileType against the configured list
func IsAllowed(fileType string, allowed []string) bool {
	for _, a := range allowed {
		if a == fileType {
			return true
		}
	}
	return false
}

var unsafeFilename = strings.NewReplacer(
	"..", "_", "/", "_", `\`, "_", "<", "_", ">", "_",
	":", "_", `"`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename replaces path and shell metacharacters with underscores
func SanitizeFilename(name string) string {
	name = unsafeFilename.Replace(strings.TrimSpace(name))
	if name == "" {
		return "unnamed"
	}
	return name
}
