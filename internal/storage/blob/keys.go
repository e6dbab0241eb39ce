// Package blob stores insight files and staged draft content in an object
// store. Keys use forward slashes regardless of backend.
package blob

import (
	"path"
	"strings"
)

// FileKey is where the published copy of a repository file lives.
func FileKey(fullName, relPath string) string {
	return path.Join("insights", fullName, "files", relPath)
}

// ConversionKey is where the converter writes a rendition of a file.
func ConversionKey(fullName, relPath, ext string) string {
	return path.Join("insights", fullName, "conversions", relPath) + "." + strings.TrimPrefix(ext, ".")
}

// DraftFileKey is where unpublished draft content is staged.
func DraftFileKey(draftKey, fileID string) string {
	return path.Join("drafts", draftKey, "files", fileID)
}
