package media

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationResult contains the result of file validation
type ValidationResult struct {
	Readable bool     // File exists and is accessible
	Reasons  []string // Human-readable problems
}

// ValidateFile checks if a file exists and is readable
func ValidateFile(filePath string) ValidationResult {
	result := ValidationResult{Reasons: []string{}}

	info, err := os.Stat(filePath)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			result.Reasons = append(result.Reasons, "file does not exist")
		case os.IsPermission(err):
			result.Reasons = append(result.Reasons, "file is not readable (permission denied)")
		default:
			result.Reasons = append(result.Reasons, "file access error: "+err.Error())
		}
		return result
	}

	if info.IsDir() {
		result.Reasons = append(result.Reasons, "path is a directory, not a file")
		return result
	}

	// Open the file to verify read permissions
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsPermission(err) {
			result.Reasons = append(result.Reasons, "file is not readable (permission denied)")
		} else {
			result.Reasons = append(result.Reasons, "cannot open file: "+err.Error())
		}
		return result
	}
	_ = file.Close()

	result.Readable = true
	return result
}

// IsSupportedFormat reports whether the file extension is one of formats.
// Formats are given without the leading dot.
func IsSupportedFormat(filePath string, formats []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	if ext == "" {
		return false
	}
	return slices.Contains(formats, ext)
}
