//go:build windows

package platform

import (
	"path/filepath"
	"strings"
)

// LongPath prefixes drive-letter absolute paths with \\?\ so deep trees
// beyond MAX_PATH can still be walked.
func LongPath(abs string) string {
	if len(abs) < 2 || abs[1] != ':' || !filepath.IsAbs(abs) {
		return abs
	}
	if strings.HasPrefix(abs, `\\?\`) {
		return abs
	}
	return `\\?\` + filepath.Clean(abs)
}
