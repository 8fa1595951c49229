//go:build windows

package tree

import "io/fs"

// Windows ACLs don't map to POSIX-style permission bits, so the walk itself
// reports unreadable roots on this platform.
func checkEnumerable(_ string, _ fs.FileInfo) error {
	return nil
}
