//go:build !windows

package tree

import (
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// checkEnumerable fails when the current user lacks read or search permission
// on dir, even if elevated privileges would let the walk proceed.
func checkEnumerable(dir string, info fs.FileInfo) error {
	perms := info.Mode().Perm()

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}

	fileUID := int(stat.Uid)
	fileGID := int(stat.Gid)

	var need fs.FileMode
	switch {
	case fileUID == os.Geteuid():
		need = 0o500
	case fileGID == os.Getegid() || inGroups(fileGID):
		need = 0o050
	default:
		need = 0o005
	}

	if perms&need != need {
		return fmt.Errorf("permission denied listing %s: mode %s", dir, perms)
	}
	return nil
}

func inGroups(gid int) bool {
	groups, err := syscall.Getgroups()
	if err != nil {
		return false
	}
	for _, g := range groups {
		if g == gid {
			return true
		}
	}
	return false
}
