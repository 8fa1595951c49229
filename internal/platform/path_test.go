//go:build !windows

package platform

import "testing"

func TestLongPathIsIdentityOffWindows(t *testing.T) {
	for _, p := range []string{"/srv/releases/v2", "relative/dir", ""} {
		if got := LongPath(p); got != p {
			t.Errorf("LongPath(%q) = %q", p, got)
		}
	}
}
