//go:build !windows

// Package platform hides OS differences in how tree roots are addressed.
package platform

// LongPath returns abs unchanged; only Windows needs a long-path prefix.
func LongPath(abs string) string {
	return abs
}
