// Package pathmap reinterprets path strings of unknown origin OS and re-roots
// them under a fixed local mount prefix. Classification and splitting are
// pure string operations selected by input shape alone; only the final join
// uses the host's path semantics.
package pathmap

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the detected origin OS of a path string.
type Kind string

const (
	KindWindows Kind = "windows"
	KindPOSIX   Kind = "posix"
	KindUnknown Kind = "unknown"
)

var (
	windowsPattern = regexp.MustCompile(`^[A-Za-z]:\\.+$`)
	posixPattern   = regexp.MustCompile(`^/([^/]+/)*[^/]+$`)
)

// Classify detects the origin OS of a path by its shape.
func Classify(path string) Kind {
	switch {
	case windowsPattern.MatchString(path):
		return KindWindows
	case posixPattern.MatchString(path):
		return KindPOSIX
	default:
		return KindUnknown
	}
}

// Split breaks a path of unknown origin into its components, left to right.
// Windows-shaped paths keep their UNC or drive-letter token as the first
// segment; everything else goes through the generic POSIX-style splitter.
// An empty input yields a single empty segment, which callers must guard.
func Split(path string) []string {
	if Classify(path) == KindWindows || strings.HasPrefix(path, `\\`) {
		return splitWindows(path)
	}
	return splitGeneric(path)
}

// splitWindows splits on backslashes, peeling a UNC prefix or drive letter
// off as its own segment first. Consecutive separators produce no empty
// segments.
func splitWindows(path string) []string {
	var parts []string

	rest := path
	switch {
	case strings.HasPrefix(rest, `\\`):
		parts = append(parts, rest[:2])
		rest = rest[2:]
	case len(rest) >= 2 && rest[1] == ':':
		parts = append(parts, rest[:2])
		rest = rest[2:]
	}

	for _, seg := range strings.Split(rest, `\`) {
		if seg != "" {
			parts = append(parts, seg)
		}
	}

	if len(parts) == 0 {
		// Relative path with a single component and no separators.
		parts = append(parts, rest)
	}
	return parts
}

// splitGeneric splits a POSIX-shaped or unknown path on forward slashes.
// Absolute paths keep "/" as their first segment, mirroring repeated
// dirname/basename peeling without depending on the host OS.
func splitGeneric(path string) []string {
	if path == "" {
		return []string{""}
	}

	var parts []string
	if strings.HasPrefix(path, "/") {
		parts = append(parts, "/")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, path)
	}
	return parts
}

// Normalize re-roots a foreign path under the mount prefix using local path
// semantics. The drive-letter or UNC token from the source value is kept as
// an ordinary segment under the mount root; callers relying on that should
// see the tests for the exact shape.
func Normalize(mountPrefix, path string) string {
	segments := append([]string{mountPrefix}, Split(path)...)
	return filepath.Join(segments...)
}
