package docstore

import (
	"fmt"
	"strings"
)

const invalidSegmentChars = ".#$[]"

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidatePath checks that every segment is non-empty and free of the
// characters reserved by document stores.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		if strings.ContainsAny(seg, invalidSegmentChars) {
			return fmt.Errorf("%w: segment %q contains one of %q", ErrInvalidPath, seg, invalidSegmentChars)
		}
	}
	return nil
}

// ValidateSegment checks a single caller-supplied segment such as an id.
func ValidateSegment(seg string) error {
	if seg == "" || strings.Contains(seg, "/") {
		return fmt.Errorf("%w: bad segment %q", ErrInvalidPath, seg)
	}
	return ValidatePath(seg)
}

// Parent returns the path without its last segment, or "" for a root.
func Parent(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

// Base returns the last segment of path.
func Base(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
