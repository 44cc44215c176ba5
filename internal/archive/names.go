package archive

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeChars   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	repeatedUnder = regexp.MustCompile(`_{2,}`)
)

// Sanitize flattens an archive path into a single safe file name. Every
// character outside [a-zA-Z0-9._-] becomes '_' and runs of '_' collapse to
// one. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	return repeatedUnder.ReplaceAllString(unsafeChars.ReplaceAllString(name, "_"), "_")
}

// NameAllocator hands out distinct sanitized names within one session.
// It is not safe for concurrent use.
type NameAllocator struct {
	used map[string]bool
}

// NewNameAllocator creates an empty allocator.
func NewNameAllocator() *NameAllocator {
	return &NameAllocator{used: make(map[string]bool)}
}

// Allocate returns the sanitized form of path, disambiguated with the
// entry's archive index when that name was already handed out.
func (a *NameAllocator) Allocate(path string, index int) string {
	name := Sanitize(path)
	if name == "" || strings.Trim(name, ".") == "" {
		name = fmt.Sprintf("entry_%d", index)
	}

	if a.used[name] {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		candidate := fmt.Sprintf("%s_%d%s", base, index, ext)
		for n := 2; a.used[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d_%d%s", base, index, n, ext)
		}
		name = candidate
	}

	a.used[name] = true
	return name
}

// Reserve marks name as taken without allocating it.
func (a *NameAllocator) Reserve(name string) {
	a.used[name] = true
}
