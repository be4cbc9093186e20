package mirror

import (
	"fmt"
	"strings"
)

// bannedChars are rejected by at least one mainstream filesystem.
const bannedChars = `<>:"/\|?*`

// Sanitize turns a remote title into a name safe to use on disk: banned
// characters are dropped, newlines become spaces, surrounding whitespace is
// trimmed.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case strings.ContainsRune(bannedChars, r):
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// nameRegistry resolves sanitized-name collisions inside one directory.
// Two distinct remote ids whose titles sanitize to the same name get
// deterministic " (2)", " (3)" suffixes in traversal order; the same id
// always gets the same name back.
type nameRegistry struct {
	byID map[string]string
	used map[string]bool
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{
		byID: make(map[string]string),
		used: make(map[string]bool),
	}
}

// Claim reserves and returns the on-disk base name for the given remote id
// and raw title. An empty id claims a name without memoizing it.
func (r *nameRegistry) Claim(id, rawTitle string) string {
	if id != "" {
		if name, ok := r.byID[id]; ok {
			return name
		}
	}

	base := Sanitize(rawTitle)
	if base == "" {
		base = "untitled"
	}

	name := base
	for n := 2; r.used[strings.ToLower(name)]; n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	r.used[strings.ToLower(name)] = true
	if id != "" {
		r.byID[id] = name
	}
	return name
}
