// Package normalize locates the record list inside loosely structured upstream payloads.
package normalize

import (
	"strings"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
)

// SelfPath addresses the payload itself.
const SelfPath = "."

// Path is a dotted key path such as "data.list".
type Path string

// Segments splits the path. SelfPath has no segments.
func (p Path) Segments() []string {
	s := strings.Trim(strings.TrimSpace(string(p)), ".")
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// DefaultRecordPaths is the probe order for /api/data/self.
var DefaultRecordPaths = []Path{"data", "data.data", "data.list", "list", SelfPath}

// DefaultLogPaths is the probe order for /api/log/.
var DefaultLogPaths = []Path{"data.items", "data.data", "data.list", "data", "items", "list", SelfPath}

// Normalizer probes an ordered list of paths; the first list-valued path wins.
type Normalizer struct {
	paths []Path
}

// New creates a Normalizer. An empty path list falls back to DefaultRecordPaths.
func New(paths []Path) *Normalizer {
	if len(paths) == 0 {
		paths = DefaultRecordPaths
	}
	cp := make([]Path, len(paths))
	copy(cp, paths)
	return &Normalizer{paths: cp}
}

// FromStrings creates a Normalizer from configuration values, or falls back to def.
func FromStrings(paths []string, def []Path) *Normalizer {
	if len(paths) == 0 {
		return New(def)
	}
	converted := make([]Path, 0, len(paths))
	for _, p := range paths {
		converted = append(converted, Path(p))
	}
	return New(converted)
}

// Paths returns the probe order.
func (n *Normalizer) Paths() []Path {
	cp := make([]Path, len(n.paths))
	copy(cp, n.paths)
	return cp
}

// Extract returns the first list found and the path that matched.
// An empty list is a match.
func (n *Normalizer) Extract(payload any) ([]any, Path, error) {
	for _, p := range n.paths {
		v, ok := valueAtPath(payload, p.Segments())
		if !ok {
			continue
		}
		if list, ok := v.([]any); ok {
			return list, p, nil
		}
	}
	return nil, "", apperr.ErrNormalization
}

func valueAtPath(payload any, path []string) (any, bool) {
	current := payload
	for _, segment := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := node[segment]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Envelope extracts the standard {success, message} fields when present.
func Envelope(payload any) (success, present bool, message string) {
	root, ok := payload.(map[string]any)
	if !ok {
		return false, false, ""
	}
	raw, ok := root["success"]
	if !ok {
		return false, false, ""
	}
	success, _ = raw.(bool)
	message, _ = root["message"].(string)
	return success, true, message
}

// Object returns the map at path, used for single-object endpoints like /api/user/self.
func Object(payload any, path Path) (map[string]any, bool) {
	v, ok := valueAtPath(payload, path.Segments())
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}
