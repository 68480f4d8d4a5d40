package models

import (
	"encoding/json"
	"strings"
)

// legacyAgents maps old Plex agent prefixes to canonical namespaces
var legacyAgents = map[string]string{
	"com.plexapp.agents.imdb":       "imdb",
	"com.plexapp.agents.themoviedb": "tmdb",
	"com.plexapp.agents.thetvdb":    "tvdb",
	"com.plexapp.agents.tvdb":       "tvdb",
	"themoviedb":                    "tmdb",
	"thetvdb":                       "tvdb",
}

// NormalizeGUID converts a raw identifier into the canonical
// "<namespace>:<id>" form. Plex style "imdb://tt123", legacy agent GUIDs
// such as "com.plexapp.agents.imdb://tt123?lang=en" and already canonical
// values are accepted. It returns "" when nothing usable remains.
func NormalizeGUID(raw string) string {
	guid := strings.TrimSpace(raw)
	if guid == "" {
		return ""
	}

	var namespace, id string
	if idx := strings.Index(guid, "://"); idx >= 0 {
		namespace, id = guid[:idx], guid[idx+3:]
	} else if idx := strings.Index(guid, ":"); idx >= 0 {
		namespace, id = guid[:idx], guid[idx+1:]
	} else {
		return ""
	}

	namespace = strings.ToLower(strings.TrimSpace(namespace))
	if mapped, ok := legacyAgents[namespace]; ok {
		namespace = mapped
		// Legacy agents append season/episode paths and query strings
		if q := strings.IndexByte(id, '?'); q >= 0 {
			id = id[:q]
		}
		if slash := strings.Index(id, "/"); slash >= 0 {
			id = id[:slash]
		}
	}

	id = strings.TrimSpace(id)
	if namespace == "" || id == "" {
		return ""
	}
	if namespace == "imdb" {
		id = strings.ToLower(id)
	}

	return namespace + ":" + id
}

// ParseGuids accepts either the JSON-encoded array persisted with a watchlist
// row or an already decoded slice. Malformed input yields an empty slice; it
// never panics. Entries are normalized and de-duplicated in order.
func ParseGuids(raw any) []string {
	var values []string

	switch v := raw.(type) {
	case nil:
		return []string{}
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		var decoded []any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return []string{}
		}
		for _, entry := range decoded {
			if s, ok := entry.(string); ok {
				values = append(values, s)
			}
		}
	case []string:
		values = v
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				values = append(values, s)
			}
		}
	default:
		return []string{}
	}

	seen := make(map[string]struct{}, len(values))
	guids := make([]string, 0, len(values))
	for _, value := range values {
		guid := NormalizeGUID(value)
		if guid == "" {
			continue
		}
		if _, dup := seen[guid]; dup {
			continue
		}
		seen[guid] = struct{}{}
		guids = append(guids, guid)
	}
	return guids
}

// EncodeGuids serializes GUIDs the way watchlist rows persist them
func EncodeGuids(guids []string) string {
	if guids == nil {
		guids = []string{}
	}
	data, err := json.Marshal(guids)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// GUIDSet is a set of canonical GUIDs
type GUIDSet map[string]struct{}

// NewGUIDSet builds a set from already canonical GUIDs
func NewGUIDSet(guids ...string) GUIDSet {
	set := make(GUIDSet, len(guids))
	for _, g := range guids {
		set.Add(g)
	}
	return set
}

// Add inserts a GUID; empty values are ignored
func (s GUIDSet) Add(guid string) {
	if guid == "" {
		return
	}
	s[guid] = struct{}{}
}

// Has reports whether guid is in the set
func (s GUIDSet) Has(guid string) bool {
	_, ok := s[guid]
	return ok
}

// Intersects reports whether any of guids is in the set
func (s GUIDSet) Intersects(guids []string) bool {
	for _, g := range guids {
		if s.Has(g) {
			return true
		}
	}
	return false
}

// Len returns the number of GUIDs in the set
func (s GUIDSet) Len() int {
	return len(s)
}

// FirstGUID returns the first GUID or "unknown" when there are none
func FirstGUID(guids []string) string {
	if len(guids) == 0 {
		return "unknown"
	}
	return guids[0]
}
