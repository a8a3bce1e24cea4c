package description

// Tags is a single server's tag set, e.g. {"dc": "east", "usage": "prod"}.
type Tags map[string]string

// ContainsAll reports whether t has every key/value pair in other. An empty
// other always matches.
func (t Tags) ContainsAll(other Tags) bool {
	for k, v := range other {
		if t[k] != v {
			return false
		}
	}
	return true
}

// Equal reports whether two tag sets have identical key/value pairs.
func (t Tags) Equal(other Tags) bool {
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		if other[k] != v {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// TagSets is an ordered list of tag maps, as used by a read preference: the
// first map for which at least one server matches wins. An empty TagSets, or
// a TagSets containing only an empty map, matches every server.
type TagSets []Tags

// IsEmptyOrDefault reports whether ts should be treated as "match everything":
// either no tag sets were given, or the only entry is the empty map {{}}.
func (ts TagSets) IsEmptyOrDefault() bool {
	if len(ts) == 0 {
		return true
	}
	if len(ts) == 1 && len(ts[0]) == 0 {
		return true
	}
	return false
}
