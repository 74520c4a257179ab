package names

// Set is an insertion-ordered map from name to metadata. Keys keep the order
// in which they were first seen; metadata is overwritten by later puts.
type Set struct {
	order  []string
	byName map[string]Name
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{byName: make(map[string]Name)}
}

// Put adds n, or replaces the metadata of an existing entry with the same name.
func (s *Set) Put(n Name) {
	if _, ok := s.byName[n.Name]; !ok {
		s.order = append(s.order, n.Name)
	}
	s.byName[n.Name] = n
}

// PutAll puts every name in ns.
func (s *Set) PutAll(ns []Name) {
	for _, n := range ns {
		s.Put(n)
	}
}

// Get returns the entry for name.
func (s *Set) Get(name string) (Name, bool) {
	n, ok := s.byName[name]
	return n, ok
}

// Has reports whether name is present.
func (s *Set) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Len returns the number of distinct names.
func (s *Set) Len() int {
	return len(s.order)
}

// Keys returns the names in first-seen order.
func (s *Set) Keys() []string {
	return append([]string(nil), s.order...)
}

// Names returns the entries in first-seen order.
func (s *Set) Names() []Name {
	out := make([]Name, len(s.order))
	for i, k := range s.order {
		out[i] = s.byName[k]
	}
	return out
}

// Lookup maps names back to their entries, skipping unknown ones.
func (s *Set) Lookup(keys []string) []Name {
	out := make([]Name, 0, len(keys))
	for _, k := range keys {
		if n, ok := s.byName[k]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Merge unions the given layers in order. A later layer never drops a name
// from an earlier one but does win on metadata.
func Merge(layers ...[]Name) *Set {
	s := NewSet()
	for _, layer := range layers {
		s.PutAll(layer)
	}
	return s
}
