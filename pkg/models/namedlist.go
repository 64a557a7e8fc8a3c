package models

import "sort"

// NamedLists maps a list name to an ordered sequence of participant names.
type NamedLists map[string][]string

// Names returns the list names in sorted order.
func (n NamedLists) Names() []string {
	names := make([]string, 0, len(n))
	for name := range n {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (n NamedLists) Clone() NamedLists {
	out := make(NamedLists, len(n))
	for name, members := range n {
		out[name] = append([]string(nil), members...)
	}
	return out
}
