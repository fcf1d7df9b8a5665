// Package trip holds the packing-checklist and shopping-list state shared by
// the two travellers. Transitions are pure: they return updated copies and
// leave persistence to the storage layer.
package trip

import (
	"encoding/json"
	"errors"
	"strings"
)

// Named state documents persisted in local storage.
const (
	StateCheckedItems = "checked_items"
	StateChecklist    = "checklist"
	StateShoppingList = "shopping_list"
)

// ErrUnknownState is returned for state names the service does not manage.
var ErrUnknownState = errors.New("unknown state name")

// KnownState reports whether name is one of the managed state documents.
func KnownState(name string) bool {
	switch name {
	case StateCheckedItems, StateChecklist, StateShoppingList:
		return true
	}
	return false
}

// Item is a single list entry.
type Item struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// List is an ordered list of named items. All transitions preserve order
// and return a new slice.
type List []Item

// ParseList decodes a stored list document. An empty payload is an empty list.
func ParseList(data []byte) (List, error) {
	if len(data) == 0 {
		return List{}, nil
	}
	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return l, nil
}

// JSON encodes the list for storage. A nil list encodes as [].
func (l List) JSON() ([]byte, error) {
	if l == nil {
		l = List{}
	}
	return json.Marshal(l)
}

// Has reports whether an item with the given name exists.
func (l List) Has(name string) bool {
	for _, it := range l {
		if it.Name == name {
			return true
		}
	}
	return false
}

// Add appends a new undone item. Blank names and duplicates are no-ops.
func (l List) Add(name string) List {
	name = strings.TrimSpace(name)
	if name == "" || l.Has(name) {
		return l.clone()
	}
	out := l.clone()
	return append(out, Item{Name: name})
}

// Remove drops the item with the given name, if present.
func (l List) Remove(name string) List {
	out := make(List, 0, len(l))
	for _, it := range l {
		if it.Name != name {
			out = append(out, it)
		}
	}
	return out
}

// Toggle flips the done flag of the named item. Unknown names are no-ops.
func (l List) Toggle(name string) List {
	out := l.clone()
	for i := range out {
		if out[i].Name == name {
			out[i].Done = !out[i].Done
			break
		}
	}
	return out
}

// DoneCount returns how many items are done.
func (l List) DoneCount() int {
	n := 0
	for _, it := range l {
		if it.Done {
			n++
		}
	}
	return n
}

func (l List) clone() List {
	out := make(List, len(l))
	copy(out, l)
	return out
}

// CheckedSet tracks which fixed checklist entries are ticked, keyed by the
// entry's label.
type CheckedSet map[string]bool

// ParseCheckedSet decodes a stored checked-items document.
func ParseCheckedSet(data []byte) (CheckedSet, error) {
	if len(data) == 0 {
		return CheckedSet{}, nil
	}
	var s CheckedSet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s == nil {
		s = CheckedSet{}
	}
	return s, nil
}

// JSON encodes the set for storage.
func (s CheckedSet) JSON() ([]byte, error) {
	if s == nil {
		s = CheckedSet{}
	}
	return json.Marshal(s)
}

// Toggle flips an entry, removing it when it becomes unticked so the stored
// document only carries positive marks.
func (s CheckedSet) Toggle(key string) CheckedSet {
	out := make(CheckedSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	if out[key] {
		delete(out, key)
	} else {
		out[key] = true
	}
	return out
}
