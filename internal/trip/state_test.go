package trip

import (
	"testing"
)

func TestKnownState(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{StateCheckedItems, true},
		{StateChecklist, true},
		{StateShoppingList, true},
		{"budget", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := KnownState(tt.name); got != tt.want {
			t.Errorf("KnownState(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestListAdd(t *testing.T) {
	l := List{}

	l = l.Add("暖暖包")
	l = l.Add("  日幣  ")
	l = l.Add("暖暖包") // duplicate
	l = l.Add("")     // blank

	if len(l) != 2 {
		t.Fatalf("len = %d, want 2", len(l))
	}
	if l[0].Name != "暖暖包" || l[1].Name != "日幣" {
		t.Errorf("items = %+v", l)
	}
	if l[0].Done || l[1].Done {
		t.Error("new items should start undone")
	}
}

func TestListRemove(t *testing.T) {
	l := List{{Name: "a"}, {Name: "b", Done: true}, {Name: "c"}}

	l = l.Remove("b")
	if len(l) != 2 || l.Has("b") {
		t.Errorf("after remove: %+v", l)
	}

	l = l.Remove("missing")
	if len(l) != 2 {
		t.Errorf("remove of missing item changed list: %+v", l)
	}
}

func TestListToggle(t *testing.T) {
	l := List{{Name: "a"}, {Name: "b"}}

	l = l.Toggle("a")
	if !l[0].Done || l[1].Done {
		t.Errorf("after first toggle: %+v", l)
	}

	l = l.Toggle("a")
	if l[0].Done {
		t.Errorf("after second toggle: %+v", l)
	}

	same := l.Toggle("missing")
	if len(same) != 2 || same[0].Done || same[1].Done {
		t.Errorf("toggle of missing item changed list: %+v", same)
	}
}

func TestListTransitionsArePure(t *testing.T) {
	orig := List{{Name: "a"}}

	_ = orig.Add("b")
	_ = orig.Toggle("a")
	_ = orig.Remove("a")

	if len(orig) != 1 || orig[0].Done {
		t.Errorf("original mutated: %+v", orig)
	}
}

func TestListJSONRoundTrip(t *testing.T) {
	l := List{{Name: "票券", Done: true}, {Name: "零食"}}

	data, err := l.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	parsed, err := ParseList(data)
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(parsed) != 2 || parsed[0].Name != "票券" || !parsed[0].Done {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestParseListEdgeCases(t *testing.T) {
	if l, err := ParseList(nil); err != nil || len(l) != 0 {
		t.Errorf("ParseList(nil) = %v, %v", l, err)
	}
	if _, err := ParseList([]byte(`{"not":"a list"}`)); err == nil {
		t.Error("ParseList should reject non-array payload")
	}

	var nilList List
	data, err := nilList.JSON()
	if err != nil || string(data) != "[]" {
		t.Errorf("nil List JSON = %s, %v", data, err)
	}
}

func TestListDoneCount(t *testing.T) {
	l := List{{Name: "a", Done: true}, {Name: "b"}, {Name: "c", Done: true}}
	if got := l.DoneCount(); got != 2 {
		t.Errorf("DoneCount = %d, want 2", got)
	}
}

func TestCheckedSetToggle(t *testing.T) {
	s := CheckedSet{}

	s = s.Toggle("護照")
	if !s["護照"] {
		t.Errorf("after toggle on: %v", s)
	}

	s = s.Toggle("護照")
	if _, exists := s["護照"]; exists {
		t.Errorf("unticked entry should be removed, got %v", s)
	}
}

func TestCheckedSetJSONRoundTrip(t *testing.T) {
	s := CheckedSet{"護照": true, "JR Pass": true}

	data, err := s.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	parsed, err := ParseCheckedSet(data)
	if err != nil {
		t.Fatalf("ParseCheckedSet: %v", err)
	}
	if len(parsed) != 2 || !parsed["JR Pass"] {
		t.Errorf("parsed = %v", parsed)
	}

	if empty, err := ParseCheckedSet(nil); err != nil || len(empty) != 0 {
		t.Errorf("ParseCheckedSet(nil) = %v, %v", empty, err)
	}
}
