package vm

import (
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// Symbol table tests
// ---------------------------------------------------------------------------

func TestSymbolTableInsertLookup(t *testing.T) {
	tab := NewSymbolTable()
	tab.Insert("main", 1)
	tab.Insert("turn-around", 12)

	pc, ok := tab.Lookup("main")
	if !ok || pc != 1 {
		t.Errorf("Lookup(main) = (%d,%v), want (1,true)", pc, ok)
	}
	if _, ok := tab.Lookup("missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
}

func TestSymbolTableOverwrite(t *testing.T) {
	tab := NewSymbolTable()
	tab.Insert("main", 1)
	tab.Insert("main", 9)
	if pc, _ := tab.Lookup("main"); pc != 9 {
		t.Errorf("Lookup after overwrite = %d, want 9", pc)
	}
	if tab.Len() != 1 {
		t.Errorf("Len = %d, want 1", tab.Len())
	}
}

func TestSymbolTableClear(t *testing.T) {
	tab := NewSymbolTable()
	tab.Insert("main", 1)
	tab.Clear()
	if tab.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", tab.Len())
	}
	if _, ok := tab.Lookup("main"); ok {
		t.Error("Lookup after Clear should fail")
	}
}

func TestSymbolTableEachSorted(t *testing.T) {
	tab := NewSymbolTable()
	tab.Insert("zig", 30)
	tab.Insert("alpha", 10)
	tab.Insert("mid", 20)

	var names []string
	var pcs []int
	tab.Each(func(name string, pc int) {
		names = append(names, name)
		pcs = append(pcs, pc)
	})

	if !reflect.DeepEqual(names, []string{"alpha", "mid", "zig"}) {
		t.Errorf("Each order = %v", names)
	}
	if !reflect.DeepEqual(pcs, []int{10, 20, 30}) {
		t.Errorf("Each pcs = %v", pcs)
	}
	if !reflect.DeepEqual(tab.Names(), names) {
		t.Errorf("Names = %v, want %v", tab.Names(), names)
	}
}
