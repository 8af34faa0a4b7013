package catalog_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
)

func TestValidatePrereqs_Clean(t *testing.T) {
	c := catalog.Catalog{
		"L1": {},
		"L2": {Prereqs: []string{"L1"}},
		"L3": {Prereqs: []string{"L1", "L2"}},
	}

	r := catalog.ValidatePrereqs(c)
	if len(r.Cycles) != 0 || len(r.Dangling) != 0 {
		t.Errorf("report = %+v, want empty", r)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestValidatePrereqs_SelfReference(t *testing.T) {
	c := catalog.Catalog{"L1": {Prereqs: []string{"L1"}}}

	r := catalog.ValidatePrereqs(c)
	if len(r.Cycles) != 1 {
		t.Fatalf("cycles = %d, want 1", len(r.Cycles))
	}
	if want := []string{"L1", "L1"}; !slices.Equal(r.Cycles[0].Path, want) {
		t.Errorf("Path = %v, want %v", r.Cycles[0].Path, want)
	}
}

func TestValidatePrereqs_Cycle(t *testing.T) {
	c := catalog.Catalog{
		"A": {Prereqs: []string{"C"}},
		"B": {Prereqs: []string{"A"}},
		"C": {Prereqs: []string{"B"}},
		"D": {Prereqs: []string{"A"}},
	}

	r := catalog.ValidatePrereqs(c)
	if len(r.Cycles) != 1 {
		t.Fatalf("cycles = %d, want 1: %v", len(r.Cycles), r.Err())
	}
	if want := []string{"A", "C", "B", "A"}; !slices.Equal(r.Cycles[0].Path, want) {
		t.Errorf("Path = %v, want %v", r.Cycles[0].Path, want)
	}
	if !errors.Is(r.Err(), catalog.ErrPrereqCycle) {
		t.Errorf("Err() = %v, want ErrPrereqCycle", r.Err())
	}
}

func TestValidatePrereqs_Dangling(t *testing.T) {
	c := catalog.Catalog{"L2": {Prereqs: []string{"missing"}}}

	r := catalog.ValidatePrereqs(c)
	if len(r.Dangling) != 1 || r.Dangling[0].Prereq != "missing" {
		t.Errorf("Dangling = %+v", r.Dangling)
	}
	if r.Err() != nil {
		t.Error("dangling prerequisites are not cycles")
	}
}
