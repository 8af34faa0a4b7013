package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrPrereqCycle marks a lesson whose prerequisite chain leads back to itself.
// Such lessons stay in the catalog but can never become eligible.
var ErrPrereqCycle = errors.New("prerequisite cycle")

// CycleError lists the lessons forming one prerequisite cycle, starting and
// ending at the smallest id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPrereqCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrPrereqCycle
}

// DanglingPrereq is a prerequisite id with no lesson in the catalog.
type DanglingPrereq struct {
	LessonID string
	Prereq   string
}

// Report is the outcome of ValidatePrereqs.
type Report struct {
	Cycles   []*CycleError
	Dangling []DanglingPrereq
}

// Err joins every cycle into one error, or returns nil.
func (r Report) Err() error {
	if len(r.Cycles) == 0 {
		return nil
	}
	errs := make([]error, len(r.Cycles))
	for i, c := range r.Cycles {
		errs[i] = c
	}
	return errors.Join(errs...)
}

// ValidatePrereqs walks the prerequisite graph depth first and reports each
// cycle closed by a back edge (self references included) and every
// prerequisite pointing at an unknown lesson. Output order is deterministic.
func ValidatePrereqs(c Catalog) Report {
	var r Report

	ids := c.IDs()
	slices.Sort(ids)

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(c))
	seen := make(map[string]bool)
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)

		prereqs := slices.Clone(c[id].Prereqs)
		slices.Sort(prereqs)
		for _, p := range prereqs {
			if _, ok := c[p]; !ok {
				continue
			}
			switch color[p] {
			case white:
				visit(p)
			case grey:
				start := slices.Index(stack, p)
				cycle := canonicalCycle(stack[start:])
				key := strings.Join(cycle, "\x00")
				if !seen[key] {
					seen[key] = true
					r.Cycles = append(r.Cycles, &CycleError{Path: cycle})
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range ids {
		for _, p := range c[id].Prereqs {
			if _, ok := c[p]; !ok {
				r.Dangling = append(r.Dangling, DanglingPrereq{LessonID: id, Prereq: p})
			}
		}
		if color[id] == white {
			visit(id)
		}
	}

	return r
}

// canonicalCycle rotates nodes so the smallest id comes first and closes the
// loop, e.g. [b c a] becomes [a b c a].
func canonicalCycle(nodes []string) []string {
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(nodes)+1)
	out = append(out, nodes[minIdx:]...)
	out = append(out, nodes[:minIdx]...)
	return append(out, out[0])
}
