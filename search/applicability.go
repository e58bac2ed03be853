package search

import "github.com/lexcodex/mapop/task"

// supportable reports whether every precondition of a is already
// satisfied along the base plan's linearization, independent of
// ordering: an EQUAL precondition on a variable a itself also writes
// needs lastValues[var] to be either unset or already equal to the
// required value; otherwise it needs ⟨var,value⟩ present in
// hashEffects. A DISTINCT precondition needs some asserted value for
// var other than the forbidden one.
func supportable(a task.Action, hashEffects map[task.Condition]bool, lastValues map[int]int) bool {
	for _, p := range a.Preconditions {
		if _, writes := a.EffectValue(p.Var); writes && p.Kind == task.Equal {
			if lv, set := lastValues[p.Var]; set && lv != p.Value {
				return false
			}
			continue
		}
		switch p.Kind {
		case task.Equal:
			if !hashEffects[task.Condition{Var: p.Var, Value: p.Value, Kind: task.Equal}] {
				return false
			}
		case task.Distinct:
			found := false
			for c := range hashEffects {
				if c.Var == p.Var && c.Value != p.Value {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
