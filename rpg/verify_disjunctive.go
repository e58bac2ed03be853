package rpg

import "github.com/lexcodex/mapop/task"

// VerifyDisjunctiveLandmark generalizes VerifySingleLandmark to a
// disjunction of facts from the same variable: true iff removing every
// producer of every member fact makes at least one goal unreachable.
func (g *Graph) VerifyDisjunctiveLandmark(facts []Fact, goals []task.Condition) bool {
	excluded := map[int]bool{}
	for _, f := range facts {
		for _, idx := range g.producers[f] {
			excluded[idx] = true
		}
	}
	return !g.reachableExcluding(excluded, goals)
}
