package safety

import "hash/fnv"

// Allocation holds an A/B test's treatment percentage.
type Allocation struct {
	// Percent of subjects routed to the treatment arm, in [0, 100].
	Percent int `yaml:"percent"`
}

// bucket hashes a stable subject identifier into [0, 100). The same
// subject always lands in the same bucket, which is what guarantees
// consistent arm assignment across calls.
func bucket(subject string) int {
	h := fnv.New32a()
	h.Write([]byte(subject))
	return int(h.Sum32() % 100)
}

// InTreatment reports whether the subject falls inside the treatment arm
// for this allocation.
func (a Allocation) InTreatment(subject string) bool {
	if a.Percent <= 0 {
		return false
	}
	if a.Percent >= 100 {
		return true
	}
	return bucket(subject) < a.Percent
}

// Arm returns "treatment" or "control" for the subject.
func (a Allocation) Arm(subject string) string {
	if a.InTreatment(subject) {
		return "treatment"
	}
	return "control"
}
