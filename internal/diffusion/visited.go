package diffusion

// visitedSet tracks visited vertices with an epoch stamp so that
// resetting between samples is O(1).
type visitedSet struct {
	marks []uint32
	epoch uint32
}

func newVisitedSet(n int) *visitedSet {
	return &visitedSet{marks: make([]uint32, n), epoch: 1}
}

// reset starts a new sample. Marks are cleared only when the epoch wraps.
func (v *visitedSet) reset() {
	v.epoch++
	if v.epoch == 0 {
		clear(v.marks)
		v.epoch = 1
	}
}

// checkAndVisit reports whether id was already visited and marks it.
func (v *visitedSet) checkAndVisit(id uint32) bool {
	if v.marks[id] == v.epoch {
		return true
	}
	v.marks[id] = v.epoch
	return false
}

func (v *visitedSet) visited(id uint32) bool {
	return v.marks[id] == v.epoch
}
