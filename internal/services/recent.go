package services

// RecentWindowSize is how many served words a user is shielded from seeing again.
const RecentWindowSize = 5

// RecentWindow is an ordered set of the most recently served word ids,
// oldest first. Re-inserting an id moves it to the tail.
type RecentWindow struct {
	ids []int64
}

func NewRecentWindow(ids []int64) *RecentWindow {
	w := &RecentWindow{ids: make([]int64, 0, RecentWindowSize+1)}
	for _, id := range ids {
		w.Insert(id)
	}
	return w
}

func (w *RecentWindow) Insert(id int64) {
	for i, v := range w.ids {
		if v == id {
			w.ids = append(w.ids[:i], w.ids[i+1:]...)
			break
		}
	}
	w.ids = append(w.ids, id)
	if len(w.ids) > RecentWindowSize {
		w.ids = append(w.ids[:0], w.ids[len(w.ids)-RecentWindowSize:]...)
	}
}

func (w *RecentWindow) Contains(id int64) bool {
	for _, v := range w.ids {
		if v == id {
			return true
		}
	}
	return false
}

// IDs returns a copy, oldest first.
func (w *RecentWindow) IDs() []int64 {
	out := make([]int64, len(w.ids))
	copy(out, w.ids)
	return out
}

func (w *RecentWindow) Len() int { return len(w.ids) }
