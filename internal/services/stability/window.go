package stability

import "PhiTrade/internal/domain/models"

// trajectoryWindow is a fixed-capacity FIFO ring over trajectory points.
// The detector owns it exclusively; readers get snapshots, never the
// backing array.
type trajectoryWindow struct {
	buf   []models.StabilityTrajectoryPoint
	head  int // next write slot
	count int
}

func newTrajectoryWindow(capacity int) *trajectoryWindow {
	if capacity <= 0 {
		capacity = 100
	}
	return &trajectoryWindow{buf: make([]models.StabilityTrajectoryPoint, capacity)}
}

// push appends a point, evicting the oldest when full.
func (w *trajectoryWindow) push(p models.StabilityTrajectoryPoint) {
	w.buf[w.head] = p
	w.head = (w.head + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

func (w *trajectoryWindow) len() int { return w.count }

// tail returns the most recent n points in chronological order as a copy.
func (w *trajectoryWindow) tail(n int) []models.StabilityTrajectoryPoint {
	if n > w.count {
		n = w.count
	}
	out := make([]models.StabilityTrajectoryPoint, 0, n)
	start := w.head - n
	for start < 0 {
		start += len(w.buf)
	}
	for i := 0; i < n; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}
