package queue

import "time"

// rollingWindow keeps the last size samples for averaging.
type rollingWindow struct {
	samples []time.Duration
	next    int
	sum     time.Duration
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{samples: make([]time.Duration, 0, size)}
}

func (w *rollingWindow) add(d time.Duration) {
	if len(w.samples) < cap(w.samples) {
		w.samples = append(w.samples, d)
		w.sum += d
		return
	}
	w.sum += d - w.samples[w.next]
	w.samples[w.next] = d
	w.next = (w.next + 1) % len(w.samples)
}

func (w *rollingWindow) average() time.Duration {
	if len(w.samples) == 0 {
		return 0
	}
	return w.sum / time.Duration(len(w.samples))
}

func (w *rollingWindow) len() int { return len(w.samples) }
