package quality

import "time"

// Sample is one frame's performance reading. The controller only ever reads
// samples; it never writes back into the metrics source.
type Sample struct {
	FPS       float64
	FrameTime time.Duration
	DrawCalls int
	Vertices  int
}

// Monitor keeps a fixed-size rolling window of frame samples and serves
// aggregate views of it. It is not safe for concurrent use; the simulation
// records and reads from the tick goroutine only.
type Monitor struct {
	samples []Sample
	next    int
	filled  bool
}

// NewMonitor creates a monitor with a rolling window of the given size.
func NewMonitor(window int) *Monitor {
	if window < 1 {
		window = 1
	}
	return &Monitor{samples: make([]Sample, window)}
}

// Record appends a sample, evicting the oldest once the window is full.
func (m *Monitor) Record(s Sample) {
	m.samples[m.next] = s
	m.next++
	if m.next == len(m.samples) {
		m.next = 0
		m.filled = true
	}
}

// Len reports how many samples the window currently holds.
func (m *Monitor) Len() int {
	if m.filled {
		return len(m.samples)
	}
	return m.next
}

// Latest returns the most recent sample.
func (m *Monitor) Latest() (Sample, bool) {
	if m.Len() == 0 {
		return Sample{}, false
	}
	idx := m.next - 1
	if idx < 0 {
		idx = len(m.samples) - 1
	}
	return m.samples[idx], true
}

// AverageFPS is the mean fps over the current window.
func (m *Monitor) AverageFPS() float64 {
	n := m.Len()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += m.at(i).FPS
	}
	return sum / float64(n)
}

// AverageFrameTime is the mean frame time over the current window.
func (m *Monitor) AverageFrameTime() time.Duration {
	n := m.Len()
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < n; i++ {
		sum += m.at(i).FrameTime
	}
	return sum / time.Duration(n)
}

// at indexes samples oldest-first.
func (m *Monitor) at(i int) Sample {
	if !m.filled {
		return m.samples[i]
	}
	return m.samples[(m.next+i)%len(m.samples)]
}
