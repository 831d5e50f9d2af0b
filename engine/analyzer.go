package engine

import (
	"math"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
)

// AnalyzerSize is the number of most recent output samples kept for display.
const AnalyzerSize = 1024

// Analyzer keeps the latest AnalyzerSize output samples. There is one writer,
// the render thread, and any number of readers; neither side ever waits. A
// snapshot taken while the writer is running may mix samples from
// neighbouring blocks, but every sample in it is one that was written.
type Analyzer struct {
	samples [AnalyzerSize]atomic.Uint32
	written atomic.Uint64
}

// Push appends a sample, evicting the oldest once the analyzer is full. Only
// the render thread may call it.
func (a *Analyzer) Push(v float32) {
	n := a.written.Load()
	a.samples[n%AnalyzerSize].Store(math.Float32bits(v))
	a.written.Store(n + 1)
}

// Len is the number of samples held, at most AnalyzerSize.
func (a *Analyzer) Len() int {
	return int(min(a.written.Load(), AnalyzerSize))
}

func (a *Analyzer) Reset() {
	a.written.Store(0)
}

// Snapshot appends the held samples to dst, oldest first, and returns it.
func (a *Analyzer) Snapshot(dst []float32) []float32 {
	n := a.written.Load()
	l := min(n, AnalyzerSize)
	for i := n - l; i < n; i++ {
		dst = append(dst, math.Float32frombits(a.samples[i%AnalyzerSize].Load()))
	}
	return dst
}

// Display decimates the held samples to the given number of points, picking
// the nearest sample for each. Points are (x, y) with x the index of the
// point. When nothing has been rendered yet, all y are zero.
func (a *Analyzer) Display(points int) [][2]float32 {
	if points <= 0 {
		return nil
	}
	ret := make([][2]float32, points)
	s := a.Snapshot(make([]float32, 0, AnalyzerSize))
	for i := range ret {
		ret[i][0] = float32(i)
		if len(s) > 0 {
			ret[i][1] = s[i*len(s)/points]
		}
	}
	return ret
}

// Peak returns the largest absolute value held.
func (a *Analyzer) Peak() float32 {
	s := a.Snapshot(make([]float32, 0, AnalyzerSize))
	if len(s) == 0 {
		return 0
	}
	vek32.Abs_Inplace(s)
	return vek32.Max(s)
}

// RMS returns the root mean square of the held samples.
func (a *Analyzer) RMS() float32 {
	s := a.Snapshot(make([]float32, 0, AnalyzerSize))
	if len(s) == 0 {
		return 0
	}
	return float32(math.Sqrt(float64(vek32.Dot(s, s) / float32(len(s)))))
}
