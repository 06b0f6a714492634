package metrics

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Bins is the number of intensity levels per channel.
const Bins = 256

var ErrEmptyImage = errors.New("empty image")

// levels holds the intensity of every histogram bin.
var levels = func() []float64 {
	l := make([]float64, Bins)
	for i := range l {
		l[i] = float64(i)
	}
	return l
}()

// ChannelStats is the intensity distribution of one channel.
type ChannelStats struct {
	Name   string
	Counts []float64
	Mean   float64
	StdDev float64
}

// Peak returns the largest bin count.
func (c ChannelStats) Peak() float64 {
	peak := 0.0
	for _, n := range c.Counts {
		peak = max(peak, n)
	}
	return peak
}

// Histogram holds per-channel statistics, red first.
type Histogram struct {
	Pixels   int
	Channels []ChannelStats
}

// ComputeHistogram measures img.
func ComputeHistogram(img image.Image) (Histogram, error) {
	if img == nil || img.Bounds().Empty() {
		return Histogram{}, ErrEmptyImage
	}

	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return Histogram{}, fmt.Errorf("convert image: %w", err)
	}
	defer m.Close()

	return HistogramOf(m)
}

// HistogramOf measures an 8-bit Mat with one or three channels. Three
// channel Mats are read in OpenCV's BGR order.
func HistogramOf(m gocv.Mat) (Histogram, error) {
	if m.Empty() {
		return Histogram{}, ErrEmptyImage
	}

	type channel struct {
		name  string
		index int
	}
	var channels []channel
	switch m.Channels() {
	case 1:
		channels = []channel{{"L", 0}}
	case 3, 4:
		channels = []channel{{"R", 2}, {"G", 1}, {"B", 0}}
	default:
		return Histogram{}, fmt.Errorf("unsupported channel count: %d", m.Channels())
	}

	mask := gocv.NewMat()
	defer mask.Close()

	h := Histogram{Pixels: m.Rows() * m.Cols()}
	for _, ch := range channels {
		hist := gocv.NewMat()
		if err := gocv.CalcHist([]gocv.Mat{m}, []int{ch.index}, mask, &hist, []int{Bins}, []float64{0, Bins}, false); err != nil {
			hist.Close()
			return Histogram{}, fmt.Errorf("histogram of channel %s: %w", ch.name, err)
		}

		counts := make([]float64, Bins)
		for i := range counts {
			counts[i] = float64(hist.GetFloatAt(i, 0))
		}
		hist.Close()

		mean, std := stat.PopMeanStdDev(levels, counts)
		h.Channels = append(h.Channels, ChannelStats{
			Name:   ch.name,
			Counts: counts,
			Mean:   mean,
			StdDev: std,
		})
	}
	return h, nil
}
