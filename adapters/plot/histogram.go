// Package plot renders column values into simple PNG images. It is the
// plotting collaborator: the engine hands over raw values plus flags and
// receives an opaque handle back.
package plot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"statlab/domain/dataset"
	"statlab/internal/errors"
	"statlab/ports"

	"github.com/google/uuid"
)

const (
	plotWidth  = 640
	plotHeight = 360
	binCount   = 20
)

var (
	backgroundColor = color.RGBA{250, 250, 250, 255}
	barColor        = color.RGBA{59, 130, 246, 255}
	flaggedColor    = color.RGBA{239, 68, 68, 255}
)

// Renderer implements ports.PlotRenderer with a dependency-free rasterizer.
type Renderer struct{}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Histogram renders a binned histogram. Bins holding any flagged cell are
// drawn in the alert color so quality problems stay visible in the picture.
func (r *Renderer) Histogram(name string, values []float64, flags []dataset.Flag) (ports.PlotHandle, error) {
	if len(values) == 0 {
		return ports.PlotHandle{}, errors.ValidationError("no values to plot")
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		max = min + 1
	}

	counts := make([]int, binCount)
	flagged := make([]bool, binCount)
	for i, v := range values {
		bin := int(float64(binCount) * (v - min) / (max - min))
		if bin >= binCount {
			bin = binCount - 1
		}
		counts[bin]++
		if i < len(flags) && flags[i] != dataset.FlagNormal {
			flagged[bin] = true
		}
	}
	peak := 0
	for _, c := range counts {
		if c > peak {
			peak = c
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, plotWidth, plotHeight))
	for y := 0; y < plotHeight; y++ {
		for x := 0; x < plotWidth; x++ {
			img.Set(x, y, backgroundColor)
		}
	}

	barWidth := plotWidth / binCount
	for bin, count := range counts {
		if count == 0 {
			continue
		}
		barHeight := int(math.Round(float64(plotHeight-20) * float64(count) / float64(peak)))
		fill := barColor
		if flagged[bin] {
			fill = flaggedColor
		}
		for y := plotHeight - barHeight; y < plotHeight; y++ {
			for x := bin*barWidth + 1; x < (bin+1)*barWidth-1; x++ {
				img.Set(x, y, fill)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ports.PlotHandle{}, errors.Wrap(err, "failed to encode plot")
	}
	return ports.PlotHandle{ID: uuid.NewString(), PNG: buf.Bytes()}, nil
}
