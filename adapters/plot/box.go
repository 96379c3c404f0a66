package plot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"statlab/domain/dataset"
	"statlab/internal/errors"
	"statlab/ports"

	"github.com/google/uuid"
	mstats "github.com/montanaflynn/stats"
)

const boxMargin = 30

var boxLineColor = color.RGBA{30, 41, 59, 255}

// Box renders a horizontal box-and-whisker plot. Whiskers stop at the last
// value inside the 1.5*IQR fences; values beyond them are drawn as individual
// marks in the alert color.
func (r *Renderer) Box(name string, values []float64, flags []dataset.Flag) (ports.PlotHandle, error) {
	if len(values) < 4 {
		return ports.PlotHandle{}, errors.ValidationError("too few values for a box plot")
	}

	q1, err := mstats.Percentile(values, 25)
	if err != nil {
		return ports.PlotHandle{}, errors.Wrap(err, "percentile failed")
	}
	median, err := mstats.Percentile(values, 50)
	if err != nil {
		return ports.PlotHandle{}, errors.Wrap(err, "percentile failed")
	}
	q3, err := mstats.Percentile(values, 75)
	if err != nil {
		return ports.PlotHandle{}, errors.Wrap(err, "percentile failed")
	}

	iqr := q3 - q1
	loFence, hiFence := q1-1.5*iqr, q3+1.5*iqr

	// Whisker ends and the plot's value range.
	whiskLo, whiskHi := q1, q3
	dataLo, dataHi := values[0], values[0]
	var outliers []float64
	for _, v := range values {
		if v < dataLo {
			dataLo = v
		}
		if v > dataHi {
			dataHi = v
		}
		if v < loFence || v > hiFence {
			outliers = append(outliers, v)
			continue
		}
		if v < whiskLo {
			whiskLo = v
		}
		if v > whiskHi {
			whiskHi = v
		}
	}
	if dataHi == dataLo {
		dataHi = dataLo + 1
	}

	toX := func(v float64) int {
		return boxMargin + int(float64(plotWidth-2*boxMargin)*(v-dataLo)/(dataHi-dataLo))
	}

	img := image.NewRGBA(image.Rect(0, 0, plotWidth, plotHeight))
	for y := 0; y < plotHeight; y++ {
		for x := 0; x < plotWidth; x++ {
			img.Set(x, y, backgroundColor)
		}
	}

	mid := plotHeight / 2
	boxTop, boxBottom := mid-60, mid+60

	// Whisker line and end caps.
	for x := toX(whiskLo); x <= toX(whiskHi); x++ {
		img.Set(x, mid, boxLineColor)
	}
	for y := mid - 20; y <= mid+20; y++ {
		img.Set(toX(whiskLo), y, boxLineColor)
		img.Set(toX(whiskHi), y, boxLineColor)
	}

	// Box from Q1 to Q3.
	for x := toX(q1); x <= toX(q3); x++ {
		for y := boxTop; y <= boxBottom; y++ {
			img.Set(x, y, barColor)
		}
	}
	// Median line.
	for y := boxTop; y <= boxBottom; y++ {
		img.Set(toX(median), y, boxLineColor)
	}

	for _, v := range outliers {
		cx := toX(v)
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				x, y := cx+dx, mid+dy
				if x >= 0 && x < plotWidth {
					img.Set(x, y, flaggedColor)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ports.PlotHandle{}, errors.Wrap(err, "failed to encode plot")
	}
	return ports.PlotHandle{ID: uuid.NewString(), PNG: buf.Bytes()}, nil
}
