package plot

import (
	"bytes"
	"image/png"
	"testing"

	"statlab/domain/dataset"
)

func TestBox(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 200}
	flags := make([]dataset.Flag, len(values))
	flags[len(flags)-1] = dataset.FlagOutlier

	handle, err := NewRenderer().Box("reading", values, flags)
	if err != nil {
		t.Fatalf("Box failed: %v", err)
	}
	if handle.ID == "" {
		t.Error("no handle ID")
	}

	img, err := png.Decode(bytes.NewReader(handle.PNG))
	if err != nil {
		t.Fatalf("payload is not a decodable PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != plotWidth || bounds.Dy() != plotHeight {
		t.Errorf("image is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), plotWidth, plotHeight)
	}

	// 200 lies far beyond the upper fence, so at least one alert-colored
	// pixel must appear on the whisker axis.
	found := false
	mid := plotHeight / 2
	for x := 0; x < plotWidth; x++ {
		r, g, b, _ := img.At(x, mid).RGBA()
		if uint8(r>>8) == flaggedColor.R && uint8(g>>8) == flaggedColor.G && uint8(b>>8) == flaggedColor.B {
			found = true
			break
		}
	}
	if !found {
		t.Error("no outlier mark drawn")
	}
}

func TestBox_TooFewValues(t *testing.T) {
	if _, err := NewRenderer().Box("tiny", []float64{1, 2, 3}, nil); err == nil {
		t.Error("three values accepted")
	}
}

func TestBox_ConstantSeries(t *testing.T) {
	values := []float64{7, 7, 7, 7, 7}
	if _, err := NewRenderer().Box("const", values, nil); err != nil {
		t.Errorf("constant series failed: %v", err)
	}
}
