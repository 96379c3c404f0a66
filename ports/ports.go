// Package ports defines the interfaces the engine's external collaborators
// implement. The core consumes these; it never parses files, renders plots,
// or persists history itself.
package ports

import (
	"context"
	"time"

	"statlab/domain/dataset"
)

// DatasetReader parses an uploaded file into a dataset.
type DatasetReader interface {
	Read(path string) (*dataset.Dataset, error)
}

// PlotHandle is an opaque rendered image.
type PlotHandle struct {
	ID  string
	PNG []byte
}

// PlotRenderer renders raw values plus their flags into an image. The core
// passes data out; it never renders.
type PlotRenderer interface {
	Histogram(name string, values []float64, flags []dataset.Flag) (PlotHandle, error)
	Box(name string, values []float64, flags []dataset.Flag) (PlotHandle, error)
}

// AnalysisRecord is a free-form entry in the durable analysis history.
type AnalysisRecord struct {
	ID        string    `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"`
	Summary   string    `db:"summary" json:"summary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HistoryStore persists analysis records. The core has no persistence
// responsibility of its own.
type HistoryStore interface {
	Record(ctx context.Context, record AnalysisRecord) error
	Recent(ctx context.Context, limit int) ([]AnalysisRecord, error)
}
