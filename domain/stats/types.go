package stats

import "time"

// ColumnType is the inferred semantic type of a column.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeDiscrete    ColumnType = "discrete"
	TypeCategorical ColumnType = "categorical"
	TypeBoolean     ColumnType = "boolean"
	TypeTimeseries  ColumnType = "timeseries"
	TypeOrdinal     ColumnType = "ordinal"
	TypeCensored    ColumnType = "censored"
)

// IsNumericLike reports whether per-cell numeric statistics apply.
func (t ColumnType) IsNumericLike() bool {
	return t == TypeNumeric || t == TypeDiscrete
}

// DistributionType classifies the shape of a numeric column.
type DistributionType string

const (
	DistNormal           DistributionType = "normal"
	DistLogNormal        DistributionType = "log_normal"
	DistExponential      DistributionType = "exponential"
	DistUniform          DistributionType = "uniform"
	DistRightSkewed      DistributionType = "right_skewed"
	DistLeftSkewed       DistributionType = "left_skewed"
	DistHeavyTailed      DistributionType = "heavy_tailed"
	DistLightTailed      DistributionType = "light_tailed"
	DistUnknown          DistributionType = "unknown"
	DistInsufficientData DistributionType = "insufficient_data"
)

// DistributionProfile describes a fitted distribution. Parameters holds the
// fitted constants (mean/std, meanlog/sdlog, rate, min/max) keyed by name.
type DistributionProfile struct {
	Type          DistributionType   `json:"type"`
	Parameters    map[string]float64 `json:"parameters,omitempty"`
	GoodnessOfFit float64            `json:"goodness_of_fit"`
	Confidence    float64            `json:"confidence"`
	SampleSize    int                `json:"sample_size"`
	Skewness      float64            `json:"skewness"`
	Kurtosis      float64            `json:"kurtosis"`
}

// SummaryStats are the moments of a numeric column over non-missing cells.
type SummaryStats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// CategoricalStats summarize a low-cardinality text column.
type CategoricalStats struct {
	UniqueCount  int            `json:"unique_count"`
	MostFrequent string         `json:"most_frequent"`
	ModeCount    int            `json:"mode_count"`
	TopValues    map[string]int `json:"top_values"`
}

// BooleanStats summarize a two-valued column.
type BooleanStats struct {
	TrueCount      int     `json:"true_count"`
	FalseCount     int     `json:"false_count"`
	TruePercentage float64 `json:"true_percentage"`
}

// DatetimeStats summarize a timeseries column.
type DatetimeStats struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Range           string    `json:"range"`
	TypicalInterval string    `json:"typical_interval"`
}

// ColumnStats is one column's entry in a snapshot. Only the section matching
// the column's type is populated.
type ColumnStats struct {
	Name         string               `json:"name"`
	Type         ColumnType           `json:"type"`
	MissingCount int                  `json:"missing_count"`
	UniqueCount  int                  `json:"unique_count"`
	OutlierCount int                  `json:"outlier_count"`
	Summary      *SummaryStats        `json:"summary,omitempty"`
	Distribution *DistributionProfile `json:"distribution,omitempty"`
	Categorical  *CategoricalStats    `json:"categorical,omitempty"`
	Boolean      *BooleanStats        `json:"boolean,omitempty"`
	Datetime     *DatetimeStats       `json:"datetime,omitempty"`
	SampleValues []string             `json:"sample_values,omitempty"`
	Degraded     bool                 `json:"degraded,omitempty"`
}

// FileStats describe the loaded file.
type FileStats struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
}

// TypeCensus pairs the ordered per-column type list with per-type counts.
type TypeCensus struct {
	ByColumn []ColumnType       `json:"by_column"`
	Counts   map[ColumnType]int `json:"counts"`
}

// QualityStats are dataset-wide quality metrics.
type QualityStats struct {
	Completeness    float64 `json:"completeness"`
	DuplicateRows   int     `json:"duplicate_rows"`
	NumericAsText   int     `json:"numeric_as_text_columns"`
	SuspiciousCells int     `json:"suspicious_cells"`
}

// RuleResult is the outcome of evaluating one validation rule.
type RuleResult struct {
	Column  string `json:"column"`
	Rule    string `json:"rule"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Snapshot is the serializable point-in-time aggregate of derived statistics.
// It is self-consistent only at build time; structural mutations invalidate it
// until the cache is rebuilt or patched.
type Snapshot struct {
	BuiltAt           time.Time      `json:"built_at"`
	FileStats         FileStats      `json:"file_stats"`
	ColumnTypes       TypeCensus     `json:"column_types"`
	Columns           []ColumnStats  `json:"columns"`
	MissingByColumn   map[string]int `json:"missing_values_by_column"`
	OutliersByColumn  map[string]int `json:"outliers_by_column"`
	Quality           QualityStats   `json:"data_quality"`
	ValidationResults []RuleResult   `json:"validation_results,omitempty"`
}

// Column finds a column entry by name, nil when absent.
func (s *Snapshot) Column(name string) *ColumnStats {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}
