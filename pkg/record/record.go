// Package record builds the row appended to the spreadsheet for each weighing.
package record

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/itohio/golarder/pkg/config"
	"google.golang.org/api/sheets/v4"
)

// Columns is the number of cells in every uploaded row.
const Columns = 7

const (
	dateLayout = "02/01/06"
	timeLayout = "15:04:05"
)

// UploadRecord is one spreadsheet row. Field order is column order.
type UploadRecord struct {
	Date      string
	Time      string
	Food      string
	Category  string
	Weight    float64
	Source    string
	Emissions string
}

// FormatDate formats t as dd/mm/yy.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatTime formats t as 24-hour HH:MM:SS.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// Values returns the cells in column order.
func (r UploadRecord) Values() []interface{} {
	return []interface{}{
		r.Date,
		r.Time,
		r.Food,
		r.Category,
		r.Weight,
		r.Source,
		r.Emissions,
	}
}

// ValueRange wraps the record as a columns-major payload of single-cell columns.
func (r UploadRecord) ValueRange() *sheets.ValueRange {
	values := r.Values()
	columns := make([][]interface{}, 0, len(values))
	for _, v := range values {
		columns = append(columns, []interface{}{v})
	}
	return &sheets.ValueRange{
		MajorDimension: "COLUMNS",
		Values:         columns,
	}
}

// Estimator produces the emissions figure of a record.
type Estimator interface {
	Estimate(weight float64) float64
}

// RandomEstimator draws a whole number in [Min, Max). It stands in until real
// emission factors are available.
type RandomEstimator struct {
	Min, Max int
	rng      *rand.Rand
}

// NewRandomEstimator creates a RandomEstimator. A nil rng uses the global source.
func NewRandomEstimator(lo, hi int, rng *rand.Rand) *RandomEstimator {
	return &RandomEstimator{Min: lo, Max: hi, rng: rng}
}

// Estimate ignores weight and returns a random value.
func (e *RandomEstimator) Estimate(float64) float64 {
	span := e.Max - e.Min
	if span <= 0 {
		return float64(e.Min)
	}
	if e.rng != nil {
		return float64(e.Min + e.rng.IntN(span))
	}
	return float64(e.Min + rand.IntN(span))
}

// Builder fills the placeholder columns of a record.
type Builder struct {
	cfg       config.RecordConfig
	loc       *time.Location
	estimator Estimator
}

// NewBuilder creates a Builder. Times are rendered in loc, UTC when nil.
func NewBuilder(cfg config.RecordConfig, loc *time.Location, estimator Estimator) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	if estimator == nil {
		estimator = NewRandomEstimator(cfg.EmissionsMin, cfg.EmissionsMax, nil)
	}
	return &Builder{cfg: cfg, loc: loc, estimator: estimator}
}

// Build creates the record for weight measured at t.
func (b *Builder) Build(t time.Time, weight float64) UploadRecord {
	t = t.In(b.loc)
	return UploadRecord{
		Date:      FormatDate(t),
		Time:      FormatTime(t),
		Food:      b.cfg.Food,
		Category:  b.cfg.Category,
		Weight:    weight,
		Source:    b.cfg.Source,
		Emissions: formatEmissions(b.estimator.Estimate(weight), b.cfg.EmissionsSuffix),
	}
}

func formatEmissions(v float64, suffix string) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + suffix
}

// String renders the record the way it appears in the log.
func (r UploadRecord) String() string {
	return fmt.Sprintf("%s %s %q %q %.5f %q %q", r.Date, r.Time, r.Food, r.Category, r.Weight, r.Source, r.Emissions)
}
