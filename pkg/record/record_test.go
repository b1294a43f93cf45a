package record

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/itohio/golarder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEstimator float64

func (f fixedEstimator) Estimate(float64) float64 { return float64(f) }

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		t        time.Time
		wantDate string
		wantTime string
	}{
		{
			name:     "reference epoch",
			t:        time.Unix(1700000000, 0).UTC(),
			wantDate: "14/11/23",
			wantTime: "22:13:20",
		},
		{
			name:     "single digit fields are zero padded",
			t:        time.Date(2024, time.March, 5, 7, 8, 9, 0, time.UTC),
			wantDate: "05/03/24",
			wantTime: "07:08:09",
		},
		{
			name:     "afternoon is 24-hour",
			t:        time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC),
			wantDate: "31/12/25",
			wantTime: "23:59:59",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantDate, FormatDate(tt.t))
			assert.Equal(t, tt.wantTime, FormatTime(tt.t))
		})
	}
}

func TestBuilder_Build(t *testing.T) {
	cfg := config.Default().Record
	b := NewBuilder(cfg, nil, fixedEstimator(142))

	rec := b.Build(time.Unix(1700000000, 0), 123.456)

	assert.Equal(t, UploadRecord{
		Date:      "14/11/23",
		Time:      "22:13:20",
		Food:      "Bag of apples",
		Category:  "Fruit, Compostable",
		Weight:    123.456,
		Source:    "bakery",
		Emissions: "142.00 fake data",
	}, rec)
}

func TestBuilder_Location(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	b := NewBuilder(config.Default().Record, loc, fixedEstimator(100))

	rec := b.Build(time.Unix(1700000000, 0), 0)
	assert.Equal(t, "15/11/23", rec.Date)
	assert.Equal(t, "00:13:20", rec.Time)
}

func TestUploadRecord_ValueRange(t *testing.T) {
	rec := UploadRecord{
		Date:      "14/11/23",
		Time:      "22:13:20",
		Food:      "Bag of apples",
		Category:  "Fruit, Compostable",
		Weight:    1.5,
		Source:    "bakery",
		Emissions: "150.00 fake data",
	}

	vr := rec.ValueRange()
	assert.Equal(t, "COLUMNS", vr.MajorDimension)
	require.Len(t, vr.Values, Columns)

	want := []interface{}{"14/11/23", "22:13:20", "Bag of apples", "Fruit, Compostable", 1.5, "bakery", "150.00 fake data"}
	for i, col := range vr.Values {
		require.Len(t, col, 1, "column %d", i)
		assert.Equal(t, want[i], col[0], "column %d", i)
	}
}

func TestRandomEstimator(t *testing.T) {
	e := NewRandomEstimator(100, 200, rand.New(rand.NewPCG(7, 7)))
	for i := 0; i < 1000; i++ {
		v := e.Estimate(0)
		assert.GreaterOrEqual(t, v, 100.0)
		assert.Less(t, v, 200.0)
		assert.Equal(t, float64(int(v)), v)
	}

	assert.Equal(t, 5.0, NewRandomEstimator(5, 5, nil).Estimate(0))
}

func TestFormatEmissions(t *testing.T) {
	assert.Equal(t, "142.00 fake data", formatEmissions(142, " fake data"))
	assert.Equal(t, "0.50", formatEmissions(0.5, ""))
}
