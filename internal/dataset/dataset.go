// Package dataset reads and cleans the stroke training CSV.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	IDColumn     = "id"
	TargetColumn = "stroke"

	excludedGender = "Other"
)

// FeatureColumns is the training column order. The server assembles its
// feature vectors in exactly this order.
var FeatureColumns = []string{
	"gender",
	"age",
	"hypertension",
	"heart_disease",
	"ever_married",
	"work_type",
	"Residence_type",
	"avg_glucose_level",
	"bmi",
	"smoking_status",
}

// CategoricalColumns are label-encoded before fitting.
var CategoricalColumns = []string{"gender", "ever_married", "work_type", "Residence_type", "smoking_status"}

var ErrNoRows = errors.New("dataset has no usable rows")

// Row is one cleaned record. Categorical values stay as strings until the
// encoders are fitted; numeric values are already parsed.
type Row struct {
	Categorical map[string]string
	Numeric     map[string]float64
	Stroke      int
}

type Frame struct {
	Rows []Row
	// BMIMedian is the value used to fill missing bmi cells.
	BMIMedian float64
	// Dropped counts rows removed for carrying the excluded gender.
	Dropped int
}

func LoadFile(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses the CSV, imputes missing bmi with the column median and drops
// rows whose gender is "Other". The median is taken over every row before
// the gender filter runs.
func Load(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	required := append([]string{IDColumn, TargetColumn}, FeatureColumns...)
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	type rawRow struct {
		row   Row
		bmi   float64
		bmiNA bool
	}

	var raws []rawRow
	var present []float64
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := Row{
			Categorical: make(map[string]string, len(CategoricalColumns)),
			Numeric:     make(map[string]float64, len(FeatureColumns)-len(CategoricalColumns)),
		}
		for _, name := range CategoricalColumns {
			row.Categorical[name] = strings.TrimSpace(record[index[name]])
		}
		for _, name := range FeatureColumns {
			if isCategorical(name) || name == "bmi" {
				continue
			}
			v, err := parseFloat(record[index[name]])
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, name, err)
			}
			row.Numeric[name] = v
		}

		target, err := strconv.Atoi(strings.TrimSpace(record[index[TargetColumn]]))
		if err != nil {
			return nil, fmt.Errorf("line %d column %s: %w", line, TargetColumn, err)
		}
		row.Stroke = target

		raw := rawRow{row: row}
		cell := strings.TrimSpace(record[index["bmi"]])
		if isMissing(cell) {
			raw.bmiNA = true
		} else {
			v, err := parseFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column bmi: %w", line, err)
			}
			raw.bmi = v
			present = append(present, v)
		}
		raws = append(raws, raw)
	}

	frame := &Frame{BMIMedian: median(present)}
	for _, raw := range raws {
		bmi := raw.bmi
		if raw.bmiNA {
			bmi = frame.BMIMedian
		}
		raw.row.Numeric["bmi"] = bmi

		if raw.row.Categorical["gender"] == excludedGender {
			frame.Dropped++
			continue
		}
		frame.Rows = append(frame.Rows, raw.row)
	}

	if len(frame.Rows) == 0 {
		return nil, ErrNoRows
	}
	return frame, nil
}

// Distinct returns the sorted distinct values of a categorical column.
func (f *Frame) Distinct(column string) []string {
	seen := make(map[string]struct{})
	for _, row := range f.Rows {
		seen[row.Categorical[column]] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Labels returns the target column.
func (f *Frame) Labels() []int {
	out := make([]int, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row.Stroke
	}
	return out
}

func isCategorical(column string) bool {
	for _, c := range CategoricalColumns {
		if c == column {
			return true
		}
	}
	return false
}

func isMissing(cell string) bool {
	switch strings.ToUpper(cell) {
	case "", "N/A", "NA", "NAN":
		return true
	}
	return false
}

func parseFloat(cell string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(cell), 64)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
