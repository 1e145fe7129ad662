package assessment

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

var ErrMissingField = errors.New("missing form field")

// Input carries the ten form fields. Every categorical field except
// Residence is already encoded by the page.
type Input struct {
	Gender       int
	Age          float64
	Hypertension int
	HeartDisease int
	EverMarried  int
	WorkType     int
	Residence    string
	Glucose      float64
	BMI          float64
	Smoking      int
}

// ParseForm converts the posted fields. A field that is absent or empty is
// reported as ErrMissingField; any other conversion failure names the field
// and the offending value.
func ParseForm(values url.Values) (Input, error) {
	p := formParser{values: values}
	in := Input{
		Gender:       p.integer("gender"),
		Age:          p.number("age"),
		Hypertension: p.integer("hypertension"),
		HeartDisease: p.integer("heart_disease"),
		EverMarried:  p.integer("ever_married"),
		WorkType:     p.integer("work_type"),
		Residence:    p.text("residence"),
		Glucose:      p.number("glucose"),
		BMI:          p.number("bmi"),
		Smoking:      p.integer("smoking"),
	}
	if p.err != nil {
		return Input{}, p.err
	}
	return in, nil
}

// Vector lays the input out in training column order.
func (in Input) Vector(residenceCode int) []float64 {
	return []float64{
		float64(in.Gender),
		in.Age,
		float64(in.Hypertension),
		float64(in.HeartDisease),
		float64(in.EverMarried),
		float64(in.WorkType),
		float64(residenceCode),
		in.Glucose,
		in.BMI,
		float64(in.Smoking),
	}
}

// formParser keeps the first error and turns later calls into no-ops.
type formParser struct {
	values url.Values
	err    error
}

func (p *formParser) raw(name string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v := p.values.Get(name)
	if v == "" {
		p.err = fmt.Errorf("%w %q", ErrMissingField, name)
		return "", false
	}
	return v, true
}

func (p *formParser) text(name string) string {
	v, _ := p.raw(name)
	return v
}

func (p *formParser) integer(name string) int {
	v, ok := p.raw(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.err = fmt.Errorf("invalid integer for %q: %q", name, v)
	}
	return n
}

func (p *formParser) number(name string) float64 {
	v, ok := p.raw(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.err = fmt.Errorf("invalid number for %q: %q", name, v)
	}
	return f
}

// formatFloat renders the shortest representation of v. Whole numbers keep
// a trailing ".0" ("Age: 67.0"); magnitudes below 1e-4 or from 1e16 up use
// exponent form ("1e-05", "1e+16").
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'e', -1, 64)
	if exp, err := strconv.Atoi(s[strings.IndexByte(s, 'e')+1:]); err == nil && (exp < -4 || exp >= 16) {
		return s
	}
	s = strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
