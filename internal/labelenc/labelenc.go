// Package labelenc maps categorical strings to integer codes.
package labelenc

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnseenLabel = errors.New("previously unseen label")

// Encoder assigns each distinct value its index in the sorted class list.
type Encoder struct {
	Classes []string
}

func Fit(values []string) *Encoder {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return &Encoder{Classes: classes}
}

func (e *Encoder) Transform(value string) (int, error) {
	i := sort.SearchStrings(e.Classes, value)
	if i < len(e.Classes) && e.Classes[i] == value {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnseenLabel, value)
}

// Set holds one fitted encoder per column.
type Set map[string]*Encoder

func (s Set) Transform(column, value string) (int, error) {
	enc, ok := s[column]
	if !ok {
		return 0, fmt.Errorf("no encoder for column %q", column)
	}
	code, err := enc.Transform(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", column, err)
	}
	return code, nil
}
