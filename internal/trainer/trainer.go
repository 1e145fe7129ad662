// Package trainer fits the stroke classifier offline and writes its
// artifacts.
package trainer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Skufu/StrokeRisk/internal/artifact"
	"github.com/Skufu/StrokeRisk/internal/dataset"
	"github.com/Skufu/StrokeRisk/internal/forest"
	"github.com/Skufu/StrokeRisk/internal/labelenc"
)

type Options struct {
	DataPath     string
	ModelPath    string
	EncodersPath string
	Forest       forest.Config
	Logger       *slog.Logger
}

// Run loads and cleans the dataset, encodes the categorical columns, fits
// the forest on every row and writes both artifacts. Nothing is written
// unless every step succeeds.
func Run(ctx context.Context, opts Options) (*artifact.Bundle, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	frame, err := dataset.LoadFile(opts.DataPath)
	if err != nil {
		return nil, err
	}
	positives := 0
	for _, label := range frame.Labels() {
		positives += label
	}
	logger.Info("dataset loaded",
		"rows", len(frame.Rows),
		"positives", positives,
		"dropped", frame.Dropped,
		"bmi_median", frame.BMIMedian,
	)

	bundle, err := Fit(ctx, frame, opts.Forest)
	if err != nil {
		return nil, err
	}

	if err := artifact.Save(bundle, opts.ModelPath, opts.EncodersPath); err != nil {
		return nil, err
	}
	logger.Info("artifacts saved", "model", opts.ModelPath, "encoders", opts.EncodersPath)
	return bundle, nil
}

// Fit encodes the frame and fits the forest without touching the
// filesystem.
func Fit(ctx context.Context, frame *dataset.Frame, cfg forest.Config) (*artifact.Bundle, error) {
	encoders := make(labelenc.Set, len(dataset.CategoricalColumns))
	for _, column := range dataset.CategoricalColumns {
		encoders[column] = labelenc.Fit(frame.Distinct(column))
	}

	X, err := Matrix(frame, encoders)
	if err != nil {
		return nil, err
	}

	f, err := forest.Fit(ctx, X, frame.Labels(), dataset.FeatureColumns, cfg)
	if err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	return &artifact.Bundle{Forest: f, Encoders: encoders}, nil
}

// Matrix builds the feature matrix in dataset.FeatureColumns order.
func Matrix(frame *dataset.Frame, encoders labelenc.Set) ([][]float64, error) {
	X := make([][]float64, len(frame.Rows))
	for i, row := range frame.Rows {
		vec := make([]float64, len(dataset.FeatureColumns))
		for j, column := range dataset.FeatureColumns {
			if value, ok := row.Categorical[column]; ok {
				code, err := encoders.Transform(column, value)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", i, err)
				}
				vec[j] = float64(code)
				continue
			}
			vec[j] = row.Numeric[column]
		}
		X[i] = vec
	}
	return X, nil
}
