// Package assessment turns a patient form into a stroke risk label, a
// positive-class probability and a lifestyle suggestion.
package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Skufu/StrokeRisk/internal/artifact"
	"github.com/Skufu/StrokeRisk/internal/logging"
	"github.com/Skufu/StrokeRisk/internal/metrics"
	"github.com/Skufu/StrokeRisk/internal/store"
)

const (
	LabelHigh = "High risk of Stroke!"
	LabelLow  = "Low risk of Stroke"

	SuggestionError = "Error getting suggestion"

	ModelUnavailablePrediction = "Error: ML model is not loaded."
	ModelUnavailableSuggestion = "Please check the server logs for missing files."
	InputErrorSuggestion       = "Check your input values."
)

type Status int

const (
	StatusOK Status = iota
	StatusInputError
	StatusModelUnavailable
)

type Suggester interface {
	Suggest(ctx context.Context, prompt string) (string, error)
}

type Recorder interface {
	Record(ctx context.Context, r store.Record) error
}

// Result is what the main page renders. Probability is nil unless a
// prediction was made.
type Result struct {
	ID          string
	Status      Status
	Label       int
	Prediction  string
	Probability *float64
	Suggestion  string
	Err         error
}

// RiskTier is "high" or "low" for a successful prediction and empty
// otherwise.
func (r Result) RiskTier() string {
	if r.Status != StatusOK {
		return ""
	}
	if r.Label == artifact.PositiveClass {
		return "high"
	}
	return "low"
}

type Service struct {
	bundle    *artifact.Bundle
	suggester Suggester
	recorder  Recorder
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService builds the request-time service. A nil bundle puts the service
// in the model-unavailable state for its whole lifetime.
func NewService(bundle *artifact.Bundle, suggester Suggester, opts ...Option) *Service {
	s := &Service{
		bundle:    bundle,
		suggester: suggester,
		logger:    logging.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ready() bool {
	return s.bundle != nil
}

// AssessForm handles a main-page submission. When the model is unavailable
// the form is not read at all.
func (s *Service) AssessForm(ctx context.Context, values url.Values) Result {
	if !s.Ready() {
		return s.unavailable()
	}
	in, err := ParseForm(values)
	if err != nil {
		return s.inputError(err)
	}
	return s.Assess(ctx, in)
}

func (s *Service) Assess(ctx context.Context, in Input) Result {
	if !s.Ready() {
		return s.unavailable()
	}

	code, err := s.bundle.Encoders.Transform(artifact.ResidenceEncoder, in.Residence)
	if err != nil {
		return s.inputError(err)
	}
	features := in.Vector(code)

	label, probability, err := s.bundle.Predict(features)
	if err != nil {
		return s.inputError(err)
	}

	result := Result{
		ID:          uuid.NewString(),
		Status:      StatusOK,
		Label:       label,
		Prediction:  LabelLow,
		Probability: &probability,
	}
	outcome := metrics.OutcomeLow
	if label == artifact.PositiveClass {
		result.Prediction = LabelHigh
		outcome = metrics.OutcomeHigh
	}
	s.metrics.ObserveAssessment(outcome)

	result.Suggestion = s.suggest(ctx, BuildPrompt(label, in))
	s.record(ctx, result, features)

	s.logger.Info("assessment completed",
		"id", result.ID,
		"label", label,
		"probability", probability,
	)
	return result
}

// BuildPrompt describes the patient and the predicted tier for the
// suggestion model.
func BuildPrompt(label int, in Input) string {
	tier := "low"
	if label == artifact.PositiveClass {
		tier = "high"
	}
	return fmt.Sprintf("The patient has %s stroke risk. Age: %s, Hypertension: %d, Heart: %d, Glucose: %s, BMI: %s, Smoking: %d.",
		tier, formatFloat(in.Age), in.Hypertension, in.HeartDisease, formatFloat(in.Glucose), formatFloat(in.BMI), in.Smoking)
}

func (s *Service) suggest(ctx context.Context, prompt string) string {
	if s.suggester == nil {
		s.logger.Error("suggestion unavailable: no suggester configured")
		return SuggestionError
	}
	start := time.Now()
	text, err := s.suggester.Suggest(ctx, prompt)
	s.metrics.ObserveSuggestion(err, time.Since(start))
	if err != nil {
		s.logger.Error("error calling suggestion api", "error", err)
		return SuggestionError
	}
	return text
}

func (s *Service) record(ctx context.Context, r Result, features []float64) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(ctx, store.Record{
		ID:          r.ID,
		CreatedAt:   s.now().UTC(),
		Features:    features,
		Label:       r.Label,
		Probability: *r.Probability,
	})
	if err != nil {
		s.logger.Warn("failed to record assessment", "id", r.ID, "error", err)
	}
}

func (s *Service) unavailable() Result {
	s.metrics.ObserveAssessment(metrics.OutcomeModelUnavailable)
	return Result{
		Status:     StatusModelUnavailable,
		Prediction: ModelUnavailablePrediction,
		Suggestion: ModelUnavailableSuggestion,
	}
}

func (s *Service) inputError(err error) Result {
	s.metrics.ObserveAssessment(metrics.OutcomeInputError)
	s.logger.Debug("rejected assessment input", "error", err)
	return Result{
		Status:     StatusInputError,
		Prediction: fmt.Sprintf("Error: %v", err),
		Suggestion: InputErrorSuggestion,
		Err:        err,
	}
}
