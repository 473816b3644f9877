// Package scoring defines the contract for estimating purchase probabilities.
package scoring

import (
	"context"
	"math"
	"sort"

	"github.com/mmatheygr/lead-scoring/internal/domain/types"
)

// Input abstracts the lead fields needed for scoring.
type Input struct {
	CustomerID string
	Features   map[string]float64
}

// Result contains the estimated purchase probability for a lead.
type Result struct {
	CustomerID  string
	Probability float64 // always in [0,1]
}

// Scorer estimates a purchase probability from lead features.
type Scorer interface {
	// Score computes a probability, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// Attributor is implemented by scorers that can explain a prediction as
// per-feature contributions.
type Attributor interface {
	Attribute(ctx context.Context, in Input) ([]types.Contribution, error)
}

// Clamp bounds a probability to [0,1]. NaN maps to 0.
func Clamp(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(1, p))
}

// sigmoid maps a logit to (0,1).
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// Option applies a configuration option to the LogisticScorer.
type Option func(*LogisticScorer)

// WithWeights sets per-feature weights and the intercept.
func WithWeights(weights map[string]float64, bias float64) Option {
	return func(s *LogisticScorer) {
		s.weights = make(map[string]float64, len(weights))
		for feature, w := range weights {
			s.weights[feature] = w
		}
		s.bias = bias
	}
}

// LogisticScorer implements Scorer with a logistic model over configured
// feature weights. It is deterministic and supports attribution.
type LogisticScorer struct {
	weights map[string]float64
	bias    float64
}

// NewLogisticScorer creates a logistic scorer with configuration options.
func NewLogisticScorer(opts ...Option) *LogisticScorer {
	s := &LogisticScorer{
		weights: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes sigmoid(bias + sum(weight_i * feature_i)). Features without
// a configured weight contribute nothing.
func (s *LogisticScorer) Score(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	z := s.bias
	for feature, value := range in.Features {
		z += s.weights[feature] * value
	}

	return Result{
		CustomerID:  in.CustomerID,
		Probability: Clamp(sigmoid(z)),
	}, nil
}

// Attribute returns the linear contribution of each feature to the logit,
// ordered by absolute effect descending. This is a linear decomposition, not
// a Shapley value.
func (s *LogisticScorer) Attribute(ctx context.Context, in Input) ([]types.Contribution, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := make([]types.Contribution, 0, len(in.Features))
	for feature, value := range in.Features {
		w := s.weights[feature]
		out = append(out, types.Contribution{
			Feature: feature,
			Value:   value,
			Weight:  w,
			Effect:  w * value,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Effect), math.Abs(out[j].Effect)
		if ai != aj {
			return ai > aj
		}
		return out[i].Feature < out[j].Feature
	})
	return out, nil
}
