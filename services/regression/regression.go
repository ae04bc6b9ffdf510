// Package regression wraps the numerical regression library behind a narrow
// fit/predict interface so the model algorithm stays pluggable.
package regression

import (
	"errors"
	"fmt"
	"time"

	sajari "github.com/sajari/regression"
)

// Sample is one training example taken from the persisted price history
type Sample struct {
	Date  time.Time
	Hour  int
	Area  string
	Price float64
}

// Model is a trained, immutable price estimator. Implementations must be
// safe for concurrent use and deterministic for fixed inputs.
type Model interface {
	Predict(date time.Time, hour int, area string) (float64, error)
}

// Trainer fits a fresh Model from a full sample set. Every fit is a full
// refit; there is no incremental update.
type Trainer interface {
	Fit(samples []Sample) (Model, error)
}

// LeastSquares trains an ordinary least-squares model over the feature
// encoding: day offset from the Unix epoch, hour of day, and a one-hot area
// vector with the first configured area as baseline (dropped to keep the
// design matrix full rank next to the intercept).
type LeastSquares struct {
	areas []string
}

// NewLeastSquares creates a trainer for a fixed, ordered set of market areas
func NewLeastSquares(areas []string) *LeastSquares {
	return &LeastSquares{areas: areas}
}

// Fit trains a model over all samples
func (t *LeastSquares) Fit(samples []Sample) (Model, error) {
	if len(samples) == 0 {
		return nil, errors.New("no training samples")
	}

	r := new(sajari.Regression)
	r.SetObserved("price")
	r.SetVar(0, "day")
	r.SetVar(1, "hour")
	for i, area := range t.baselineDropped() {
		r.SetVar(2+i, "area_"+area)
	}

	for _, s := range samples {
		r.Train(sajari.DataPoint(s.Price, t.features(s.Date, s.Hour, s.Area)))
	}

	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("fit regression: %w", err)
	}
	return &leastSquaresModel{reg: r, trainer: t}, nil
}

func (t *LeastSquares) baselineDropped() []string {
	if len(t.areas) <= 1 {
		return nil
	}
	return t.areas[1:]
}

func (t *LeastSquares) features(date time.Time, hour int, area string) []float64 {
	dropped := t.baselineDropped()
	f := make([]float64, 2+len(dropped))
	f[0] = float64(date.Unix() / 86400)
	f[1] = float64(hour)
	for i, a := range dropped {
		if a == area {
			f[2+i] = 1
		}
	}
	return f
}

type leastSquaresModel struct {
	reg     *sajari.Regression
	trainer *LeastSquares
}

func (m *leastSquaresModel) Predict(date time.Time, hour int, area string) (float64, error) {
	value, err := m.reg.Predict(m.trainer.features(date, hour, area))
	if err != nil {
		return 0, fmt.Errorf("predict %s hour %d for %s: %w", date.Format("2006-01-02"), hour, area, err)
	}
	return value, nil
}
