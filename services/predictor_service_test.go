package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strompris-api/models"
	"strompris-api/services/regression"
)

var predictorAreas = []string{"NO1", "NO2", "NO3"}

func newTrainedPredictor(t *testing.T) *PredictorService {
	t.Helper()

	db := newTestDB(t)
	seedLinearHistory(t, db, predictorAreas, 7)
	predictor := NewPredictorService(db, regression.NewLeastSquares(predictorAreas))
	require.NoError(t, predictor.Train(context.Background()))
	return predictor
}

func TestPredictBeforeTrainingFails(t *testing.T) {
	db := newTestDB(t)
	predictor := NewPredictorService(db, regression.NewLeastSquares(predictorAreas))

	assert.False(t, predictor.Ready())
	_, err := predictor.PredictDay(time.Now(), "NO1")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestPredictDayShape(t *testing.T) {
	predictor := newTrainedPredictor(t)

	date := models.DateOnly(time.Now()).AddDate(0, 0, 3)
	prices, err := predictor.PredictDay(date, "NO2")
	require.NoError(t, err)
	require.Len(t, prices, 24)

	for hour, p := range prices {
		assert.Equal(t, hour, p.Hour)
		assert.Equal(t, date, p.Date)
		assert.Equal(t, "NO2", p.Area)
		assert.True(t, p.Predicted)
	}
}

func TestPredictDayIsDeterministic(t *testing.T) {
	predictor := newTrainedPredictor(t)

	date := models.DateOnly(time.Now()).AddDate(0, 0, 1)
	first, err := predictor.PredictDay(date, "NO1")
	require.NoError(t, err)
	second, err := predictor.PredictDay(date, "NO1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFailedRetrainKeepsServingModel(t *testing.T) {
	db := newTestDB(t)
	seedLinearHistory(t, db, predictorAreas, 7)
	predictor := NewPredictorService(db, regression.NewLeastSquares(predictorAreas))
	require.NoError(t, predictor.Train(context.Background()))

	date := models.DateOnly(time.Now()).AddDate(0, 0, 2)
	before, err := predictor.PredictDay(date, "NO1")
	require.NoError(t, err)

	// Empty history makes the next fit fail; the old model must keep serving.
	require.NoError(t, db.Where("1 = 1").Delete(&models.HourlyPrice{}).Error)
	err = predictor.Retrain(context.Background())
	require.Error(t, err)

	assert.True(t, predictor.Ready())
	after, err := predictor.PredictDay(date, "NO1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestConcurrentPredictDuringRetrain(t *testing.T) {
	db := newTestDB(t)
	seedLinearHistory(t, db, predictorAreas, 7)
	predictor := NewPredictorService(db, regression.NewLeastSquares(predictorAreas))
	require.NoError(t, predictor.Train(context.Background()))

	date := models.DateOnly(time.Now()).AddDate(0, 0, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				prices, err := predictor.PredictDay(date, "NO2")
				assert.NoError(t, err)
				assert.Len(t, prices, 24)
			}
		}()
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, predictor.Retrain(context.Background()))
	}
	close(done)
	wg.Wait()
}
