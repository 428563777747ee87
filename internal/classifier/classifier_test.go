package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/features"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

func vector() types.FeatureVector {
	return types.FeatureVector{Age: 35, FamilySize: 4, Dependents: 2, MonthlyIncome: 9000, PropertyValue: 300000}
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var ie *InferenceError
	require.True(t, errors.As(err, &ie), "expected *InferenceError, got %v", err)
	return ie.Reason
}

func TestPredict_Success(t *testing.T) {
	c := Func(func(context.Context, types.FeatureVector) (types.Prediction, error) {
		return types.Prediction{Label: 1, Confidence: 0.87}, nil
	})

	p, err := Predict(context.Background(), c, vector(), time.Second)
	require.NoError(t, err)
	assert.True(t, p.Eligible())
	assert.Equal(t, 0.87, p.Confidence)
}

func TestPredict_Timeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := Func(func(context.Context, types.FeatureVector) (types.Prediction, error) {
		<-block
		return types.Prediction{Label: 1, Confidence: 1}, nil
	})

	start := time.Now()
	_, err := Predict(context.Background(), c, vector(), 20*time.Millisecond)
	assert.Equal(t, ReasonTimeout, reasonOf(t, err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPredict_Failures(t *testing.T) {
	tests := []struct {
		name   string
		c      Classifier
		fv     types.FeatureVector
		reason string
	}{
		{"nil classifier", nil, vector(), ReasonUnavailable},
		{"transport error", Func(func(context.Context, types.FeatureVector) (types.Prediction, error) {
			return types.Prediction{}, errors.New("connection refused")
		}), vector(), ReasonUnavailable},
		{"bad label", Func(func(context.Context, types.FeatureVector) (types.Prediction, error) {
			return types.Prediction{Label: 2, Confidence: 0.5}, nil
		}), vector(), ReasonMalformedPrediction},
		{"bad confidence", Func(func(context.Context, types.FeatureVector) (types.Prediction, error) {
			return types.Prediction{Label: 0, Confidence: 1.5}, nil
		}), vector(), ReasonMalformedPrediction},
		{"nan feature", Rulebook{}, types.FeatureVector{Age: math.NaN()}, ReasonMalformedFeatures},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Predict(context.Background(), tt.c, tt.fv, time.Second)
			assert.Equal(t, tt.reason, reasonOf(t, err))
		})
	}
}

func TestRulebook(t *testing.T) {
	r := DefaultRulebook()
	tests := []struct {
		name  string
		fv    types.FeatureVector
		label int
	}{
		{"low income", types.FeatureVector{Age: 30, Dependents: 2, MonthlyIncome: 9000}, 1},
		{"above threshold", types.FeatureVector{Age: 30, Dependents: 2, MonthlyIncome: 18000}, 0},
		{"too young", types.FeatureVector{Age: 19, MonthlyIncome: 2000}, 0},
		{"large property", types.FeatureVector{Age: 40, MonthlyIncome: 2000, PropertyValue: 1000000}, 0},
		{"disability raises threshold", types.FeatureVector{Age: 40, MonthlyIncome: 15000, HasDisability: 1}, 1},
		{"disability property cap", types.FeatureVector{Age: 40, MonthlyIncome: 15000, HasDisability: 1, PropertyValue: 1200000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Predict(context.Background(), tt.fv)
			require.NoError(t, err)
			assert.Equal(t, tt.label, p.Label)
			assert.GreaterOrEqual(t, p.Confidence, 0.5)
			assert.LessOrEqual(t, p.Confidence, 1.0)
		})
	}
}

func TestHTTPClient_Predict(t *testing.T) {
	var got predictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"label": 0, "confidence": 0.91}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", WithHTTPClient(srv.Client()))
	p, err := Predict(context.Background(), c, vector(), time.Second)
	require.NoError(t, err)

	assert.Equal(t, types.Prediction{Label: 0, Confidence: 0.91}, p)
	assert.Equal(t, features.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, types.FeatureNames, got.FeatureNames)
	assert.Equal(t, vector().Values(), got.Features)
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"server error", http.StatusInternalServerError, "model not loaded", ReasonUnavailable},
		{"invalid json", http.StatusOK, "not json", ReasonMalformedPrediction},
		{"missing confidence", http.StatusOK, `{"label": 1}`, ReasonMalformedPrediction},
		{"error field", http.StatusOK, `{"error": "bad input"}`, ReasonUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := Predict(context.Background(), NewHTTPClient(srv.URL), vector(), time.Second)
			assert.Equal(t, tt.reason, reasonOf(t, err))
		})
	}
}

func TestHTTPClient_NotConfigured(t *testing.T) {
	_, err := Predict(context.Background(), NewHTTPClient(""), vector(), time.Second)
	assert.Equal(t, ReasonUnavailable, reasonOf(t, err))
}
