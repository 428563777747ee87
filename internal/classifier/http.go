package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/features"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

const predictEndpoint = "/predict"

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// HTTPClient calls a model server that answers POST /predict with a label and
// a confidence for one feature vector.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

type predictRequest struct {
	SchemaVersion string    `json:"schema_version"`
	FeatureNames  []string  `json:"feature_names"`
	Features      []float64 `json:"features"`
}

type predictResponse struct {
	Label      *int     `json:"label"`
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error"`
}

// NewHTTPClient creates a client for the model server at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Predict implements Classifier.
func (c *HTTPClient) Predict(ctx context.Context, fv types.FeatureVector) (types.Prediction, error) {
	if c == nil || c.BaseURL == "" {
		return types.Prediction{}, fmt.Errorf("classifier endpoint is not configured")
	}
	body, err := json.Marshal(predictRequest{
		SchemaVersion: features.SchemaVersion,
		FeatureNames:  types.FeatureNames,
		Features:      fv.Values(),
	})
	if err != nil {
		return types.Prediction{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+predictEndpoint, bytes.NewReader(body))
	if err != nil {
		return types.Prediction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return types.Prediction{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.Prediction{}, fmt.Errorf("classifier API error: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.Prediction{}, &InferenceError{
			Reason:   ReasonMalformedPrediction,
			Messages: []string{"classifier response is not valid JSON"},
			Cause:    err,
		}
	}
	if out.Error != "" {
		return types.Prediction{}, fmt.Errorf("classifier API error: %s", out.Error)
	}
	if out.Label == nil || out.Confidence == nil {
		return types.Prediction{}, &InferenceError{
			Reason:   ReasonMalformedPrediction,
			Messages: []string{"classifier response lacks label or confidence"},
		}
	}
	return types.Prediction{Label: *out.Label, Confidence: *out.Confidence}, nil
}
