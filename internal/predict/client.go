package predict

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"takeoff_monitor/internal/models"
)

// ErrNoPrediction is returned when the upstream response carries none of
// the known prediction keys. Callers treat it like any other upstream
// failure and fall back locally.
var ErrNoPrediction = fmt.Errorf("response contains no prediction value")

// Client talks to the remote inference service. It is transport only: the
// raw model output is returned untouched and normalization happens in the
// simulation engine.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

type predictRequest struct {
	Sequence any `json:"sequence"`
}

// PredictEngine sends the flat 24-channel feature vector.
func (c *Client) PredictEngine(ctx context.Context, features []float64) (float64, error) {
	return c.post(ctx, models.SubsystemEngine, predictRequest{Sequence: features})
}

// PredictSubsystem sends a 50-row sequence for one subsystem.
func (c *Client) PredictSubsystem(ctx context.Context, sub models.Subsystem, sequence [][]float64) (float64, error) {
	return c.post(ctx, sub, predictRequest{Sequence: sequence})
}

func (c *Client) post(ctx context.Context, sub models.Subsystem, payload predictRequest) (float64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encoding %s request: %w", sub, err)
	}

	url := fmt.Sprintf("%s/predict/%s", c.baseURL, sub)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling inference service for %s: %w", sub, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("inference service returned %d for %s", resp.StatusCode, sub)
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return 0, fmt.Errorf("decoding %s response: %w", sub, err)
	}
	raw, ok := extractPrediction(sub, fields)
	if !ok {
		c.log.Warn().Str("subsystem", string(sub)).Msg("inference response missing prediction keys")
		return 0, ErrNoPrediction
	}
	return raw, nil
}

// extractPrediction checks the known response keys in preference order.
func extractPrediction(sub models.Subsystem, fields map[string]json.RawMessage) (float64, bool) {
	keys := []string{
		"predicted_RUL",
		fmt.Sprintf("predicted_%s_output", sub),
		"prediction",
		"rul",
	}
	for _, k := range keys {
		msg, ok := fields[k]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(msg, &v); err == nil {
			return v, true
		}
	}
	return 0, false
}
