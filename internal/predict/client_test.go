package predict

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"takeoff_monitor/internal/models"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, time.Second, zerolog.Nop())
}

func TestPredictEngineSendsFeatureVector(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Sequence []float64 `json:"sequence"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"predicted_RUL": 92.5}`))
	}))
	defer srv.Close()

	features := make([]float64, 24)
	raw, err := newTestClient(srv).PredictEngine(context.Background(), features)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if raw != 92.5 {
		t.Fatalf("raw = %f, want 92.5", raw)
	}
	if gotPath != "/predict/engine" {
		t.Fatalf("posted to %s, want /predict/engine", gotPath)
	}
	if len(gotBody.Sequence) != 24 {
		t.Fatalf("sent %d features, want 24", len(gotBody.Sequence))
	}
}

func TestPredictSubsystemPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"predicted_hydraulic_output": 41}`))
	}))
	defer srv.Close()

	seq := [][]float64{{1, 2, 3}}
	raw, err := newTestClient(srv).PredictSubsystem(context.Background(), models.SubsystemHydraulic, seq)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if raw != 41 {
		t.Fatalf("raw = %f, want 41", raw)
	}
	if gotPath != "/predict/hydraulic" {
		t.Fatalf("posted to %s, want /predict/hydraulic", gotPath)
	}
}

func TestResponseKeyPreferenceOrder(t *testing.T) {
	cases := []struct {
		body string
		want float64
	}{
		{`{"predicted_RUL": 80, "prediction": 50, "rul": 10}`, 80},
		{`{"predicted_cabin_output": 60, "prediction": 50}`, 60},
		{`{"prediction": 50, "rul": 10}`, 50},
		{`{"rul": 10}`, 10},
		{`{"predicted_RUL": "not a number", "prediction": 33}`, 33},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(c.body))
		}))
		raw, err := newTestClient(srv).PredictSubsystem(context.Background(), models.SubsystemCabin, [][]float64{{1}})
		srv.Close()
		if err != nil {
			t.Fatalf("body %s: %v", c.body, err)
		}
		if raw != c.want {
			t.Fatalf("body %s: raw = %f, want %f", c.body, raw, c.want)
		}
	}
}

func TestMissingPredictionKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).PredictEngine(context.Background(), make([]float64, 24))
	if !errors.Is(err, ErrNoPrediction) {
		t.Fatalf("expected ErrNoPrediction, got %v", err)
	}
}

func TestNon200Response(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).PredictEngine(context.Background(), make([]float64, 24)); err == nil {
		t.Fatalf("expected an error for a 500 response")
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and can
		// observe the client disconnect, which cancels r.Context().
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := newTestClient(srv).PredictEngine(ctx, make([]float64, 24)); err == nil {
		t.Fatalf("expected a timeout error")
	}
}
