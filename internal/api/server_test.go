package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"takeoff_monitor/internal/models"
	"takeoff_monitor/internal/sim"
)

type stubPredictor struct {
	raw float64
	err error
}

func (s *stubPredictor) PredictEngine(ctx context.Context, features []float64) (float64, error) {
	return s.raw, s.err
}

func (s *stubPredictor) PredictSubsystem(ctx context.Context, sub models.Subsystem, sequence [][]float64) (float64, error) {
	return s.raw, s.err
}

func newTestServer(t *testing.T, p sim.Predictor) (http.Handler, *sim.Engine) {
	t.Helper()
	engine := sim.NewEngine(p, zerolog.Nop())
	engine.SetTickInterval(time.Hour)
	t.Cleanup(engine.Stop)
	return New(engine, p, nil, nil, zerolog.Nop()), engine
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	handler, _ := newTestServer(t, &stubPredictor{})
	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
}

func TestSimLifecycleEndpoints(t *testing.T) {
	handler, _ := newTestServer(t, &stubPredictor{err: fmt.Errorf("down")})

	if rec := doJSON(t, handler, http.MethodPost, "/sim/start", nil); rec.Code != http.StatusOK {
		t.Fatalf("start returned %d: %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, handler, http.MethodPost, "/sim/start", nil); rec.Code != http.StatusConflict {
		t.Fatalf("second start returned %d, want 409", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/sim/pause", nil); rec.Code != http.StatusOK {
		t.Fatalf("pause returned %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/sim/pause", nil); rec.Code != http.StatusConflict {
		t.Fatalf("double pause returned %d, want 409", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/sim/resume", nil); rec.Code != http.StatusOK {
		t.Fatalf("resume returned %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, "/sim/stop", nil); rec.Code != http.StatusOK {
		t.Fatalf("stop returned %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodGet, "/state", nil)
	var state models.SimState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if state.Phase != models.PhaseIdle || state.Time != 0 {
		t.Fatalf("expected idle state after stop, got %+v", state)
	}
}

func TestPredictValidation(t *testing.T) {
	handler, _ := newTestServer(t, &stubPredictor{raw: 90})

	cases := []struct {
		name string
		body map[string]any
	}{
		{"unknown subsystem", map[string]any{"subsystem": "warp_core", "sequence": []float64{1}}},
		{"engine wrong length", map[string]any{"subsystem": "engine", "sequence": make([]float64, 23)}},
		{"subsystem wrong row count", map[string]any{"subsystem": "hydraulic", "sequence": [][]float64{{1, 2, 3}}}},
		{"subsystem wrong row width", map[string]any{"subsystem": "cabin", "sequence": wideSequence(50, 2)}},
		{"sequence not an array", map[string]any{"subsystem": "engine", "sequence": "nope"}},
	}
	for _, c := range cases {
		rec := doJSON(t, handler, http.MethodPost, "/api/predict", c.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: returned %d, want 400", c.name, rec.Code)
		}
	}
}

func TestPredictSuccess(t *testing.T) {
	handler, _ := newTestServer(t, &stubPredictor{raw: 90})

	body := map[string]any{"subsystem": "engine", "sequence": make([]float64, 24)}
	rec := doJSON(t, handler, http.MethodPost, "/api/predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict returned %d: %s", rec.Code, rec.Body.String())
	}

	var res models.PredictionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if res.Subsystem != models.SubsystemEngine {
		t.Fatalf("result for %s, want engine", res.Subsystem)
	}
	// the clock is idle, so no time degradation; just unit jitter
	if res.RUL < 89 || res.RUL > 91 {
		t.Fatalf("RUL = %f, want ~90", res.RUL)
	}
	if res.Risk != models.RiskSafe || res.Source != models.SourceModel {
		t.Fatalf("unexpected classification: %+v", res)
	}
}

func TestPredictSubsystemSuccess(t *testing.T) {
	handler, _ := newTestServer(t, &stubPredictor{raw: 40})

	body := map[string]any{"subsystem": "cabin", "sequence": wideSequence(50, 1)}
	rec := doJSON(t, handler, http.MethodPost, "/api/predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict returned %d: %s", rec.Code, rec.Body.String())
	}

	var res models.PredictionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if res.Risk != models.RiskWarning {
		t.Fatalf("cabin at ~40 should classify warning, got %s", res.Risk)
	}
}

func TestPredictUpstreamFailure(t *testing.T) {
	handler, _ := newTestServer(t, &stubPredictor{err: fmt.Errorf("connection refused")})

	body := map[string]any{"subsystem": "engine", "sequence": make([]float64, 24)}
	rec := doJSON(t, handler, http.MethodPost, "/api/predict", body)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("predict returned %d, want 502", rec.Code)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	handler, engine := newTestServer(t, &stubPredictor{err: fmt.Errorf("down")})

	if err := engine.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	engine.AdvanceTick()

	rec := doJSON(t, handler, http.MethodGet, "/snapshot", nil)
	var snap models.SimulationSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if !snap.IsRunning || snap.Time != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func wideSequence(rows, width int) [][]float64 {
	seq := make([][]float64, rows)
	for i := range seq {
		seq[i] = make([]float64, width)
		for c := range seq[i] {
			seq[i][c] = 1
		}
	}
	return seq
}
