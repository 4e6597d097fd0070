package api

import (
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"takeoff_monitor/internal/history"
	"takeoff_monitor/internal/models"
	"takeoff_monitor/internal/sim"
)

type Server struct {
	engine    *sim.Engine
	predictor sim.Predictor
	store     *history.Store
	hub       *Hub
	log       zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New constructs the HTTP router wired to the simulation engine. The store
// and hub may be nil; their routes degrade gracefully.
func New(engine *sim.Engine, predictor sim.Predictor, store *history.Store, hub *Hub, logger zerolog.Logger) http.Handler {
	s := &Server{
		engine:    engine,
		predictor: predictor,
		store:     store,
		hub:       hub,
		log:       logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/state", s.handleState)
	r.Get("/snapshot", s.handleSnapshot)
	r.Post("/sim/start", s.handleSimStart)
	r.Post("/sim/pause", s.handleSimPause)
	r.Post("/sim/resume", s.handleSimResume)
	r.Post("/sim/stop", s.handleSimStop)
	r.Post("/api/predict", s.handlePredict)
	if hub != nil {
		r.Get("/events", s.handleEvents)
	}
	if store != nil {
		r.Get("/history/sessions", s.handleSessions)
		r.Get("/history/sessions/{id}/snapshots", s.handleSessionSnapshots)
		r.Get("/history/sessions/{id}/predictions", s.handleSessionPredictions)
		r.Get("/history/stats", s.handleStats)
	}

	return r
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.State())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.Snapshot())
}

func (s *Server) handleSimStart(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Start(); err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, s.engine.State())
}

func (s *Server) handleSimPause(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Pause(); err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, s.engine.State())
}

func (s *Server) handleSimResume(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Resume(); err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, s.engine.State())
}

func (s *Server) handleSimStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	writeJSON(w, s.engine.State())
}

// handlePredict is the manual single-prediction proxy. Unlike the
// simulation path it surfaces upstream errors to the caller so the UI can
// show a dismissible banner.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subsystem models.Subsystem `json:"subsystem"`
		Sequence  json.RawMessage  `json:"sequence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	if !models.ValidSubsystem(req.Subsystem) {
		writeJSONError(w, http.StatusBadRequest, "unknown subsystem")
		return
	}

	var raw float64
	var err error
	if req.Subsystem == models.SubsystemEngine {
		var features []float64
		if jsonErr := json.Unmarshal(req.Sequence, &features); jsonErr != nil || len(features) != 24 {
			writeJSONError(w, http.StatusBadRequest, "engine sequence must be a flat vector of exactly 24 values")
			return
		}
		if !allFinite(features) {
			writeJSONError(w, http.StatusBadRequest, "sequence contains non-finite values")
			return
		}
		raw, err = s.predictor.PredictEngine(r.Context(), features)
	} else {
		var sequence [][]float64
		if jsonErr := json.Unmarshal(req.Sequence, &sequence); jsonErr != nil {
			writeJSONError(w, http.StatusBadRequest, "sequence must be an array of rows")
			return
		}
		width := models.SubsystemChannels[req.Subsystem]
		if len(sequence) != sim.SequenceLength {
			writeJSONError(w, http.StatusBadRequest, "sequence must contain exactly 50 rows")
			return
		}
		for _, row := range sequence {
			if len(row) != width || !allFinite(row) {
				writeJSONError(w, http.StatusBadRequest, "sequence rows do not match the subsystem channel count")
				return
			}
		}
		raw, err = s.predictor.PredictSubsystem(r.Context(), req.Subsystem, sequence)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("subsystem", string(req.Subsystem)).Msg("manual prediction failed")
		writeJSONError(w, http.StatusBadGateway, "inference service unavailable")
		return
	}

	t := s.engine.SimTime()
	s.rngMu.Lock()
	rul := sim.NormalizeRUL(raw, t, s.rng)
	s.rngMu.Unlock()
	tier := sim.Classify(req.Subsystem, rul)

	writeJSON(w, models.PredictionResult{
		Subsystem:   req.Subsystem,
		RUL:         rul,
		Risk:        tier,
		StatusLabel: sim.StatusLabel(tier),
		Source:      models.SourceModel,
		Tick:        t,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []models.SessionInfo{}
	}
	writeJSON(w, sessions)
}

func (s *Server) handleSessionSnapshots(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.SessionSnapshots(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []history.SnapshotRecord{}
	}
	writeJSON(w, records)
}

func (s *Server) handleSessionPredictions(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.SessionPredictions(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []history.PredictionRecord{}
	}
	writeJSON(w, records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, stats)
}

// ===== helpers =====

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
