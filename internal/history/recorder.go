package history

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"takeoff_monitor/internal/models"
)

// Recorder is an engine subscriber that writes every broadcast snapshot to
// the store. It tracks session boundaries from the snapshot stream itself:
// a new session id opens a session, a snapshot without one closes it.
type Recorder struct {
	mu      sync.Mutex
	store   *Store
	log     zerolog.Logger
	current string
}

func NewRecorder(store *Store, logger zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: logger}
}

// Observe is the subscription callback.
func (r *Recorder) Observe(snap models.SimulationSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if snap.SessionID != r.current {
		if r.current != "" {
			if err := r.store.EndSession(r.current, now); err != nil {
				r.log.Warn().Err(err).Str("session", r.current).Msg("failed to close session")
			}
		}
		if snap.SessionID != "" {
			if err := r.store.BeginSession(snap.SessionID, now); err != nil {
				r.log.Warn().Err(err).Str("session", snap.SessionID).Msg("failed to open session")
			}
		}
		r.current = snap.SessionID
	}
	if snap.SessionID == "" {
		return
	}
	if err := r.store.RecordSnapshot(snap); err != nil {
		r.log.Warn().Err(err).Str("session", snap.SessionID).Msg("failed to record snapshot")
	}
}
