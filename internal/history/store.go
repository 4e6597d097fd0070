package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"takeoff_monitor/internal/models"
)

// Store persists simulation sessions, their per-tick snapshots, and the
// prediction results behind them, so completed rolls can be replayed.
type Store struct {
	conn *sql.DB
}

// Open opens (and initializes) the SQLite history database.
func Open(path string) (*Store, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite works best with a single writer.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn}
	if err := s.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		sim_time INTEGER NOT NULL,
		speed REAL NOT NULL,
		phase_label TEXT NOT NULL,
		engine_risk TEXT NOT NULL,
		engine_rul REAL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		sim_time INTEGER NOT NULL,
		subsystem TEXT NOT NULL,
		rul REAL NOT NULL,
		risk TEXT NOT NULL,
		source TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id, sim_time);
	CREATE INDEX IF NOT EXISTS idx_predictions_session ON predictions(session_id, sim_time);
	CREATE INDEX IF NOT EXISTS idx_predictions_risk ON predictions(risk);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// BeginSession records the start of a simulation run.
func (s *Store) BeginSession(id string, startedAt time.Time) error {
	_, err := s.conn.Exec(`INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)`, id, startedAt)
	return err
}

// EndSession marks a run as finished.
func (s *Store) EndSession(id string, endedAt time.Time) error {
	_, err := s.conn.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`, endedAt, id)
	return err
}

// RecordSnapshot stores one broadcast snapshot and the prediction results
// produced on that tick, in a single transaction.
func (s *Store) RecordSnapshot(snap models.SimulationSnapshot) error {
	if snap.SessionID == "" {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rul sql.NullFloat64
	if snap.EngineRUL != nil {
		rul = sql.NullFloat64{Float64: *snap.EngineRUL, Valid: true}
	}
	_, err = tx.Exec(`
		INSERT INTO snapshots (session_id, sim_time, speed, phase_label, engine_risk, engine_rul)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.SessionID, snap.Time, snap.Speed, snap.PhaseLabel, string(snap.EngineRisk), rul,
	)
	if err != nil {
		return err
	}

	for _, res := range snap.SubsystemResults {
		// only persist results produced on this tick; older ones were
		// already stored when their cycle ran
		if res.Tick != snap.Time {
			continue
		}
		_, err = tx.Exec(`
			INSERT INTO predictions (session_id, sim_time, subsystem, rul, risk, source)
			VALUES (?, ?, ?, ?, ?, ?)`,
			snap.SessionID, res.Tick, string(res.Subsystem), res.RUL, string(res.Risk), string(res.Source),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListSessions returns recorded sessions, newest first.
func (s *Store) ListSessions() ([]models.SessionInfo, error) {
	rows, err := s.conn.Query(`
		SELECT s.id, s.started_at, COALESCE(s.ended_at, ''),
		       (SELECT COUNT(*) FROM snapshots WHERE session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.SessionInfo
	for rows.Next() {
		var info models.SessionInfo
		if err := rows.Scan(&info.ID, &info.StartedAt, &info.EndedAt, &info.SnapshotCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

// SnapshotRecord is one persisted tick of a recorded session.
type SnapshotRecord struct {
	SimTime    int      `json:"sim_time"`
	Speed      float64  `json:"speed"`
	PhaseLabel string   `json:"phase_label"`
	EngineRisk string   `json:"engine_risk"`
	EngineRUL  *float64 `json:"engine_rul"`
}

// SessionSnapshots returns the tick history of one session in time order.
func (s *Store) SessionSnapshots(sessionID string) ([]SnapshotRecord, error) {
	rows, err := s.conn.Query(`
		SELECT sim_time, speed, phase_label, engine_risk, engine_rul
		FROM snapshots WHERE session_id = ? ORDER BY sim_time`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		var rul sql.NullFloat64
		if err := rows.Scan(&rec.SimTime, &rec.Speed, &rec.PhaseLabel, &rec.EngineRisk, &rul); err != nil {
			return nil, err
		}
		if rul.Valid {
			v := rul.Float64
			rec.EngineRUL = &v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PredictionRecord is one persisted prediction result.
type PredictionRecord struct {
	SimTime   int     `json:"sim_time"`
	Subsystem string  `json:"subsystem"`
	RUL       float64 `json:"rul"`
	Risk      string  `json:"risk"`
	Source    string  `json:"source"`
}

// SessionPredictions returns all prediction results of one session.
func (s *Store) SessionPredictions(sessionID string) ([]PredictionRecord, error) {
	rows, err := s.conn.Query(`
		SELECT sim_time, subsystem, rul, risk, source
		FROM predictions WHERE session_id = ? ORDER BY sim_time, subsystem`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.SimTime, &rec.Subsystem, &rec.RUL, &rec.Risk, &rec.Source); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats returns aggregate history statistics.
func (s *Store) Stats() (map[string]any, error) {
	stats := make(map[string]any)

	var sessions, snapshots, predictions, dangers int64
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&sessions); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&snapshots); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&predictions); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM predictions WHERE risk = 'danger'`).Scan(&dangers); err != nil {
		return nil, err
	}

	stats["total_sessions"] = sessions
	stats["total_snapshots"] = snapshots
	stats["total_predictions"] = predictions
	stats["danger_predictions"] = dangers
	return stats, nil
}
