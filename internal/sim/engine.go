package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"takeoff_monitor/internal/models"
)

const (
	maxSimTime   = 50
	predictEvery = 3

	maxSpeedKnots    = 175.0
	speedRampSeconds = 45.0
	v1SpeedKnots     = 140.0

	defaultTickInterval   = time.Second
	defaultPredictTimeout = 800 * time.Millisecond
)

// Predictor invokes the remote inference collaborator. Implementations
// return the raw model output; normalization happens in the engine so the
// fallback path shares the same clock and randomness.
type Predictor interface {
	PredictEngine(ctx context.Context, features []float64) (float64, error)
	PredictSubsystem(ctx context.Context, sub models.Subsystem, sequence [][]float64) (float64, error)
}

// Engine owns the takeoff simulation clock and all derived state: the two
// sensor readings, the latest prediction results, and the per-tick snapshot
// broadcast to subscribers.
type Engine struct {
	mu            sync.Mutex
	phase         models.SimPhase
	sessionID     string
	simTime       int
	speed         float64
	engineReading models.EngineSensorReading
	subReading    models.SubsystemSensorReading
	engineRUL     *float64
	results       map[models.Subsystem]models.PredictionResult
	last          models.SimulationSnapshot

	rng       *rand.Rand
	predictor Predictor
	log       zerolog.Logger

	tickInterval   time.Duration
	predictTimeout time.Duration

	ticker *time.Ticker
	runCtx context.Context
	cancel context.CancelFunc

	subs      map[int]func(models.SimulationSnapshot)
	nextSubID int
}

func NewEngine(predictor Predictor, logger zerolog.Logger) *Engine {
	return &Engine{
		phase:          models.PhaseIdle,
		results:        make(map[models.Subsystem]models.PredictionResult),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		predictor:      predictor,
		log:            logger,
		tickInterval:   defaultTickInterval,
		predictTimeout: defaultPredictTimeout,
		subs:           make(map[int]func(models.SimulationSnapshot)),
	}
}

// SetTickInterval overrides the one-second tick, mainly for tests and demos.
func (e *Engine) SetTickInterval(d time.Duration) {
	if d > 0 {
		e.tickInterval = d
	}
}

// SetPredictTimeout bounds each remote call so a slow upstream can never
// run past the next tick boundary.
func (e *Engine) SetPredictTimeout(d time.Duration) {
	if d > 0 {
		e.predictTimeout = d
	}
}

// SetRand replaces the engine's randomness source.
func (e *Engine) SetRand(rng *rand.Rand) {
	e.rng = rng
}

// SpeedAt derives ground speed from simulation time: a linear ramp to
// rotation speed over the first 45 seconds, held afterwards.
func SpeedAt(simTime int) float64 {
	if simTime <= 0 {
		return 0
	}
	s := float64(simTime) / speedRampSeconds * maxSpeedKnots
	if s > maxSpeedKnots {
		return maxSpeedKnots
	}
	return s
}

// Start begins a new roll. Valid only from Idle.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.phase != models.PhaseIdle {
		e.mu.Unlock()
		return fmt.Errorf("simulation already started")
	}
	e.resetLocked()
	e.phase = models.PhaseRunning
	e.sessionID = uuid.NewString()
	e.engineReading = NewEngineReading()
	e.subReading = NewSubsystemReading()
	snap := e.snapshotLocked()
	e.last = snap
	session := e.sessionID
	e.mu.Unlock()

	e.startTicker()
	e.broadcast(snap)
	e.log.Info().Str("session", session).Msg("takeoff simulation started")
	return nil
}

// Pause suspends the tick timer. Valid only while Running.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.phase != models.PhaseRunning {
		e.mu.Unlock()
		return fmt.Errorf("simulation is not running")
	}
	e.phase = models.PhasePaused
	snap := e.snapshotLocked()
	e.last = snap
	e.mu.Unlock()

	e.stopTicker()
	e.broadcast(snap)
	return nil
}

// Resume restarts the tick timer. Valid only while Paused.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.phase != models.PhasePaused {
		e.mu.Unlock()
		return fmt.Errorf("simulation is not paused")
	}
	e.phase = models.PhaseRunning
	snap := e.snapshotLocked()
	e.last = snap
	e.mu.Unlock()

	e.startTicker()
	e.broadcast(snap)
	return nil
}

// Stop resets to Idle from any state, clearing time, speed, and all
// predictions. Safe to call repeatedly; a second call is a no-op with
// identical resulting state.
func (e *Engine) Stop() {
	e.mu.Lock()
	wasIdle := e.phase == models.PhaseIdle
	e.resetLocked()
	snap := e.snapshotLocked()
	e.last = snap
	e.mu.Unlock()

	e.stopTicker()
	if !wasIdle {
		e.broadcast(snap)
	}
}

// State returns the control-surface view of the clock.
func (e *Engine) State() models.SimState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.SimState{
		SessionID: e.sessionID,
		Phase:     e.phase,
		Time:      e.simTime,
		Speed:     e.speed,
	}
}

// Snapshot returns the most recently broadcast snapshot.
func (e *Engine) Snapshot() models.SimulationSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// SimTime returns the current simulation time.
func (e *Engine) SimTime() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.simTime
}

// Subscribe registers a snapshot consumer and returns its unsubscribe
// function. Consumers must treat snapshots as read-only.
func (e *Engine) Subscribe(fn func(models.SimulationSnapshot)) func() {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// AdvanceTick runs one simulation tick: advance time and speed, update both
// sensor readings, and every third tick run the prediction cycle. Past the
// 50-second window the roll completes and the clock resets to Idle.
func (e *Engine) AdvanceTick() {
	e.mu.Lock()
	if e.phase != models.PhaseRunning {
		e.mu.Unlock()
		return
	}
	e.simTime++
	if e.simTime > maxSimTime {
		session := e.sessionID
		e.resetLocked()
		snap := e.snapshotLocked()
		e.last = snap
		e.mu.Unlock()

		e.stopTicker()
		e.broadcast(snap)
		e.log.Info().Str("session", session).Msg("takeoff roll complete")
		return
	}

	t := e.simTime
	e.speed = SpeedAt(t)
	e.engineReading = AdvanceEngine(e.engineReading, t, e.rng)
	e.subReading = AdvanceSubsystems(e.subReading, t, e.rng)

	runPredict := t%predictEvery == 0 && e.predictor != nil
	var features []float64
	var sequences map[models.Subsystem][][]float64
	if runPredict {
		features = e.engineReading.Features()
		sequences = make(map[models.Subsystem][][]float64, len(models.AllSubsystems))
		for _, sub := range models.AllSubsystems {
			sequences[sub] = BuildSequence(sub, e.subReading, t, e.rng)
		}
	}
	session := e.sessionID
	ctx := e.runCtx
	e.mu.Unlock()

	if runPredict {
		e.runPredictions(ctx, session, t, features, sequences)
	}

	e.mu.Lock()
	snap := e.snapshotLocked()
	e.last = snap
	e.mu.Unlock()
	e.broadcast(snap)
}

type rawResult struct {
	sub models.Subsystem
	raw float64
	err error
}

// runPredictions fans out one call per subsystem plus the engine, collects
// whatever settles within the timeout, and applies results under the lock.
// Results arriving for a session that has since stopped are discarded.
func (e *Engine) runPredictions(parent context.Context, session string, t int, features []float64, sequences map[models.Subsystem][][]float64) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, e.predictTimeout)
	defer cancel()

	out := make(chan rawResult, len(models.AllSubsystems)+1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		raw, err := e.predictor.PredictEngine(ctx, features)
		out <- rawResult{sub: models.SubsystemEngine, raw: raw, err: err}
	}()

	for _, sub := range models.AllSubsystems {
		seq := sequences[sub]
		if seq == nil {
			// sequence failed validation: skip the remote call this cycle
			// and leave the previous result in place
			continue
		}
		wg.Add(1)
		go func(sub models.Subsystem, seq [][]float64) {
			defer wg.Done()
			raw, err := e.predictor.PredictSubsystem(ctx, sub, seq)
			out <- rawResult{sub: sub, raw: raw, err: err}
		}(sub, seq)
	}

	wg.Wait()
	close(out)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessionID != session || e.phase != models.PhaseRunning {
		return
	}
	for res := range out {
		var rul float64
		source := models.SourceModel
		if res.err != nil {
			rul = FallbackRUL(res.sub, t, e.rng)
			source = models.SourceFallback
			e.log.Debug().Err(res.err).Str("subsystem", string(res.sub)).Int("t", t).
				Msg("remote prediction failed, using fallback")
		} else {
			rul = NormalizeRUL(res.raw, t, e.rng)
		}

		if res.sub == models.SubsystemEngine {
			v := rul
			e.engineRUL = &v
			continue
		}
		tier := ClassifySubsystem(rul)
		e.results[res.sub] = models.PredictionResult{
			Subsystem:   res.sub,
			RUL:         rul,
			Risk:        tier,
			StatusLabel: StatusLabel(tier),
			Source:      source,
			Tick:        t,
		}
	}
}

func (e *Engine) resetLocked() {
	e.phase = models.PhaseIdle
	e.sessionID = ""
	e.simTime = 0
	e.speed = 0
	e.engineRUL = nil
	e.results = make(map[models.Subsystem]models.PredictionResult)
}

func (e *Engine) snapshotLocked() models.SimulationSnapshot {
	tiers := make([]models.RiskTier, 0, len(models.AllSubsystems)+1)
	if e.engineRUL != nil {
		tiers = append(tiers, ClassifyEngine(*e.engineRUL))
	}
	subResults := make([]models.PredictionResult, 0, len(models.AllSubsystems))
	for _, sub := range models.AllSubsystems {
		if res, ok := e.results[sub]; ok {
			subResults = append(subResults, res)
			tiers = append(tiers, res.Risk)
		}
	}
	var rul *float64
	if e.engineRUL != nil {
		v := *e.engineRUL
		rul = &v
	}
	return models.SimulationSnapshot{
		SessionID:        e.sessionID,
		Time:             e.simTime,
		Speed:            e.speed,
		PhaseLabel:       phaseLabel(e.phase, e.speed),
		IsRunning:        e.phase == models.PhaseRunning,
		IsPaused:         e.phase == models.PhasePaused,
		EngineRisk:       WorstTier(tiers...),
		EngineRUL:        rul,
		SubsystemResults: subResults,
	}
}

func phaseLabel(phase models.SimPhase, speed float64) string {
	if phase == models.PhaseIdle {
		return "idle"
	}
	switch {
	case speed >= maxSpeedKnots:
		return "rotate"
	case speed >= v1SpeedKnots:
		return "v1"
	default:
		return "takeoff_roll"
	}
}

func (e *Engine) startTicker() {
	e.mu.Lock()
	if e.ticker == nil {
		e.ticker = time.NewTicker(e.tickInterval)
	} else {
		e.ticker.Reset(e.tickInterval)
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.runCtx, e.cancel = context.WithCancel(context.Background())
	ctx := e.runCtx
	ticker := e.ticker
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.AdvanceTick()
			}
		}
	}()
}

func (e *Engine) stopTicker() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
	e.mu.Unlock()
}

func (e *Engine) broadcast(snap models.SimulationSnapshot) {
	e.mu.Lock()
	handlers := make([]func(models.SimulationSnapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(snap)
	}
}
