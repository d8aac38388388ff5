// Package recorder stores the posture signal and the desired command of each tick in a sqlite database
// so that sessions can be reviewed after the fact.
package recorder

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	// register the sqlite driver.
	_ "modernc.org/sqlite"

	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/posture"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		name TEXT,
		started_at INTEGER
	);
	CREATE TABLE IF NOT EXISTS observations (
		observation_id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		recorded_at INTEGER,
		frame_index INTEGER,
		body_id INTEGER,
		valid BOOLEAN,
		safety TEXT,
		distance_m DOUBLE,
		bearing DOUBLE,
		missed_ticks INTEGER,
		fps DOUBLE,
		linear_x DOUBLE,
		angular_z DOUBLE,
		FOREIGN KEY(session_id) REFERENCES sessions(session_id)
	);
`

// Config configures the recorder.
type Config struct {
	Path        string `json:"path"`
	SessionName string `json:"session_name,omitempty"`
	// EveryTicks records one of every n delivered ticks. Default 1.
	EveryTicks int `json:"every_ticks,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Path == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "path")
	}
	if cfg.EveryTicks < 0 {
		return utils.NewConfigValidationError(path, errors.New("every_ticks must be non-negative"))
	}
	return nil
}

// Session is one run of the recorder.
type Session struct {
	ID        string
	Name      string
	StartedAt time.Time
}

// Observation is one recorded tick.
type Observation struct {
	SessionID   string
	RecordedAt  time.Time
	FrameIndex  int64
	BodyID      int
	Valid       bool
	Safety      string
	DistanceM   float64
	Bearing     float64
	MissedTicks int
	FPS         float64
	LinearX     float64
	AngularZ    float64
}

// Recorder writes observations of one session.
type Recorder struct {
	db      *sql.DB
	clk     clock.Clock
	logger  logging.Logger
	session string
	every   int

	mu    sync.Mutex
	ticks int
}

// Open opens or creates the database at cfg.Path and starts a new session.
func Open(ctx context.Context, cfg *Config, clk clock.Clock, logger logging.Logger) (*Recorder, error) {
	if err := cfg.Validate("recorder"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot create schema in %q", cfg.Path), db.Close())
	}

	r := &Recorder{db: db, clk: clk, logger: logger, session: uuid.NewString(), every: cfg.EveryTicks}
	if r.every == 0 {
		r.every = 1
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO sessions (session_id, name, started_at) VALUES (?, ?, ?)",
		r.session, cfg.SessionName, clk.Now().UnixNano(),
	); err != nil {
		return nil, multierr.Combine(err, db.Close())
	}
	logger.Infow("recording session", "path", cfg.Path, "session_id", r.session)
	return r, nil
}

// SessionID returns the id of the session being recorded.
func (r *Recorder) SessionID() string {
	return r.session
}

// Record stores one observation.
func (r *Recorder) Record(ctx context.Context, sig posture.Signal, cmd posture.Command, fps float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO observations (
			session_id, recorded_at, frame_index, body_id, valid, safety,
			distance_m, bearing, missed_ticks, fps, linear_x, angular_z
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.session, r.clk.Now().UnixNano(), sig.FrameIndex, sig.BodyID, sig.Valid, sig.Safety.String(),
		sig.DistanceM, sig.Bearing, sig.MissedTicks, fps, cmd.Linear.X, cmd.Angular.Z,
	)
	return err
}

// OnTick records the state of l on every configured delivered tick. Errors are logged.
func (r *Recorder) OnTick(ctx context.Context, l *dispatch.Listener, delivered bool) {
	if !delivered {
		return
	}
	r.mu.Lock()
	r.ticks++
	due := r.ticks%r.every == 0
	r.mu.Unlock()
	if !due {
		return
	}
	if err := r.Record(ctx, l.Signal(), l.DesiredCommand(), l.FPS()); err != nil {
		r.logger.Warnw("cannot record observation", "error", err)
	}
}

// Sessions lists the recorded sessions, oldest first.
func (r *Recorder) Sessions(ctx context.Context) ([]Session, error) {
	return Sessions(ctx, r.db)
}

// Observations lists up to limit observations of a session in recording order. A non-positive limit
// returns all of them.
func (r *Recorder) Observations(ctx context.Context, session string, limit int) ([]Observation, error) {
	return Observations(ctx, r.db, session, limit)
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// OpenReadOnly opens an existing database for the listing functions.
func OpenReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", "file:"+path+"?mode=ro")
}

// Sessions lists the sessions stored in db, oldest first.
func Sessions(ctx context.Context, db *sql.DB) ([]Session, error) {
	rows, err := db.QueryContext(ctx, "SELECT session_id, name, started_at FROM sessions ORDER BY started_at, rowid")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(rows.Close)

	var sessions []Session
	for rows.Next() {
		var s Session
		var name sql.NullString
		var started int64
		if err := rows.Scan(&s.ID, &name, &started); err != nil {
			return nil, err
		}
		s.Name = name.String
		s.StartedAt = time.Unix(0, started)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Observations lists up to limit observations of session in recording order.
func Observations(ctx context.Context, db *sql.DB, session string, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT session_id, recorded_at, frame_index, body_id, valid, safety,
			distance_m, bearing, missed_ticks, fps, linear_x, angular_z
		FROM observations WHERE session_id = ? ORDER BY observation_id LIMIT ?`, session, limit)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(rows.Close)

	var observations []Observation
	for rows.Next() {
		var o Observation
		var recorded int64
		if err := rows.Scan(
			&o.SessionID, &recorded, &o.FrameIndex, &o.BodyID, &o.Valid, &o.Safety,
			&o.DistanceM, &o.Bearing, &o.MissedTicks, &o.FPS, &o.LinearX, &o.AngularZ,
		); err != nil {
			return nil, err
		}
		o.RecordedAt = time.Unix(0, recorded)
		observations = append(observations, o)
	}
	return observations, rows.Err()
}
