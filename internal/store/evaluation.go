package store

import (
	"database/sql"
	"time"
)

// Evaluation is one recorded verdict.
type Evaluation struct {
	ID             int64
	SessionID      string
	Frame          int
	Elapsed        time.Duration
	ReferenceIndex int
	Condition      string
	Feedback       string
	Reason         string
	Method         string
	// Distances and confidence are nil when the verdict had none.
	AvgDistance     *float64
	MaxDistance     *float64
	DistanceQuality string
	Confidence      *float64
	// Advised is set when an advisor overrode the verdict.
	Advised   bool
	CreatedAt time.Time
}

// Summary aggregates the evaluations of one session.
type Summary struct {
	Total        int
	Good         int
	Bad          int
	NoEvaluation int
	// MeanAvgDistance is nil when no evaluation carried a distance.
	MeanAvgDistance *float64
}

// GoodRatio returns the share of evaluated frames rated good, ignoring
// frames that could not be evaluated.
func (s Summary) GoodRatio() float64 {
	evaluated := s.Good + s.Bad
	if evaluated == 0 {
		return 0
	}
	return float64(s.Good) / float64(evaluated)
}

// EvaluationRepository provides access to recorded verdicts.
type EvaluationRepository struct {
	db *sql.DB
}

// Evaluations returns the evaluation repository for this store.
func (s *Store) Evaluations() *EvaluationRepository {
	return &EvaluationRepository{db: s.db}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

const insertEvaluation = `INSERT INTO evaluations (session_id, frame, elapsed_ms,
	reference_index, condition, feedback, reason, method, avg_distance, max_distance,
	distance_quality, confidence, advised, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Create inserts an evaluation and sets its ID.
func (r *EvaluationRepository) Create(e *Evaluation) error {
	e.CreatedAt = time.Now()

	result, err := r.db.Exec(
		insertEvaluation,
		e.SessionID, e.Frame, e.Elapsed.Milliseconds(), e.ReferenceIndex, e.Condition,
		e.Feedback, e.Reason, e.Method, nullFloat(e.AvgDistance), nullFloat(e.MaxDistance),
		e.DistanceQuality, nullFloat(e.Confidence), e.Advised, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// CreateBatch inserts several evaluations in a single transaction.
func (r *EvaluationRepository) CreateBatch(evals []*Evaluation) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertEvaluation)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range evals {
		e.CreatedAt = now
		result, err := stmt.Exec(
			e.SessionID, e.Frame, e.Elapsed.Milliseconds(), e.ReferenceIndex, e.Condition,
			e.Feedback, e.Reason, e.Method, nullFloat(e.AvgDistance), nullFloat(e.MaxDistance),
			e.DistanceQuality, nullFloat(e.Confidence), e.Advised, e.CreatedAt,
		)
		if err != nil {
			return err
		}
		if e.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession retrieves the evaluations of a session in frame order.
func (r *EvaluationRepository) ListBySession(sessionID string) ([]*Evaluation, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, frame, elapsed_ms, reference_index, condition, feedback,
			reason, method, avg_distance, max_distance, distance_quality, confidence,
			advised, created_at
		 FROM evaluations
		 WHERE session_id = ?
		 ORDER BY frame, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []*Evaluation
	for rows.Next() {
		e := &Evaluation{}
		var elapsedMs int64
		var avg, mx, conf sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Frame, &elapsedMs, &e.ReferenceIndex,
			&e.Condition, &e.Feedback, &e.Reason, &e.Method, &avg, &mx, &e.DistanceQuality,
			&conf, &e.Advised, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		e.AvgDistance = floatPtr(avg)
		e.MaxDistance = floatPtr(mx)
		e.Confidence = floatPtr(conf)
		evals = append(evals, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return evals, nil
}

// Summary aggregates the evaluations of a session. A session with no
// evaluations yields a zero Summary.
func (r *EvaluationRepository) Summary(sessionID string) (Summary, error) {
	var s Summary
	var mean sql.NullFloat64
	err := r.db.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN feedback = 'good' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN feedback = 'bad' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN feedback = 'no_evaluation' THEN 1 ELSE 0 END), 0),
			AVG(avg_distance)
		 FROM evaluations WHERE session_id = ?`,
		sessionID,
	).Scan(&s.Total, &s.Good, &s.Bad, &s.NoEvaluation, &mean)
	if err != nil {
		return Summary{}, err
	}
	s.MeanAvgDistance = floatPtr(mean)
	return s, nil
}
