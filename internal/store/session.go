package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/session"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// SessionRecord is one row of the session history listing.
type SessionRecord struct {
	ID           uuid.UUID             `json:"id"`
	ExerciseType analyzer.ExerciseType `json:"exercise_type"`
	TargetReps   int                   `json:"target_reps"`
	TargetSets   int                   `json:"target_sets"`
	Outcome      session.Outcome       `json:"outcome"`
	Error        string                `json:"error,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	EndedAt      time.Time             `json:"ended_at"`
	Sets         int                   `json:"sets"`
	TotalReps    int                   `json:"total_reps"`
	AverageScore float64               `json:"average_score"`
}

// ListOptions filters the history listing. Zero values mean no filter.
type ListOptions struct {
	Exercise analyzer.ExerciseType
	Since    time.Time
	Limit    int
}

// SessionRepository stores finished session summaries.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Save writes a summary with its sets and issue counts in one transaction.
func (r *SessionRepository) Save(sum session.Summary) error {
	if sum.ID == uuid.Nil {
		return errors.New("save session: missing id")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO training_sessions
		 (id, exercise_type, target_reps, target_sets, rest_ms, outcome, error, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID.String(), string(sum.Config.ExerciseType), sum.Config.TargetReps, sum.Config.TargetSets,
		sum.Config.RestDuration.Milliseconds(), string(sum.Outcome), sum.Error,
		sum.StartedAt.UTC(), sum.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for _, set := range sum.CompletedSets {
		res, err := tx.Exec(
			`INSERT INTO session_sets
			 (session_id, set_number, reps, average_score, best_rep_score, worst_rep_score, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sum.ID.String(), set.SetNumber, set.Reps, set.AverageScore,
			nullFloat(set.BestRepScore), nullFloat(set.WorstRepScore), set.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert set %d: %w", set.SetNumber, err)
		}

		setID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert set %d: %w", set.SetNumber, err)
		}

		for i, issue := range set.Issues {
			_, err := tx.Exec(
				`INSERT INTO set_issues (set_id, issue_type, message, priority, count, position)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				setID, string(issue.Type), issue.Message, issue.Priority.String(), issue.Count, i,
			)
			if err != nil {
				return fmt.Errorf("insert issue %s: %w", issue.Type, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Get loads a full summary by ID.
func (r *SessionRepository) Get(id uuid.UUID) (*session.Summary, error) {
	sum := &session.Summary{ID: id}
	var exercise, outcome string
	var restMs int64

	err := r.db.QueryRow(
		`SELECT exercise_type, target_reps, target_sets, rest_ms, outcome, error, started_at, ended_at
		 FROM training_sessions WHERE id = ?`,
		id.String(),
	).Scan(&exercise, &sum.Config.TargetReps, &sum.Config.TargetSets, &restMs,
		&outcome, &sum.Error, &sum.StartedAt, &sum.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sum.Config.ExerciseType = analyzer.ExerciseType(exercise)
	sum.Config.RestDuration = time.Duration(restMs) * time.Millisecond
	sum.Outcome = session.Outcome(outcome)

	sets, err := r.loadSets(id)
	if err != nil {
		return nil, err
	}
	sum.CompletedSets = sets

	return sum, nil
}

func (r *SessionRepository) loadSets(id uuid.UUID) ([]session.SetData, error) {
	rows, err := r.db.Query(
		`SELECT id, set_number, reps, average_score, best_rep_score, worst_rep_score, duration_ms
		 FROM session_sets WHERE session_id = ? ORDER BY set_number`,
		id.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	sets := []session.SetData{}
	for rows.Next() {
		var setID, durationMs int64
		var best, worst sql.NullFloat64
		var set session.SetData

		if err := rows.Scan(&setID, &set.SetNumber, &set.Reps, &set.AverageScore, &best, &worst, &durationMs); err != nil {
			return nil, err
		}
		set.BestRepScore = floatPtr(best)
		set.WorstRepScore = floatPtr(worst)
		set.Duration = time.Duration(durationMs) * time.Millisecond

		ids = append(ids, setID)
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, setID := range ids {
		issues, err := r.loadIssues(setID)
		if err != nil {
			return nil, err
		}
		sets[i].Issues = issues
	}

	return sets, nil
}

func (r *SessionRepository) loadIssues(setID int64) ([]session.IssueSummary, error) {
	rows, err := r.db.Query(
		`SELECT issue_type, message, priority, count
		 FROM set_issues WHERE set_id = ? ORDER BY position`,
		setID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []session.IssueSummary
	for rows.Next() {
		var issueType, priority string
		var is session.IssueSummary

		if err := rows.Scan(&issueType, &is.Message, &priority, &is.Count); err != nil {
			return nil, err
		}
		is.Type = analyzer.IssueType(issueType)
		if err := is.Priority.UnmarshalText([]byte(priority)); err != nil {
			return nil, fmt.Errorf("issue %s: %w", issueType, err)
		}
		issues = append(issues, is)
	}

	return issues, rows.Err()
}

// List returns session records, newest first.
func (r *SessionRepository) List(opts ListOptions) ([]*SessionRecord, error) {
	query := `SELECT s.id, s.exercise_type, s.target_reps, s.target_sets, s.outcome, s.error,
			s.started_at, s.ended_at,
			COUNT(ss.id), COALESCE(SUM(ss.reps), 0), COALESCE(AVG(ss.average_score), 0)
		FROM training_sessions s
		LEFT JOIN session_sets ss ON ss.session_id = s.id
		WHERE 1 = 1`
	var args []any

	if opts.Exercise != "" {
		query += ` AND s.exercise_type = ?`
		args = append(args, string(opts.Exercise))
	}
	if !opts.Since.IsZero() {
		query += ` AND s.started_at >= ?`
		args = append(args, opts.Since.UTC())
	}
	query += ` GROUP BY s.id ORDER BY s.started_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*SessionRecord
	for rows.Next() {
		rec := &SessionRecord{}
		var id, exercise, outcome string

		err := rows.Scan(&id, &exercise, &rec.TargetReps, &rec.TargetSets, &outcome, &rec.Error,
			&rec.StartedAt, &rec.EndedAt, &rec.Sets, &rec.TotalReps, &rec.AverageScore)
		if err != nil {
			return nil, err
		}

		rec.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("session id %q: %w", id, err)
		}
		rec.ExerciseType = analyzer.ExerciseType(exercise)
		rec.Outcome = session.Outcome(outcome)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Delete removes a session and its sets.
func (r *SessionRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM training_sessions WHERE id = ?`, id.String())
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
