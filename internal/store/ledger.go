package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sessionRecordColumns = []string{
	colID, colSequence, colTimestamp, colUserID, colTranscript, colGrammarIssues,
	colTone, colSignals, colDifficulty, colExperience, colLevel,
}

var progressionColumns = []string{
	colUserID, colTotalExperience, colLevel, colStreak, colLongestStreak,
	colSessionCount, colLastActiveAt, colUpdatedAt,
}

// ledgerRepo implements LedgerRepo with builder-rendered SQL over database/sql.
type ledgerRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *ledgerRepo) AppendSession(ctx context.Context, rec NewSessionRecord, fn ProgressionMutator) (SessionRecord, Progression, error) {
	var (
		stored SessionRecord
		prog   Progression
	)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		p, err := lockProgression(ctx, tx, rec.UserID, rec.Timestamp)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(&p); err != nil {
				return err
			}
		}

		seq, err := r.seq.Next(ctx, tx)
		if err != nil {
			return err
		}

		issues := rec.GrammarIssues
		if issues == nil {
			issues = []string{}
		}
		issuesJSON, err := json.Marshal(issues)
		if err != nil {
			return fmt.Errorf("marshal grammar issues: %w", err)
		}
		var signalsJSON any
		if rec.Signals != nil {
			b, err := json.Marshal(rec.Signals)
			if err != nil {
				return fmt.Errorf("marshal signals: %w", err)
			}
			signalsJSON = string(b)
		}

		query, args := builder.Insert(tableSessionRecords).
			Columns(colSequence, colTimestamp, colUserID, colTranscript, colGrammarIssues,
				colTone, colSignals, colDifficulty, colExperience, colLevel, colFactsDigest).
			Values(seq, rec.Timestamp, rec.UserID, rec.Transcript, string(issuesJSON),
				rec.Tone, signalsJSON, rec.Difficulty, rec.Experience, p.Level, factsDigest(rec.Tone, issues)).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert session record: %w", ErrDuplicate)
			}
			return fmt.Errorf("insert session record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("session record id: %w", err)
		}

		if fn != nil {
			p.UpdatedAt = rec.Timestamp
			if err := writeProgression(ctx, tx, p); err != nil {
				return err
			}
		}

		stored = SessionRecord{
			ID:            id,
			Sequence:      seq,
			UserID:        rec.UserID,
			Timestamp:     rec.Timestamp,
			Transcript:    rec.Transcript,
			GrammarIssues: issues,
			Tone:          rec.Tone,
			Signals:       rec.Signals,
			Difficulty:    rec.Difficulty,
			Experience:    rec.Experience,
			Level:         p.Level,
		}
		prog = p
		return nil
	})
	if err != nil {
		return SessionRecord{}, Progression{}, err
	}
	return stored, prog, nil
}

func (r *ledgerRepo) UpdateProgression(ctx context.Context, userID string, fn ProgressionMutator) (Progression, error) {
	var prog Progression
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		p, err := lockProgression(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		p.UpdatedAt = now
		if err := writeProgression(ctx, tx, p); err != nil {
			return err
		}
		prog = p
		return nil
	})
	if err != nil {
		return Progression{}, err
	}
	return prog, nil
}

func (r *ledgerRepo) GetProgression(ctx context.Context, userID string) (*Progression, error) {
	query, args := builder.Select(progressionColumns...).
		From(builder.Table(tableProgressions)).
		Where(entsql.EQ(colUserID, userID)).
		Query()
	p, err := scanProgression(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query progression: %w", err)
	}
	return &p, nil
}

func (r *ledgerRepo) SessionSummary(ctx context.Context, userID string) (SessionSummary, error) {
	var sum SessionSummary
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		n, err := countSessions(ctx, tx, userID)
		if err != nil {
			return err
		}
		recs, err := querySessions(ctx, tx, userID, QueryOpts{Limit: 1})
		if err != nil {
			return err
		}
		sum.Count = n
		if len(recs) > 0 {
			sum.Latest = &recs[0]
		}
		return nil
	})
	if err != nil {
		return SessionSummary{}, err
	}
	return sum, nil
}

func (r *ledgerRepo) QuerySessions(ctx context.Context, userID string, opts QueryOpts) ([]SessionRecord, error) {
	return querySessions(ctx, r.db, userID, opts)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func countSessions(ctx context.Context, q querier, userID string) (int, error) {
	query, args := builder.Select(entsql.Count("*")).
		From(builder.Table(tableSessionRecords)).
		Where(entsql.EQ(colUserID, userID)).
		Query()
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func querySessions(ctx context.Context, q querier, userID string, opts QueryOpts) ([]SessionRecord, error) {
	sel := builder.Select(sessionRecordColumns...).
		From(builder.Table(tableSessionRecords)).
		Where(entsql.EQ(colUserID, userID)).
		OrderBy(entsql.Desc(colTimestamp), entsql.Desc(colSequence))

	if !opts.From.IsZero() {
		sel = sel.Where(entsql.GTE(colTimestamp, opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		sel = sel.Where(entsql.LTE(colTimestamp, opts.To.UTC()))
	}
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return records, nil
}

// withTx runs fn in a transaction, rolling back on any error.
func (r *ledgerRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// lockProgression makes sure the user's row exists and reads it. The insert
// runs first so the transaction takes SQLite's write lock before reading.
func lockProgression(ctx context.Context, tx *sql.Tx, userID string, now time.Time) (Progression, error) {
	query, args := builder.Insert(tableProgressions).
		Columns(colUserID, colTotalExperience, colLevel, colStreak, colLongestStreak, colSessionCount, colUpdatedAt).
		Values(userID, 0, 1, 0, 0, 0, now).
		OnConflict(entsql.ConflictColumns(colUserID), entsql.DoNothing()).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return Progression{}, fmt.Errorf("ensure progression: %w", err)
	}

	query, args = builder.Select(progressionColumns...).
		From(builder.Table(tableProgressions)).
		Where(entsql.EQ(colUserID, userID)).
		Query()
	p, err := scanProgression(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return Progression{}, fmt.Errorf("read progression: %w", err)
	}
	return p, nil
}

func writeProgression(ctx context.Context, tx *sql.Tx, p Progression) error {
	var lastActive any
	if !p.LastActiveAt.IsZero() {
		lastActive = p.LastActiveAt
	}
	query, args := builder.Update(tableProgressions).
		Set(colTotalExperience, p.TotalExperience).
		Set(colLevel, p.Level).
		Set(colStreak, p.Streak).
		Set(colLongestStreak, p.LongestStreak).
		Set(colSessionCount, p.SessionCount).
		Set(colLastActiveAt, lastActive).
		Set(colUpdatedAt, p.UpdatedAt).
		Where(entsql.EQ(colUserID, p.UserID)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update progression: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgression(row rowScanner) (Progression, error) {
	var (
		p          Progression
		lastActive sql.NullTime
	)
	err := row.Scan(&p.UserID, &p.TotalExperience, &p.Level, &p.Streak, &p.LongestStreak,
		&p.SessionCount, &lastActive, &p.UpdatedAt)
	if err != nil {
		return Progression{}, err
	}
	if lastActive.Valid {
		p.LastActiveAt = lastActive.Time.UTC()
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func scanSessionRecord(row rowScanner) (SessionRecord, error) {
	var (
		rec         SessionRecord
		issuesJSON  string
		signalsJSON sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Sequence, &rec.Timestamp, &rec.UserID, &rec.Transcript,
		&issuesJSON, &rec.Tone, &signalsJSON, &rec.Difficulty, &rec.Experience, &rec.Level)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("scan session record: %w", err)
	}
	rec.Timestamp = rec.Timestamp.UTC()

	rec.GrammarIssues = []string{}
	if issuesJSON != "" {
		if err := json.Unmarshal([]byte(issuesJSON), &rec.GrammarIssues); err != nil {
			return SessionRecord{}, fmt.Errorf("unmarshal grammar issues: %w", err)
		}
	}
	if signalsJSON.Valid && signalsJSON.String != "" {
		var sig SignalsData
		if err := json.Unmarshal([]byte(signalsJSON.String), &sig); err != nil {
			return SessionRecord{}, fmt.Errorf("unmarshal signals: %w", err)
		}
		rec.Signals = &sig
	}
	return rec, nil
}

// factsDigest fingerprints the parts of a session that the other unique
// key columns do not carry: the tone label and the ordered grammar issues.
func factsDigest(tone string, issues []string) string {
	h := sha256.New()
	h.Write([]byte(tone))
	for _, issue := range issues {
		h.Write([]byte{0})
		h.Write([]byte(issue))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// isUniqueViolation reports whether err is a SQLite uniqueness failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
