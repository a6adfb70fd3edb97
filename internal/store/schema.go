package store

import (
	"context"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableSessionRecords = "session_records"
	tableProgressions   = "progressions"
	tableProfiles       = "profiles"
)

// Column names shared by the queries in this package.
const (
	colID              = "id"
	colSequence        = "sequence"
	colTimestamp       = "timestamp"
	colUserID          = "user_id"
	colTranscript      = "transcript"
	colGrammarIssues   = "grammar_issues"
	colTone            = "tone"
	colSignals         = "signals"
	colDifficulty      = "difficulty"
	colExperience      = "experience"
	colLevel           = "level"
	colTotalExperience = "total_experience"
	colStreak          = "streak"
	colLongestStreak   = "longest_streak"
	colSessionCount    = "session_count"
	colLastActiveAt    = "last_active_at"
	colUpdatedAt       = "updated_at"
	colFactsDigest     = "facts_digest"
	colPreferredVoice  = "preferred_voice"
	colBaselineTone    = "baseline_tone"
)

// builder renders SQL in the SQLite dialect.
var builder = entsql.Dialect(dialect.SQLite)

var (
	sessionRecordsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt64, Increment: true},
		{Name: colSequence, Type: field.TypeInt64, Unique: true},
		{Name: colTimestamp, Type: field.TypeTime},
		{Name: colUserID, Type: field.TypeString},
		{Name: colTranscript, Type: field.TypeString},
		{Name: colGrammarIssues, Type: field.TypeJSON},
		{Name: colTone, Type: field.TypeString},
		{Name: colSignals, Type: field.TypeJSON, Nullable: true},
		{Name: colDifficulty, Type: field.TypeString},
		{Name: colExperience, Type: field.TypeInt},
		{Name: colLevel, Type: field.TypeInt},
		{Name: colFactsDigest, Type: field.TypeString, Default: ""},
	}

	// sessionRecordsTable is the append-only session log. The unique index
	// rejects re-submission of an identical session for the same user; the
	// facts digest keeps sessions that only share transcript, experience and
	// tier apart.
	sessionRecordsTable = &schema.Table{
		Name:       tableSessionRecords,
		Columns:    sessionRecordsColumns,
		PrimaryKey: []*schema.Column{sessionRecordsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "sessionrecord_user_id_timestamp",
				Unique:  false,
				Columns: []*schema.Column{sessionRecordsColumns[3], sessionRecordsColumns[2]},
			},
			{
				Name:   "sessionrecord_user_id_transcript_experience_difficulty_facts_digest",
				Unique: true,
				Columns: []*schema.Column{
					sessionRecordsColumns[3],
					sessionRecordsColumns[4],
					sessionRecordsColumns[9],
					sessionRecordsColumns[8],
					sessionRecordsColumns[11],
				},
			},
		},
	}

	progressionsColumns = []*schema.Column{
		{Name: colUserID, Type: field.TypeString},
		{Name: colTotalExperience, Type: field.TypeInt64, Default: 0},
		{Name: colLevel, Type: field.TypeInt, Default: 1},
		{Name: colStreak, Type: field.TypeInt, Default: 0},
		{Name: colLongestStreak, Type: field.TypeInt, Default: 0},
		{Name: colSessionCount, Type: field.TypeInt, Default: 0},
		{Name: colLastActiveAt, Type: field.TypeTime, Nullable: true},
		{Name: colUpdatedAt, Type: field.TypeTime},
	}

	// progressionsTable holds one mutable row per user.
	progressionsTable = &schema.Table{
		Name:       tableProgressions,
		Columns:    progressionsColumns,
		PrimaryKey: []*schema.Column{progressionsColumns[0]},
	}

	profilesColumns = []*schema.Column{
		{Name: colUserID, Type: field.TypeString},
		{Name: colPreferredVoice, Type: field.TypeString},
		{Name: colBaselineTone, Type: field.TypeString},
		{Name: colUpdatedAt, Type: field.TypeTime},
	}

	// profilesTable holds one coaching-preferences row per user.
	profilesTable = &schema.Table{
		Name:       tableProfiles,
		Columns:    profilesColumns,
		PrimaryKey: []*schema.Column{profilesColumns[0]},
	}

	tables = []*schema.Table{
		sessionRecordsTable,
		progressionsTable,
		profilesTable,
	}
)

// migrate creates or upgrades the tables above using ent's migration engine.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}
