package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var profileColumns = []string{colUserID, colPreferredVoice, colBaselineTone, colUpdatedAt}

// profileRepo implements ProfileRepo. It shares ledgerRepo's transaction
// helper.
type profileRepo struct {
	ledgerRepo
}

func (r *profileRepo) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p, err := readProfile(ctx, r.db, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

func (r *profileRepo) UpdateProfile(ctx context.Context, userID string, fn ProfileMutator) (Profile, error) {
	var out Profile
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		p, err := readProfile(ctx, tx, userID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			p = Profile{UserID: userID}
		case err != nil:
			return fmt.Errorf("read profile: %w", err)
		}

		if err := fn(&p); err != nil {
			return err
		}
		p.UserID = userID
		p.UpdatedAt = time.Now().UTC()

		query, args := builder.Insert(tableProfiles).
			Columns(profileColumns...).
			Values(p.UserID, p.PreferredVoice, p.BaselineTone, p.UpdatedAt).
			OnConflict(entsql.ConflictColumns(colUserID), entsql.ResolveWithNewValues()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return Profile{}, err
	}
	return out, nil
}

func readProfile(ctx context.Context, q querier, userID string) (Profile, error) {
	query, args := builder.Select(profileColumns...).
		From(builder.Table(tableProfiles)).
		Where(entsql.EQ(colUserID, userID)).
		Query()
	var p Profile
	if err := q.QueryRowContext(ctx, query, args...).Scan(&p.UserID, &p.PreferredVoice, &p.BaselineTone, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
