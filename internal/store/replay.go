package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Revision is one entry of the append-only revision log.
type Revision struct {
	Seq      int64          `json:"seq"`
	ActionID string         `json:"action_id"`
	Source   string         `json:"source,omitempty"`
	Digest   string         `json:"digest,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	Deleted  bool           `json:"deleted,omitempty"`
}

// Revisions returns the revision history of actionID ordered by seq.
// Returns an empty slice (not nil) for an action with no history.
func (s *Store) Revisions(ctx context.Context, actionID string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, action_id, source, digest, meta
		FROM script_revisions
		WHERE action_id = ?
		ORDER BY seq ASC
	`, actionID)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revs := []Revision{}
	for rows.Next() {
		var r Revision
		var source sql.NullString
		var meta string
		if err := rows.Scan(&r.Seq, &r.ActionID, &source, &r.Digest, &meta); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.Source, r.Deleted = source.String, !source.Valid
		if r.Meta, err = unmarshalMeta(meta); err != nil {
			return nil, err
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revs, nil
}

// ErrNoRevision is returned by Restore for an unknown or deletion revision.
var ErrNoRevision = errors.New("no restorable revision")

// Restore makes revision seq of actionID current again. The restore is
// itself appended as a new revision.
func (s *Store) Restore(ctx context.Context, actionID string, seq int64) (Script, error) {
	var source sql.NullString
	var meta string
	err := s.db.QueryRowContext(ctx, `
		SELECT source, meta FROM script_revisions
		WHERE action_id = ? AND seq = ?
	`, actionID, seq).Scan(&source, &meta)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !source.Valid) {
		return Script{}, fmt.Errorf("restore %s@%d: %w", actionID, seq, ErrNoRevision)
	}
	if err != nil {
		return Script{}, fmt.Errorf("restore %s@%d: %w", actionID, seq, err)
	}
	m, err := unmarshalMeta(meta)
	if err != nil {
		return Script{}, err
	}
	return s.PutScript(ctx, actionID, source.String, m)
}
