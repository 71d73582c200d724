package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/daisy/internal/ir"
)

// Script is the current script of one action.
type Script struct {
	ActionID string         `json:"action_id"`
	Source   string         `json:"source"`
	Digest   string         `json:"digest"`
	Meta     map[string]any `json:"meta"`
	Seq      int64          `json:"seq"`
}

// PutScript stores source as the current script of actionID and appends
// a revision. Writing identical source and metadata again is a no-op that
// returns the stored script.
func (s *Store) PutScript(ctx context.Context, actionID, source string, meta map[string]any) (Script, error) {
	if actionID == "" {
		return Script{}, fmt.Errorf("put script: %w", ErrEmptyActionID)
	}
	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return Script{}, fmt.Errorf("put script: %w", err)
	}
	digest := ir.ScriptDigest(source)

	var out Script
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var curDigest, curMeta string
		var curSeq int64
		err := tx.QueryRowContext(ctx,
			`SELECT digest, meta, seq FROM scripts WHERE action_id = ?`, actionID,
		).Scan(&curDigest, &curMeta, &curSeq)
		switch {
		case err == nil && curDigest == digest && curMeta == metaJSON:
			out = Script{ActionID: actionID, Source: source, Digest: digest, Seq: curSeq}
			return nil
		case err != nil && err != sql.ErrNoRows:
			return fmt.Errorf("query current script: %w", err)
		}

		seq, err := appendRevision(ctx, tx, actionID, sql.NullString{String: source, Valid: true}, digest, metaJSON)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scripts (action_id, source, digest, meta, seq)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(action_id) DO UPDATE SET
				source = excluded.source,
				digest = excluded.digest,
				meta = excluded.meta,
				seq = excluded.seq
		`, actionID, source, digest, metaJSON, seq)
		if err != nil {
			return fmt.Errorf("upsert script: %w", err)
		}
		out = Script{ActionID: actionID, Source: source, Digest: digest, Seq: seq}
		return nil
	})
	if err != nil {
		return Script{}, fmt.Errorf("put script: %w", err)
	}

	out.Meta, err = unmarshalMeta(metaJSON)
	if err != nil {
		return Script{}, fmt.Errorf("put script: %w", err)
	}
	return out, nil
}

// DeleteScript removes the current script of actionID and records the
// deletion as a revision.
func (s *Store) DeleteScript(ctx context.Context, actionID string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM scripts WHERE action_id = ?`, actionID)
		if err != nil {
			return fmt.Errorf("delete script: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete script: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = appendRevision(ctx, tx, actionID, sql.NullString{}, "", "{}")
		return err
	})
	if err != nil {
		return fmt.Errorf("delete script %s: %w", actionID, err)
	}
	return nil
}

// appendRevision writes the next revision and returns its seq.
func appendRevision(ctx context.Context, tx *sql.Tx, actionID string, source sql.NullString, digest, metaJSON string) (int64, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM script_revisions`,
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO script_revisions (seq, action_id, source, digest, meta)
		VALUES (?, ?, ?, ?, ?)
	`, seq, actionID, source, digest, metaJSON)
	if err != nil {
		return 0, fmt.Errorf("append revision: %w", err)
	}
	return seq, nil
}
