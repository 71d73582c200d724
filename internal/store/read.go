package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetScript returns the current script of actionID, or ErrNotFound.
func (s *Store) GetScript(ctx context.Context, actionID string) (Script, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT action_id, source, digest, meta, seq
		FROM scripts
		WHERE action_id = ?
	`, actionID)
	sc, err := scanScript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Script{}, fmt.Errorf("get script %s: %w", actionID, ErrNotFound)
	}
	if err != nil {
		return Script{}, fmt.Errorf("get script %s: %w", actionID, err)
	}
	return sc, nil
}

// GetScriptByID returns the source of actionID's script, or "" when it
// has none. It lets a Store serve as a sandbox script source.
func (s *Store) GetScriptByID(ctx context.Context, actionID string) (string, error) {
	sc, err := s.GetScript(ctx, actionID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sc.Source, nil
}

// ListScripts returns every current script ordered by action id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListScripts(ctx context.Context) ([]Script, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_id, source, digest, meta, seq
		FROM scripts
		ORDER BY action_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	scripts := []Script{}
	for rows.Next() {
		sc, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return scripts, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScript(row rowScanner) (Script, error) {
	var sc Script
	var meta string
	if err := row.Scan(&sc.ActionID, &sc.Source, &sc.Digest, &meta, &sc.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Script{}, err
		}
		return Script{}, fmt.Errorf("scan script: %w", err)
	}
	m, err := unmarshalMeta(meta)
	if err != nil {
		return Script{}, err
	}
	sc.Meta = m
	return sc, nil
}

func stringReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
