package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Setting keys in app_state.
const (
	keySchemaVersion = "schema_version"

	KeyRulesText = "rules_text"
	KeyRulesMap  = "rules_map"
	KeyNotes     = "notes"
)

// GetSetting returns the value stored under key, or ErrNotFound.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return val, nil
}

// SetSetting stores value under key, replacing any previous value.
func (s *Store) SetSetting(key, value string) error {
	if err := putState(s.db, key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// SaveRules stores the raw rule text and its derived pattern -> name map
// together.
func (s *Store) SaveRules(text string, patternMap map[string]string) error {
	data, err := json.Marshal(patternMap)
	if err != nil {
		return fmt.Errorf("marshal rule map: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save rules: %w", err)
	}
	if err := putState(tx, KeyRulesText, text); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save rule text: %w", err)
	}
	if err := putState(tx, KeyRulesMap, string(data)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save rule map: %w", err)
	}
	return tx.Commit()
}

// RulesMap returns the stored pattern -> name map, or ErrNotFound.
func (s *Store) RulesMap() (map[string]string, error) {
	raw, err := s.GetSetting(KeyRulesMap)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode rule map: %w", err)
	}
	return m, nil
}
