// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keydb

import (
	"database/sql"
	"fmt"
)

// AddValue adds a key-value pair to the database.
func (db *Store) AddValue(key, value string) error {
	if key == "" {
		return fmt.Errorf("keydb: key must be defined")
	}
	if value == "" {
		return fmt.Errorf("keydb: value must be defined")
	}
	res, err := db.updateValueQuery.Exec(value, key)
	if err != nil {
		return fmt.Errorf("keydb: %w", err)
	}
	nRows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("keydb: %w", err)
	}
	if nRows == 0 {
		if _, err := db.insertValueQuery.Exec(key, value); err != nil {
			return fmt.Errorf("keydb: %w", err)
		}
	}
	return nil
}

// GetValue gets the value for the given key from the database.
func (db *Store) GetValue(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("keydb: key must be defined")
	}
	var value string
	err := db.getValueQuery.QueryRow(key).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		return "", nil
	case err != nil:
		return "", fmt.Errorf("keydb: %w", err)
	default:
		return value, nil
	}
}
