// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package store logs magnetometer samples to a SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/melexis/mlx90392"

	// Registers the sqlite3 database/sql driver.
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time_ns INTEGER NOT NULL,
	raw_x INTEGER NOT NULL,
	raw_y INTEGER NOT NULL,
	raw_z INTEGER NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	z REAL NOT NULL
)`

// Store is an open sample log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create table: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert appends m. Measurements carrying an error are not stored.
func (s *Store) Insert(m mlx90392.Measurement) error {
	if m.Err != nil {
		return nil
	}
	_, err := s.db.Exec(
		"INSERT INTO samples (time_ns, raw_x, raw_y, raw_z, x, y, z) VALUES (?, ?, ?, ?, ?, ?, ?)",
		m.Time.UnixNano(), m.Raw.X, m.Raw.Y, m.Raw.Z, m.Field.X, m.Field.Y, m.Field.Z)
	if err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

// Last returns up to n most recent samples, oldest first.
func (s *Store) Last(n int) ([]mlx90392.Measurement, error) {
	rows, err := s.db.Query(
		"SELECT time_ns, raw_x, raw_y, raw_z, x, y, z FROM (SELECT * FROM samples ORDER BY id DESC LIMIT ?) ORDER BY id", n)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()
	var out []mlx90392.Measurement
	for rows.Next() {
		var m mlx90392.Measurement
		var ns int64
		if err := rows.Scan(&ns, &m.Raw.X, &m.Raw.Y, &m.Raw.Z, &m.Field.X, &m.Field.Y, &m.Field.Z); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		m.Time = time.Unix(0, ns)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of stored samples.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
