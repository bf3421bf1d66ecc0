// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package keydb implements a session key store inside an encrypted database.
package keydb

import (
	"database/sql"

	"github.com/hushcomm/hush/encdb"
)

// Version is the current keydb version.
const Version = "1"

// Entries in KeyValueTable.
const (
	DBVersion = "Version" // version string of keydb
)

const (
	createQueryKeyValue = `
CREATE TABLE KeyValueStore (
  KeyEntry   TEXT NOT NULL UNIQUE,
  ValueEntry TEXT NOT NULL
);`
	createQuerySessionKeys = `
CREATE TABLE SessionKeys (
  ID            TEXT    NOT NULL PRIMARY KEY,
  ThreadID      TEXT    NOT NULL,
  PublicKey     TEXT    NOT NULL,
  PrivateKey    TEXT    NOT NULL,
  Status        TEXT    NOT NULL,
  CreatedAt     INTEGER NOT NULL, -- unix nanoseconds
  ExpiresAt     INTEGER NOT NULL, -- unix nanoseconds
  PreviousKeyID TEXT    NOT NULL
);`
	createQuerySessionKeysIndex = `
CREATE INDEX SessionKeysThreadIndex ON SessionKeys (ThreadID);`
	createQueryMessageCounts = `
CREATE TABLE MessageCounts (
  ThreadID TEXT    NOT NULL PRIMARY KEY,
  Count    INTEGER NOT NULL
);`
	createQueryLeases = `
CREATE TABLE Leases (
  ThreadID   TEXT    NOT NULL PRIMARY KEY,
  Holder     TEXT    NOT NULL,
  AcquiredAt INTEGER NOT NULL, -- unix nanoseconds
  ExpiresAt  INTEGER NOT NULL  -- unix nanoseconds
);`
	updateValueQuery    = "UPDATE KeyValueStore SET ValueEntry=? WHERE KeyEntry=?;"
	insertValueQuery    = "INSERT INTO KeyValueStore (KeyEntry, ValueEntry) VALUES (?, ?);"
	getValueQuery       = "SELECT ValueEntry FROM KeyValueStore WHERE KeyEntry=?;"
	getRecordQuery      = "SELECT ID, ThreadID, PublicKey, PrivateKey, Status, CreatedAt, ExpiresAt, PreviousKeyID FROM SessionKeys WHERE ID=?;"
	getByStatusQuery    = "SELECT ID, ThreadID, PublicKey, PrivateKey, Status, CreatedAt, ExpiresAt, PreviousKeyID FROM SessionKeys WHERE ThreadID=? AND Status=? ORDER BY CreatedAt;"
	getByPubKeyQuery    = "SELECT ID, ThreadID, PublicKey, PrivateKey, Status, CreatedAt, ExpiresAt, PreviousKeyID FROM SessionKeys WHERE ThreadID=? AND PublicKey=?;"
	countActiveQuery    = "SELECT COUNT(*) FROM SessionKeys WHERE ThreadID=? AND Status=? AND ID!=?;"
	insertRecordQuery   = "INSERT OR REPLACE INTO SessionKeys (ID, ThreadID, PublicKey, PrivateKey, Status, CreatedAt, ExpiresAt, PreviousKeyID) VALUES (?, ?, ?, ?, ?, ?, ?, ?);"
	casStatusQuery      = "UPDATE SessionKeys SET Status=? WHERE ID=? AND Status=?;"
	casStatusUntilQuery = "UPDATE SessionKeys SET Status=?, ExpiresAt=? WHERE ID=? AND Status=?;"
	getCountQuery       = "SELECT Count FROM MessageCounts WHERE ThreadID=?;"
	setCountQuery       = "INSERT OR REPLACE INTO MessageCounts (ThreadID, Count) VALUES (?, ?);"
	getLeaseQuery       = "SELECT Holder, AcquiredAt, ExpiresAt FROM Leases WHERE ThreadID=?;"
	setLeaseQuery       = "INSERT OR REPLACE INTO Leases (ThreadID, Holder, AcquiredAt, ExpiresAt) VALUES (?, ?, ?, ?);"
	delLeaseQuery       = "DELETE FROM Leases WHERE ThreadID=? AND Holder=?;"
)

// Store is a handle for an encrypted database used to store session keys.
// It implements the session.Store interface.
type Store struct {
	encDB               *sql.DB // handle for encDB
	updateValueQuery    *sql.Stmt
	insertValueQuery    *sql.Stmt
	getValueQuery       *sql.Stmt
	getRecordQuery      *sql.Stmt
	getByStatusQuery    *sql.Stmt
	getByPubKeyQuery    *sql.Stmt
	countActiveQuery    *sql.Stmt
	insertRecordQuery   *sql.Stmt
	casStatusQuery      *sql.Stmt
	casStatusUntilQuery *sql.Stmt
	getCountQuery       *sql.Stmt
	setCountQuery       *sql.Stmt
	getLeaseQuery       *sql.Stmt
	setLeaseQuery       *sql.Stmt
	delLeaseQuery       *sql.Stmt
}

// Create returns a new session key database with the given dbname.
// It is encrypted by passphrase (processed by a KDF with iter many
// iterations).
func Create(dbname string, passphrase []byte, iter int) error {
	err := encdb.Create(dbname, passphrase, iter, []string{
		createQueryKeyValue,
		createQuerySessionKeys,
		createQuerySessionKeysIndex,
		createQueryMessageCounts,
		createQueryLeases,
	})
	if err != nil {
		return err
	}
	store, err := Open(dbname, passphrase)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.AddValue(DBVersion, Version)
}

// Version returns the current version of the database.
func (db *Store) Version() (string, error) {
	return db.GetValue(DBVersion)
}

// Open opens the session key database with dbname and passphrase.
func Open(dbname string, passphrase []byte) (*Store, error) {
	var db Store
	var err error
	db.encDB, err = encdb.Open(dbname, passphrase)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, route all access through one connection
	db.encDB.SetMaxOpenConns(1)
	if db.updateValueQuery, err = db.encDB.Prepare(updateValueQuery); err != nil {
		return nil, err
	}
	if db.insertValueQuery, err = db.encDB.Prepare(insertValueQuery); err != nil {
		return nil, err
	}
	if db.getValueQuery, err = db.encDB.Prepare(getValueQuery); err != nil {
		return nil, err
	}
	if db.getRecordQuery, err = db.encDB.Prepare(getRecordQuery); err != nil {
		return nil, err
	}
	if db.getByStatusQuery, err = db.encDB.Prepare(getByStatusQuery); err != nil {
		return nil, err
	}
	if db.getByPubKeyQuery, err = db.encDB.Prepare(getByPubKeyQuery); err != nil {
		return nil, err
	}
	if db.countActiveQuery, err = db.encDB.Prepare(countActiveQuery); err != nil {
		return nil, err
	}
	if db.insertRecordQuery, err = db.encDB.Prepare(insertRecordQuery); err != nil {
		return nil, err
	}
	if db.casStatusQuery, err = db.encDB.Prepare(casStatusQuery); err != nil {
		return nil, err
	}
	if db.casStatusUntilQuery, err = db.encDB.Prepare(casStatusUntilQuery); err != nil {
		return nil, err
	}
	if db.getCountQuery, err = db.encDB.Prepare(getCountQuery); err != nil {
		return nil, err
	}
	if db.setCountQuery, err = db.encDB.Prepare(setCountQuery); err != nil {
		return nil, err
	}
	if db.getLeaseQuery, err = db.encDB.Prepare(getLeaseQuery); err != nil {
		return nil, err
	}
	if db.setLeaseQuery, err = db.encDB.Prepare(setLeaseQuery); err != nil {
		return nil, err
	}
	if db.delLeaseQuery, err = db.encDB.Prepare(delLeaseQuery); err != nil {
		return nil, err
	}
	return &db, nil
}

// Close the session key database.
func (db *Store) Close() error {
	return db.encDB.Close()
}

// Rekey tries to rekey the session key database dbname with the
// newPassphrase (processed by a KDF with iter many iterations). The supplied
// oldPassphrase must be correct, otherwise an error is returned.
func Rekey(dbname string, oldPassphrase, newPassphrase []byte, newIter int) error {
	return encdb.Rekey(dbname, oldPassphrase, newPassphrase, newIter)
}

// Status returns the autoVacuum mode and freelistCount of the database.
func (db *Store) Status() (
	autoVacuum string,
	freelistCount int64,
	err error,
) {
	return encdb.Status(db.encDB)
}

// Vacuum executes VACUUM command in the database. If autoVacuumMode is not
// nil and different from the current one, the auto_vacuum mode is changed
// before VACUUM is executed.
func (db *Store) Vacuum(autoVacuumMode string) error {
	return encdb.Vacuum(db.encDB, autoVacuumMode)
}

// Incremental executes incremental_vacuum to free up to pages many pages. If
// pages is 0, all pages are freed. If the current auto_vacuum mode is not
// INCREMENTAL, an error is returned.
func (db *Store) Incremental(pages int64) error {
	return encdb.Incremental(db.encDB, pages)
}
