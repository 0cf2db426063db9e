// Package store provides the embedded metadata database for a Muse
// repository: commit records and snapshot manifests keyed by their
// content-derived ids, persisted in a single bbolt file under .muse/.
//
// The commit graph and snapshot layers consume this database through
// small interfaces, so a different embedded backend could be swapped in
// without touching engine logic.
package store

import (
	"go.etcd.io/bbolt"
)

// Buckets
var (
	BucketCommits   = []byte("commits")   // commit id hex -> encoded commit record
	BucketSnapshots = []byte("snapshots") // snapshot id hex -> canonical manifest bytes
	BucketConfig    = []byte("config")    // repository configuration
)

type DB struct{ *bbolt.DB }

func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0666, nil)
	if err != nil {
		return nil, err
	}
	// Ensure buckets exist
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{BucketCommits, BucketSnapshots, BucketConfig} {
			if _, e := tx.CreateBucketIfNotExists(bucket); e != nil {
				return e
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func (db *DB) Close() error { return db.DB.Close() }

// GetCommit returns the encoded commit record for id, or nil if absent.
func (db *DB) GetCommit(id string) ([]byte, error) {
	var data []byte
	err := db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(BucketCommits).Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

// InsertCommitIfAbsent writes the commit record in a single transaction
// unless a record with the same id already exists, in which case the
// existing bytes are returned and nothing is written.
func (db *DB) InsertCommitIfAbsent(id string, data []byte) (existing []byte, err error) {
	err = db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(BucketCommits)
		if v := b.Get([]byte(id)); v != nil {
			existing = append([]byte(nil), v...)
			return nil
		}
		return b.Put([]byte(id), data)
	})
	return existing, err
}

// FindCommitsByPrefix returns the encoded records of every commit whose
// id starts with prefix, in key order.
func (db *DB) FindCommitsByPrefix(prefix string) ([][]byte, error) {
	var matches [][]byte
	err := db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(BucketCommits).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && hasPrefix(k, p); k, v = c.Next() {
			matches = append(matches, append([]byte(nil), v...))
		}
		return nil
	})
	return matches, err
}

// PutSnapshot stores a snapshot's canonical manifest bytes. Writing the
// same id twice is a no-op, never an error.
func (db *DB) PutSnapshot(id string, data []byte) error {
	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(BucketSnapshots)
		if b.Get([]byte(id)) != nil {
			return nil
		}
		return b.Put([]byte(id), data)
	})
}

// GetSnapshot returns the canonical manifest bytes for id, or nil if absent.
func (db *DB) GetSnapshot(id string) ([]byte, error) {
	var data []byte
	err := db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(BucketSnapshots).Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

// HasSnapshot reports whether a snapshot with the given id exists.
func (db *DB) HasSnapshot(id string) (bool, error) {
	var found bool
	err := db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(BucketSnapshots).Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
