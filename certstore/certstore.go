// Package certstore is an optional local cache of exported cert images,
// keyed by calcId1(), so a node does not have to re-fetch or re-export a
// cert it has already validated once.
package certstore

import (
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"odin.dev/model/cert"
)

var bucketCerts = []byte("certs_by_id1")

// Store is a bbolt-backed key-value cache of cert images.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) a certstore database under dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("certstore: dir required")
	}
	path := filepath.Join(dir, "certstore.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("certstore: open bbolt: %w", err)
	}
	s := &Store{db: db}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCerts)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("certstore: create bucket: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put caches a cert's exported image under its calcId1.
func (s *Store) Put(c cert.Cert) ([32]byte, error) {
	id, err := c.CalcId1()
	if err != nil {
		return [32]byte{}, err
	}
	img, err := c.Export(false)
	if err != nil {
		return [32]byte{}, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCerts).Put(id[:], img)
	})
	if err != nil {
		return [32]byte{}, fmt.Errorf("certstore: put: %w", err)
	}
	return id, nil
}

// Get decodes and returns the cert cached under id, if present.
func (s *Store) Get(id [32]byte) (cert.Cert, bool, error) {
	var img []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCerts).Get(id[:])
		if v == nil {
			return nil
		}
		img = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("certstore: get: %w", err)
	}
	if img == nil {
		return nil, false, nil
	}
	c, err := cert.DecodeCert(img)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// Delete evicts a cached cert by id. Missing ids are not an error.
func (s *Store) Delete(id [32]byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCerts).Delete(id[:])
	})
	if err != nil {
		return fmt.Errorf("certstore: delete: %w", err)
	}
	return nil
}
