// Package boltstore keeps documents BSON-encoded in a single bbolt bucket.
// Queries are evaluated in memory over a read transaction, so the store
// suits small and medium collections such as fixtures and CLI work.
package boltstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/mgo.v2/bson"

	"github.com/Alp4ka/docpager"
)

var _ docpager.Store = (*Store)(nil)

// DefaultBucket holds the documents unless Options.Bucket says otherwise.
const DefaultBucket = "docs"

type Options struct {
	// IDField names the identity field. Defaults to "_id".
	IDField string
	// Bucket names the bucket the documents live in.
	Bucket string
	// Timeout bounds the wait for the file lock. Zero waits forever.
	Timeout time.Duration
	// ReadOnly opens the file with a shared lock.
	ReadOnly bool
}

type Store struct {
	db      *bolt.DB
	idField string
	bucket  []byte
}

// Open opens or creates the database file at path.
func Open(path string, opts Options) (*Store, error) {
	if opts.IDField == "" {
		opts.IDField = "_id"
	}
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: opts.Timeout, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}

	s := &Store{
		db:      db,
		idField: opts.IDField,
		bucket:  []byte(opts.Bucket),
	}

	if !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(s.bucket)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cannot create bucket %s: %w", opts.Bucket, err)
		}
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores docs in one transaction, replacing documents with the same
// identity. A document without identity gets a new ObjectId, written back
// into the given map.
func (s *Store) Put(ctx context.Context, docs ...docpager.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}

		for _, doc := range docs {
			id, ok := doc[s.idField]
			if !ok || id == nil {
				id = bson.NewObjectId()
				doc[s.idField] = id
			}

			key, err := keyOf(id)
			if err != nil {
				return err
			}

			data, err := bson.Marshal(doc)
			if err != nil {
				return fmt.Errorf("cannot encode document %v: %w", id, err)
			}

			if err = bucket.Put(key, data); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Store) Len() (int, error) {
	var n int

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket != nil {
			n = bucket.Stats().KeyN
		}

		return nil
	})

	return n, err
}

func (s *Store) Find(ctx context.Context, q docpager.Query) ([]docpager.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []docpager.Document

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			doc, err := decode(v)
			if err != nil {
				return fmt.Errorf("cannot decode document %x: %w", k, err)
			}

			docs = append(docs, doc)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return q.Apply(docs), nil
}

// Lookup reads the document stored under id. When the exact key is missing,
// e.g. because id arrived as int64 and was stored as int, the bucket is
// scanned for an identity that orders equal to id.
func (s *Store) Lookup(ctx context.Context, id any, fields []string) (docpager.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := keyOf(id)
	if err != nil {
		return nil, err
	}

	var found docpager.Document

	err = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}

		if v := bucket.Get(key); v != nil {
			found, err = decode(v)
			return err
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			doc, err := decode(v)
			if err != nil {
				return fmt.Errorf("cannot decode document %x: %w", k, err)
			}

			if docpager.Compare(docpager.Value(doc, s.idField), id) == 0 {
				found = doc
				return nil
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %s = %v", docpager.ErrNotFound, s.idField, id)
	}

	return docpager.Include(fields...).Apply(found), nil
}

// Delete removes the document stored under id. Deleting a missing document
// returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := keyOf(id)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil || bucket.Get(key) == nil {
			return fmt.Errorf("%w: %s = %v", docpager.ErrNotFound, s.idField, id)
		}

		return bucket.Delete(key)
	})
}

// keyOf encodes an identity as the bucket key. bson keeps the type, so 1
// and "1" are different keys.
func keyOf(id any) ([]byte, error) {
	if id == nil {
		return nil, errors.New("document identity must not be null")
	}

	key, err := bson.Marshal(bson.D{{Name: "k", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("cannot encode identity %v: %w", id, err)
	}

	return key, nil
}

func decode(data []byte) (docpager.Document, error) {
	var doc docpager.Document
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}
