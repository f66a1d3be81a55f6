// Package saved persists state values across process runs, keyed by stable
// composition paths, in a bbolt database.
package saved

import (
	"encoding/json"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/weftui/weft/pkg/comp"
	"github.com/weftui/weft/pkg/logutil"
	"github.com/weftui/weft/pkg/snapshot"
)

var logger = logutil.GetLogger("[saved] ")

const bucketSaved = "saved"

// ErrNotFound is returned by Load for paths never saved.
var ErrNotFound = errors.New("no saved value")

// Store is a bbolt-backed registry of saved values.
type Store struct {
	db *bolt.DB

	tracked map[snapshot.Object]tracked
	remove  func()
}

type tracked struct {
	path string
	get  func() any
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open saved-state db")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSaved))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize saved-state bucket")
	}
	st := &Store{db: db, tracked: make(map[snapshot.Object]tracked)}
	st.remove = snapshot.ObserveApplied(st.onApplied)
	return st, nil
}

// Close stops write-back and closes the database.
func (s *Store) Close() error {
	s.remove()
	return s.db.Close()
}

// Save serializes v under path.
func (s *Store) Save(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "serialize saved value %q", path)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSaved)).Put([]byte(path), data)
	})
}

// Load deserializes the value under path into out.
func (s *Store) Load(path string, out any) error {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSaved)).Get([]byte(path))
		if v == nil {
			return ErrNotFound
		}
		data = append(data, v...)
		return nil
	})
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, out), "deserialize saved value %q", path)
}

// Delete removes the value under path.
func (s *Store) Delete(path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSaved)).Delete([]byte(path))
	})
}

// Paths returns every saved path in key order.
func (s *Store) Paths() ([]string, error) {
	var paths []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSaved)).ForEach(func(k, _ []byte) error {
			paths = append(paths, string(k))
			return nil
		})
	})
	return paths, err
}

// onApplied writes back tracked values whose state changed.
func (s *Store) onApplied(changed []snapshot.Object) {
	for _, obj := range changed {
		tr, ok := s.tracked[obj]
		if !ok {
			continue
		}
		if err := s.Save(tr.path, tr.get()); err != nil {
			logger.Println("write-back failed:", err)
		}
	}
}

// State remembers a state value at path, seeding it from the store on
// first composition and writing it back on every applied change.
func State[T any](c *comp.Composer, s *Store, path string, init T) *snapshot.Value[T] {
	return comp.Remember(c, func() *snapshot.Value[T] {
		v := init
		switch err := s.Load(path, &v); {
		case err == nil:
		case errors.Is(err, ErrNotFound):
		default:
			logger.Printf("restore of %q failed: %v", path, err)
			v = init
		}
		val := snapshot.New(v)
		s.tracked[val] = tracked{path: path, get: func() any { return val.Get() }}
		return val
	})
}
