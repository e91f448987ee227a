// Package checkpoint stores finished results in a bolt database so an
// interrupted analysis can resume.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket name for all the results.
var MAIN = []byte("main")

// namespace is used to derive run keys.
var namespace = uuid.MustParse("6f0c2a53-3c1e-4d8a-9b43-2f5d7e1a9c60")

// Open opens or creates the database at path.
func Open(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
}

// RunKey derives a deterministic key from everything which
// determines the results of a run.
func RunKey(config interface{}) (uuid.UUID, error) {
	b, err := json.Marshal(config)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.NewSHA1(namespace, b), nil
}

// Store saves and loads JSON encoded values of a single run.
type Store struct {
	db  *bolt.DB
	run uuid.UUID
}

// New creates a store for the run. A nil db gives a store which
// never finds anything and silently discards saved values.
func New(db *bolt.DB, run uuid.UUID) *Store {
	return &Store{
		db:  db,
		run: run,
	}
}

// Run returns the run key.
func (s *Store) Run() uuid.UUID {
	return s.run
}

// key prefixes k with the run key.
func (s *Store) key(k string) []byte {
	return []byte(s.run.String() + "/" + k)
}

// Save stores v under key k.
func (s *Store) Save(k string, v interface{}) error {
	if s == nil || s.db == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, s.key(k), b)
	if err != nil {
		log.Error("Error saving checkpoint", err)
		return err
	}
	log.Debugf("Saved checkpoint %s", k)
	return nil
}

// Load restores the value stored under key k into v. It returns
// false if there is no such value.
func (s *Store) Load(k string, v interface{}) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	b, err := LoadData(s.db, s.key(k))
	if err != nil || b == nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, err
	}
	log.Infof("Found checkpoint %s", k)
	return true, nil
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads data from bolt database. It returns nil if there
// is no value for the key.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}
		// values are only valid inside the transaction
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
