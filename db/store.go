package db

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/shadowmint/go-token-client/entities"
)

var ErrNotFound = errors.New("store resource not found")

const timelineKey = "timeline"

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(storeDir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "token-client-internal-store"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %v", err)
	}

	return &PebbleStore{db: db}, nil
}

func (ps *PebbleStore) SaveTimeline(events []entities.TransactionEvent) error {
	buffer := new(bytes.Buffer)
	encoder := gob.NewEncoder(buffer)
	err := encoder.Encode(events)
	if err != nil {
		return errors.Wrap(err, "encoding timeline")
	}

	key := []byte(timelineKey)
	err = ps.db.Set(key, buffer.Bytes(), pebble.Sync) // sync to prevent data loss. performance not important.
	if err != nil {
		return errors.Wrap(err, "saving timeline")
	}
	return nil
}

func (ps *PebbleStore) GetTimeline() ([]entities.TransactionEvent, error) {
	key := []byte(timelineKey)
	value, closer, err := ps.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting value for key [%s]", timelineKey)
	}
	defer closer.Close()

	buffer := bytes.NewBuffer(value)
	decoder := gob.NewDecoder(buffer)
	var events []entities.TransactionEvent
	err = decoder.Decode(&events)
	if err != nil {
		return nil, errors.Wrap(err, "deserializing timeline")
	}

	return events, nil
}

func (ps *PebbleStore) Close() error {
	return ps.db.Close()
}
