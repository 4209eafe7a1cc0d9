package metrics

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerSink persists every event to an embedded BadgerDB store, keyed
// by "<configID>/<unixnano>" so events sort in arrival order within a
// configuration and can be range-scanned for historical replay. This
// repoints the teacher's preferences/stats store (internal/storage)
// onto a write-heavy, rarely-deleted event stream, which is exactly
// what an LSM-backed store like Badger is for.
type BadgerSink struct {
	db       *badger.DB
	configID string
}

// OpenBadgerSink opens (creating if needed) a Badger store at dir and
// returns a sink that tags every event with configID.
func OpenBadgerSink(dir, configID string) (*BadgerSink, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("metrics: open badger store at %s: %w", dir, err)
	}
	return &BadgerSink{db: db, configID: configID}, nil
}

// Close closes the underlying store.
func (s *BadgerSink) Close() error {
	return s.db.Close()
}

// Emit writes ev under the current configID and timestamp. An encoding
// error drops the event silently and a store error is logged here;
// neither is returned, the same log-and-continue treatment the teacher
// gives optional subsystems like NNUE loading: a metrics write failing
// must never abort a search.
func (s *BadgerSink) Emit(ev Event) {
	ev.ConfigID = s.configID
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s/%019d", s.configID, time.Now().UnixNano())
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	}); err != nil {
		log.Printf("[metrics] badger write failed: %v", err)
	}
}

// History returns every event recorded for configID, oldest first.
func (s *BadgerSink) History(configID string) ([]Event, error) {
	var out []Event
	prefix := []byte(configID + "/")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				var ev Event
				if err := json.Unmarshal(val, &ev); err != nil {
					return err
				}
				out = append(out, ev)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("metrics: read history for %s: %w", configID, err)
	}
	return out, nil
}
