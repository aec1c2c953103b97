package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var eventsBucket = []byte("audit_events")

// BoltSink appends events to an embedded bbolt file, keyed by their sortable ID.
type BoltSink struct {
	db *bbolt.DB
}

var _ Sink = (*BoltSink)(nil)

func OpenBoltSink(path string) (*BoltSink, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "OpenBoltSink Open")
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(eventsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "OpenBoltSink CreateBucket")
	}
	return &BoltSink{db: db}, nil
}

func (s *BoltSink) Write(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "BoltSink.Write Marshal")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(eventsBucket)
		if b.Get([]byte(event.ID)) != nil {
			return errors.Errorf("audit event %s already written", event.ID)
		}
		return b.Put([]byte(event.ID), data)
	})
}

// Recent returns up to limit events, newest first, optionally filtered by user.
func (s *BoltSink) Recent(userID string, limit int) ([]Event, error) {
	var events []Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(eventsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(events) < limit; k, v = c.Prev() {
			var e Event
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if userID != "" && e.UserID != userID {
				continue
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "BoltSink.Recent")
	}
	return events, nil
}

func (s *BoltSink) Close() error {
	return s.db.Close()
}
