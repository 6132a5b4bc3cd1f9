package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/pledgekit/patronage/common/event"
	"github.com/pledgekit/patronage/common/patron"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// ErrStoreUnavailable means loading or saving the patron mapping failed. The
// transport boundary maps it to a server error so the platform's webhook
// sender retries the delivery with its own backoff.
var ErrStoreUnavailable = errors.New("patron store unavailable")

// PatronStore is the slice of the store adapter the reconciler needs.
type PatronStore interface {
	Load(ctx context.Context) (patron.Mapping, error)
	Save(ctx context.Context, m patron.Mapping) error
}

// Reconciler applies normalized events to the patron mapping. Each apply is a
// full-document read-modify-write; the external store offers no transactions,
// so all applies must flow through a single Queue worker to stay ordered.
type Reconciler struct {
	store PatronStore
	log   Logger
}

// New creates a reconciler over the given store.
func New(store PatronStore, log Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Apply applies one event. Transitions are idempotent: a duplicate create is
// an update, a delete of an absent key is a no-op success. The store is only
// written when the mapping actually changed.
func (r *Reconciler) Apply(ctx context.Context, ev *event.PatronEvent) error {
	if ev.Kind == event.Ignored {
		return nil
	}

	m, err := r.store.Load(ctx)
	if err != nil {
		r.log.Error("failed to load patron mapping", "error", err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	changed := false
	switch ev.Kind {
	case event.PledgeCreated:
		changed = r.applyCreate(m, ev)
	case event.PledgeDeleted:
		changed = r.applyDelete(m, ev)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	if !changed {
		r.log.Debug("mapping unchanged, skipping save",
			"kind", ev.Kind, "user_id", ev.UserID)
		return nil
	}

	if err := r.store.Save(ctx, m); err != nil {
		r.log.Error("failed to save patron mapping", "error", err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Reconciler) applyCreate(m patron.Mapping, ev *event.PatronEvent) bool {
	rec := patron.Record{UserID: ev.UserID, FullName: ev.FullName}
	if existing, ok := m[ev.Username]; ok && existing == rec {
		return false
	}
	// The same user may resurface under a new username; drop the stale key so
	// one patron never holds two entries.
	if old, ok := m.FindByUserID(ev.UserID); ok && old != ev.Username {
		delete(m, old)
	}
	m[ev.Username] = rec
	r.log.Info("patron active", "username", ev.Username, "user_id", ev.UserID)
	return true
}

func (r *Reconciler) applyDelete(m patron.Mapping, ev *event.PatronEvent) bool {
	key := ev.Username
	if _, ok := m[key]; !ok {
		// Deletes can arrive without a username, or with a stale one after a
		// rename. Fall back to matching by user id. Best-effort only: there
		// is no guarantee against a double-renamed patron.
		fallback, ok := m.FindByUserID(ev.UserID)
		if !ok {
			r.log.Info("delete for absent patron, nothing to do",
				"username", ev.Username, "user_id", ev.UserID)
			return false
		}
		key = fallback
	}
	delete(m, key)
	r.log.Info("patron removed", "username", key, "user_id", ev.UserID)
	return true
}
