package convert

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/pledgekit/patronage/common/identity"
	"github.com/pledgekit/patronage/common/patron"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

var (
	// ErrAborted means the operator declined to commit a partial conversion,
	// or cancelled the run before commit. The live slot was not touched.
	ErrAborted = errors.New("conversion aborted")
	// ErrNothingToConvert means the live slot held no legacy entries.
	ErrNothingToConvert = errors.New("nothing to convert")
)

// VerificationError means the committed document failed the post-write schema
// check. Fatal: the operator must intervene. The backup slot is left intact.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("conversion verification failed: %v", e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// IdentityLookup resolves a member id to a username.
type IdentityLookup interface {
	Resolve(ctx context.Context, userID string) (string, error)
}

// ConversionStore is the slice of the store adapter the engine needs.
type ConversionStore interface {
	LoadDocument(ctx context.Context) ([]byte, *patron.Document, error)
	WriteBackup(ctx context.Context, raw []byte) error
	WriteLiveRaw(ctx context.Context, raw []byte) error
	LoadBackup(ctx context.Context) ([]byte, error)
}

// ConfirmFunc asks the operator whether to commit despite failed ids. It is
// only called when the failure set is non-empty; partial conversions are
// never committed silently.
type ConfirmFunc func(ctx context.Context, failed []string) (bool, error)

// Result is the transient outcome of one conversion run.
type Result struct {
	RunID     uuid.UUID
	Converted map[string]string // user_id -> username
	Failed    []string          // user_ids that did not make it
	Mapping   patron.Mapping
}

// Engine converts the stored document from the legacy id-keyed schema to the
// username-keyed schema.
//
// The protocol is strictly ordered: load, backup, resolve, operator
// confirmation, commit, verify. The backup is written byte-for-byte before
// any mutation, and a verification failure never overwrites it.
type Engine struct {
	store   ConversionStore
	lookup  IdentityLookup
	delay   time.Duration
	confirm ConfirmFunc
	log     Logger
}

// NewEngine creates a conversion engine. delay is slept between identity
// calls to respect the platform's rate limits. confirm may be nil, in which
// case any failure aborts the run.
func NewEngine(store ConversionStore, lookup IdentityLookup, delay time.Duration, confirm ConfirmFunc, log Logger) *Engine {
	return &Engine{
		store:   store,
		lookup:  lookup,
		delay:   delay,
		confirm: confirm,
		log:     log,
	}
}

// Run executes one conversion. The returned Result is populated even when the
// run aborts after the resolve phase, so callers can report what happened.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.New(),
		Converted: make(map[string]string),
	}
	e.log.Info("conversion run starting", "run_id", res.RunID)

	// 1. Load the legacy document.
	raw, doc, err := e.store.LoadDocument(ctx)
	if err != nil {
		return res, fmt.Errorf("load live document: %w", err)
	}
	if doc.Schema != patron.SchemaID {
		return res, fmt.Errorf("live document schema is %q, expected legacy %q", doc.Schema, patron.SchemaID)
	}
	legacy, err := doc.DecodeLegacyMapping()
	if err != nil {
		return res, fmt.Errorf("decode legacy mapping: %w", err)
	}
	if len(legacy) == 0 {
		return res, ErrNothingToConvert
	}

	// 2. Back up the loaded bytes, unmodified, before any mutation.
	if err := e.store.WriteBackup(ctx, raw); err != nil {
		return res, fmt.Errorf("backup before conversion: %w", err)
	}
	e.log.Info("backup written", "run_id", res.RunID, "entries", len(legacy))

	// 3. Resolve every id. Map iteration order is randomized, so keys are
	// sorted to make the run (and the collision tie-break) deterministic.
	ids := make([]string, 0, len(legacy))
	for id := range legacy {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	mapping := patron.Mapping{}
	holder := make(map[string]string) // username -> user_id currently holding it
	for i, id := range ids {
		if i > 0 {
			if err := sleepCtx(ctx, e.delay); err != nil {
				return res, fmt.Errorf("%w: %v", ErrAborted, err)
			}
		}

		username, err := e.lookup.Resolve(ctx, id)
		if err != nil {
			if identity.IsUnauthorized(err) {
				return res, fmt.Errorf("identity lookup unauthorized, aborting run: %w", err)
			}
			e.log.Warn("id not converted", "user_id", id, "error", err)
			res.Failed = append(res.Failed, id)
			continue
		}

		// Usernames must be unique in the target mapping. On collision the
		// later id wins and the earlier one joins the failure set.
		if prev, taken := holder[username]; taken {
			e.log.Warn("username collision, later id wins",
				"username", username, "loser", prev, "winner", id)
			res.Failed = append(res.Failed, prev)
			delete(res.Converted, prev)
		}
		holder[username] = id
		mapping[username] = patron.Record{UserID: id, FullName: legacy[id].Name}
		res.Converted[id] = username
	}
	res.Mapping = mapping
	e.log.Info("resolve phase complete", "run_id", res.RunID,
		"converted", len(res.Converted), "failed", len(res.Failed))

	// 4. A non-empty failure set needs an explicit operator decision.
	if len(res.Failed) > 0 {
		sort.Strings(res.Failed)
		if e.confirm == nil {
			return res, fmt.Errorf("%w: %d ids failed and no confirmation hook is set", ErrAborted, len(res.Failed))
		}
		ok, err := e.confirm(ctx, res.Failed)
		if err != nil {
			return res, fmt.Errorf("confirmation: %w", err)
		}
		if !ok {
			return res, ErrAborted
		}
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %v", ErrAborted, err)
	}

	// 5. Commit, then verify what actually landed.
	converted, err := patron.EncodeDocument(mapping)
	if err != nil {
		return res, fmt.Errorf("encode converted document: %w", err)
	}
	if err := e.store.WriteLiveRaw(ctx, converted); err != nil {
		return res, fmt.Errorf("write converted document: %w", err)
	}
	if err := e.verifyCommit(ctx, converted); err != nil {
		return res, err
	}

	e.log.Info("conversion run complete", "run_id", res.RunID, "patrons", len(mapping))
	return res, nil
}

// verifyCommit re-loads the live slot and checks that it parses as the
// current schema and semantically matches what was written. Cell backends may
// re-serialize, so the comparison is structural JSON equality, not bytes.
func (e *Engine) verifyCommit(ctx context.Context, written []byte) error {
	stored, doc, err := e.store.LoadDocument(ctx)
	if err != nil {
		return &VerificationError{Err: fmt.Errorf("re-load after commit: %w", err)}
	}
	if _, err := doc.DecodeMapping(); err != nil {
		return &VerificationError{Err: err}
	}
	if !jsonpatch.Equal(written, stored) {
		return &VerificationError{Err: errors.New("stored document differs from the written one")}
	}
	return nil
}

// Restore copies the backup slot back into the live slot. This is the
// rollback path after a bad conversion. The backup must still parse as a
// tagged document before it is allowed to clobber the live slot.
func (e *Engine) Restore(ctx context.Context) error {
	raw, err := e.store.LoadBackup(ctx)
	if err != nil {
		return err
	}
	if _, err := patron.DecodeDocument(raw); err != nil {
		return fmt.Errorf("backup does not hold a valid document: %w", err)
	}
	if err := e.store.WriteLiveRaw(ctx, raw); err != nil {
		return fmt.Errorf("restore live slot: %w", err)
	}
	e.log.Info("live slot restored from backup", "bytes", len(raw))
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
