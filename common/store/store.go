package store

import (
	"context"
	"errors"
	"fmt"

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
	// ErrPermission means the store rejected our credentials. Fatal: callers
	// must not retry silently.
	ErrPermission = errors.New("store permission denied")
	// ErrNoDocument means the live slot holds no document at all.
	ErrNoDocument = errors.New("no document in live slot")
)

// CellAPI is the contract of the external row-store client: a two-dimensional
// cell grid addressed by cell name, with no transactional guarantees. The ok
// result distinguishes an empty cell from a read failure.
type CellAPI interface {
	ReadCell(ctx context.Context, addr string) (data []byte, ok bool, err error)
	WriteCell(ctx context.Context, addr string, data []byte) error
	ClearCell(ctx context.Context, addr string) error
}

// Store adapts the cell grid into patron-document operations. One document
// occupies two cells: the live slot (current mapping) and the backup slot
// (legacy snapshot, overwritten only at the start of a conversion run).
type Store struct {
	cells      CellAPI
	liveCell   string
	backupCell string
	log        Logger
}

// New creates a store over the given cell backend.
func New(cells CellAPI, liveCell, backupCell string, log Logger) *Store {
	return &Store{
		cells:      cells,
		liveCell:   liveCell,
		backupCell: backupCell,
		log:        log,
	}
}

// Load reads the live slot and decodes it as a current-schema mapping. An
// empty live slot is an empty mapping, not an error. An id-schema document is
// an error: the conversion has to run before the service can serve it.
func (s *Store) Load(ctx context.Context) (patron.Mapping, error) {
	raw, ok, err := s.cells.ReadCell(ctx, s.liveCell)
	if err != nil {
		return nil, fmt.Errorf("read live slot: %w", err)
	}
	if !ok || len(raw) == 0 {
		s.log.Debug("live slot empty, starting with empty mapping")
		return patron.Mapping{}, nil
	}
	doc, err := patron.DecodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("decode live document: %w", err)
	}
	m, err := doc.DecodeMapping()
	if err != nil {
		return nil, fmt.Errorf("decode live mapping: %w", err)
	}
	return m, nil
}

// Save rewrites the live slot with the full mapping. The whole document is
// replaced on every mutation; there are no partial-row updates.
func (s *Store) Save(ctx context.Context, m patron.Mapping) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid mapping: %w", err)
	}
	raw, err := patron.EncodeDocument(m)
	if err != nil {
		return err
	}
	if err := s.cells.ClearCell(ctx, s.liveCell); err != nil {
		return fmt.Errorf("clear live slot: %w", err)
	}
	if err := s.cells.WriteCell(ctx, s.liveCell, raw); err != nil {
		return fmt.Errorf("write live slot: %w", err)
	}
	s.log.Info("saved patron mapping", "patrons", len(m))
	return nil
}

// LoadDocument reads the live slot without interpreting the patrons blob,
// returning both the exact stored bytes and the decoded envelope. The
// conversion uses the raw bytes for its byte-for-byte backup.
func (s *Store) LoadDocument(ctx context.Context) ([]byte, *patron.Document, error) {
	raw, ok, err := s.cells.ReadCell(ctx, s.liveCell)
	if err != nil {
		return nil, nil, fmt.Errorf("read live slot: %w", err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil, ErrNoDocument
	}
	doc, err := patron.DecodeDocument(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode live document: %w", err)
	}
	return raw, doc, nil
}

// LoadRaw reads the live slot bytes without decoding anything. Used when
// wrapping a pre-envelope legacy blob.
func (s *Store) LoadRaw(ctx context.Context) ([]byte, error) {
	raw, ok, err := s.cells.ReadCell(ctx, s.liveCell)
	if err != nil {
		return nil, fmt.Errorf("read live slot: %w", err)
	}
	if !ok || len(raw) == 0 {
		return nil, ErrNoDocument
	}
	return raw, nil
}

// WriteBackup writes the given bytes, unmodified, to the backup slot.
func (s *Store) WriteBackup(ctx context.Context, raw []byte) error {
	if err := s.cells.WriteCell(ctx, s.backupCell, raw); err != nil {
		return fmt.Errorf("write backup slot: %w", err)
	}
	s.log.Info("wrote backup slot", "bytes", len(raw))
	return nil
}

// LoadBackup reads the backup slot bytes.
func (s *Store) LoadBackup(ctx context.Context) ([]byte, error) {
	raw, ok, err := s.cells.ReadCell(ctx, s.backupCell)
	if err != nil {
		return nil, fmt.Errorf("read backup slot: %w", err)
	}
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("backup slot is empty")
	}
	return raw, nil
}

// WriteLiveRaw replaces the live slot with pre-serialized bytes. Used by the
// conversion commit and by restore-from-backup; never by the webhook path.
func (s *Store) WriteLiveRaw(ctx context.Context, raw []byte) error {
	if err := s.cells.ClearCell(ctx, s.liveCell); err != nil {
		return fmt.Errorf("clear live slot: %w", err)
	}
	if err := s.cells.WriteCell(ctx, s.liveCell, raw); err != nil {
		return fmt.Errorf("write live slot: %w", err)
	}
	return nil
}
