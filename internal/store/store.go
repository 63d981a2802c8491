// Package store persists documents as portable JSON in a SQL database.
//
// Each row holds one document wrapped in an envelope:
//
//	{"schemaVersion":1,"version":12,"savedAt":"...","doc":{...}}
//
// The envelope is stamped with sjson and read back with gjson so the
// document body is never decoded twice.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/engine"
	"github.com/dshills/folio/internal/engine/schema"
	"github.com/dshills/folio/internal/serial"
)

// SchemaVersion is stamped into every saved envelope.
const SchemaVersion = 1

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("store: document not found")

	// ErrBadEnvelope is returned when a stored row cannot be read back.
	ErrBadEnvelope = errors.New("store: malformed envelope")
)

// Document is one stored document row.
type Document struct {
	ID        string `gorm:"primaryKey;size:36"`
	Title     string
	Version   uint64
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary describes a stored document without its content.
type Summary struct {
	ID        string
	Title     string
	Version   uint64
	UpdatedAt time.Time
}

// ContentStore saves and loads documents for one schema.
type ContentStore struct {
	db  *gorm.DB
	reg *schema.Registry
}

// Open connects to the database described by cfg and migrates it.
func Open(cfg config.StoreConfig, reg *schema.Registry) (*ContentStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Driver, err)
	}
	return New(db, reg)
}

// New wraps an open database and migrates the documents table.
func New(db *gorm.DB, reg *schema.Registry) (*ContentStore, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &ContentStore{db: db, reg: reg}, nil
}

// Close releases the underlying connection pool.
func (s *ContentStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Encode wraps portable JSON for doc in a stamped envelope.
func Encode(doc []byte, version uint64, savedAt time.Time) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "schemaVersion", SchemaVersion)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "version", version); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "savedAt", savedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(out, "doc", doc)
}

// Decode extracts the document JSON and its version from an envelope.
func Decode(envelope []byte) (doc []byte, version uint64, err error) {
	if !gjson.ValidBytes(envelope) {
		return nil, 0, fmt.Errorf("%w: invalid JSON", ErrBadEnvelope)
	}
	r := gjson.ParseBytes(envelope)
	if v := r.Get("schemaVersion").Int(); v != SchemaVersion {
		return nil, 0, fmt.Errorf("%w: schema version %d", ErrBadEnvelope, v)
	}
	d := r.Get("doc")
	if !d.Exists() {
		return nil, 0, fmt.Errorf("%w: no doc", ErrBadEnvelope)
	}
	return []byte(d.Raw), r.Get("version").Uint(), nil
}

// Save writes the editor's current document under id, replacing any
// earlier copy.
func (s *ContentStore) Save(ctx context.Context, id, title string, ed *engine.Editor) error {
	// One snapshot so the stamped version always matches the body.
	st := ed.State()
	body, err := serial.MarshalJSON(s.reg, st.Doc)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", id, err)
	}
	return s.Put(ctx, id, title, body, st.Version)
}

// Put stores raw portable JSON under id after checking its types.
func (s *ContentStore) Put(ctx context.Context, id, title string, doc []byte, version uint64) error {
	if err := serial.CheckTypes(s.reg, doc); err != nil {
		return fmt.Errorf("store: put %s: %w", id, err)
	}
	envelope, err := Encode(serial.Compact(doc), version, time.Now())
	if err != nil {
		return fmt.Errorf("store: put %s: %w", id, err)
	}
	row := Document{ID: id, Title: title, Version: version, Content: string(envelope)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "version", "content", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store: put %s: %w", id, err)
	}
	return nil
}

// Get returns the stored portable JSON for id.
func (s *ContentStore) Get(ctx context.Context, id string) ([]byte, uint64, error) {
	var row Document
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("store: get %s: %w", id, err)
	}
	return Decode([]byte(row.Content))
}

// Load reads the document tree stored under id.
func (s *ContentStore) Load(ctx context.Context, id string) (*serial.PortableNode, error) {
	doc, _, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return serial.DecodeTree(s.reg, doc)
}

// OpenEditor loads id into a new editor.
func (s *ContentStore) OpenEditor(ctx context.Context, id string, opts ...engine.Option) (*engine.Editor, error) {
	tree, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return engine.Load(s.reg, tree, opts...)
}

// Summary returns the metadata stored for id without its content.
func (s *ContentStore) Summary(ctx context.Context, id string) (Summary, error) {
	var row Document
	err := s.db.WithContext(ctx).
		Select("id", "title", "version", "updated_at").
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("store: summary %s: %w", id, err)
	}
	return Summary{ID: row.ID, Title: row.Title, Version: row.Version, UpdatedAt: row.UpdatedAt}, nil
}

// List returns every stored document, most recently updated first.
func (s *ContentStore) List(ctx context.Context) ([]Summary, error) {
	var rows []Document
	err := s.db.WithContext(ctx).
		Select("id", "title", "version", "updated_at").
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	out := make([]Summary, len(rows))
	for i, r := range rows {
		out[i] = Summary{ID: r.ID, Title: r.Title, Version: r.Version, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Delete removes the document stored under id.
func (s *ContentStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Document{})
	if res.Error != nil {
		return fmt.Errorf("store: delete %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
