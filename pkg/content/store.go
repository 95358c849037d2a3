package content

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// Store applies the kind rules (normalise, validate, check references) on
// top of the document store. The admin API, the admin forms and the seeder
// all write through it.
type Store struct {
	db     domain.DatabaseEngine
	logger *zap.Logger
	now    func() time.Time
}

// NewStore wraps db. A nil logger logs nothing.
func NewStore(db domain.DatabaseEngine, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// DB returns the underlying document store
func (s *Store) DB() domain.DatabaseEngine {
	return s.db
}

// Setup creates every kind's collection and its indexes
func (s *Store) Setup() error {
	for _, kind := range Kinds() {
		if err := s.db.CreateCollection(kind.Collection); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", kind.Collection, err)
		}
		existing, err := s.db.GetIndexes(kind.Collection)
		if err != nil {
			return err
		}
		have := map[string]bool{}
		for _, field := range existing {
			have[field] = true
		}
		for field, unique := range kind.Indexes() {
			if have[field] {
				continue
			}
			if err := s.db.CreateIndex(kind.Collection, field, unique); err != nil {
				return fmt.Errorf("failed to index %s.%s: %w", kind.Collection, field, err)
			}
		}
	}
	return nil
}

// Prepare normalises and validates doc without storing it
func (s *Store) Prepare(kind *Kind, doc domain.Document) (domain.Document, error) {
	normalized := Normalize(kind, doc, s.now())
	errs := Validate(kind, normalized)
	if errs == nil {
		errs = ValidationErrors{}
	}
	errs.Merge(CheckRefs(kind, normalized, s.exists))
	if err := errs.Err(); err != nil {
		return normalized, err
	}
	return normalized, nil
}

func (s *Store) exists(kind *Kind, id string) bool {
	_, err := s.db.GetById(kind.Collection, id)
	return err == nil
}

// Create validates and inserts a document. For singleton kinds it replaces
// the existing document instead.
func (s *Store) Create(kind *Kind, doc domain.Document) (domain.Document, error) {
	prepared, err := s.Prepare(kind, doc)
	if err != nil {
		return prepared, err
	}
	if kind.Singleton() {
		return s.saveSingleton(kind, prepared)
	}

	stored, err := s.db.Insert(kind.Collection, prepared)
	if err != nil {
		return prepared, s.slugErr(kind, err)
	}
	s.logger.Info("Created document", zap.String("kind", kind.Name), zap.String("id", stored.ID()))
	return stored, nil
}

// CreateMany validates every document, then inserts them all or none
func (s *Store) CreateMany(kind *Kind, docs []domain.Document) ([]domain.Document, error) {
	if kind.Singleton() {
		return nil, fmt.Errorf("%s holds a single document", kind.Label)
	}
	prepared := make([]domain.Document, len(docs))
	for i, doc := range docs {
		p, err := s.Prepare(kind, doc)
		if err != nil {
			return nil, &BatchError{Index: i, Err: err}
		}
		prepared[i] = p
	}

	stored, err := s.db.BatchInsert(kind.Collection, prepared)
	if err != nil {
		return nil, s.slugErr(kind, err)
	}
	s.logger.Info("Created documents", zap.String("kind", kind.Name), zap.Int("count", len(stored)))
	return stored, nil
}

// Patch merges changes into a stored document; a nil value removes a field.
// The merged document is validated as a whole.
func (s *Store) Patch(kind *Kind, id string, changes domain.Document) (domain.Document, error) {
	existing, err := s.db.GetById(kind.Collection, id)
	if err != nil {
		return nil, err
	}
	merged := existing.Clone()
	for key, value := range changes {
		if value == nil {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}
	return s.replace(kind, id, merged)
}

// Replace validates doc and swaps it in for the stored document
func (s *Store) Replace(kind *Kind, id string, doc domain.Document) (domain.Document, error) {
	if _, err := s.db.GetById(kind.Collection, id); err != nil {
		return nil, err
	}
	return s.replace(kind, id, doc)
}

func (s *Store) replace(kind *Kind, id string, doc domain.Document) (domain.Document, error) {
	doc = doc.Clone()
	doc[domain.FieldID] = id
	prepared, err := s.Prepare(kind, doc)
	if err != nil {
		return prepared, err
	}
	stored, err := s.db.ReplaceById(kind.Collection, id, prepared)
	if err != nil {
		return prepared, s.slugErr(kind, err)
	}
	s.logger.Info("Updated document", zap.String("kind", kind.Name), zap.String("id", id))
	return stored, nil
}

// Delete removes a document
func (s *Store) Delete(kind *Kind, id string) error {
	if err := s.db.DeleteById(kind.Collection, id); err != nil {
		return err
	}
	s.logger.Info("Deleted document", zap.String("kind", kind.Name), zap.String("id", id))
	return nil
}

// Get returns a document by id
func (s *Store) Get(kind *Kind, id string) (domain.Document, error) {
	return s.db.GetById(kind.Collection, id)
}

// BySlug returns the document with the given slug. With publishedOnly set,
// drafts are reported as not found.
func (s *Store) BySlug(kind *Kind, slug string, publishedOnly bool) (domain.Document, error) {
	filter := map[string]interface{}{"slug": slug}
	if publishedOnly && kind.Publishable() {
		filter["published"] = true
	}
	return s.db.FindOne(kind.Collection, filter)
}

// List returns every matching document in the kind's default order
func (s *Store) List(kind *Kind, filter map[string]interface{}) ([]domain.Document, error) {
	result, err := s.db.FindAll(kind.Collection, filter, kind.ListOptions())
	if err != nil {
		return nil, err
	}
	return result.Documents, nil
}

// Published lists the published documents of a kind matching filter
func (s *Store) Published(kind *Kind, filter map[string]interface{}) ([]domain.Document, error) {
	f := map[string]interface{}{}
	for k, v := range filter {
		f[k] = v
	}
	if kind.Publishable() {
		f["published"] = true
	}
	if kind.Name == KindSlide {
		f["active"] = true
	}
	return s.List(kind, f)
}

// Count counts the documents of a kind matching filter
func (s *Store) Count(kind *Kind, filter map[string]interface{}) (int, error) {
	return s.db.Count(kind.Collection, filter)
}

// Settings returns the site settings, falling back to the defaults
func (s *Store) Settings() Settings {
	kind := registry[KindSettings]
	doc, err := s.db.GetById(kind.Collection, SettingsID)
	if err != nil {
		return DefaultSettings()
	}
	var settings Settings
	if err := FromDocument(Normalize(kind, doc, s.now()), &settings); err != nil {
		s.logger.Warn("Stored settings are unreadable, using defaults", zap.Error(err))
		return DefaultSettings()
	}
	return settings
}

func (s *Store) saveSingleton(kind *Kind, doc domain.Document) (domain.Document, error) {
	if _, err := s.db.GetById(kind.Collection, kind.SingletonID); err == nil {
		stored, err := s.db.ReplaceById(kind.Collection, kind.SingletonID, doc)
		if err != nil {
			return doc, err
		}
		s.logger.Info("Updated document", zap.String("kind", kind.Name), zap.String("id", kind.SingletonID))
		return stored, nil
	}
	stored, err := s.db.Insert(kind.Collection, doc)
	if err != nil {
		return doc, err
	}
	s.logger.Info("Created document", zap.String("kind", kind.Name), zap.String("id", stored.ID()))
	return stored, nil
}

// slugErr turns a unique index clash on a slug kind into a field error
// that still matches domain.ErrDuplicateKey
func (s *Store) slugErr(kind *Kind, err error) error {
	if kind.HasSlug() && errors.Is(err, domain.ErrDuplicateKey) {
		return &DuplicateSlugError{Err: err}
	}
	return err
}

// DuplicateSlugError reports a slug that is already taken
type DuplicateSlugError struct {
	Err error
}

func (e *DuplicateSlugError) Error() string {
	return "slug is already taken"
}

func (e *DuplicateSlugError) Unwrap() error {
	return e.Err
}

// Fields returns the error as a field map for forms
func (e *DuplicateSlugError) Fields() ValidationErrors {
	return ValidationErrors{"slug": "is already taken"}
}

// BatchError reports which document of a batch failed validation
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("document %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
