// Package seed loads starter content from a YAML file.
//
// The file maps collection names to lists of documents, except settings
// which is a single document:
//
//	settings:
//	  site_name: Go Tours
//	destinations:
//	  - name: Bwindi
//	    country: Uganda
//	tours:
//	  - title: Gorilla trek
//	    destination_id: bwindi   # a slug is resolved to the document id
//
// Every document goes through content validation. Documents that already
// exist (same slug, or same title for kinds without slugs) are skipped, so
// a file can be loaded any number of times.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/domain"
)

//go:embed demo.yml
var demo []byte

// order inserts referenced kinds before the kinds pointing at them
var order = []string{
	content.KindSettings,
	content.KindDestination,
	content.KindTour,
	content.KindSlide,
	content.KindFAQ,
	content.KindPost,
	content.KindTestimonial,
	content.KindInquiry,
}

// File is the decoded seed file
type File map[string]yaml.Node

// Result counts what a load did, per kind
type Result struct {
	Created map[string]int
	Skipped map[string]int
}

// Total returns the number of documents created
func (r Result) Total() int {
	total := 0
	for _, n := range r.Created {
		total += n
	}
	return total
}

type Seeder struct {
	store  *content.Store
	logger *zap.Logger
}

func New(store *content.Store, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{store: store, logger: logger.Named("seed")}
}

// Load seeds from the file at path
func (s *Seeder) Load(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return s.Read(f)
}

// Demo seeds the bundled demo content
func (s *Seeder) Demo() (Result, error) {
	return s.Apply(demo)
}

// Read seeds from r
func (s *Seeder) Read(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return s.Apply(data)
}

// Apply seeds from YAML data
func (s *Seeder) Apply(data []byte) (Result, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Result{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for key := range file {
		if _, ok := content.ByCollection(key); !ok {
			return Result{}, fmt.Errorf("unknown collection %q in seed file", key)
		}
	}
	if err := s.store.Setup(); err != nil {
		return Result{}, err
	}

	result := Result{Created: map[string]int{}, Skipped: map[string]int{}}
	for _, name := range order {
		kind, _ := content.Lookup(name)
		node, ok := file[kind.Collection]
		if !ok {
			continue
		}
		docs, err := decodeDocs(kind, &node)
		if err != nil {
			return result, err
		}
		for i, doc := range docs {
			created, err := s.seedOne(kind, doc)
			if err != nil {
				return result, fmt.Errorf("%s[%d]: %w", kind.Collection, i, err)
			}
			if created {
				result.Created[kind.Name]++
			} else {
				result.Skipped[kind.Name]++
			}
		}
	}
	s.logger.Info("Seed loaded", zap.Int("created", result.Total()), zap.Any("skipped", result.Skipped))
	return result, nil
}

func decodeDocs(kind *content.Kind, node *yaml.Node) ([]domain.Document, error) {
	if kind.Singleton() {
		var doc map[string]interface{}
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s must be a mapping: %w", kind.Collection, err)
		}
		return []domain.Document{doc}, nil
	}
	var list []map[string]interface{}
	if err := node.Decode(&list); err != nil {
		return nil, fmt.Errorf("%s must be a list of documents: %w", kind.Collection, err)
	}
	docs := make([]domain.Document, len(list))
	for i, doc := range list {
		docs[i] = doc
	}
	return docs, nil
}

// seedOne inserts doc unless it already exists
func (s *Seeder) seedOne(kind *content.Kind, doc domain.Document) (bool, error) {
	if err := s.resolveRefs(kind, doc); err != nil {
		return false, err
	}
	prepared, err := s.store.Prepare(kind, doc)
	if err != nil {
		return false, err
	}

	exists, err := s.exists(kind, prepared)
	if err != nil || exists {
		return false, err
	}
	stored, err := s.store.Create(kind, prepared)
	if err != nil {
		return false, err
	}
	s.logger.Debug("Seeded document", zap.String("kind", kind.Name), zap.String("id", stored.ID()))
	return true, nil
}

func (s *Seeder) exists(kind *content.Kind, doc domain.Document) (bool, error) {
	var err error
	switch {
	case doc.ID() != "":
		_, err = s.store.Get(kind, doc.ID())
	case kind.HasSlug():
		_, err = s.store.BySlug(kind, fmt.Sprint(doc["slug"]), false)
	default:
		_, err = s.store.DB().FindOne(kind.Collection, map[string]interface{}{kind.TitleField: doc[kind.TitleField]})
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// resolveRefs replaces ref values naming a slug with that document's id
func (s *Seeder) resolveRefs(kind *content.Kind, doc domain.Document) error {
	for _, field := range kind.Fields {
		if field.Type != content.FieldRef {
			continue
		}
		value, ok := doc[field.Name].(string)
		if !ok || value == "" {
			continue
		}
		target, _ := content.Lookup(field.RefKind)
		if _, err := s.store.Get(target, value); err == nil || !target.HasSlug() {
			continue
		}
		ref, err := s.store.BySlug(target, value, false)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%s: no %s with slug %q", field.Name, target.Label, value)
			}
			return err
		}
		doc[field.Name] = ref.ID()
	}
	return nil
}
