package ingestion

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/metrics"
	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/logger"
)

// Store is the storage slice the importer writes through.
type Store interface {
	InsertDocument(doc *models.Document) error
	InsertPage(page *models.Page) error
	InsertAnnotation(a *models.Annotation) error
	SaveSnapshot(documentID string, snap *models.Snapshot) error
}

// seedExtractor tags obvious entity mentions in imported text so a fresh
// document is immediately annotatable and askable. Experts refine these
// later; nothing here is treated as validated.
type seedExtractor struct {
	entityType string
	re         *regexp.Regexp
}

var seedExtractors = []seedExtractor{
	{"Dosage", regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s?(?:mg|g|ml|mcg|µg|%)\b`)},
	{"ProductCode", regexp.MustCompile(`\b[A-Z]{1,3}[- ]?\d{3,6}\b`)},
	{"Date", regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`)},
}

// Processor imports HTML documents: it extracts page text, seeds
// annotations from the extractors above and writes the document's initial
// snapshot.
type Processor struct {
	store Store
}

func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// ImportResult summarizes one import.
type ImportResult struct {
	Document    *models.Document `json:"document"`
	Pages       int              `json:"pages"`
	Annotations int              `json:"annotations"`
}

// ImportHTML parses the HTML, creates the document with one page per
// top-level section, seeds annotations and saves the initial snapshot.
func (p *Processor) ImportHTML(title, html, language, createdBy string) (*ImportResult, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}
	if strings.TrimSpace(html) == "" {
		return nil, errors.New("html content is required")
	}

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Source:    "html_import",
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.store.InsertDocument(doc); err != nil {
		return nil, err
	}

	pages := splitPages(parsed)
	if len(pages) == 0 {
		pages = []string{strings.TrimSpace(parsed.Text())}
	}

	entities := map[string][]string{}
	annotationCount := 0

	for i, text := range pages {
		page := &models.Page{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Number:     i + 1,
			Text:       text,
			CreatedAt:  now,
		}
		if err := p.store.InsertPage(page); err != nil {
			return nil, err
		}

		for _, seeded := range p.seedAnnotations(doc.ID, page, createdBy) {
			if err := p.store.InsertAnnotation(seeded); err != nil {
				return nil, err
			}
			annotationCount++
			if !contains(entities[seeded.EntityType], seeded.Value) {
				entities[seeded.EntityType] = append(entities[seeded.EntityType], seeded.Value)
			}
		}
	}

	snap := models.NewSnapshot()
	snap.Document = map[string]interface{}{
		"title":       doc.Title,
		"language":    doc.Language,
		"source":      doc.Source,
		"imported_at": now.UTC().Format(time.RFC3339),
	}
	snap.Entities = entities

	if err := p.store.SaveSnapshot(doc.ID, snap); err != nil {
		return nil, err
	}

	metrics.DocumentsImported.Inc()
	logger.Info("Document imported",
		zap.String("doc_id", doc.ID),
		zap.String("title", title),
		zap.Int("pages", len(pages)),
		zap.Int("annotations", annotationCount),
	)

	return &ImportResult{Document: doc, Pages: len(pages), Annotations: annotationCount}, nil
}

// splitPages cuts the document at h1/h2 headings. Each section becomes one
// page; text before the first heading is its own page.
func splitPages(doc *goquery.Document) []string {
	var pages []string
	var current strings.Builder

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			pages = append(pages, text)
		}
		current.Reset()
	}

	doc.Find("body").Children().Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if tag == "h1" || tag == "h2" {
			flush()
		}
		text := strings.TrimSpace(s.Text())
		if text != "" {
			current.WriteString(text)
			current.WriteString("\n")
		}
	})
	flush()

	return pages
}

// seedAnnotations runs every extractor over the page text, deduplicating
// per (type, value) within the page.
func (p *Processor) seedAnnotations(documentID string, page *models.Page, createdBy string) []*models.Annotation {
	var annotations []*models.Annotation
	seen := map[string]struct{}{}

	for _, extractor := range seedExtractors {
		for _, match := range extractor.re.FindAllString(page.Text, -1) {
			key := extractor.entityType + "\x00" + match
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			annotations = append(annotations, &models.Annotation{
				ID:         uuid.NewString(),
				DocumentID: documentID,
				PageID:     page.ID,
				PageNumber: page.Number,
				EntityType: extractor.entityType,
				Value:      match,
				CreatedBy:  createdBy,
				CreatedAt:  time.Now(),
			})
		}
	}

	return annotations
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
