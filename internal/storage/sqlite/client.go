package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/logger"
)

// ErrNotFound is returned when a row id is unknown to the store.
var ErrNotFound = errors.New("not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source TEXT,
		language TEXT,
		knowledge_base TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_pages_document ON pages(document_id);

	CREATE TABLE IF NOT EXISTS annotations (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		page_id TEXT,
		page_number INTEGER,
		entity_type TEXT NOT NULL,
		value TEXT NOT NULL,
		created_by TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_annotations_document ON annotations(document_id);
	CREATE INDEX IF NOT EXISTS idx_annotations_type ON annotations(entity_type);

	CREATE TABLE IF NOT EXISTS annotation_relationships (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		is_validated INTEGER NOT NULL DEFAULT 0,
		validated_by TEXT,
		validated_at INTEGER,
		created_by TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (source_id) REFERENCES annotations(id) ON DELETE CASCADE,
		FOREIGN KEY (target_id) REFERENCES annotations(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON annotation_relationships(source_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON annotation_relationships(target_id);

	CREATE TABLE IF NOT EXISTS validated_qa (
		id TEXT PRIMARY KEY,
		document_id TEXT,
		question TEXT NOT NULL,
		question_normalized TEXT NOT NULL,
		answer TEXT NOT NULL,
		source_type TEXT NOT NULL,
		json_path TEXT,
		confidence REAL NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		correction_count INTEGER NOT NULL DEFAULT 0,
		previous_answers TEXT,
		validated_by TEXT,
		validated_at INTEGER NOT NULL,
		tags TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_global INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_qa_document ON validated_qa(document_id);
	CREATE INDEX IF NOT EXISTS idx_qa_normalized ON validated_qa(question_normalized);
	CREATE INDEX IF NOT EXISTS idx_qa_active ON validated_qa(is_active);

	CREATE TABLE IF NOT EXISTS question_log (
		id TEXT PRIMARY KEY,
		document_id TEXT,
		user_id TEXT,
		question TEXT NOT NULL,
		answer TEXT,
		source TEXT,
		confidence REAL,
		needs_validation INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_question_log_document ON question_log(document_id);
	CREATE INDEX IF NOT EXISTS idx_question_log_created ON question_log(created_at);

	CREATE TABLE IF NOT EXISTS answer_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id TEXT NOT NULL,
		helpful INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (question_id) REFERENCES question_log(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_question ON answer_feedback(question_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertDocument(doc *models.Document) error {
	query := `
		INSERT INTO documents (id, title, source, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			language = excluded.language,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		doc.ID,
		doc.Title,
		doc.Source,
		doc.Language,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	logger.Debug("Document inserted", zap.String("doc_id", doc.ID), zap.String("title", doc.Title))
	return nil
}

func (c *Client) GetDocument(id string) (*models.Document, error) {
	query := `SELECT id, title, source, language, created_at, updated_at FROM documents WHERE id = ?`

	var doc models.Document
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.Source,
		&doc.Language,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)

	return &doc, nil
}

// LoadSnapshot returns the document's knowledge base. A missing or malformed
// snapshot column is treated as an empty snapshot, never as a failure: the QA
// engine must stay readable on a partial knowledge base.
func (c *Client) LoadSnapshot(documentID string) (*models.Snapshot, error) {
	query := `SELECT knowledge_base FROM documents WHERE id = ?`

	var raw sql.NullString
	err := c.db.QueryRow(query, documentID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if !raw.Valid || raw.String == "" {
		return models.NewSnapshot(), nil
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(raw.String), &snap); err != nil {
		logger.Warn("Malformed snapshot, treating as empty",
			zap.String("doc_id", documentID),
			zap.Error(err),
		)
		return models.NewSnapshot(), nil
	}

	if snap.Entities == nil {
		snap.Entities = map[string][]string{}
	}
	if snap.Relations == nil {
		snap.Relations = []models.RelationView{}
	}
	if snap.ValidatedQA == nil {
		snap.ValidatedQA = []models.ValidatedQAView{}
	}

	return &snap, nil
}

func (c *Client) SaveSnapshot(documentID string, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	result, err := c.db.Exec(
		`UPDATE documents SET knowledge_base = ?, updated_at = ? WHERE id = ?`,
		string(data),
		time.Now().Unix(),
		documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}

	logger.Debug("Snapshot saved",
		zap.String("doc_id", documentID),
		zap.Int("relations", len(snap.Relations)),
		zap.Int("validated_qa", len(snap.ValidatedQA)),
	)
	return nil
}

func (c *Client) InsertPage(page *models.Page) error {
	query := `INSERT INTO pages (id, document_id, number, text, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		page.ID,
		page.DocumentID,
		page.Number,
		page.Text,
		page.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}

	return nil
}

func (c *Client) InsertAnnotation(a *models.Annotation) error {
	query := `
		INSERT INTO annotations (id, document_id, page_id, page_number, entity_type, value, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		a.ID,
		a.DocumentID,
		a.PageID,
		a.PageNumber,
		a.EntityType,
		a.Value,
		a.CreatedBy,
		a.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert annotation: %w", err)
	}

	return nil
}

func (c *Client) GetAnnotation(id string) (*models.Annotation, error) {
	query := `
		SELECT id, document_id, page_id, page_number, entity_type, value, created_by, created_at
		FROM annotations WHERE id = ?
	`

	var a models.Annotation
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&a.ID,
		&a.DocumentID,
		&a.PageID,
		&a.PageNumber,
		&a.EntityType,
		&a.Value,
		&a.CreatedBy,
		&createdAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("annotation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation: %w", err)
	}

	a.CreatedAt = time.Unix(createdAt, 0)
	return &a, nil
}

func (c *Client) GetAnnotationsByDocument(documentID string) ([]models.Annotation, error) {
	query := `
		SELECT id, document_id, page_id, page_number, entity_type, value, created_by, created_at
		FROM annotations
		WHERE document_id = ?
		ORDER BY page_number, created_at
	`

	rows, err := c.db.Query(query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get annotations: %w", err)
	}
	defer rows.Close()

	var annotations []models.Annotation
	for rows.Next() {
		var a models.Annotation
		var createdAt int64

		err := rows.Scan(&a.ID, &a.DocumentID, &a.PageID, &a.PageNumber, &a.EntityType, &a.Value, &a.CreatedBy, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.CreatedAt = time.Unix(createdAt, 0)
		annotations = append(annotations, a)
	}

	return annotations, nil
}

func (c *Client) InsertRelationship(r *models.AnnotationRelationship) error {
	query := `
		INSERT INTO annotation_relationships
			(id, source_id, target_id, name, description, is_validated, validated_by, validated_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var validatedAt interface{}
	if r.ValidatedAt != nil {
		validatedAt = r.ValidatedAt.Unix()
	}

	_, err := c.db.Exec(
		query,
		r.ID,
		r.SourceID,
		r.TargetID,
		r.Name,
		r.Description,
		boolToInt(r.IsValidated),
		r.ValidatedBy,
		validatedAt,
		r.CreatedBy,
		r.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}

	logger.Debug("Relationship inserted",
		zap.String("relationship_id", r.ID),
		zap.String("name", r.Name),
	)
	return nil
}

func (c *Client) GetRelationship(id string) (*models.AnnotationRelationship, error) {
	query := relationshipSelect + ` WHERE id = ?`

	row := c.db.QueryRow(query, id)
	r, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("relationship %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}

	return r, nil
}

// GetRelationshipsByDocument returns relationships whose source or target
// annotation belongs to the document. validatedOnly restricts to edges that
// have been expert-validated.
func (c *Client) GetRelationshipsByDocument(documentID string, validatedOnly bool) ([]models.AnnotationRelationship, error) {
	query := relationshipSelect + `
		WHERE (source_id IN (SELECT id FROM annotations WHERE document_id = ?)
		    OR target_id IN (SELECT id FROM annotations WHERE document_id = ?))
	`
	if validatedOnly {
		query += ` AND is_validated = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := c.db.Query(query, documentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships: %w", err)
	}
	defer rows.Close()

	return collectRelationships(rows)
}

// GetRelationshipsBetween returns every relationship linking the two
// annotations, in either direction.
func (c *Client) GetRelationshipsBetween(aID, bID string) ([]models.AnnotationRelationship, error) {
	query := relationshipSelect + `
		WHERE (source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)
		ORDER BY created_at, id
	`

	rows, err := c.db.Query(query, aID, bID, bID, aID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships between annotations: %w", err)
	}
	defer rows.Close()

	return collectRelationships(rows)
}

// FindRelationshipTuple looks up an exact (source, target, name) edge.
// Returns ErrNotFound when no such edge exists.
func (c *Client) FindRelationshipTuple(sourceID, targetID, name string) (*models.AnnotationRelationship, error) {
	query := relationshipSelect + ` WHERE source_id = ? AND target_id = ? AND name = ?`

	row := c.db.QueryRow(query, sourceID, targetID, name)
	r, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("relationship tuple: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find relationship tuple: %w", err)
	}

	return r, nil
}

func (c *Client) UpdateRelationship(id string, name, description *string) (*models.AnnotationRelationship, error) {
	if name != nil {
		if _, err := c.db.Exec(`UPDATE annotation_relationships SET name = ? WHERE id = ?`, *name, id); err != nil {
			return nil, fmt.Errorf("failed to update relationship name: %w", err)
		}
	}
	if description != nil {
		if _, err := c.db.Exec(`UPDATE annotation_relationships SET description = ? WHERE id = ?`, *description, id); err != nil {
			return nil, fmt.Errorf("failed to update relationship description: %w", err)
		}
	}

	return c.GetRelationship(id)
}

func (c *Client) DeleteRelationship(id string) error {
	result, err := c.db.Exec(`DELETE FROM annotation_relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("relationship %s: %w", id, ErrNotFound)
	}

	logger.Debug("Relationship deleted", zap.String("relationship_id", id))
	return nil
}

// ValidateRelationship flips the validation flag once. Re-validating an
// already validated edge is a no-op that keeps the original validator.
func (c *Client) ValidateRelationship(id, actor string) (*models.AnnotationRelationship, error) {
	_, err := c.db.Exec(
		`UPDATE annotation_relationships
		 SET is_validated = 1, validated_by = ?, validated_at = ?
		 WHERE id = ? AND is_validated = 0`,
		actor,
		time.Now().Unix(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate relationship: %w", err)
	}

	return c.GetRelationship(id)
}

func (c *Client) CountValidatedRelationsByDocument(documentID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM annotation_relationships
		WHERE is_validated = 1
		  AND (source_id IN (SELECT id FROM annotations WHERE document_id = ?)
		    OR target_id IN (SELECT id FROM annotations WHERE document_id = ?))
	`

	var count int
	err := c.db.QueryRow(query, documentID, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count validated relations: %w", err)
	}

	return count, nil
}

func (c *Client) InsertValidatedQA(qa *models.ValidatedQA) error {
	prevJSON, _ := json.Marshal(qa.PreviousAnswers)
	tagsJSON, _ := json.Marshal(qa.Tags)

	query := `
		INSERT INTO validated_qa
			(id, document_id, question, question_normalized, answer, source_type, json_path,
			 confidence, usage_count, correction_count, previous_answers, validated_by,
			 validated_at, tags, is_active, is_global)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		qa.ID,
		nullIfEmpty(qa.DocumentID),
		qa.Question,
		qa.QuestionNormalized,
		qa.Answer,
		string(qa.SourceType),
		qa.JSONPath,
		qa.Confidence,
		qa.UsageCount,
		qa.CorrectionCount,
		string(prevJSON),
		qa.ValidatedBy,
		qa.ValidatedAt.Unix(),
		string(tagsJSON),
		boolToInt(qa.IsActive),
		boolToInt(qa.IsGlobal),
	)

	if err != nil {
		return fmt.Errorf("failed to insert validated QA: %w", err)
	}

	logger.Info("Validated QA stored",
		zap.String("qa_id", qa.ID),
		zap.String("question", qa.Question),
		zap.String("validated_by", qa.ValidatedBy),
	)
	return nil
}

func (c *Client) GetValidatedQAByID(id string) (*models.ValidatedQA, error) {
	query := validatedQASelect + ` WHERE id = ?`

	row := c.db.QueryRow(query, id)
	qa, err := scanValidatedQA(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("validated QA %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get validated QA: %w", err)
	}

	return qa, nil
}

// GetActiveQAForDocument returns active QA visible to the document: records
// bound to it plus globals. Order is stable (validated_at, id) because the
// fuzzy matcher takes the first record over the threshold, not the best.
func (c *Client) GetActiveQAForDocument(documentID string) ([]models.ValidatedQA, error) {
	query := validatedQASelect + `
		WHERE is_active = 1 AND (document_id = ? OR is_global = 1)
		ORDER BY validated_at, id
	`

	rows, err := c.db.Query(query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active QA: %w", err)
	}
	defer rows.Close()

	var records []models.ValidatedQA
	for rows.Next() {
		qa, err := scanValidatedQA(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, *qa)
	}

	return records, nil
}

// FindActiveByNormalizedQuestion returns the single active record for the
// (document-or-global, question_normalized) pair, or ErrNotFound.
func (c *Client) FindActiveByNormalizedQuestion(documentID, questionNormalized string) (*models.ValidatedQA, error) {
	query := validatedQASelect + `
		WHERE is_active = 1 AND question_normalized = ? AND (document_id = ? OR is_global = 1)
		ORDER BY is_global, validated_at
		LIMIT 1
	`

	row := c.db.QueryRow(query, questionNormalized, documentID)
	qa, err := scanValidatedQA(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("validated QA: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find validated QA: %w", err)
	}

	return qa, nil
}

func (c *Client) UpdateValidatedQA(qa *models.ValidatedQA) error {
	prevJSON, _ := json.Marshal(qa.PreviousAnswers)
	tagsJSON, _ := json.Marshal(qa.Tags)

	query := `
		UPDATE validated_qa SET
			answer = ?,
			source_type = ?,
			json_path = ?,
			confidence = ?,
			usage_count = ?,
			correction_count = ?,
			previous_answers = ?,
			validated_by = ?,
			validated_at = ?,
			tags = ?,
			is_active = ?
		WHERE id = ?
	`

	result, err := c.db.Exec(
		query,
		qa.Answer,
		string(qa.SourceType),
		qa.JSONPath,
		qa.Confidence,
		qa.UsageCount,
		qa.CorrectionCount,
		string(prevJSON),
		qa.ValidatedBy,
		qa.ValidatedAt.Unix(),
		string(tagsJSON),
		boolToInt(qa.IsActive),
		qa.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update validated QA: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("validated QA %s: %w", qa.ID, ErrNotFound)
	}

	return nil
}

func (c *Client) IncrementQAUsage(id string) error {
	_, err := c.db.Exec(`UPDATE validated_qa SET usage_count = usage_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment QA usage: %w", err)
	}
	return nil
}

func (c *Client) SoftDeleteQA(id string) error {
	result, err := c.db.Exec(`UPDATE validated_qa SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete QA: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("validated QA %s: %w", id, ErrNotFound)
	}

	return nil
}

func (c *Client) InsertQuestionRecord(record *models.QuestionRecord) error {
	query := `
		INSERT INTO question_log
			(id, document_id, user_id, question, answer, source, confidence, needs_validation, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.DocumentID,
		record.UserID,
		record.Question,
		record.Answer,
		record.Source,
		record.Confidence,
		boolToInt(record.NeedsValidation),
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert question record: %w", err)
	}

	return nil
}

func (c *Client) GetQuestionHistory(documentID string, limit int) ([]models.QuestionRecord, error) {
	query := `
		SELECT id, document_id, user_id, question, answer, source, confidence, needs_validation, latency_ms, created_at
		FROM question_log
		WHERE document_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get question history: %w", err)
	}
	defer rows.Close()

	var records []models.QuestionRecord
	for rows.Next() {
		var r models.QuestionRecord
		var needsValidation int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.DocumentID, &r.UserID, &r.Question, &r.Answer, &r.Source,
			&r.Confidence, &needsValidation, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.NeedsValidation = needsValidation == 1
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, nil
}

func (c *Client) StoreFeedback(feedback *models.AnswerFeedback) error {
	query := `INSERT INTO answer_feedback (question_id, helpful, comment, created_at) VALUES (?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		feedback.QuestionID,
		boolToInt(feedback.Helpful),
		feedback.Comment,
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.String("question_id", feedback.QuestionID),
		zap.Bool("helpful", feedback.Helpful),
	)
	return nil
}

const relationshipSelect = `
	SELECT id, source_id, target_id, name, description, is_validated, validated_by, validated_at, created_by, created_at
	FROM annotation_relationships
`

const validatedQASelect = `
	SELECT id, document_id, question, question_normalized, answer, source_type, json_path,
	       confidence, usage_count, correction_count, previous_answers, validated_by,
	       validated_at, tags, is_active, is_global
	FROM validated_qa
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRelationship(row rowScanner) (*models.AnnotationRelationship, error) {
	var r models.AnnotationRelationship
	var description, validatedBy, createdBy sql.NullString
	var isValidated int
	var validatedAt sql.NullInt64
	var createdAt int64

	err := row.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Name, &description,
		&isValidated, &validatedBy, &validatedAt, &createdBy, &createdAt)
	if err != nil {
		return nil, err
	}

	r.Description = description.String
	r.IsValidated = isValidated == 1
	r.ValidatedBy = validatedBy.String
	r.CreatedBy = createdBy.String
	r.CreatedAt = time.Unix(createdAt, 0)
	if validatedAt.Valid {
		t := time.Unix(validatedAt.Int64, 0)
		r.ValidatedAt = &t
	}

	return &r, nil
}

func collectRelationships(rows *sql.Rows) ([]models.AnnotationRelationship, error) {
	var relationships []models.AnnotationRelationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		relationships = append(relationships, *r)
	}
	return relationships, nil
}

func scanValidatedQA(row rowScanner) (*models.ValidatedQA, error) {
	var qa models.ValidatedQA
	var documentID, jsonPath, prevJSON, validatedBy, tagsJSON sql.NullString
	var sourceType string
	var validatedAt int64
	var isActive, isGlobal int

	err := row.Scan(&qa.ID, &documentID, &qa.Question, &qa.QuestionNormalized, &qa.Answer,
		&sourceType, &jsonPath, &qa.Confidence, &qa.UsageCount, &qa.CorrectionCount,
		&prevJSON, &validatedBy, &validatedAt, &tagsJSON, &isActive, &isGlobal)
	if err != nil {
		return nil, err
	}

	qa.DocumentID = documentID.String
	qa.SourceType = models.SourceType(sourceType)
	qa.JSONPath = jsonPath.String
	qa.ValidatedBy = validatedBy.String
	qa.ValidatedAt = time.Unix(validatedAt, 0)
	qa.IsActive = isActive == 1
	qa.IsGlobal = isGlobal == 1

	if prevJSON.Valid && prevJSON.String != "" {
		json.Unmarshal([]byte(prevJSON.String), &qa.PreviousAnswers)
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &qa.Tags)
	}

	return &qa, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
