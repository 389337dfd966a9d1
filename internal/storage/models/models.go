package models

import "time"

// SourceType labels where a validated answer originally came from.
type SourceType string

const (
	SourceJSONField       SourceType = "json_field"
	SourceJSONEntity      SourceType = "json_entity"
	SourceJSONRelation    SourceType = "json_relation"
	SourceRelationJSON    SourceType = "relation_json"
	SourceExpertKnowledge SourceType = "expert_knowledge"
	SourceValidatedQA     SourceType = "validated_qa"
	SourceAICorrection    SourceType = "ai_correction"
)

type Document struct {
	ID        string
	Title     string
	Source    string
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Page struct {
	ID         string
	DocumentID string
	Number     int
	Text       string
	CreatedAt  time.Time
}

// Annotation is a tagged span of text on a document page: an entity mention
// with a type label and the selected surface text as its value.
type Annotation struct {
	ID         string
	DocumentID string
	PageID     string
	PageNumber int
	EntityType string
	Value      string
	CreatedBy  string
	CreatedAt  time.Time
}

// AnnotationRelationship is a directed, typed edge between two annotations.
// Validation flips exactly once; it is metadata, not a repeatable action.
type AnnotationRelationship struct {
	ID          string
	SourceID    string
	TargetID    string
	Name        string
	Description string
	IsValidated bool
	ValidatedBy string
	ValidatedAt *time.Time
	CreatedBy   string
	CreatedAt   time.Time
}

// ValidatedQA is an expert-confirmed question/answer pair. DocumentID empty
// means the record is global and visible to every document.
type ValidatedQA struct {
	ID                 string
	DocumentID         string
	Question           string
	QuestionNormalized string
	Answer             string
	SourceType         SourceType
	JSONPath           string
	Confidence         float64
	UsageCount         int
	CorrectionCount    int
	PreviousAnswers    []string
	ValidatedBy        string
	ValidatedAt        time.Time
	Tags               []string
	IsActive           bool
	IsGlobal           bool
}

// QuestionRecord logs one answered question for history and feedback.
type QuestionRecord struct {
	ID              string
	DocumentID      string
	UserID          string
	Question        string
	Answer          string
	Source          string
	Confidence      float64
	NeedsValidation bool
	LatencyMS       int
	CreatedAt       time.Time
}

type AnswerFeedback struct {
	ID         int
	QuestionID string
	Helpful    bool
	Comment    string
	CreatedAt  time.Time
}

// Snapshot is the per-document JSON knowledge base, the sole artifact the
// QA engine reads. It is denormalized from the relational store by the sync
// engine and is allowed to drift between syncs.
type Snapshot struct {
	Document    map[string]interface{} `json:"document,omitempty"`
	Entities    map[string][]string    `json:"entities,omitempty"`
	Relations   []RelationView         `json:"relations"`
	ValidatedQA []ValidatedQAView      `json:"validated_qa"`
	Metadata    SnapshotMetadata       `json:"metadata"`
}

// EndpointView denormalizes one relation endpoint for fast text search.
type EndpointView struct {
	Type         string `json:"type"`
	Value        string `json:"value"`
	AnnotationID string `json:"annotation_id"`
	Page         int    `json:"page"`
}

type RelationView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Source      EndpointView `json:"source"`
	Target      EndpointView `json:"target"`
	ValidatedBy string       `json:"validated_by,omitempty"`
	ValidatedAt string       `json:"validated_at,omitempty"`
}

type ValidatedQAView struct {
	ID                 string  `json:"id"`
	Question           string  `json:"question"`
	QuestionNormalized string  `json:"question_normalized"`
	Answer             string  `json:"answer"`
	SourceType         string  `json:"source_type"`
	JSONPath           string  `json:"json_path,omitempty"`
	Confidence         float64 `json:"confidence"`
	IsGlobal           bool    `json:"is_global"`
}

type SnapshotMetadata struct {
	TotalRelations   int    `json:"total_relations"`
	TotalValidatedQA int    `json:"total_validated_qa"`
	LastSynced       string `json:"last_synced,omitempty"`
	SyncedBy         string `json:"synced_by,omitempty"`
	LastQASync       string `json:"last_qa_sync,omitempty"`
}

// NewSnapshot returns an empty snapshot safe for the resolver to read.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Entities:    map[string][]string{},
		Relations:   []RelationView{},
		ValidatedQA: []ValidatedQAView{},
	}
}

// SyncStatus reports drift between the relational store and the snapshot.
type SyncStatus struct {
	DocumentID         string `json:"document_id"`
	NeedsSync          bool   `json:"needs_sync"`
	AuthoritativeCount int    `json:"authoritative_relations"`
	SnapshotCount      int    `json:"snapshot_relations"`
	EntityCount        int    `json:"entity_count"`
	LastSynced         string `json:"last_synced,omitempty"`
	SyncedBy           string `json:"synced_by,omitempty"`
}

// SyncStats summarizes one full rebuild.
type SyncStats struct {
	DocumentID     string    `json:"document_id"`
	TotalRelations int       `json:"total_relations"`
	TotalQA        int       `json:"total_validated_qa"`
	EntityTypes    int       `json:"entity_types"`
	SyncedAt       time.Time `json:"synced_at"`
}
