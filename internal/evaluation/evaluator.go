package evaluation

import (
	"time"

	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/qa"
	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/logger"
)

// Store is the read-only slice the evaluator needs.
type Store interface {
	LoadSnapshot(documentID string) (*models.Snapshot, error)
	GetActiveQAForDocument(documentID string) ([]models.ValidatedQA, error)
}

// CaseResult is the outcome of replaying one validated question.
type CaseResult struct {
	QAID     string          `json:"qa_id"`
	Question string          `json:"question"`
	Expected string          `json:"expected"`
	Actual   string          `json:"actual"`
	Source   qa.AnswerSource `json:"source"`
	Match    bool            `json:"match"`
}

// Report aggregates one evaluation run over a document.
type Report struct {
	DocumentID  string         `json:"document_id"`
	Total       int            `json:"total"`
	Matched     int            `json:"matched"`
	Accuracy    float64        `json:"accuracy"`
	BySource    map[string]int `json:"by_source"`
	Failures    []CaseResult   `json:"failures,omitempty"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
}

// Evaluator replays every active validated question through the resolver
// against the current snapshot. A drop in accuracy means the snapshot
// drifted or a resolver change regressed: every stored answer should be
// reachable through tier 1.
type Evaluator struct {
	store      Store
	classifier *qa.Classifier
	resolver   *qa.Resolver
}

func NewEvaluator(store Store, resolver *qa.Resolver) *Evaluator {
	return &Evaluator{
		store:      store,
		classifier: qa.NewClassifier(),
		resolver:   resolver,
	}
}

// EvaluateDocument runs the replay and reports per-source counts plus the
// failing cases.
func (e *Evaluator) EvaluateDocument(documentID string) (*Report, error) {
	snap, err := e.store.LoadSnapshot(documentID)
	if err != nil {
		return nil, err
	}

	records, err := e.store.GetActiveQAForDocument(documentID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		DocumentID:  documentID,
		BySource:    map[string]int{},
		EvaluatedAt: time.Now(),
	}

	for i := range records {
		record := &records[i]

		classification := e.classifier.Classify(record.Question)
		result := e.resolver.Resolve(record.Question, classification, snap)

		caseResult := CaseResult{
			QAID:     record.ID,
			Question: record.Question,
			Expected: record.Answer,
			Actual:   result.Answer,
			Source:   result.Source,
			Match:    result.Answer == record.Answer,
		}

		report.Total++
		report.BySource[string(result.Source)]++
		if caseResult.Match {
			report.Matched++
		} else {
			report.Failures = append(report.Failures, caseResult)
		}
	}

	if report.Total > 0 {
		report.Accuracy = float64(report.Matched) / float64(report.Total)
	}

	logger.Info("Evaluation completed",
		zap.String("doc_id", documentID),
		zap.Int("total", report.Total),
		zap.Int("matched", report.Matched),
		zap.Float64("accuracy", report.Accuracy),
	)

	return report, nil
}
