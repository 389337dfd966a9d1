package syncengine

import (
	"time"

	"github.com/docuqa/backend/internal/storage/models"
)

// The functions in this file are pure (oldSnapshot, delta) -> newSnapshot
// transforms. They never touch storage, so idempotence and the
// upsert-vs-rebuild equivalence can be tested without a database.

// RelationViewFromModel denormalizes one validated edge and its two
// endpoint annotations into the snapshot representation.
func RelationViewFromModel(rel *models.AnnotationRelationship, source, target *models.Annotation) models.RelationView {
	view := models.RelationView{
		ID:          rel.ID,
		Name:        rel.Name,
		Description: rel.Description,
		Source: models.EndpointView{
			Type:         source.EntityType,
			Value:        source.Value,
			AnnotationID: source.ID,
			Page:         source.PageNumber,
		},
		Target: models.EndpointView{
			Type:         target.EntityType,
			Value:        target.Value,
			AnnotationID: target.ID,
			Page:         target.PageNumber,
		},
		ValidatedBy: rel.ValidatedBy,
	}
	if rel.ValidatedAt != nil {
		view.ValidatedAt = rel.ValidatedAt.UTC().Format(time.RFC3339)
	}
	return view
}

// QAViewFromModel denormalizes one validated Q&A record.
func QAViewFromModel(qa *models.ValidatedQA) models.ValidatedQAView {
	return models.ValidatedQAView{
		ID:                 qa.ID,
		Question:           qa.Question,
		QuestionNormalized: qa.QuestionNormalized,
		Answer:             qa.Answer,
		SourceType:         string(qa.SourceType),
		JSONPath:           qa.JSONPath,
		Confidence:         qa.Confidence,
		IsGlobal:           qa.IsGlobal,
	}
}

// UpsertRelationView replaces the relation with the same id in place, or
// appends it. Unrelated relations are untouched.
func UpsertRelationView(snap *models.Snapshot, view models.RelationView) *models.Snapshot {
	next := shallowCopy(snap)

	replaced := false
	relations := make([]models.RelationView, 0, len(snap.Relations)+1)
	for _, existing := range snap.Relations {
		if existing.ID == view.ID {
			relations = append(relations, view)
			replaced = true
			continue
		}
		relations = append(relations, existing)
	}
	if !replaced {
		relations = append(relations, view)
	}

	next.Relations = relations
	next.Metadata.TotalRelations = len(relations)
	return next
}

// RemoveRelationView filters the relation out by id. Removing an id the
// snapshot never had is a success no-op.
func RemoveRelationView(snap *models.Snapshot, relationID string) *models.Snapshot {
	next := shallowCopy(snap)

	relations := make([]models.RelationView, 0, len(snap.Relations))
	for _, existing := range snap.Relations {
		if existing.ID == relationID {
			continue
		}
		relations = append(relations, existing)
	}

	next.Relations = relations
	next.Metadata.TotalRelations = len(relations)
	return next
}

// RebuildRelationViews overwrites relations[] from scratch. Full overwrite,
// never a merge.
func RebuildRelationViews(snap *models.Snapshot, views []models.RelationView, actor string, now time.Time) *models.Snapshot {
	next := shallowCopy(snap)

	if views == nil {
		views = []models.RelationView{}
	}
	next.Relations = views
	next.Metadata.TotalRelations = len(views)
	next.Metadata.LastSynced = now.UTC().Format(time.RFC3339)
	next.Metadata.SyncedBy = actor
	return next
}

// UpsertQAView mirrors UpsertRelationView for validated Q&A entries.
func UpsertQAView(snap *models.Snapshot, view models.ValidatedQAView) *models.Snapshot {
	next := shallowCopy(snap)

	replaced := false
	records := make([]models.ValidatedQAView, 0, len(snap.ValidatedQA)+1)
	for _, existing := range snap.ValidatedQA {
		if existing.ID == view.ID {
			records = append(records, view)
			replaced = true
			continue
		}
		records = append(records, existing)
	}
	if !replaced {
		records = append(records, view)
	}

	next.ValidatedQA = records
	next.Metadata.TotalValidatedQA = len(records)
	return next
}

// RemoveQAView filters the Q&A entry out by id; unknown ids are a no-op.
func RemoveQAView(snap *models.Snapshot, qaID string) *models.Snapshot {
	next := shallowCopy(snap)

	records := make([]models.ValidatedQAView, 0, len(snap.ValidatedQA))
	for _, existing := range snap.ValidatedQA {
		if existing.ID == qaID {
			continue
		}
		records = append(records, existing)
	}

	next.ValidatedQA = records
	next.Metadata.TotalValidatedQA = len(records)
	return next
}

// RebuildQAViews overwrites validated_qa[] from scratch.
func RebuildQAViews(snap *models.Snapshot, views []models.ValidatedQAView, now time.Time) *models.Snapshot {
	next := shallowCopy(snap)

	if views == nil {
		views = []models.ValidatedQAView{}
	}
	next.ValidatedQA = views
	next.Metadata.TotalValidatedQA = len(views)
	next.Metadata.LastQASync = now.UTC().Format(time.RFC3339)
	return next
}

// EntityCount sums the values of the snapshot's entities map. A nil map
// counts as zero.
func EntityCount(snap *models.Snapshot) int {
	count := 0
	for _, values := range snap.Entities {
		count += len(values)
	}
	return count
}

func shallowCopy(snap *models.Snapshot) *models.Snapshot {
	if snap == nil {
		return models.NewSnapshot()
	}
	next := *snap
	return &next
}
