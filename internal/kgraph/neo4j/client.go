package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/config"
	"github.com/docuqa/backend/pkg/logger"
)

// Client mirrors validated relations into a Neo4j graph for external
// exploration. The mirror is write-only from the application's point of
// view: the answer path never reads it, so a lost write only costs graph
// freshness.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewClient(cfg config.Neo4jConfig) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	logger.Info("Neo4j graph mirror connected", zap.String("uri", cfg.URI))

	return &Client{driver: driver, database: cfg.Database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// MirrorRelations replaces the document's subgraph with the given relation
// views. Full replace keeps the mirror idempotent with respect to the
// snapshot it reflects.
func (c *Client) MirrorRelations(ctx context.Context, documentID string, relations []models.RelationView) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx,
			`MATCH (a:Annotation {document_id: $doc_id})-[r:RELATES]->(:Annotation) DELETE r`,
			map[string]interface{}{"doc_id": documentID})
		if err != nil {
			return nil, err
		}

		for _, rel := range relations {
			_, err := tx.Run(ctx, `
				MERGE (s:Annotation {id: $source_id})
				SET s.value = $source_value, s.type = $source_type, s.document_id = $doc_id
				MERGE (t:Annotation {id: $target_id})
				SET t.value = $target_value, t.type = $target_type, t.document_id = $doc_id
				MERGE (s)-[r:RELATES {relation_id: $relation_id}]->(t)
				SET r.name = $name, r.validated_by = $validated_by
			`, map[string]interface{}{
				"doc_id":       documentID,
				"source_id":    rel.Source.AnnotationID,
				"source_value": rel.Source.Value,
				"source_type":  rel.Source.Type,
				"target_id":    rel.Target.AnnotationID,
				"target_value": rel.Target.Value,
				"target_type":  rel.Target.Type,
				"relation_id":  rel.ID,
				"name":         rel.Name,
				"validated_by": rel.ValidatedBy,
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("failed to mirror relations: %w", err)
	}

	logger.Debug("Graph mirror updated",
		zap.String("doc_id", documentID),
		zap.Int("relations", len(relations)),
	)
	return nil
}
