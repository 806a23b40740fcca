package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/todmy/doc-consolidator/pkg/models"
)

const sharedEntityQuery = `
MATCH (c1:Claim)-[:ABOUT]->(e:Entity)<-[:ABOUT]-(c2:Claim)
WHERE c1.id IN $ids AND c2.id IN $ids
  AND c1.id < c2.id
  AND c1.predicate = c2.predicate
  AND c1.object <> c2.object
RETURN DISTINCT
  c1.id AS a_id, c1.document_id AS a_document_id, c1.source_section_id AS a_section_id,
  c1.original_text AS a_text, c1.confidence AS a_confidence,
  c2.id AS b_id, c2.document_id AS b_document_id, c2.source_section_id AS b_section_id,
  c2.original_text AS b_text, c2.confidence AS b_confidence
ORDER BY a_id, b_id
`

const indexClaimsQuery = `
UNWIND $claims AS claim
MERGE (c:Claim {id: claim.id})
SET c.predicate = claim.predicate,
    c.object = claim.object,
    c.original_text = claim.original_text,
    c.document_id = claim.document_id,
    c.source_section_id = claim.source_section_id,
    c.confidence = claim.confidence
MERGE (e:Entity {name: claim.entity})
MERGE (c)-[:ABOUT]->(e)
`

// Config holds Neo4j connection settings
type Config struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type queryFunc func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)

// Neo4jStore implements Store on a Neo4j database
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	query  queryFunc
}

// NewNeo4jStore opens a driver. The connection is established lazily, so a
// store that is never queried costs nothing beyond Close.
func NewNeo4jStore(config Config) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	s := &Neo4jStore{driver: driver}
	s.query = func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
		opts := []neo4j.ExecuteQueryConfigurationOption{}
		if config.Database != "" {
			opts = append(opts, neo4j.ExecuteQueryWithDatabase(config.Database))
		}
		result, err := neo4j.ExecuteQuery(ctx, driver, query, params, neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return nil, err
		}
		return result.Records, nil
	}

	return s, nil
}

// SharedEntityPairs issues a single read query over the given claim ids
func (s *Neo4jStore) SharedEntityPairs(ctx context.Context, claimIDs []string) ([]ClaimPair, error) {
	if len(claimIDs) < 2 {
		return nil, nil
	}

	records, err := s.query(ctx, sharedEntityQuery, map[string]any{"ids": claimIDs})
	if err != nil {
		return nil, fmt.Errorf("query shared entity pairs: %w", err)
	}

	pairs := make([]ClaimPair, 0, len(records))
	for _, record := range records {
		pairs = append(pairs, ClaimPair{
			A: refFromRecord(record, "a_"),
			B: refFromRecord(record, "b_"),
		})
	}

	return pairs, nil
}

// IndexClaims upserts claims and their ABOUT links in one statement
func (s *Neo4jStore) IndexClaims(ctx context.Context, claims []models.AtomicClaim) error {
	if len(claims) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(claims))
	for _, c := range claims {
		rows = append(rows, map[string]any{
			"id":                c.ID,
			"predicate":         c.Predicate,
			"object":            c.Object,
			"original_text":     c.OriginalText,
			"document_id":       c.DocumentID,
			"source_section_id": c.SourceSectionID,
			"confidence":        c.Confidence,
			"entity":            EntityName(c.Subject),
		})
	}

	if _, err := s.query(ctx, indexClaimsQuery, map[string]any{"claims": rows}); err != nil {
		return fmt.Errorf("index claims: %w", err)
	}
	return nil
}

// Close releases the driver
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

// EntityName normalizes a claim subject into the entity key
func EntityName(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

func refFromRecord(record *neo4j.Record, prefix string) models.ClaimRef {
	return models.ClaimRef{
		ClaimID:    stringValue(record, prefix+"id"),
		DocumentID: stringValue(record, prefix+"document_id"),
		SectionID:  stringValue(record, prefix+"section_id"),
		Text:       stringValue(record, prefix+"text"),
		Confidence: floatValue(record, prefix+"confidence"),
	}
}

func stringValue(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func floatValue(record *neo4j.Record, key string) float64 {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
