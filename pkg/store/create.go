package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/transform"
)

// CreateInput is the body of a create request.
type CreateInput struct {
	Schema    string
	Title     string
	Tags      []string
	Context   map[string]interface{}
	TTLType   breadcrumb.TTLType
	TTLConfig *breadcrumb.TTLConfig
	ACL       []breadcrumb.ACLEntry
	LLMHints  *breadcrumb.LLMHints
}

// Create persists a new breadcrumb. If idempotencyKey is non-empty and was
// already seen for this tenant within the idempotency retention window,
// the prior result is returned instead of creating a duplicate.
func (s *Store) Create(ctx context.Context, tenantID, writerID string, in CreateInput, idempotencyKey string) (id string, version int64, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "create", outcome, time.Since(start))
	}()

	if in.Schema == "" {
		return "", 0, breadcrumb.NewError(breadcrumb.KindValidation, "schema_name is required")
	}
	if in.Context == nil {
		in.Context = map[string]interface{}{}
	}

	if idempotencyKey != "" {
		if priorID, priorVersion, found, err := s.lookupIdempotencyKey(ctx, tenantID, idempotencyKey); err != nil {
			return "", 0, err
		} else if found {
			return priorID, priorVersion, nil
		}
	}

	now := time.Now().UTC()
	b := &breadcrumb.Breadcrumb{
		ID:        newID(),
		TenantID:  tenantID,
		Schema:    in.Schema,
		Title:     in.Title,
		Tags:      dedupeTags(in.Tags),
		Context:   in.Context,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		TTLType:   in.TTLType,
		TTLConfig: in.TTLConfig,
		ACL:       in.ACL,
		LLMHints:  in.LLMHints,
	}

	if b.TTLType == "" {
		if def, ok := s.schemaDefault(b.Schema); ok {
			b.TTLType = def.DefaultTTLType
			b.TTLConfig = def.DefaultTTLConfig
		}
	}
	if b.TTLType == "" {
		b.TTLType = breadcrumb.TTLNever
	}

	s.deriveEmbeddingAndKeywords(b)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("begin transaction: %v", err))
	}
	defer func() { _ = tx.Rollback() }()

	codec, err := encodeRow(b)
	if err != nil {
		return "", 0, breadcrumb.NewError(breadcrumb.KindInternal, err.Error())
	}
	if err := s.insertRow(ctx, tx, b, codec); err != nil {
		return "", 0, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("insert breadcrumb: %v", err))
	}
	if idempotencyKey != "" {
		if err := s.recordIdempotencyKey(ctx, tx, tenantID, idempotencyKey, b.ID, b.Version, now); err != nil {
			return "", 0, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("record idempotency key: %v", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return "", 0, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("commit: %v", err))
	}

	s.refreshSchemaCache(b)
	s.recordEdges(tenantID, b)
	s.publish(ctx, breadcrumb.Event{
		TenantID: tenantID, ID: b.ID, Schema: b.Schema, Tags: b.Tags,
		Context: b.Context, Op: breadcrumb.OpCreated, Version: b.Version, Timestamp: now.Unix(),
	})

	return b.ID, b.Version, nil
}

// deriveEmbeddingAndKeywords computes b.EntityKeywords unconditionally and
// b.Embedding when the schema is embed-eligible, logging and continuing on
// embedder failure rather than failing the write (the embedding model is a
// process-wide resource that may be degraded).
func (s *Store) deriveEmbeddingAndKeywords(b *breadcrumb.Breadcrumb) {
	text, _ := s.ets.EmbeddingText(b)
	b.EntityKeywords = transform.DeriveKeywords(b.Tags, text)

	if !transform.ShouldEmbed(b.Schema, s.blacklistSnapshot()) {
		b.Embedding = nil
		return
	}
	vec, ok, err := s.ets.Embed(text)
	if err != nil {
		s.log.Warn("store: embedding failed, leaving breadcrumb unembedded", "breadcrumb_id", b.ID, "schema_name", b.Schema, "error", err)
		return
	}
	if ok {
		b.Embedding = vec
	}
}

func (s *Store) insertRow(ctx context.Context, tx *sql.Tx, b *breadcrumb.Breadcrumb, codec rowCodec) error {
	placeholders := make([]string, len(breadcrumbColumns))
	for i := range breadcrumbColumns {
		placeholders[i] = s.placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO breadcrumbs (%s) VALUES (%s)", selectColumnsSQL(), joinPlaceholders(placeholders))
	_, err := tx.ExecContext(ctx, query, insertArgs(b, codec)...)
	return err
}

func joinPlaceholders(p []string) string {
	out := ""
	for i, v := range p {
		if i > 0 {
			out += ", "
		}
		out += v
	}
	return out
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
