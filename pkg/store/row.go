package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// breadcrumbColumns lists the column order used by every SELECT/INSERT in
// this package, so row scanning and argument binding can't drift apart.
var breadcrumbColumns = []string{
	"tenant_id", "id", "schema_name", "title", "tags", "context", "version",
	"created_at", "updated_at", "embedding", "entity_keywords",
	"ttl_type", "ttl_config", "read_count", "acl", "llm_hints",
}

// rowCodec holds the JSON-encoded forms of b's structured columns, built by
// encodeRow and used to bind INSERT/UPDATE arguments; scanBreadcrumb decodes
// the same columns on the read side.
type rowCodec struct {
	tagsJSON      []byte
	contextJSON   []byte
	embeddingJSON sql.NullString
	keywordsJSON  []byte
	ttlConfigJSON sql.NullString
	aclJSON       sql.NullString
	hintsJSON     sql.NullString
}

func encodeRow(b *breadcrumb.Breadcrumb) (rowCodec, error) {
	var c rowCodec
	var err error

	if c.tagsJSON, err = json.Marshal(b.Tags); err != nil {
		return c, fmt.Errorf("encode tags: %w", err)
	}
	if c.contextJSON, err = json.Marshal(b.Context); err != nil {
		return c, fmt.Errorf("encode context: %w", err)
	}
	if c.keywordsJSON, err = json.Marshal(b.EntityKeywords); err != nil {
		return c, fmt.Errorf("encode entity_keywords: %w", err)
	}
	if len(b.Embedding) > 0 {
		raw, err := json.Marshal(b.Embedding)
		if err != nil {
			return c, fmt.Errorf("encode embedding: %w", err)
		}
		c.embeddingJSON = sql.NullString{String: string(raw), Valid: true}
	}
	if b.TTLConfig != nil {
		raw, err := json.Marshal(b.TTLConfig)
		if err != nil {
			return c, fmt.Errorf("encode ttl_config: %w", err)
		}
		c.ttlConfigJSON = sql.NullString{String: string(raw), Valid: true}
	}
	if len(b.ACL) > 0 {
		raw, err := json.Marshal(b.ACL)
		if err != nil {
			return c, fmt.Errorf("encode acl: %w", err)
		}
		c.aclJSON = sql.NullString{String: string(raw), Valid: true}
	}
	if b.LLMHints != nil {
		raw, err := json.Marshal(b.LLMHints)
		if err != nil {
			return c, fmt.Errorf("encode llm_hints: %w", err)
		}
		c.hintsJSON = sql.NullString{String: string(raw), Valid: true}
	}
	return c, nil
}

// insertArgs returns the positional argument list matching breadcrumbColumns
// for an INSERT of b.
func insertArgs(b *breadcrumb.Breadcrumb, c rowCodec) []interface{} {
	return []interface{}{
		b.TenantID, b.ID, b.Schema, b.Title, string(c.tagsJSON), string(c.contextJSON),
		b.Version, b.CreatedAt, b.UpdatedAt, nullableString(c.embeddingJSON), string(c.keywordsJSON),
		nullableTTLType(b.TTLType), nullableString(c.ttlConfigJSON), b.ReadCount, nullableString(c.aclJSON),
		nullableString(c.hintsJSON),
	}
}

func nullableString(s sql.NullString) interface{} {
	if !s.Valid {
		return nil
	}
	return s.String
}

func nullableTTLType(t breadcrumb.TTLType) interface{} {
	if t == "" {
		return nil
	}
	return string(t)
}

// scanBreadcrumb scans one row (ordered per breadcrumbColumns) into a fresh
// *breadcrumb.Breadcrumb.
func scanBreadcrumb(scan func(...interface{}) error) (*breadcrumb.Breadcrumb, error) {
	var (
		b             breadcrumb.Breadcrumb
		tagsJSON      string
		contextJSON   string
		embeddingJSON sql.NullString
		keywordsJSON  string
		ttlType       sql.NullString
		ttlConfigJSON sql.NullString
		aclJSON       sql.NullString
		hintsJSON     sql.NullString
	)

	if err := scan(
		&b.TenantID, &b.ID, &b.Schema, &b.Title, &tagsJSON, &contextJSON,
		&b.Version, &b.CreatedAt, &b.UpdatedAt, &embeddingJSON, &keywordsJSON,
		&ttlType, &ttlConfigJSON, &b.ReadCount, &aclJSON, &hintsJSON,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &b.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &b.Context); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &b.EntityKeywords); err != nil {
		return nil, fmt.Errorf("decode entity_keywords: %w", err)
	}
	if embeddingJSON.Valid {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &b.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
	}
	if ttlType.Valid {
		b.TTLType = breadcrumb.TTLType(ttlType.String)
	}
	if ttlConfigJSON.Valid {
		var cfg breadcrumb.TTLConfig
		if err := json.Unmarshal([]byte(ttlConfigJSON.String), &cfg); err != nil {
			return nil, fmt.Errorf("decode ttl_config: %w", err)
		}
		b.TTLConfig = &cfg
	}
	if aclJSON.Valid {
		if err := json.Unmarshal([]byte(aclJSON.String), &b.ACL); err != nil {
			return nil, fmt.Errorf("decode acl: %w", err)
		}
	}
	if hintsJSON.Valid {
		var hints breadcrumb.LLMHints
		if err := json.Unmarshal([]byte(hintsJSON.String), &hints); err != nil {
			return nil, fmt.Errorf("decode llm_hints: %w", err)
		}
		b.LLMHints = &hints
	}
	return &b, nil
}

func selectColumnsSQL() string {
	cols := ""
	for i, c := range breadcrumbColumns {
		if i > 0 {
			cols += ", "
		}
		cols += c
	}
	return cols
}
