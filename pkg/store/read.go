package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// GetRaw returns the stored document including llm_hints. Callers must
// already know the requester is either a curator or holds an explicit ACL
// "raw" grant; isCurator carries that decision in rather than forcing this
// package to know about roles. Does not affect read_count.
func (s *Store) GetRaw(ctx context.Context, tenantID, agentID string, isCurator bool, id string) (*breadcrumb.Breadcrumb, error) {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "get_raw", outcome, time.Since(start))
	}()

	b, err := s.fetch(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !isCurator && !b.AllowsRaw(agentID) {
		err = breadcrumb.ErrForbidden
		return nil, err
	}
	return b, nil
}

// View is the transformed, llm_hints-applied shape returned by GetView.
type View struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	Schema    string                 `json:"schema_name"`
	Title     string                 `json:"title"`
	Tags      []string               `json:"tags"`
	Context   map[string]interface{} `json:"context"`
	Version   int64                  `json:"version"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// GetView applies the ETS transform pipeline and returns the redacted
// view. Best-effort increments read_count for breadcrumbs whose TTL policy
// consults it (usage/hybrid); a failure to bump the counter never fails
// the read.
func (s *Store) GetView(ctx context.Context, tenantID, id string) (View, error) {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "get_view", outcome, time.Since(start))
	}()

	b, err := s.fetch(ctx, tenantID, id)
	if err != nil {
		return View{}, err
	}

	if b.TTLType == breadcrumb.TTLUsage || b.TTLType == breadcrumb.TTLHybrid {
		if incErr := s.incrementReadCount(ctx, tenantID, id); incErr != nil {
			s.log.Warn("store: best-effort read_count increment failed", "breadcrumb_id", id, "error", incErr)
		}
	}

	return View{
		ID: b.ID, TenantID: b.TenantID, Schema: b.Schema, Title: b.Title,
		Tags: b.Tags, Context: s.ets.View(b), Version: b.Version,
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}, nil
}

// GetInternal returns the full stored document for use by in-process
// components (the CAE, the hygiene reaper) that act on behalf of the
// system rather than a specific caller, so ACL checks don't apply. Never
// expose this through the HTTP surface.
func (s *Store) GetInternal(ctx context.Context, tenantID, id string) (*breadcrumb.Breadcrumb, error) {
	return s.fetch(ctx, tenantID, id)
}

func (s *Store) fetch(ctx context.Context, tenantID, id string) (*breadcrumb.Breadcrumb, error) {
	query := fmt.Sprintf("SELECT %s FROM breadcrumbs WHERE tenant_id = %s AND id = %s",
		selectColumnsSQL(), s.placeholder(1), s.placeholder(2))
	row := s.db.QueryRowContext(ctx, query, tenantID, id)
	b, err := scanBreadcrumb(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, breadcrumb.ErrNotFound
		}
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("fetch: %v", err))
	}
	return b, nil
}

func (s *Store) incrementReadCount(ctx context.Context, tenantID, id string) error {
	query := fmt.Sprintf("UPDATE breadcrumbs SET read_count = read_count + 1 WHERE tenant_id = %s AND id = %s",
		s.placeholder(1), s.placeholder(2))
	_, err := s.db.ExecContext(ctx, query, tenantID, id)
	return err
}

// ListFilters narrows List/search results.
type ListFilters struct {
	Schema string
	Tag    string
}

// List returns a page of breadcrumb summaries (no embedding, no
// llm_hints), tag filter by set-containment, schema filter by exact match.
func (s *Store) List(ctx context.Context, tenantID string, filters ListFilters, limit, offset int) ([]breadcrumb.Summary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	clauses := []string{"tenant_id = " + s.placeholder(1)}
	args := []interface{}{tenantID}
	n := 2
	if filters.Schema != "" {
		clauses = append(clauses, "schema_name = "+s.placeholder(n))
		args = append(args, filters.Schema)
		n++
	}
	if filters.Tag != "" {
		clauses = append(clauses, s.tagContainsClause(n))
		args = append(args, s.tagContainsArg(filters.Tag))
		n++
	}

	query := fmt.Sprintf("SELECT %s FROM breadcrumbs WHERE %s ORDER BY updated_at DESC, id DESC LIMIT %s OFFSET %s",
		selectColumnsSQL(), joinAnd(clauses), s.placeholder(n), s.placeholder(n+1))
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("list: %v", err))
	}
	defer rows.Close()

	var out []breadcrumb.Summary
	for rows.Next() {
		b, err := scanBreadcrumb(rows.Scan)
		if err != nil {
			return nil, breadcrumb.NewError(breadcrumb.KindInternal, fmt.Sprintf("list scan: %v", err))
		}
		out = append(out, b.ToSummary(true))
	}
	return out, rows.Err()
}

// tagContainsClause returns a dialect-appropriate set-containment clause
// for the tags JSON column. Since tags is stored as a JSON array text
// column (portable across postgres/mysql/sqlite), containment is expressed
// as a LIKE match against the JSON-encoded, quote-delimited tag — a simple
// and portable approximation of a proper JSON/GIN containment operator.
func (s *Store) tagContainsClause(argIndex int) string {
	return "tags LIKE " + s.placeholder(argIndex)
}

func (s *Store) tagContainsArg(tag string) string {
	raw, _ := json.Marshal(tag)
	return "%" + string(raw) + "%"
}

func joinAnd(clauses []string) string {
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += " AND "
		}
		out += c
	}
	return out
}
