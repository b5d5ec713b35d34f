package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// mutateFn transforms b in place. Returning a non-nil error aborts the
// mutation without writing, and mutate returns that error.
type mutateFn func(b *breadcrumb.Breadcrumb) error

// mutate is the shared compare-and-swap core every partial mutation builds
// on: load the row inside a transaction, let fn apply its change, bump
// version, re-derive embedding/keywords, write, publish. expectedVersion <=
// 0 means "don't check" (used by mutations with no optimistic
// precondition).
func (s *Store) mutate(ctx context.Context, tenantID, id string, expectedVersion int64, fn mutateFn) (*breadcrumb.Breadcrumb, error) {
	if s.dialect == "sqlite" {
		s.sqliteWrite.Lock()
		defer s.sqliteWrite.Unlock()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("begin transaction: %v", err))
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf("SELECT %s FROM breadcrumbs WHERE tenant_id = %s AND id = %s",
		selectColumnsSQL(), s.placeholder(1), s.placeholder(2))
	row := tx.QueryRowContext(ctx, query, tenantID, id)
	b, err := scanBreadcrumb(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, breadcrumb.ErrNotFound
		}
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("mutate fetch: %v", err))
	}

	if expectedVersion > 0 && b.Version != expectedVersion {
		s.metrics.RecordStoreConflict(ctx, "mutate")
		return nil, breadcrumb.ErrVersionConflict
	}

	if err := fn(b); err != nil {
		return nil, err
	}

	b.Version++
	b.UpdatedAt = time.Now().UTC()
	s.deriveEmbeddingAndKeywords(b)

	codec, err := encodeRow(b)
	if err != nil {
		return nil, breadcrumb.NewError(breadcrumb.KindInternal, err.Error())
	}
	updateQuery := fmt.Sprintf(
		`UPDATE breadcrumbs SET title = %s, tags = %s, context = %s, version = %s, updated_at = %s,
		 embedding = %s, entity_keywords = %s, ttl_type = %s, ttl_config = %s, acl = %s, llm_hints = %s
		 WHERE tenant_id = %s AND id = %s AND version = %s`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5),
		s.placeholder(6), s.placeholder(7), s.placeholder(8), s.placeholder(9), s.placeholder(10), s.placeholder(11),
		s.placeholder(12), s.placeholder(13), s.placeholder(14),
	)
	res, err := tx.ExecContext(ctx, updateQuery,
		b.Title, string(codec.tagsJSON), string(codec.contextJSON), b.Version, b.UpdatedAt,
		nullableString(codec.embeddingJSON), string(codec.keywordsJSON), nullableTTLType(b.TTLType),
		nullableString(codec.ttlConfigJSON), nullableString(codec.aclJSON), nullableString(codec.hintsJSON),
		tenantID, id, b.Version-1,
	)
	if err != nil {
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("mutate update: %v", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.metrics.RecordStoreConflict(ctx, "mutate")
		return nil, breadcrumb.ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("commit: %v", err))
	}

	s.refreshSchemaCache(b)
	s.recordEdges(tenantID, b)
	s.publish(ctx, breadcrumb.Event{
		TenantID: tenantID, ID: b.ID, Schema: b.Schema, Tags: b.Tags,
		Context: b.Context, Op: breadcrumb.OpUpdated, Version: b.Version, Timestamp: b.UpdatedAt.Unix(),
	})
	return b, nil
}

// Replace overwrites title, context, and tags, enforcing the caller's
// If-Match version as the optimistic-concurrency precondition.
func (s *Store) Replace(ctx context.Context, tenantID, id string, expectedVersion int64, title string, tags []string, ctxBody map[string]interface{}) (*breadcrumb.Breadcrumb, error) {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "replace", outcome, time.Since(start))
	}()

	var b *breadcrumb.Breadcrumb
	b, err = s.mutate(ctx, tenantID, id, expectedVersion, func(b *breadcrumb.Breadcrumb) error {
		if title != "" {
			b.Title = title
		}
		if tags != nil {
			b.Tags = dedupeTags(tags)
		}
		if ctxBody != nil {
			b.Context = ctxBody
		}
		return nil
	})
	return b, err
}

// AddTags unions additions into the breadcrumb's tag set, atomically.
func (s *Store) AddTags(ctx context.Context, tenantID, id string, additions []string) (*breadcrumb.Breadcrumb, error) {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "add_tags", outcome, time.Since(start))
	}()

	var b *breadcrumb.Breadcrumb
	b, err = s.mutate(ctx, tenantID, id, 0, func(b *breadcrumb.Breadcrumb) error {
		b.Tags = breadcrumb.AddTags(b.Tags, additions)
		return nil
	})
	return b, err
}

// RemoveTags removes removals from the breadcrumb's tag set, atomically.
func (s *Store) RemoveTags(ctx context.Context, tenantID, id string, removals []string) (*breadcrumb.Breadcrumb, error) {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "remove_tags", outcome, time.Since(start))
	}()

	var b *breadcrumb.Breadcrumb
	b, err = s.mutate(ctx, tenantID, id, 0, func(b *breadcrumb.Breadcrumb) error {
		b.Tags = breadcrumb.RemoveTags(b.Tags, removals)
		return nil
	})
	return b, err
}

// MergeContext deep-merges patch into the breadcrumb's context per the
// object-merges/array-and-scalar-replaces rule.
func (s *Store) MergeContext(ctx context.Context, tenantID, id string, patch map[string]interface{}) (*breadcrumb.Breadcrumb, error) {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "merge_context", outcome, time.Since(start))
	}()

	var b *breadcrumb.Breadcrumb
	b, err = s.mutate(ctx, tenantID, id, 0, func(b *breadcrumb.Breadcrumb) error {
		b.Context = deepMerge(b.Context, patch)
		return nil
	})
	return b, err
}

// Approve is shorthand for moving a breadcrumb into the "approved" state
// tag, clearing any other state tag and recording an optional reason.
func (s *Store) Approve(ctx context.Context, tenantID, id, reason string) (*breadcrumb.Breadcrumb, error) {
	return s.setStateTag(ctx, tenantID, id, "approved", reason)
}

// Reject is the rejection counterpart of Approve.
func (s *Store) Reject(ctx context.Context, tenantID, id, reason string) (*breadcrumb.Breadcrumb, error) {
	return s.setStateTag(ctx, tenantID, id, "rejected", reason)
}

func (s *Store) setStateTag(ctx context.Context, tenantID, id, state, reason string) (*breadcrumb.Breadcrumb, error) {
	start := time.Now()
	var err error
	op := "approve"
	if state == "rejected" {
		op = "reject"
	}
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, op, outcome, time.Since(start))
	}()

	var b *breadcrumb.Breadcrumb
	b, err = s.mutate(ctx, tenantID, id, 0, func(b *breadcrumb.Breadcrumb) error {
		_, stateTags, _ := breadcrumb.SplitTags(b.Tags)
		b.Tags = breadcrumb.RemoveTags(b.Tags, stateTags)
		b.Tags = breadcrumb.AddTags(b.Tags, []string{state})
		if reason != "" {
			b.Context = deepMerge(b.Context, map[string]interface{}{
				"review": map[string]interface{}{"state": state, "reason": reason},
			})
		}
		return nil
	})
	return b, err
}

// Delete hard-deletes a breadcrumb and publishes a deleted event. Idempotent
// deletion semantics (delete twice) are left to the caller: a missing row is
// reported as ErrNotFound.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	start := time.Now()
	var err error
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.RecordStoreOp(ctx, "delete", outcome, time.Since(start))
	}()

	b, err := s.fetch(ctx, tenantID, id)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM breadcrumbs WHERE tenant_id = %s AND id = %s", s.placeholder(1), s.placeholder(2))
	if _, err = s.db.ExecContext(ctx, query, tenantID, id); err != nil {
		err = breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("delete: %v", err))
		return err
	}

	s.publish(ctx, breadcrumb.Event{
		TenantID: tenantID, ID: b.ID, Schema: b.Schema, Tags: b.Tags,
		Context: b.Context, Op: breadcrumb.OpDeleted, Version: b.Version + 1, Timestamp: time.Now().Unix(),
	})
	return nil
}
