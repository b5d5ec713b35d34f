package store

import (
	"context"
	"fmt"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// EffectiveTTL resolves the TTL policy governing b: its own ttl_type/
// ttl_config if explicitly set, otherwise the cached schema default. A
// schema with no registered default and no explicit policy never expires.
func (s *Store) EffectiveTTL(b *breadcrumb.Breadcrumb) (breadcrumb.TTLType, *breadcrumb.TTLConfig) {
	if b.TTLType != "" {
		return b.TTLType, b.TTLConfig
	}
	if def, ok := s.schemaDefault(b.Schema); ok && def.DefaultTTLType != "" {
		return def.DefaultTTLType, def.DefaultTTLConfig
	}
	return breadcrumb.TTLNever, nil
}

// HygieneBatch returns up to limit breadcrumbs across every tenant, ordered
// by (tenant_id, id) and starting strictly after the given cursor, for the
// hygiene reaper's sweep. Pass "", "" to start from the beginning. The
// reaper advances the cursor to the last row's (tenant_id, id) and keeps
// calling until fewer than limit rows come back, at which point the sweep
// wraps to the start on the next cycle.
func (s *Store) HygieneBatch(ctx context.Context, afterTenant, afterID string, limit int) ([]*breadcrumb.Breadcrumb, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(
		`SELECT %s FROM breadcrumbs WHERE tenant_id > %s OR (tenant_id = %s AND id > %s)
		 ORDER BY tenant_id, id LIMIT %s`,
		selectColumnsSQL(), s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))

	rows, err := s.db.QueryContext(ctx, query, afterTenant, afterTenant, afterID, limit)
	if err != nil {
		return nil, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("hygiene batch: %v", err))
	}
	defer rows.Close()

	var out []*breadcrumb.Breadcrumb
	for rows.Next() {
		b, err := scanBreadcrumb(rows.Scan)
		if err != nil {
			return nil, breadcrumb.NewError(breadcrumb.KindInternal, fmt.Sprintf("hygiene batch scan: %v", err))
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ExpireIfUnchanged deletes b only if its version still matches the value
// the reaper read it at, so a concurrent write racing the reaper wins
// instead of being clobbered by a stale expiry decision.
func (s *Store) ExpireIfUnchanged(ctx context.Context, b *breadcrumb.Breadcrumb) (bool, error) {
	query := fmt.Sprintf("DELETE FROM breadcrumbs WHERE tenant_id = %s AND id = %s AND version = %s",
		s.placeholder(1), s.placeholder(2), s.placeholder(3))
	res, err := s.db.ExecContext(ctx, query, b.TenantID, b.ID, b.Version)
	if err != nil {
		return false, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("expire: %v", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, breadcrumb.NewError(breadcrumb.KindInfra, fmt.Sprintf("expire rows affected: %v", err))
	}
	if n == 0 {
		return false, nil
	}
	s.publish(ctx, breadcrumb.Event{
		TenantID: b.TenantID, ID: b.ID, Schema: b.Schema, Tags: b.Tags,
		Op: breadcrumb.OpDeleted, Version: b.Version + 1,
	})
	return true, nil
}
