package assembly

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/graph"
	"github.com/rcrtd/rcrt/pkg/store"
	"github.com/rcrtd/rcrt/pkg/transform"
)

// assemble runs the full §4.4 algorithm for one (tenant, trigger, consumer)
// triple.
func (s *Service) assemble(ctx context.Context, tenantID string, trigger *breadcrumb.Breadcrumb, triggerVersion int64, cfg breadcrumb.ConsumerConfig) error {
	budget, weights, err := s.resolveBudget(ctx, tenantID, cfg)
	if err != nil {
		return err
	}

	pointerSet := transform.PointerSet(trigger.Tags, trigger.EntityKeywords)

	seeds, err := collectSeeds(ctx, s.store, s.ets, tenantID, trigger, cfg, s.cfg.SemanticSeedK)
	if err != nil {
		return errGraphLoadFailed(fmt.Errorf("collect seeds: %w", err))
	}

	seedIDs := append([]string{}, seeds.ids...)
	nodes, adjacency := s.edges.Neighborhood(tenantID, seedIDs, s.cfg.HopRadius, s.cfg.NodeCap)
	for _, id := range nodes {
		if _, ok := seeds.nodes[id]; ok {
			continue
		}
		b, err := s.store.GetInternal(ctx, tenantID, id)
		if err != nil {
			continue // a neighbor that vanished mid-walk just drops out
		}
		seeds.add(b, "")
	}

	proximity := graph.EdgeProximity(seedIDs, adjacency)

	candidates := make([]graph.Candidate, 0, len(seeds.nodes))
	for _, b := range seeds.nodes {
		cost := s.tokens.Count(renderedView(s.ets, b))
		if cost <= 0 {
			cost = 1
		}
		rel := graph.Relevance(b, trigger, pointerSet, proximity[b.ID], weights)
		candidates = append(candidates, graph.Candidate{Breadcrumb: b, Cost: cost, Relevance: rel})
	}

	var formatted string
	var tokenEstimate int
	var sources []string
	if tokenCost(candidates, trigger.ID) > budget {
		formatted = truncationSection(trigger, s.ets)
		tokenEstimate = s.tokens.Count(formatted)
		sources = []string{trigger.ID}
	} else {
		selected, used := graph.Walk(candidates, budget, s.cfg.BeamWidth)
		selectedBreadcrumbs := make([]*breadcrumb.Breadcrumb, 0, len(selected))
		for _, c := range selected {
			selectedBreadcrumbs = append(selectedBreadcrumbs, c.Breadcrumb)
			sources = append(sources, c.Breadcrumb.ID)
		}
		formatted = formatSections(trigger, selectedBreadcrumbs, seeds, cfg, s.ets)
		tokenEstimate = used
	}

	return s.publishContext(ctx, tenantID, trigger, triggerVersion, cfg, formatted, tokenEstimate, sources)
}

func tokenCost(candidates []graph.Candidate, triggerID string) int {
	for _, c := range candidates {
		if c.Breadcrumb.ID == triggerID {
			return c.Cost
		}
	}
	return 0
}

func renderedView(ets *transform.Service, b *breadcrumb.Breadcrumb) string {
	raw, err := json.Marshal(ets.View(b))
	if err != nil {
		return b.Title
	}
	return string(raw)
}

// resolveBudget implements §4.4.a: look up the consumer's LLM config (if
// any), fall back to the system default, reserve 10% for formatting
// overhead.
func (s *Service) resolveBudget(ctx context.Context, tenantID string, cfg breadcrumb.ConsumerConfig) (int, graph.Weights, error) {
	maxTokens := s.cfg.MaxContextTokens
	weights := graph.Weights{Alpha: s.cfg.Alpha, Beta: s.cfg.Beta, Gamma: s.cfg.Gamma}

	if cfg.LLMConfigID != "" {
		tc, err := s.store.GetInternal(ctx, tenantID, cfg.LLMConfigID)
		if err != nil {
			return 0, weights, errConfigMissing(fmt.Errorf("llm_config_id %q: %w", cfg.LLMConfigID, err))
		}
		toolCfg, err := breadcrumb.ToolConfigFromContext(tc.Context)
		if err != nil {
			return 0, weights, errConfigMissing(fmt.Errorf("malformed tool.config.v1 %q: %w", cfg.LLMConfigID, err))
		}
		if toolCfg.MaxContextTokens > 0 {
			maxTokens = toolCfg.MaxContextTokens
		}
		if toolCfg.Alpha != 0 || toolCfg.Beta != 0 || toolCfg.Gamma != 0 {
			weights = graph.Weights{Alpha: toolCfg.Alpha, Beta: toolCfg.Beta, Gamma: toolCfg.Gamma}
		}
	}
	if maxTokens <= 0 {
		return 0, weights, errConfigMissing(fmt.Errorf("no LLM budget configured for consumer %q", cfg.ConsumerID))
	}

	if cfg.Alpha != 0 || cfg.Beta != 0 || cfg.Gamma != 0 {
		weights = graph.Weights{Alpha: cfg.Alpha, Beta: cfg.Beta, Gamma: cfg.Gamma}
	}

	budget := maxTokens - maxTokens/10 // reserve 10% for formatting overhead
	if budget <= 0 {
		budget = maxTokens
	}
	return budget, weights, nil
}

// publishContext implements §4.4.g.
func (s *Service) publishContext(ctx context.Context, tenantID string, trigger *breadcrumb.Breadcrumb, triggerVersion int64, cfg breadcrumb.ConsumerConfig, formatted string, tokenEstimate int, sources []string) error {
	tags := []string{"agent:context", "consumer:" + cfg.ConsumerID}
	for _, t := range trigger.Tags {
		if strings.HasPrefix(t, "session:") {
			tags = append(tags, t)
		}
	}

	now := time.Now().UTC()
	body := map[string]interface{}{
		"consumer_id":       cfg.ConsumerID,
		"trigger_event_id":  trigger.ID,
		"assembled_at":      now.Format(time.RFC3339),
		"sources_assembled": sources,
		"formatted_context": formatted,
		"token_estimate":    tokenEstimate,
	}

	hour := time.Hour
	idemKey := fmt.Sprintf("cae:%s:%s:%d", cfg.ConsumerID, trigger.ID, triggerVersion)

	_, _, err := s.store.Create(ctx, tenantID, "cae", store.CreateInput{
		Schema:  breadcrumb.SchemaContext,
		Title:   "assembled context for " + cfg.ConsumerID,
		Tags:    tags,
		Context: body,
		TTLType: breadcrumb.TTLDuration,
		TTLConfig: &breadcrumb.TTLConfig{
			Duration: &hour,
		},
	}, idemKey)
	if err != nil {
		return errPublishFailed(err)
	}
	return nil
}
