package config

import (
	"fmt"
	"time"
)

// AssemblyConfig configures the Context Assembly Engine's Pathfinder walk:
// the beam search that greedily selects breadcrumbs by density under a
// token budget.
type AssemblyConfig struct {
	// MaxContextTokens is the default token budget for an assembled
	// context when a consumer's config does not override it.
	MaxContextTokens int `yaml:"max_context_tokens,omitempty"`

	// BeamWidth is how many of the highest-density candidates the
	// Pathfinder tries as the first pick of a greedy fill; the fill with the
	// highest total relevance wins.
	BeamWidth int `yaml:"beam_width,omitempty"`

	// Alpha weights embedding cosine similarity in the relevance score.
	Alpha float64 `yaml:"alpha,omitempty"`

	// Beta weights keyword Jaccard overlap with the trigger's pointer set
	// in the relevance score.
	Beta float64 `yaml:"beta,omitempty"`

	// Gamma weights edge proximity to the seed nodes in the relevance score.
	Gamma float64 `yaml:"gamma,omitempty"`

	// SemanticSeedK is the number of seed breadcrumbs drawn from semantic
	// search before the graph walk begins.
	SemanticSeedK int `yaml:"semantic_seed_k,omitempty"`

	// HopRadius bounds how many edge hops the subgraph loader follows from
	// a seed node.
	HopRadius int `yaml:"hop_radius,omitempty"`

	// NodeCap bounds the number of nodes considered per assembly run,
	// regardless of how many the hop radius would otherwise reach.
	NodeCap int `yaml:"node_cap,omitempty"`

	// Deadline bounds how long a single assembly run may take before it
	// aborts and publishes agent.error.v1.
	Deadline time.Duration `yaml:"deadline,omitempty"`

	// WorkerConcurrency bounds the CPU-bound worker pool (token counting,
	// transform evaluation, path scoring) shared across concurrent
	// assembly runs.
	WorkerConcurrency int `yaml:"worker_concurrency,omitempty"`
}

// SetDefaults applies the spec's documented defaults.
func (c *AssemblyConfig) SetDefaults() {
	if c.MaxContextTokens == 0 {
		c.MaxContextTokens = 8000
	}
	if c.BeamWidth == 0 {
		c.BeamWidth = 4
	}
	if c.Alpha == 0 {
		c.Alpha = 0.4
	}
	if c.Beta == 0 {
		c.Beta = 0.3
	}
	if c.Gamma == 0 {
		c.Gamma = 0.3
	}
	if c.SemanticSeedK == 0 {
		c.SemanticSeedK = 8
	}
	if c.HopRadius == 0 {
		c.HopRadius = 2
	}
	if c.NodeCap == 0 {
		c.NodeCap = 200
	}
	if c.Deadline == 0 {
		c.Deadline = 10 * time.Second
	}
	if c.WorkerConcurrency == 0 {
		c.WorkerConcurrency = 8
	}
}

// Validate checks the assembly configuration for errors.
func (c *AssemblyConfig) Validate() error {
	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("assembly: max_context_tokens must be positive")
	}
	if c.BeamWidth <= 0 {
		return fmt.Errorf("assembly: beam_width must be positive")
	}
	sum := c.Alpha + c.Beta + c.Gamma
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("assembly: alpha+beta+gamma must sum to 1.0, got %.3f", sum)
	}
	if c.SemanticSeedK <= 0 {
		return fmt.Errorf("assembly: semantic_seed_k must be positive")
	}
	if c.HopRadius <= 0 {
		return fmt.Errorf("assembly: hop_radius must be positive")
	}
	if c.NodeCap <= 0 {
		return fmt.Errorf("assembly: node_cap must be positive")
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("assembly: worker_concurrency must be positive")
	}
	return nil
}
