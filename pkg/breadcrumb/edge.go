package breadcrumb

import "time"

// EdgeKind names the relation an Edge carries. The set is extensible; these
// four are the kinds the background edge builders infer from known fields.
type EdgeKind string

const (
	// EdgeCreates links a producer breadcrumb to one it created (e.g. a
	// tool-request to its tool-response), inferred from created_by.
	EdgeCreates EdgeKind = "creates"

	// EdgeUsesConfig links a breadcrumb to a tool.config.v1 it references,
	// inferred from config_id.
	EdgeUsesConfig EdgeKind = "uses-config"

	// EdgeSubscribes links a consumer config to breadcrumbs matching its
	// trigger selector.
	EdgeSubscribes EdgeKind = "subscribes"

	// EdgeTriggers links an event's breadcrumb to the agent.context.v1 it
	// caused the CAE to publish.
	EdgeTriggers EdgeKind = "triggers"
)

// Edge is a directed, typed relation between two breadcrumbs in the same
// tenant. Edges may not cross tenants.
type Edge struct {
	SrcID     string    `json:"src_id"`
	DstID     string    `json:"dst_id"`
	Kind      EdgeKind  `json:"kind"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the edge satisfies the no-self-edge invariant and
// has a weight in (0, 1].
func (e Edge) Valid() bool {
	if e.SrcID == e.DstID {
		return false
	}
	return e.Weight > 0 && e.Weight <= 1
}
