package observability

const (
	AttrTenantID     = "rcrt.tenant_id"
	AttrBreadcrumbID = "rcrt.breadcrumb_id"
	AttrSchema       = "rcrt.schema"
	AttrConsumerID   = "rcrt.consumer_id"
	AttrEventOp      = "rcrt.event_op"
	AttrErrorType    = "error.type"
	AttrHTTPMethod   = "http.method"
	AttrHTTPPath     = "http.path"
	AttrHTTPStatus   = "http.status_code"

	SpanStoreOp      = "store.op"
	SpanTransform    = "transform.apply_hints"
	SpanEventPublish = "eventbus.publish"
	SpanAssembly     = "assembly.run"
	SpanHygieneCycle = "hygiene.cycle"
	SpanHTTPRequest  = "http.request"

	DefaultServiceName  = "rcrt"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)
