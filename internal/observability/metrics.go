package observability

// Metric keys registered at startup. The balance client metrics cover every
// outbound call to the balance-management API, retries included.
const (
	MUsecaseRequests        MetricKey = "usecase_requests_total"
	MUsecaseDuration        MetricKey = "usecase_duration_seconds"
	MHTTPRequests           MetricKey = "http_requests_total"
	MHTTPRequestDuration    MetricKey = "http_request_duration_seconds"
	MBalanceRequests        MetricKey = "balance_client_requests_total"
	MBalanceRequestDuration MetricKey = "balance_client_request_duration_seconds"
)
