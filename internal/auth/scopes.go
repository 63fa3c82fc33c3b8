package auth

// Known OAuth scopes used by the insights API.
const (
	ScopeInsightsRead  = "insights:read"
	ScopeInsightsWrite = "insights:write"
)
