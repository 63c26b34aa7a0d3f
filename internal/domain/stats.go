package domain

// DirectoryStats is the admin dashboard aggregate. Revenue is the sum of the
// gateway-verified amounts on approved contact requests; pending requests
// contribute nothing until approved.
type DirectoryStats struct {
	TotalProfiles    int64   `json:"total_profiles"`
	MaleProfiles     int64   `json:"male_profiles"`
	FemaleProfiles   int64   `json:"female_profiles"`
	PremiumProfiles  int64   `json:"premium_profiles"`
	ApprovedRequests int64   `json:"approved_requests"`
	PendingRequests  int64   `json:"pending_requests"`
	TotalRevenue     float64 `json:"total_revenue"`
}

// EngineMetrics is a point-in-time snapshot of the policy engine's internal
// counters, read back from the Prometheus registry for the admin surface.
type EngineMetrics struct {
	DisclosureAllowed float64 `json:"disclosure_allowed"`
	DisclosureDenied  float64 `json:"disclosure_denied"`
	AllowRate         float64 `json:"allow_rate"`
	CacheHits         float64 `json:"cache_hits"`
	CacheMisses       float64 `json:"cache_misses"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	StoreErrors       float64 `json:"store_errors"`
	GatewayErrors     float64 `json:"gateway_errors"`
}
