package transfer

// PlatformSummary is one platform's rollup in an analytics response.
type PlatformSummary struct {
	Platform          string  `json:"platform"`
	Posts             int64   `json:"posts"`
	TotalReach        int64   `json:"total_reach"`
	TotalEngagement   int64   `json:"total_engagement"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
}

type AnalyticsSummary struct {
	Platforms         []PlatformSummary `json:"platforms"`
	TotalReach        int64             `json:"total_reach"`
	TotalEngagement   int64             `json:"total_engagement"`
	AvgEngagementRate float64           `json:"avg_engagement_rate"`
	RecentPermalinks  []Permalink       `json:"recent_permalinks,omitempty"`
}
