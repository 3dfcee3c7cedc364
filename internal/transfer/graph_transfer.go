package transfer

// Wire payloads for the Meta Graph surfaces (Instagram, Threads).

type GraphContainerResponse struct {
	ID string `json:"id"`
}

type GraphPermalinkResponse struct {
	Permalink string `json:"permalink"`
	ID        string `json:"id"`
}

type GraphTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type GraphUserInfo struct {
	UserID         string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture_url"`
}

type GraphErrorResponse struct {
	Error GraphError `json:"error"`
}

type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	IsTransient  bool   `json:"is_transient"`
	FbtraceID    string `json:"fbtrace_id"`
}

type GraphInsightsResponse struct {
	Data []GraphInsightMetric `json:"data"`
}

type GraphInsightMetric struct {
	Name   string `json:"name"`
	Values []struct {
		Value int64 `json:"value"`
	} `json:"values"`
}
