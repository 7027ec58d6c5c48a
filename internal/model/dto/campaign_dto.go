package dto

// TrackVisitRequest 营销落地页访问上报
type TrackVisitRequest struct {
	CampaignSlug string `json:"campaign_slug" binding:"required,max=100"`
	VisitorID    string `json:"visitor_id,omitempty" binding:"omitempty,max=64"`
	UTMSource    string `json:"utm_source,omitempty" binding:"omitempty,max=100"`
	UTMMedium    string `json:"utm_medium,omitempty" binding:"omitempty,max=100"`
	UTMCampaign  string `json:"utm_campaign,omitempty" binding:"omitempty,max=100"`
	Referrer     string `json:"referrer,omitempty" binding:"omitempty,max=500"`
	LandingPage  string `json:"landing_page,omitempty" binding:"omitempty,max=500"`
}
