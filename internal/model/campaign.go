package model

import (
	"time"
)

type MarketingCampaign struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Slug       string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Active     bool      `gorm:"default:true" json:"active"`
	VisitCount int64     `gorm:"default:0" json:"visit_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (MarketingCampaign) TableName() string {
	return "marketing_campaigns"
}

type CampaignVisit struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CampaignID  int64     `gorm:"not null;index" json:"campaign_id"`
	VisitorID   string    `gorm:"size:64;index" json:"visitor_id,omitempty"` // 前端生成的匿名 ID
	UTMSource   string    `gorm:"column:utm_source;size:100" json:"utm_source,omitempty"`
	UTMMedium   string    `gorm:"column:utm_medium;size:100" json:"utm_medium,omitempty"`
	UTMCampaign string    `gorm:"column:utm_campaign;size:100" json:"utm_campaign,omitempty"`
	Referrer    string    `gorm:"size:500" json:"referrer,omitempty"`
	LandingPage string    `gorm:"size:500" json:"landing_page,omitempty"`
	RolledUp    bool      `gorm:"default:false;index" json:"-"` // 是否已汇总进 visit_count
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (CampaignVisit) TableName() string {
	return "campaign_visits"
}
