package model

import "claimdesk/internal/domain/claim"

// Claim keeps classification columns flat and the nested 8D payload as JSON text.
type Claim struct {
	ClaimID               string `gorm:"column:claim_id;type:text;primaryKey"`
	CreatedAt             string `gorm:"column:created_at;type:text;not null;index"`
	UpdatedAt             string `gorm:"column:updated_at;type:text;not null"`
	CreatorID             string `gorm:"column:creator_id;type:text;not null"`
	CustomerName          string `gorm:"column:customer_name;type:text;not null"`
	OrderID               string `gorm:"column:order_id;type:text;not null"`
	ProductCode           string `gorm:"column:product_code;type:text;not null"`
	DefectType            string `gorm:"column:defect_type;type:text;not null"`
	Description           string `gorm:"column:description;type:text;not null;default:''"`
	Severity              string `gorm:"column:severity;type:text;not null"`
	Quantity              int    `gorm:"column:quantity;not null"`
	TotalQuantity         int    `gorm:"column:total_quantity;not null"`
	DiscoveryLocation     string `gorm:"column:discovery_location;type:text;not null"`
	ResponsibleDepartment string `gorm:"column:responsible_department;type:text;not null;index"`
	Deadline              string `gorm:"column:deadline;type:text;not null"`
	Status                string `gorm:"column:status;type:text;not null;index"`
	AssigneeID            string `gorm:"column:assignee_id;type:text;not null;index"`

	ContainmentActions      string                     `gorm:"column:containment_actions;type:text;not null;default:''"`
	TraceabilityAnalysis    claim.TraceabilityAnalysis `gorm:"column:traceability_analysis;type:text;serializer:json"`
	RootCauseAnalysis       claim.RootCauseAnalysis    `gorm:"column:root_cause_analysis;type:text;serializer:json"`
	CorrectiveActions       string                     `gorm:"column:corrective_actions;type:text;not null;default:''"`
	PreventiveActions       string                     `gorm:"column:preventive_actions;type:text;not null;default:''"`
	EffectivenessValidation string                     `gorm:"column:effectiveness_validation;type:text;not null;default:''"`
	ClosureSummary          string                     `gorm:"column:closure_summary;type:text;not null;default:''"`
	CustomerConfirmation    bool                       `gorm:"column:customer_confirmation;not null;default:false"`
	CompletedPRs            string                     `gorm:"column:completed_prs;type:text;not null;default:''"`
	Attachments             []claim.Attachment         `gorm:"column:attachments;type:text;serializer:json"`
}

func (Claim) TableName() string {
	return "claims"
}
