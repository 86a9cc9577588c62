package claim

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin           Role = "Admin"
	RoleQCManager       Role = "QC Manager"
	RoleQCStaff         Role = "QC Staff"
	RoleDepartmentStaff Role = "Department Staff"
	RoleViewer          Role = "Viewer"
)

// Departments that are not production departments.
const (
	DepartmentAdmin = "Admin"
	DepartmentQC    = "QC"
	DepartmentNone  = "N/A"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleQCManager, RoleQCStaff, RoleDepartmentStaff, RoleViewer:
		return true
	}
	return false
}

func IsProductionDepartment(department string) bool {
	switch strings.TrimSpace(department) {
	case "", DepartmentAdmin, DepartmentQC, DepartmentNone:
		return false
	}
	return true
}

type User struct {
	ID         string `json:"id" jsonschema:"required"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	Role       Role   `json:"role" jsonschema:"enum=Admin,enum=QC Manager,enum=QC Staff,enum=Department Staff,enum=Viewer"`
	Department string `json:"department"`
}

type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

type Attachment struct {
	Name string         `json:"name"`
	URL  string         `json:"url"`
	Kind AttachmentKind `json:"type" jsonschema:"enum=image,enum=document"`
}

// KindForFile classifies an upload by content type, falling back to the extension.
func KindForFile(name string, contentType string) AttachmentKind {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return AttachmentImage
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return AttachmentImage
	}
	return AttachmentDocument
}

type Comment struct {
	ID        string    `json:"id"`
	Author    User      `json:"user"`
	CreatedAt time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

type AnalysisMethod string

const (
	MethodUnset    AnalysisMethod = ""
	MethodFishbone AnalysisMethod = "Fishbone"
	MethodFiveWhys AnalysisMethod = "5 Whys"
	MethodOther    AnalysisMethod = "Other"
)

func (m AnalysisMethod) Valid() bool {
	switch m {
	case MethodUnset, MethodFishbone, MethodFiveWhys, MethodOther:
		return true
	}
	return false
}

type FishboneCategory struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Causes []string `json:"causes"`
}

type FishboneAnalysis struct {
	Problem    string             `json:"problem"`
	Categories []FishboneCategory `json:"categories"`
}

// DefaultFishbone returns the six standard 6M categories with no causes.
func DefaultFishbone() FishboneAnalysis {
	return FishboneAnalysis{
		Categories: []FishboneCategory{
			{ID: "man", Name: "Con người", Causes: []string{}},
			{ID: "machine", Name: "Máy móc", Causes: []string{}},
			{ID: "method", Name: "Phương pháp", Causes: []string{}},
			{ID: "material", Name: "Nguyên vật liệu", Causes: []string{}},
			{ID: "measurement", Name: "Đo lường", Causes: []string{}},
			{ID: "environment", Name: "Môi trường", Causes: []string{}},
		},
	}
}

type RootCauseAnalysis struct {
	Method               AnalysisMethod   `json:"analysisMethod"`
	Fishbone             FishboneAnalysis `json:"fishboneAnalysis"`
	FiveWhys             string           `json:"fiveWhysAnalysis"`
	RootCause            string           `json:"rootCause"`
	EscapePoint          string           `json:"escapePoint"`
	ConfirmationEvidence string           `json:"confirmationEvidence"`
	Attachments          []Attachment     `json:"attachments"`
}

type TraceabilityItem struct {
	// TableData holds a header row followed by data rows.
	TableData           [][]string   `json:"tableData"`
	FilteredDefectCount int          `json:"filteredDefectCount"`
	FilterStatus        FilterStatus `json:"filterStatus"`
	InvolvedDepartments []string     `json:"involvedDepartments"`
	PersonInChargeName  string       `json:"personInChargeName"`
	DataRetrievalDate   *time.Time   `json:"dataRetrievalDate"`
	FilteringDate       *time.Time   `json:"filteringDate"`
	ReturnDate          *time.Time   `json:"returnDate"`
	Notes               string       `json:"notes"`
}

type TraceabilityAnalysis struct {
	OriginalPOLots      TraceabilityItem `json:"originalPoLots"`
	OtherPOSameLot      TraceabilityItem `json:"otherPoSameLot"`
	OtherPOSameMaterial TraceabilityItem `json:"otherPoSameMaterial"`
	Summary             string           `json:"summary"`
}

func DefaultTraceability() TraceabilityAnalysis {
	item := func() TraceabilityItem {
		return TraceabilityItem{
			TableData:           [][]string{},
			FilterStatus:        FilterNotFiltered,
			InvolvedDepartments: []string{},
		}
	}
	return TraceabilityAnalysis{
		OriginalPOLots:      item(),
		OtherPOSameLot:      item(),
		OtherPOSameMaterial: item(),
	}
}

// Claim is one 8D quality incident. Comments and attachments are owned by the claim.
type Claim struct {
	ID        string    `json:"id" jsonschema:"required"`
	CreatedAt time.Time `json:"createdAt"`
	Creator   User      `json:"creator"`

	CustomerName          string    `json:"customerName"`
	OrderID               string    `json:"orderId"`
	ProductCode           string    `json:"productCode"`
	DefectType            string    `json:"defectType"`
	Description           string    `json:"description"`
	Severity              Severity  `json:"severity" jsonschema:"enum=Critical,enum=High,enum=Medium,enum=Low"`
	Quantity              int       `json:"quantity" jsonschema:"minimum=0"`
	TotalQuantity         int       `json:"totalQuantity" jsonschema:"minimum=0"`
	DiscoveryLocation     string    `json:"discoveryLocation"`
	ResponsibleDepartment string    `json:"responsibleDepartment"`
	Deadline              time.Time `json:"deadline"`

	Status   Status `json:"status" jsonschema:"enum=new,enum=in_progress,enum=pending_customer,enum=completed"`
	Assignee User   `json:"assignee"`

	ContainmentActions      string               `json:"containmentActions"`
	Traceability            TraceabilityAnalysis `json:"traceabilityAnalysis"`
	RootCause               RootCauseAnalysis    `json:"rootCauseAnalysis"`
	CorrectiveActions       string               `json:"correctiveActions"`
	PreventiveActions       string               `json:"preventiveActions"`
	EffectivenessValidation string               `json:"effectivenessValidation"`
	ClosureSummary          string               `json:"closureSummary"`
	CustomerConfirmation    bool                 `json:"customerConfirmation"`
	CompletedPRs            []string             `json:"completedPrs"`

	Attachments []Attachment `json:"attachments"`
	Comments    []Comment    `json:"comments"`
}

// IsOverdue reports a past deadline on a claim that is not completed.
func (c Claim) IsOverdue(now time.Time) bool {
	return c.Status != StatusCompleted && !c.Deadline.IsZero() && c.Deadline.Before(now)
}

// Draft carries what a creator supplies. Identity, status and comments are assigned on creation.
type Draft struct {
	CustomerName          string
	OrderID               string
	ProductCode           string
	DefectType            string
	Description           string
	Severity              Severity
	Quantity              int
	TotalQuantity         int
	DiscoveryLocation     string
	ResponsibleDepartment string
	Deadline              time.Time
	Assignee              User
	ContainmentActions    string
	Attachments           []Attachment
}

func (d Draft) Validate() error {
	if _, err := ParseSeverity(string(d.Severity)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	if d.Quantity < 0 || d.TotalQuantity < 0 {
		return fmt.Errorf("%w: quantities must not be negative", ErrInvalidDraft)
	}
	if d.Quantity > d.TotalQuantity {
		return fmt.Errorf("%w: quantity %d exceeds total quantity %d", ErrInvalidDraft, d.Quantity, d.TotalQuantity)
	}
	if strings.TrimSpace(d.Assignee.ID) == "" {
		return fmt.Errorf("%w: assignee is required", ErrInvalidDraft)
	}
	if d.Deadline.IsZero() {
		return fmt.Errorf("%w: deadline is required", ErrInvalidDraft)
	}
	return nil
}

// NewFromDraft builds a claim in status New with empty investigation payload.
func NewFromDraft(d Draft, id string, creator User, now time.Time) Claim {
	attachments := append([]Attachment{}, d.Attachments...)
	return Claim{
		ID:                    id,
		CreatedAt:             now,
		Creator:               creator,
		CustomerName:          strings.TrimSpace(d.CustomerName),
		OrderID:               strings.TrimSpace(d.OrderID),
		ProductCode:           strings.TrimSpace(d.ProductCode),
		DefectType:            strings.TrimSpace(d.DefectType),
		Description:           d.Description,
		Severity:              d.Severity,
		Quantity:              d.Quantity,
		TotalQuantity:         d.TotalQuantity,
		DiscoveryLocation:     strings.TrimSpace(d.DiscoveryLocation),
		ResponsibleDepartment: strings.TrimSpace(d.ResponsibleDepartment),
		Deadline:              d.Deadline,
		Status:                StatusNew,
		Assignee:              d.Assignee,
		ContainmentActions:    d.ContainmentActions,
		Traceability:          DefaultTraceability(),
		RootCause: RootCauseAnalysis{
			Fishbone:    DefaultFishbone(),
			Attachments: []Attachment{},
		},
		CompletedPRs: []string{},
		Attachments:  attachments,
		Comments:     []Comment{},
	}
}

// FormatID renders prefix-NNN with at least three digits.
func FormatID(prefix string, ordinal int64) string {
	return fmt.Sprintf("%s-%03d", prefix, ordinal)
}

// ParseCompletedPRs splits the comma-joined persistence form.
func ParseCompletedPRs(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func FormatCompletedPRs(prs []string) string {
	return strings.Join(prs, ",")
}

// ValidateCompletedPRs rejects references that would not survive the comma-joined row.
func ValidateCompletedPRs(prs []string) error {
	for _, pr := range prs {
		if strings.TrimSpace(pr) != pr || pr == "" || strings.Contains(pr, ",") {
			return fmt.Errorf("%w: %q", ErrInvalidCompletedPR, pr)
		}
	}
	return nil
}

// Validate checks enumerations and references on a full claim value.
func (c Claim) Validate() error {
	if !c.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, string(c.Status))
	}
	if _, err := ParseSeverity(string(c.Severity)); err != nil {
		return err
	}
	if !c.RootCause.Method.Valid() {
		return fmt.Errorf("%w: analysis method %q", ErrUnknownField, string(c.RootCause.Method))
	}
	for _, list := range [][]Attachment{c.Attachments, c.RootCause.Attachments} {
		for _, attachment := range list {
			if attachment.Kind != AttachmentImage && attachment.Kind != AttachmentDocument {
				return fmt.Errorf("%w: %q on %q", ErrUnknownAttachmentKind, string(attachment.Kind), attachment.Name)
			}
		}
	}
	return ValidateCompletedPRs(c.CompletedPRs)
}
