package claim

import (
	"errors"
	"testing"
	"time"
)

func sampleClaim() Claim {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return NewFromDraft(Draft{
		CustomerName:          "Công ty ABC",
		OrderID:               "PO-12345",
		ProductCode:           "YK-Z-5C-N",
		DefectType:            "Lỗi màu sắc",
		Severity:              SeverityHigh,
		Quantity:              50,
		TotalQuantity:         1000,
		DiscoveryLocation:     "Xưởng khách hàng",
		ResponsibleDepartment: "Dyeing",
		Deadline:              created.Add(10 * 24 * time.Hour),
		Assignee:              User{ID: "user-4", Name: "Phạm Thị Dung", Role: RoleDepartmentStaff, Department: "Dyeing"},
	}, "CLM-001", User{ID: "user-1", Name: "Nguyễn Văn An", Role: RoleQCManager, Department: DepartmentQC}, created)
}

func TestParseStatusAcceptsCodeAndLabel(t *testing.T) {
	for input, want := range map[string]Status{
		"in_progress":      StatusInProgress,
		" Đang xử lý ":     StatusInProgress,
		"Hoàn tất":         StatusCompleted,
		"PENDING_CUSTOMER": StatusPendingCustomer,
	} {
		got, err := ParseStatus(input)
		if err != nil {
			t.Fatalf("ParseStatus(%q) error = %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", input, got, want)
		}
	}

	_, err := ParseStatus("archived")
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("ParseStatus(archived) error = %v, want ErrUnknownStatus", err)
	}
	if IsKnownStatus("archived") || !IsKnownStatus("Mới") {
		t.Fatalf("IsKnownStatus() mismatch")
	}
}

func TestStatusLabels(t *testing.T) {
	if StatusNew.Label() != "Mới" || StatusPendingCustomer.Label() != "Chờ khách hàng" {
		t.Fatalf("labels = %q, %q", StatusNew.Label(), StatusPendingCustomer.Label())
	}
	if Status("archived").Rank() != -1 {
		t.Fatalf("Rank(unknown) = %d", Status("archived").Rank())
	}
}

func TestFieldGroup(t *testing.T) {
	cases := map[string]Group{
		"status":                        GroupHeader,
		"assignee":                      GroupHeader,
		"containmentActions":            GroupContainment,
		"rootCauseAnalysis.rootCause":   GroupInvestigation,
		"rootCauseAnalysis.attachments": GroupInvestigation,
		"traceabilityAnalysis":          GroupInvestigation,
		"effectivenessValidation":       GroupInvestigation,
		"closureSummary":                GroupClosure,
		"customerConfirmation":          GroupClosure,
		"completedPrs":                  GroupClosure,
		"attachments":                   GroupGeneral,
	}
	for name, want := range cases {
		got, err := FieldGroup(name)
		if err != nil {
			t.Fatalf("FieldGroup(%q) error = %v", name, err)
		}
		if got != want {
			t.Fatalf("FieldGroup(%q) = %s, want %s", name, got, want)
		}
	}

	if _, err := FieldGroup("rootCauseAnalysis.mood"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("FieldGroup(unknown) error = %v, want ErrUnknownField", err)
	}
}

func TestEveryFieldHasNameAndGroup(t *testing.T) {
	for _, f := range Fields() {
		if !f.Valid() || f.Group() == 0 {
			t.Fatalf("field %d missing spec", int(f))
		}
		parsed, err := ParseField(f.Name())
		if err != nil || parsed != f {
			t.Fatalf("ParseField(%q) = %v, %v", f.Name(), parsed, err)
		}
	}
}

func TestChangedFieldsNormalizesEmptyCollections(t *testing.T) {
	old := sampleClaim()
	proposed := old
	proposed.CompletedPRs = nil
	proposed.Attachments = nil
	proposed.RootCause.Attachments = nil
	proposed.Deadline = old.Deadline.In(time.FixedZone("ICT", 7*3600))
	proposed.Assignee.Name = "renamed but same id"

	if changed := ChangedFields(old, proposed); len(changed) != 0 {
		t.Fatalf("ChangedFields() = %v, want none", changed)
	}
}

func TestChangedFieldsAndGroups(t *testing.T) {
	old := sampleClaim()
	proposed := old
	proposed.Status = StatusInProgress
	proposed.ContainmentActions = "Cách ly lô hàng"
	proposed.Traceability.OriginalPOLots.TableData = [][]string{{"PO", "Lot"}, {"PO-1", "L-9"}}
	proposed.CustomerConfirmation = true

	changed := ChangedFields(old, proposed)
	want := []Field{FieldStatus, FieldContainmentActions, FieldTraceability, FieldCustomerConfirmation}
	if len(changed) != len(want) {
		t.Fatalf("ChangedFields() = %v, want %v", changed, want)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Fatalf("ChangedFields()[%d] = %v, want %v", i, changed[i], want[i])
		}
	}

	groups := ChangedGroups(changed)
	wantGroups := []Group{GroupHeader, GroupContainment, GroupInvestigation, GroupClosure}
	if len(groups) != len(wantGroups) {
		t.Fatalf("ChangedGroups() = %v", groups)
	}
	for i := range wantGroups {
		if groups[i] != wantGroups[i] {
			t.Fatalf("ChangedGroups()[%d] = %v, want %v", i, groups[i], wantGroups[i])
		}
	}
}

func TestCheckIdentity(t *testing.T) {
	old := sampleClaim()

	changedCreator := old
	changedCreator.Creator = User{ID: "user-2"}
	if err := CheckIdentity(old, changedCreator); !errors.Is(err, ErrImmutableField) {
		t.Fatalf("CheckIdentity(creator) error = %v", err)
	}

	changedCreatedAt := old
	changedCreatedAt.CreatedAt = old.CreatedAt.Add(time.Second)
	if err := CheckIdentity(old, changedCreatedAt); !errors.Is(err, ErrImmutableField) {
		t.Fatalf("CheckIdentity(createdAt) error = %v", err)
	}

	sameInstant := old
	sameInstant.CreatedAt = old.CreatedAt.In(time.FixedZone("ICT", 7*3600))
	if err := CheckIdentity(old, sameInstant); err != nil {
		t.Fatalf("CheckIdentity(same instant) error = %v", err)
	}
}

func TestDraftValidate(t *testing.T) {
	base := Draft{
		Severity:      SeverityLow,
		Quantity:      10,
		TotalQuantity: 100,
		Deadline:      time.Now(),
		Assignee:      User{ID: "user-3"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tooMany := base
	tooMany.Quantity = 101
	if err := tooMany.Validate(); !errors.Is(err, ErrInvalidDraft) {
		t.Fatalf("Validate(quantity > total) error = %v", err)
	}

	badSeverity := base
	badSeverity.Severity = "Catastrophic"
	if err := badSeverity.Validate(); !errors.Is(err, ErrUnknownSeverity) {
		t.Fatalf("Validate(severity) error = %v", err)
	}
}

func TestNewFromDraftDefaults(t *testing.T) {
	c := sampleClaim()
	if c.Status != StatusNew || c.ID != "CLM-001" {
		t.Fatalf("claim = %s/%s", c.ID, c.Status)
	}
	if len(c.Comments) != 0 || c.Comments == nil {
		t.Fatalf("comments = %#v", c.Comments)
	}
	if len(c.RootCause.Fishbone.Categories) != 6 {
		t.Fatalf("fishbone categories = %d", len(c.RootCause.Fishbone.Categories))
	}
	if c.Traceability.OtherPOSameLot.FilterStatus != FilterNotFiltered {
		t.Fatalf("filter status = %q", c.Traceability.OtherPOSameLot.FilterStatus)
	}
}

func TestCompletedPRsRoundTrip(t *testing.T) {
	prs := ParseCompletedPRs(" PR-1, ,PR-2,PR-3 ")
	if len(prs) != 3 || prs[0] != "PR-1" || prs[2] != "PR-3" {
		t.Fatalf("ParseCompletedPRs() = %#v", prs)
	}
	if got := ParseCompletedPRs(FormatCompletedPRs(prs)); len(got) != 3 || got[1] != "PR-2" {
		t.Fatalf("round trip = %#v", got)
	}
	if len(ParseCompletedPRs("")) != 0 {
		t.Fatalf("ParseCompletedPRs(empty) should be empty")
	}
	if err := ValidateCompletedPRs([]string{"PR-1,PR-2"}); !errors.Is(err, ErrInvalidCompletedPR) {
		t.Fatalf("ValidateCompletedPRs() error = %v", err)
	}
}

func TestClaimValidate(t *testing.T) {
	c := sampleClaim()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	c.Status = "archived"
	if err := c.Validate(); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("Validate(status) error = %v", err)
	}

	c = sampleClaim()
	c.Attachments = []Attachment{{Name: "x.bin", URL: "u", Kind: "video"}}
	if err := c.Validate(); !errors.Is(err, ErrUnknownAttachmentKind) {
		t.Fatalf("Validate(attachment) error = %v", err)
	}
}

func TestTransitionPolicies(t *testing.T) {
	if err := AnyTransition(StatusNew, StatusCompleted); err != nil {
		t.Fatalf("AnyTransition() error = %v", err)
	}
	if err := AnyTransition(StatusNew, "archived"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("AnyTransition(unknown) error = %v", err)
	}
	if err := SequentialTransition(StatusNew, StatusPendingCustomer); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("SequentialTransition(skip) error = %v", err)
	}
	if err := SequentialTransition(StatusNew, StatusInProgress); err != nil {
		t.Fatalf("SequentialTransition(next) error = %v", err)
	}
	if err := SequentialTransition(StatusCompleted, StatusInProgress); err != nil {
		t.Fatalf("SequentialTransition(reopen) error = %v", err)
	}
}

func TestTimeLeft(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		deadline    time.Time
		want        string
		wantOverdue bool
	}{
		{now.Add(50 * time.Hour), "2d 2h", false},
		{now.Add(3*time.Hour + 15*time.Minute), "3h 15m", false},
		{now.Add(42 * time.Minute), "42m", false},
		{now.Add(-26 * time.Hour), "-1d 2h", true},
		{now.Add(-5 * time.Minute), "-5m", true},
	}
	for _, tc := range cases {
		got, overdue := TimeLeft(tc.deadline, now)
		if got != tc.want || overdue != tc.wantOverdue {
			t.Fatalf("TimeLeft(%s) = %q,%v want %q,%v", tc.deadline, got, overdue, tc.want, tc.wantOverdue)
		}
	}
}

func TestFormatID(t *testing.T) {
	if got := FormatID("CLM", 7); got != "CLM-007" {
		t.Fatalf("FormatID() = %q", got)
	}
	if got := FormatID("CLM", 1234); got != "CLM-1234" {
		t.Fatalf("FormatID() = %q", got)
	}
}
