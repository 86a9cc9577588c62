package activity

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"claimdesk/internal/domain/claim"
)

var (
	testNow   = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	qcManager = claim.User{ID: "user-1", Name: "Nguyễn Văn An", Role: claim.RoleQCManager, Department: claim.DepartmentQC}
)

func baseClaim() claim.Claim {
	return claim.NewFromDraft(claim.Draft{
		CustomerName:          "Công ty ABC",
		Severity:              claim.SeverityHigh,
		Quantity:              50,
		TotalQuantity:         1000,
		ResponsibleDepartment: "Dyeing",
		Deadline:              testNow.Add(72 * time.Hour),
		Assignee:              claim.User{ID: "user-2", Name: "Trần Thị Bích"},
	}, "CLM-001", qcManager, testNow)
}

func renderAll(ns []Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Message.RenderHTML())
	}
	return out
}

func TestDiffSelfIsEmpty(t *testing.T) {
	c := baseClaim()
	c.ContainmentActions = "Cách ly"
	c.CustomerConfirmation = true
	if got := Diff(c, c, qcManager, testNow); len(got) != 0 {
		t.Fatalf("Diff(c, c) = %v, want empty", renderAll(got))
	}
}

func TestDiffIsDeterministic(t *testing.T) {
	old := baseClaim()
	next := old
	next.Status = claim.StatusCompleted
	next.CorrectiveActions = "Thay khuôn"
	next.CustomerConfirmation = true

	first := renderAll(Diff(old, next, qcManager, testNow))
	second := renderAll(Diff(old, next, qcManager, testNow))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Diff() not deterministic:\n%v\n%v", first, second)
	}
}

func TestDiffSuppressesClearedText(t *testing.T) {
	old := baseClaim()
	old.ContainmentActions = "Cách ly lô hàng"
	old.RootCause.RootCause = "Nhiệt độ nhuộm"
	next := old
	next.ContainmentActions = ""
	next.RootCause.RootCause = ""

	if got := Diff(old, next, qcManager, testNow); len(got) != 0 {
		t.Fatalf("Diff(cleared) = %v, want empty", renderAll(got))
	}
}

func TestDiffConfirmationFiresOneWay(t *testing.T) {
	old := baseClaim()
	next := old
	next.CustomerConfirmation = true

	got := Diff(old, next, qcManager, testNow)
	if len(got) != 1 || got[0].Message.Kind != KindCustomerConfirmed {
		t.Fatalf("Diff(false->true) = %v", renderAll(got))
	}
	if back := Diff(next, old, qcManager, testNow); len(back) != 0 {
		t.Fatalf("Diff(true->false) = %v, want empty", renderAll(back))
	}
}

func TestDiffStatusThenAssignee(t *testing.T) {
	old := baseClaim()
	next := old
	next.Status = claim.StatusInProgress
	next.Assignee = claim.User{ID: "user-4", Name: "Phạm Thị Dung"}

	got := Diff(old, next, qcManager, testNow)
	if len(got) != 2 {
		t.Fatalf("Diff() len = %d, want 2", len(got))
	}
	wantStatus := `<strong>Nguyễn Văn An</strong> đã cập nhật <strong>trạng thái</strong> của claim <strong>CLM-001</strong> từ "<em>Mới</em>" thành "<em>Đang xử lý</em>".`
	if html := got[0].Message.RenderHTML(); html != wantStatus {
		t.Fatalf("status message = %q", html)
	}
	wantAssignee := `<strong>Nguyễn Văn An</strong> đã gán claim <strong>CLM-001</strong> cho <strong>Phạm Thị Dung</strong>.`
	if html := got[1].Message.RenderHTML(); html != wantAssignee {
		t.Fatalf("assignee message = %q", html)
	}
	for _, n := range got {
		if n.Read || !n.CreatedAt.Equal(testNow) || n.ActorID != "user-1" || n.ClaimID != "CLM-001" {
			t.Fatalf("notification = %+v", n)
		}
	}
}

func TestDiffFullOrder(t *testing.T) {
	old := baseClaim()
	next := old
	next.Status = claim.StatusCompleted
	next.Assignee = claim.User{ID: "user-3", Name: "Lê Minh Cường"}
	next.ContainmentActions = "a"
	next.RootCause.RootCause = "b"
	next.CorrectiveActions = "c"
	next.PreventiveActions = "d"
	next.CustomerConfirmation = true
	next.ClosureSummary = "not tracked"

	got := Diff(old, next, qcManager, testNow)
	wantKinds := []Kind{KindStatusChanged, KindAssigneeChanged, KindFieldUpdated, KindFieldUpdated, KindFieldUpdated, KindFieldUpdated, KindCustomerConfirmed}
	wantLabels := []string{"", "", LabelContainment, LabelRootCause, LabelCorrective, LabelPreventive, ""}
	if len(got) != len(wantKinds) {
		t.Fatalf("Diff() = %v", renderAll(got))
	}
	for i := range wantKinds {
		if got[i].Message.Kind != wantKinds[i] || got[i].Message.FieldLabel != wantLabels[i] {
			t.Fatalf("Diff()[%d] = %+v", i, got[i].Message)
		}
	}
}

func TestAssigneeComparedByID(t *testing.T) {
	old := baseClaim()
	next := old
	next.Assignee.Name = "Renamed"
	if got := Diff(old, next, qcManager, testNow); len(got) != 0 {
		t.Fatalf("Diff(renamed assignee) = %v", renderAll(got))
	}
}

func TestRenderEscapesValues(t *testing.T) {
	msg := Message{Kind: KindFieldUpdated, ActorName: "<script>x</script>", ClaimID: "CLM-001", FieldLabel: LabelCorrective}
	html := msg.RenderHTML()
	if strings.Contains(html, "<script>") || !strings.Contains(html, "&lt;script&gt;") {
		t.Fatalf("RenderHTML() = %q", html)
	}
	if text := msg.RenderText(); strings.Contains(text, "<strong>") || !strings.Contains(text, LabelCorrective) {
		t.Fatalf("RenderText() = %q", text)
	}
}

func TestCreatedAndCommentRecords(t *testing.T) {
	c := baseClaim()
	created := Created(c, qcManager, testNow)
	if created.Message.Kind != KindClaimCreated || !strings.Contains(created.Message.RenderText(), "Trần Thị Bích") {
		t.Fatalf("Created() = %+v", created)
	}
	comment := CommentAdded(c, qcManager, testNow)
	if comment.Message.RenderText() != "Nguyễn Văn An đã bình luận về claim CLM-001." {
		t.Fatalf("CommentAdded() = %q", comment.Message.RenderText())
	}
}
