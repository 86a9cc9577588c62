package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
)

func notifyClaim() claim.Claim {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := claim.NewFromDraft(claim.Draft{
		CustomerName: "Công ty ABC",
		DefectType:   "Lỗi màu sắc",
		Severity:     claim.SeverityHigh,
		Deadline:     time.Date(2026, 3, 12, 17, 30, 0, 0, time.UTC),
		Assignee:     claim.User{ID: "user-4", Name: "Phạm Thị Dung", Email: "dung.pt@ykk.com"},
	}, "CLM-001", claim.User{ID: "user-1", Name: "Nguyễn Văn An"}, created)
	return c
}

func TestEnvelopes(t *testing.T) {
	c := notifyClaim()
	created := NewClaimEnvelope(c)
	if created.Subject != "[YKK CCMS] New Claim Assigned: CLM-001" || created.To != "dung.pt@ykk.com" {
		t.Fatalf("NewClaimEnvelope() = %+v", created)
	}
	for _, want := range []string{"Hello Phạm Thị Dung,", "  - Severity: High", "  - Deadline: 12/03/2026 17:30"} {
		if !strings.Contains(created.Body, want) {
			t.Fatalf("new claim body missing %q:\n%s", want, created.Body)
		}
	}

	c.Status = claim.StatusInProgress
	changed := StatusChangeEnvelope(c, claim.StatusNew)
	if changed.Subject != "[YKK CCMS] Status Update for Claim: CLM-001" {
		t.Fatalf("StatusChangeEnvelope().Subject = %q", changed.Subject)
	}
	if !strings.Contains(changed.Body, "Previous Status: Mới") || !strings.Contains(changed.Body, "New Status: Đang xử lý") {
		t.Fatalf("status body = %s", changed.Body)
	}
}

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recordingConn) Publish(subject string, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return nil
}

func TestNATSNotifierPublishesEnvelope(t *testing.T) {
	conn := &recordingConn{}
	notifier := newNATSNotifier(conn, "claimdesk.email.")
	c := notifyClaim()

	if err := notifier.NotifyNewClaim(context.Background(), c); err != nil {
		t.Fatalf("NotifyNewClaim() error = %v", err)
	}
	if err := notifier.NotifyStatusChange(context.Background(), c, claim.StatusNew); err != nil {
		t.Fatalf("NotifyStatusChange() error = %v", err)
	}

	if len(conn.subjects) != 2 || conn.subjects[0] != "claimdesk.email.new_claim" || conn.subjects[1] != "claimdesk.email.status_change" {
		t.Fatalf("subjects = %v", conn.subjects)
	}
	var env Envelope
	if err := json.Unmarshal(conn.payloads[0], &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.ClaimID != "CLM-001" || env.Kind != EnvelopeNewClaim {
		t.Fatalf("envelope = %+v", env)
	}

	conn.err = errors.New("nats down")
	if err := notifier.NotifyNewClaim(context.Background(), c); err == nil {
		t.Fatalf("NotifyNewClaim() expected error")
	}
}

func TestHubPublishDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	events, unsub := hub.Subscribe()
	defer unsub()

	batch := []activity.Notification{activity.CommentAdded(notifyClaim(), claim.User{ID: "user-2", Name: "Trần Thị Bích"}, time.Now())}
	for i := 0; i < 100; i++ {
		hub.Publish(context.Background(), batch)
	}
	if len(events) != cap(events) {
		t.Fatalf("buffered events = %d, want %d", len(events), cap(events))
	}

	unsub()
	unsub()
	if hub.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount() = %d", hub.SubscriberCount())
	}
}

func TestHubServeWS(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(httpHandler(hub))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	n := activity.CommentAdded(notifyClaim(), claim.User{ID: "user-2", Name: "Trần <b>Bích</b>"}, time.Now())
	n.ID = "n-1"
	hub.Publish(context.Background(), []activity.Notification{n})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "notification" || event.Data.ID != "n-1" {
		t.Fatalf("event = %+v", event)
	}
	if strings.Contains(event.Data.Message, "<b>") || !strings.Contains(event.Data.Message, "<strong>") {
		t.Fatalf("message = %q", event.Data.Message)
	}
}

func httpHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(hub.ServeWS)
}
