package claimsboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/ports"
	"claimdesk/internal/usecase/claims"
)

const (
	maxShownComments      = 4
	maxShownNotifications = 6
	maxAuditLines         = 8
)

// Service is the part of the claims usecase the board drives.
type Service interface {
	ListClaims(ctx context.Context, filter ports.ClaimFilter) ([]claim.Claim, error)
	GetClaim(ctx context.Context, claimID string) (claim.Claim, error)
	ListNotifications(ctx context.Context, limit int) ([]activity.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
	ChangeStatus(ctx context.Context, claimID string, status claim.Status, actor claim.User) (claims.UpdateResult, error)
}

type Options struct {
	Actor           claim.User
	StatusFilter    string
	MineOnly        bool
	RefreshInterval time.Duration
	Now             func() time.Time
}

type boardModel struct {
	ctx             context.Context
	service         Service
	actor           claim.User
	statusFilter    claim.Status
	mineOnly        bool
	refreshInterval time.Duration
	now             func() time.Time

	items         []claim.Claim
	selectedIndex int
	detail        claim.Claim
	hasDetail     bool
	feed          []activity.Notification
	status        string
	auditLogs     []string
}

type claimsLoadedMsg struct {
	items []claim.Claim
	feed  []activity.Notification
	err   error
}

type claimDetailLoadedMsg struct {
	claimID string
	detail  claim.Claim
	err     error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action  string
	claimID string
	result  string
	err     error
}

func NewBoardModel(ctx context.Context, service Service, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	filter, err := claim.ParseStatus(options.StatusFilter)
	if err != nil {
		filter = ""
	}

	return &boardModel{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "claimsboard")),
		service:         service,
		actor:           options.Actor,
		statusFilter:    filter,
		mineOnly:        options.MineOnly,
		refreshInterval: interval,
		now:             now,
		status:          "Đang khởi tạo",
	}
}

func (m *boardModel) Init() tea.Cmd {
	return tea.Batch(m.loadClaimsCmd(), m.tickCmd())
}

func (m *boardModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadClaimsCmd(), m.tickCmd())
	case claimsLoadedMsg:
		if msg.err != nil {
			m.status = "Làm mới thất bại: " + msg.err.Error()
			return m, nil
		}
		m.items = msg.items
		m.feed = msg.feed
		if len(m.items) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "Không có claim nào"
			return m, nil
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		if m.selectedIndex >= len(m.items) {
			m.selectedIndex = len(m.items) - 1
		}
		m.status = fmt.Sprintf("Đã làm mới, %d claim", len(m.items))
		return m, m.loadSelectedDetailCmd()
	case claimDetailLoadedMsg:
		if !m.isCurrentSelection(msg.claimID) {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "Tải chi tiết thất bại: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s thất bại: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, msg.claimID, "", msg.err)
		} else {
			m.status = fmt.Sprintf("%s xong: %s", msg.action, msg.result)
			m.appendAuditLog(msg.action, msg.claimID, msg.result, nil)
		}
		return m, m.loadClaimsCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "Đang làm mới"
			return m, m.loadClaimsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.items)-1 {
				m.selectedIndex++
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "f":
			m.statusFilter = nextFilter(m.statusFilter)
			m.selectedIndex = 0
			return m, m.loadClaimsCmd()
		case "m":
			m.mineOnly = !m.mineOnly
			m.selectedIndex = 0
			return m, m.loadClaimsCmd()
		case "s":
			return m, m.advanceStatusCmd()
		case "r":
			return m, m.markReadCmd()
		}
	}
	return m, nil
}

func (m *boardModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	overdueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Claims Board"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"actor=%s role=%s filter=%s mine=%v refresh=%s",
		firstNonEmpty(m.actor.Name, m.actor.ID, "-"),
		firstNonEmpty(string(m.actor.Role), "-"),
		filterLabel(m.statusFilter),
		m.mineOnly,
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	now := m.now()
	builder.WriteString(sectionStyle.Render("Claims"))
	builder.WriteString("\n")
	if len(m.items) == 0 {
		builder.WriteString(dimStyle.Render("- no claims"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.items {
			left, overdue := claim.TimeLeft(item.Deadline, now)
			if item.Status == claim.StatusCompleted {
				left, overdue = "-", false
			}
			line := fmt.Sprintf("%s [%s] %s %s assignee=%s left=%s",
				item.ID, item.Status.Label(), item.Severity, item.CustomerName,
				firstNonEmpty(item.Assignee.Name, "-"), left)
			switch {
			case index == m.selectedIndex:
				builder.WriteString(selectedStyle.Render("> " + line))
			case overdue:
				builder.WriteString(overdueStyle.Render("  " + line))
			default:
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if !m.hasDetail {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		d := m.detail
		builder.WriteString(fmt.Sprintf("Claim: %s (%s)\n", d.ID, d.Status.Label()))
		builder.WriteString(fmt.Sprintf("Khách hàng: %s  PO: %s  Mã SP: %s\n", d.CustomerName, firstNonEmpty(d.OrderID, "-"), firstNonEmpty(d.ProductCode, "-")))
		builder.WriteString(fmt.Sprintf("Lỗi: %s  SL: %d/%d\n", firstNonEmpty(d.DefectType, "-"), d.Quantity, d.TotalQuantity))
		builder.WriteString(fmt.Sprintf("Bộ phận: %s  Người xử lý: %s\n", firstNonEmpty(d.ResponsibleDepartment, "-"), firstNonEmpty(d.Assignee.Name, "-")))
		builder.WriteString(fmt.Sprintf("Hạn: %s\n", d.Deadline.Local().Format("02/01/2006 15:04")))
		builder.WriteString(fmt.Sprintf("D3: %s\n", firstNonEmptyLine(d.ContainmentActions)))
		builder.WriteString(fmt.Sprintf("D4: %s\n", firstNonEmptyLine(d.RootCause.RootCause)))
		builder.WriteString("\nRecent Comments:\n")
		if len(d.Comments) == 0 {
			builder.WriteString("- none\n")
		} else {
			start := len(d.Comments) - maxShownComments
			if start < 0 {
				start = 0
			}
			for _, comment := range d.Comments[start:] {
				builder.WriteString(fmt.Sprintf("- %s: %s\n", comment.Author.Name, firstNonEmptyLine(comment.Text)))
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render(fmt.Sprintf("Activity (%d unread)", unreadCount(m.feed))))
	builder.WriteString("\n")
	if len(m.feed) == 0 {
		builder.WriteString(dimStyle.Render("- no activity"))
		builder.WriteString("\n\n")
	} else {
		for _, n := range m.feed {
			marker := " "
			if !n.Read {
				marker = "•"
			}
			builder.WriteString(fmt.Sprintf("%s %s %s\n", marker, n.CreatedAt.Local().Format("02/01 15:04"), n.Message.RenderText()))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j di chuyển  g làm mới  f lọc  m của tôi  s chuyển trạng thái  r đã đọc  q thoát"))
	return builder.String()
}

func (m *boardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *boardModel) loadClaimsCmd() tea.Cmd {
	filter := ports.ClaimFilter{Status: m.statusFilter}
	if m.mineOnly {
		filter.AssigneeID = m.actor.ID
	}
	return func() tea.Msg {
		items, err := m.service.ListClaims(m.ctx, filter)
		if err != nil {
			return claimsLoadedMsg{err: err}
		}
		feed, err := m.service.ListNotifications(m.ctx, maxShownNotifications)
		if err != nil {
			return claimsLoadedMsg{err: err}
		}
		return claimsLoadedMsg{items: items, feed: feed}
	}
}

func (m *boardModel) loadSelectedDetailCmd() tea.Cmd {
	selected, ok := m.selectedClaim()
	if !ok {
		return nil
	}
	claimID := selected.ID
	return func() tea.Msg {
		detail, err := m.service.GetClaim(m.ctx, claimID)
		if err != nil {
			return claimDetailLoadedMsg{claimID: claimID, err: err}
		}
		return claimDetailLoadedMsg{claimID: claimID, detail: detail}
	}
}

func (m *boardModel) advanceStatusCmd() tea.Cmd {
	selected, ok := m.selectedClaim()
	if !ok {
		m.status = "Không có claim để thao tác"
		return nil
	}
	next := nextStatus(selected.Status)
	claimID := selected.ID
	m.status = "Đang chuyển trạng thái..."
	return func() tea.Msg {
		if _, err := m.service.ChangeStatus(m.ctx, claimID, next, m.actor); err != nil {
			return actionDoneMsg{action: "status", claimID: claimID, err: err}
		}
		return actionDoneMsg{action: "status", claimID: claimID, result: next.Label()}
	}
}

func (m *boardModel) markReadCmd() tea.Cmd {
	m.status = "Đang đánh dấu đã đọc..."
	return func() tea.Msg {
		updated, err := m.service.MarkAllNotificationsRead(m.ctx)
		if err != nil {
			return actionDoneMsg{action: "read-all", err: err}
		}
		return actionDoneMsg{action: "read-all", result: fmt.Sprintf("%d thông báo", updated)}
	}
}

func (m *boardModel) selectedClaim() (claim.Claim, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.items) {
		return claim.Claim{}, false
	}
	return m.items[m.selectedIndex], true
}

func (m *boardModel) isCurrentSelection(claimID string) bool {
	selected, ok := m.selectedClaim()
	if !ok {
		return false
	}
	return selected.ID == strings.TrimSpace(claimID)
}

func (m *boardModel) appendAuditLog(action string, claimID string, result string, opErr error) {
	outcome := strings.TrimSpace(result)
	if opErr != nil {
		outcome = "error: " + opErr.Error()
	}
	if outcome == "" {
		outcome = "ok"
	}

	timestamp := m.now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s actor=%s claim=%s action=%s result=%s", timestamp, m.actor.ID, firstNonEmpty(claimID, "-"), action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	logging.Info(m.ctx, "claims board action",
		slog.String("actor", m.actor.ID),
		slog.String("claim_id", claimID),
		slog.String("action", action),
		slog.String("result", outcome),
	)
}

// nextStatus walks the lifecycle forward and wraps from Completed back to New.
func nextStatus(current claim.Status) claim.Status {
	order := claim.Statuses()
	rank := current.Rank()
	if rank < 0 || rank == len(order)-1 {
		return order[0]
	}
	return order[rank+1]
}

// nextFilter cycles all -> each status -> all.
func nextFilter(current claim.Status) claim.Status {
	if current == "" {
		return claim.Statuses()[0]
	}
	order := claim.Statuses()
	rank := current.Rank()
	if rank < 0 || rank == len(order)-1 {
		return ""
	}
	return order[rank+1]
}

func filterLabel(status claim.Status) string {
	if status == "" {
		return "all"
	}
	return status.Label()
}

func unreadCount(feed []activity.Notification) int {
	unread := 0
	for _, n := range feed {
		if !n.Read {
			unread++
		}
	}
	return unread
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}

func firstNonEmptyLine(body string) string {
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			return line
		}
	}
	return "-"
}
