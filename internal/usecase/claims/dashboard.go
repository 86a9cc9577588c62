package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/domain/permission"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

const (
	urgentClaimLimit = 5
	dashboardWeeks   = 4
)

type Dashboard struct {
	Total       int            `json:"total"`
	InProgress  int            `json:"inProgress"`
	Overdue     int            `json:"overdue"`
	Completed   int            `json:"completed"`
	Urgent      []UrgentClaim  `json:"urgent"`
	DefectTypes []CountByLabel `json:"defectTypes"`
	Weekly      []CountByLabel `json:"weekly"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

type UrgentClaim struct {
	ID           string         `json:"id"`
	CustomerName string         `json:"customerName"`
	DefectType   string         `json:"defectType"`
	Severity     claim.Severity `json:"severity"`
	AssigneeName string         `json:"assigneeName"`
	Deadline     time.Time      `json:"deadline"`
	TimeLeft     string         `json:"timeLeft"`
	Overdue      bool           `json:"overdue"`
}

type CountByLabel struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Dashboard returns headline counts for report viewers. Results are cached
// until the next claim mutation or the dashboard TTL, whichever comes first.
func (s *Service) Dashboard(ctx context.Context, actor claim.User) (Dashboard, error) {
	if err := s.checkRead(ctx); err != nil {
		return Dashboard{}, err
	}
	if !permission.CanViewReports(actor) {
		return Dashboard{}, errs.New(errs.KindPermissionDenied, "role "+string(actor.Role)+" may not view reports")
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "claims.dashboard"))

	if cached, ok := s.cachedDashboard(ctx); ok {
		return cached, nil
	}

	all, err := s.repo.ListClaims(ctx, ports.ClaimFilter{})
	if err != nil {
		return Dashboard{}, persistenceError(err, "list claims")
	}
	out := BuildDashboard(all, s.now())

	if s.cache != nil {
		raw, err := json.Marshal(out)
		if err == nil {
			err = s.cache.Set(ctx, cacheDashboardKey, string(raw), s.dashboardTTL)
		}
		if err != nil {
			logging.Warn(ctx, "cache dashboard failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return out, nil
}

func (s *Service) cachedDashboard(ctx context.Context) (Dashboard, bool) {
	if s.cache == nil {
		return Dashboard{}, false
	}
	raw, found, err := s.cache.Get(ctx, cacheDashboardKey)
	if err != nil {
		logging.Warn(ctx, "read dashboard cache failed", slog.Any("err", errs.Loggable(err)))
		return Dashboard{}, false
	}
	if !found {
		return Dashboard{}, false
	}
	var out Dashboard
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logging.Warn(ctx, "decode dashboard cache failed", slog.Any("err", errs.Loggable(err)))
		return Dashboard{}, false
	}
	return out, true
}

// BuildDashboard aggregates claims as of now.
func BuildDashboard(all []claim.Claim, now time.Time) Dashboard {
	out := Dashboard{
		Total:       len(all),
		Urgent:      []UrgentClaim{},
		DefectTypes: []CountByLabel{},
		GeneratedAt: now,
	}

	open := make([]claim.Claim, 0, len(all))
	defects := make(map[string]int)
	for _, c := range all {
		switch c.Status {
		case claim.StatusInProgress:
			out.InProgress++
		case claim.StatusCompleted:
			out.Completed++
		}
		if c.IsOverdue(now) {
			out.Overdue++
		}
		if c.Status != claim.StatusCompleted {
			open = append(open, c)
		}
		defects[c.DefectType]++
	}

	sort.SliceStable(open, func(i, j int) bool { return open[i].Deadline.Before(open[j].Deadline) })
	if len(open) > urgentClaimLimit {
		open = open[:urgentClaimLimit]
	}
	for _, c := range open {
		left, overdue := claim.TimeLeft(c.Deadline, now)
		out.Urgent = append(out.Urgent, UrgentClaim{
			ID:           c.ID,
			CustomerName: c.CustomerName,
			DefectType:   c.DefectType,
			Severity:     c.Severity,
			AssigneeName: c.Assignee.Name,
			Deadline:     c.Deadline,
			TimeLeft:     left,
			Overdue:      overdue,
		})
	}

	for label, count := range defects {
		out.DefectTypes = append(out.DefectTypes, CountByLabel{Label: label, Count: count})
	}
	sort.Slice(out.DefectTypes, func(i, j int) bool {
		if out.DefectTypes[i].Count != out.DefectTypes[j].Count {
			return out.DefectTypes[i].Count > out.DefectTypes[j].Count
		}
		return out.DefectTypes[i].Label < out.DefectTypes[j].Label
	})

	out.Weekly = weeklyCounts(all, now)
	return out
}

// weeklyCounts buckets creation times into the last ISO weeks, oldest first.
func weeklyCounts(all []claim.Claim, now time.Time) []CountByLabel {
	weeks := make([]CountByLabel, dashboardWeeks)
	index := make(map[string]int, dashboardWeeks)
	for i := 0; i < dashboardWeeks; i++ {
		label := isoWeekLabel(now.AddDate(0, 0, -7*(dashboardWeeks-1-i)))
		weeks[i] = CountByLabel{Label: label}
		index[label] = i
	}
	for _, c := range all {
		if i, ok := index[isoWeekLabel(c.CreatedAt)]; ok {
			weeks[i].Count++
		}
	}
	return weeks
}

func isoWeekLabel(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
