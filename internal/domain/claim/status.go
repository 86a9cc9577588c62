package claim

import (
	"fmt"
	"strings"
)

// Status is the stable code stored for a claim. Label returns the display text.
type Status string

const (
	StatusNew             Status = "new"
	StatusInProgress      Status = "in_progress"
	StatusPendingCustomer Status = "pending_customer"
	StatusCompleted       Status = "completed"
)

var statusOrder = []Status{
	StatusNew,
	StatusInProgress,
	StatusPendingCustomer,
	StatusCompleted,
}

var statusLabels = map[Status]string{
	StatusNew:             "Mới",
	StatusInProgress:      "Đang xử lý",
	StatusPendingCustomer: "Chờ khách hàng",
	StatusCompleted:       "Hoàn tất",
}

// Statuses returns the lifecycle in order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Rank is the position in the lifecycle, or -1 for unknown values.
func (s Status) Rank() int {
	for i, candidate := range statusOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// ParseStatus accepts either the code or the display label.
func ParseStatus(value string) (Status, error) {
	trimmed := strings.TrimSpace(value)
	for _, status := range statusOrder {
		if strings.EqualFold(trimmed, string(status)) || trimmed == statusLabels[status] {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
}

func IsKnownStatus(value string) bool {
	_, err := ParseStatus(value)
	return err == nil
}

type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

func ParseSeverity(value string) (Severity, error) {
	trimmed := strings.TrimSpace(value)
	for _, severity := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		if strings.EqualFold(trimmed, string(severity)) {
			return severity, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSeverity, value)
}

type FilterStatus string

const (
	FilterNotFiltered  FilterStatus = "Chưa lọc"
	FilterGettingItems FilterStatus = "Đang lấy hàng lọc"
	FilterFiltering    FilterStatus = "Đang lọc"
	FilterFiltered     FilterStatus = "Đã lọc"
)

// TransitionPolicy validates a status change on top of the permission check.
type TransitionPolicy func(from, to Status) error

// AnyTransition allows every move between known statuses.
func AnyTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, string(to))
	}
	return nil
}

// SequentialTransition forbids skipping forward. Moving back (reopening) stays allowed.
func SequentialTransition(from, to Status) error {
	if err := AnyTransition(from, to); err != nil {
		return err
	}
	if from == to || !from.Valid() {
		return nil
	}
	if to.Rank() > from.Rank()+1 {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from.Label(), to.Label())
	}
	return nil
}

func TransitionPolicyFor(strict bool) TransitionPolicy {
	if strict {
		return SequentialTransition
	}
	return AnyTransition
}
