package notify

import (
	"fmt"
	"strings"

	"claimdesk/internal/domain/claim"
)

type EnvelopeKind string

const (
	EnvelopeNewClaim     EnvelopeKind = "new_claim"
	EnvelopeStatusChange EnvelopeKind = "status_change"
)

const deadlineLayout = "02/01/2006 15:04"

// Envelope is a rendered email ready for a mail relay.
type Envelope struct {
	Kind    EnvelopeKind `json:"kind"`
	ClaimID string       `json:"claimId"`
	To      string       `json:"to"`
	ToName  string       `json:"toName"`
	Subject string       `json:"subject"`
	Body    string       `json:"body"`
}

func NewClaimEnvelope(c claim.Claim) Envelope {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", c.Assignee.Name)
	b.WriteString("A new customer claim has been created and assigned to you:\n\n")
	fmt.Fprintf(&b, "  - Claim ID: %s\n", c.ID)
	fmt.Fprintf(&b, "  - Customer: %s\n", c.CustomerName)
	fmt.Fprintf(&b, "  - Defect Type: %s\n", c.DefectType)
	fmt.Fprintf(&b, "  - Severity: %s\n", c.Severity)
	fmt.Fprintf(&b, "  - Deadline: %s\n\n", c.Deadline.Format(deadlineLayout))
	b.WriteString("Please review the details and begin the analysis process.\n\n")
	b.WriteString("Thank you,\nYKK Claim Management System\n")

	return Envelope{
		Kind:    EnvelopeNewClaim,
		ClaimID: c.ID,
		To:      c.Assignee.Email,
		ToName:  c.Assignee.Name,
		Subject: "[YKK CCMS] New Claim Assigned: " + c.ID,
		Body:    b.String(),
	}
}

func StatusChangeEnvelope(c claim.Claim, oldStatus claim.Status) Envelope {
	var b strings.Builder
	b.WriteString("Hello Team,\n\n")
	fmt.Fprintf(&b, "The status for claim %s has been updated.\n\n", c.ID)
	fmt.Fprintf(&b, "  - Customer: %s\n", c.CustomerName)
	fmt.Fprintf(&b, "  - Previous Status: %s\n", oldStatus.Label())
	fmt.Fprintf(&b, "  - New Status: %s\n\n", c.Status.Label())
	fmt.Fprintf(&b, "Assignee: %s\n\n", c.Assignee.Name)
	b.WriteString("Thank you,\nYKK Claim Management System\n")

	return Envelope{
		Kind:    EnvelopeStatusChange,
		ClaimID: c.ID,
		To:      c.Assignee.Email,
		ToName:  c.Assignee.Name,
		Subject: "[YKK CCMS] Status Update for Claim: " + c.ID,
		Body:    b.String(),
	}
}
