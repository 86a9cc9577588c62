package claim

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Group is the permission section an editable field belongs to.
type Group int

const (
	GroupHeader Group = iota + 1
	GroupContainment
	GroupInvestigation
	GroupClosure
	// GroupGeneral covers claim-level attachments, gated by "can edit anything".
	GroupGeneral
)

func (g Group) String() string {
	switch g {
	case GroupHeader:
		return "header"
	case GroupContainment:
		return "containment"
	case GroupInvestigation:
		return "investigation"
	case GroupClosure:
		return "closure"
	case GroupGeneral:
		return "general"
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// Field is the closed set of editable claim paths.
type Field int

const (
	FieldStatus Field = iota + 1
	FieldAssignee
	FieldCustomerName
	FieldOrderID
	FieldProductCode
	FieldDefectType
	FieldDescription
	FieldSeverity
	FieldQuantity
	FieldTotalQuantity
	FieldDiscoveryLocation
	FieldResponsibleDepartment
	FieldDeadline
	FieldContainmentActions
	FieldTraceability
	FieldRootCauseMethod
	FieldRootCauseFishbone
	FieldRootCauseFiveWhys
	FieldRootCause
	FieldRootCauseEscapePoint
	FieldRootCauseEvidence
	FieldRootCauseAttachments
	FieldCorrectiveActions
	FieldPreventiveActions
	FieldEffectivenessValidation
	FieldClosureSummary
	FieldCustomerConfirmation
	FieldCompletedPRs
	FieldAttachments
)

type fieldSpec struct {
	name  string
	group Group
}

var fieldSpecs = map[Field]fieldSpec{
	FieldStatus:                  {"status", GroupHeader},
	FieldAssignee:                {"assignee", GroupHeader},
	FieldCustomerName:            {"customerName", GroupHeader},
	FieldOrderID:                 {"orderId", GroupHeader},
	FieldProductCode:             {"productCode", GroupHeader},
	FieldDefectType:              {"defectType", GroupHeader},
	FieldDescription:             {"description", GroupHeader},
	FieldSeverity:                {"severity", GroupHeader},
	FieldQuantity:                {"quantity", GroupHeader},
	FieldTotalQuantity:           {"totalQuantity", GroupHeader},
	FieldDiscoveryLocation:       {"discoveryLocation", GroupHeader},
	FieldResponsibleDepartment:   {"responsibleDepartment", GroupHeader},
	FieldDeadline:                {"deadline", GroupHeader},
	FieldContainmentActions:      {"containmentActions", GroupContainment},
	FieldTraceability:            {"traceabilityAnalysis", GroupInvestigation},
	FieldRootCauseMethod:         {"rootCauseAnalysis.analysisMethod", GroupInvestigation},
	FieldRootCauseFishbone:       {"rootCauseAnalysis.fishboneAnalysis", GroupInvestigation},
	FieldRootCauseFiveWhys:       {"rootCauseAnalysis.fiveWhysAnalysis", GroupInvestigation},
	FieldRootCause:               {"rootCauseAnalysis.rootCause", GroupInvestigation},
	FieldRootCauseEscapePoint:    {"rootCauseAnalysis.escapePoint", GroupInvestigation},
	FieldRootCauseEvidence:       {"rootCauseAnalysis.confirmationEvidence", GroupInvestigation},
	FieldRootCauseAttachments:    {"rootCauseAnalysis.attachments", GroupInvestigation},
	FieldCorrectiveActions:       {"correctiveActions", GroupInvestigation},
	FieldPreventiveActions:       {"preventiveActions", GroupInvestigation},
	FieldEffectivenessValidation: {"effectivenessValidation", GroupInvestigation},
	FieldClosureSummary:          {"closureSummary", GroupClosure},
	FieldCustomerConfirmation:    {"customerConfirmation", GroupClosure},
	FieldCompletedPRs:            {"completedPrs", GroupClosure},
	FieldAttachments:             {"attachments", GroupGeneral},
}

// Fields returns every editable field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, len(fieldSpecs))
	for f := FieldStatus; f <= FieldAttachments; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) Name() string {
	if spec, ok := fieldSpecs[f]; ok {
		return spec.name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

func (f Field) Group() Group {
	return fieldSpecs[f].group
}

func (f Field) Valid() bool {
	_, ok := fieldSpecs[f]
	return ok
}

func (f Field) String() string { return f.Name() }

func ParseField(name string) (Field, error) {
	trimmed := strings.TrimSpace(name)
	for field, spec := range fieldSpecs {
		if spec.name == trimmed {
			return field, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

func FieldGroup(name string) (Group, error) {
	field, err := ParseField(name)
	if err != nil {
		return 0, err
	}
	return field.Group(), nil
}

// CheckIdentity rejects proposals that touch id, createdAt or creator.
func CheckIdentity(old, proposed Claim) error {
	if old.ID != proposed.ID {
		return fmt.Errorf("%w: id", ErrImmutableField)
	}
	if !old.CreatedAt.Equal(proposed.CreatedAt) {
		return fmt.Errorf("%w: createdAt", ErrImmutableField)
	}
	if old.Creator.ID != proposed.Creator.ID {
		return fmt.Errorf("%w: creator", ErrImmutableField)
	}
	return nil
}

// ChangedFields lists the fields whose values differ, in declaration order.
// Nil and empty collections compare equal; times compare by instant.
func ChangedFields(old, proposed Claim) []Field {
	var changed []Field
	for _, field := range Fields() {
		if !reflect.DeepEqual(fieldValue(old, field), fieldValue(proposed, field)) {
			changed = append(changed, field)
		}
	}
	return changed
}

// ChangedGroups is the distinct set of groups touched by fields, in group order.
func ChangedGroups(fields []Field) []Group {
	seen := make(map[Group]bool, 4)
	for _, f := range fields {
		seen[f.Group()] = true
	}
	var out []Group
	for g := GroupHeader; g <= GroupGeneral; g++ {
		if seen[g] {
			out = append(out, g)
		}
	}
	return out
}

func fieldValue(c Claim, field Field) any {
	switch field {
	case FieldStatus:
		return c.Status
	case FieldAssignee:
		return c.Assignee.ID
	case FieldCustomerName:
		return c.CustomerName
	case FieldOrderID:
		return c.OrderID
	case FieldProductCode:
		return c.ProductCode
	case FieldDefectType:
		return c.DefectType
	case FieldDescription:
		return c.Description
	case FieldSeverity:
		return c.Severity
	case FieldQuantity:
		return c.Quantity
	case FieldTotalQuantity:
		return c.TotalQuantity
	case FieldDiscoveryLocation:
		return c.DiscoveryLocation
	case FieldResponsibleDepartment:
		return c.ResponsibleDepartment
	case FieldDeadline:
		return timeKey(c.Deadline)
	case FieldContainmentActions:
		return c.ContainmentActions
	case FieldTraceability:
		return traceabilityKey(c.Traceability)
	case FieldRootCauseMethod:
		return c.RootCause.Method
	case FieldRootCauseFishbone:
		return fishboneKey(c.RootCause.Fishbone)
	case FieldRootCauseFiveWhys:
		return c.RootCause.FiveWhys
	case FieldRootCause:
		return c.RootCause.RootCause
	case FieldRootCauseEscapePoint:
		return c.RootCause.EscapePoint
	case FieldRootCauseEvidence:
		return c.RootCause.ConfirmationEvidence
	case FieldRootCauseAttachments:
		return attachmentsKey(c.RootCause.Attachments)
	case FieldCorrectiveActions:
		return c.CorrectiveActions
	case FieldPreventiveActions:
		return c.PreventiveActions
	case FieldEffectivenessValidation:
		return c.EffectivenessValidation
	case FieldClosureSummary:
		return c.ClosureSummary
	case FieldCustomerConfirmation:
		return c.CustomerConfirmation
	case FieldCompletedPRs:
		return stringsKey(c.CompletedPRs)
	case FieldAttachments:
		return attachmentsKey(c.Attachments)
	}
	return nil
}

func timeKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtrKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timeKey(*t)
}

func stringsKey(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	return values
}

func attachmentsKey(values []Attachment) []Attachment {
	if len(values) == 0 {
		return []Attachment{}
	}
	return values
}

type traceabilityItemKey struct {
	Table       [][]string
	Filtered    int
	Filter      FilterStatus
	Departments []string
	Person      string
	Retrieval   string
	Filtering   string
	Return      string
	Notes       string
}

func itemKey(item TraceabilityItem) traceabilityItemKey {
	table := make([][]string, 0, len(item.TableData))
	for _, row := range item.TableData {
		table = append(table, stringsKey(row))
	}
	return traceabilityItemKey{
		Table:       table,
		Filtered:    item.FilteredDefectCount,
		Filter:      item.FilterStatus,
		Departments: stringsKey(item.InvolvedDepartments),
		Person:      item.PersonInChargeName,
		Retrieval:   timePtrKey(item.DataRetrievalDate),
		Filtering:   timePtrKey(item.FilteringDate),
		Return:      timePtrKey(item.ReturnDate),
		Notes:       item.Notes,
	}
}

func traceabilityKey(t TraceabilityAnalysis) [4]any {
	return [4]any{itemKey(t.OriginalPOLots), itemKey(t.OtherPOSameLot), itemKey(t.OtherPOSameMaterial), t.Summary}
}

func fishboneKey(f FishboneAnalysis) FishboneAnalysis {
	categories := make([]FishboneCategory, 0, len(f.Categories))
	for _, c := range f.Categories {
		categories = append(categories, FishboneCategory{ID: c.ID, Name: c.Name, Causes: stringsKey(c.Causes)})
	}
	return FishboneAnalysis{Problem: f.Problem, Categories: categories}
}
