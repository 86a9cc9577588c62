package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	"claimdesk/internal/ports"
)

const DocumentVersion = 1

// Document is the initial state loaded by the seed command.
type Document struct {
	Version int           `toml:"version" yaml:"version"`
	Users   []UserRecord  `toml:"users" yaml:"users"`
	Claims  []ClaimRecord `toml:"claims" yaml:"claims"`
}

type UserRecord struct {
	ID         string `toml:"id" yaml:"id"`
	Name       string `toml:"name" yaml:"name"`
	Email      string `toml:"email" yaml:"email"`
	AvatarURL  string `toml:"avatar_url" yaml:"avatar_url"`
	Role       string `toml:"role" yaml:"role"`
	Department string `toml:"department" yaml:"department"`
}

type ClaimRecord struct {
	ID                    string          `toml:"id" yaml:"id"`
	CreatedAt             time.Time       `toml:"created_at" yaml:"created_at"`
	CreatorID             string          `toml:"creator_id" yaml:"creator_id"`
	AssigneeID            string          `toml:"assignee_id" yaml:"assignee_id"`
	Status                string          `toml:"status" yaml:"status"`
	CustomerName          string          `toml:"customer_name" yaml:"customer_name"`
	OrderID               string          `toml:"order_id" yaml:"order_id"`
	ProductCode           string          `toml:"product_code" yaml:"product_code"`
	DefectType            string          `toml:"defect_type" yaml:"defect_type"`
	Description           string          `toml:"description" yaml:"description"`
	Severity              string          `toml:"severity" yaml:"severity"`
	Quantity              int             `toml:"quantity" yaml:"quantity"`
	TotalQuantity         int             `toml:"total_quantity" yaml:"total_quantity"`
	DiscoveryLocation     string          `toml:"discovery_location" yaml:"discovery_location"`
	ResponsibleDepartment string          `toml:"responsible_department" yaml:"responsible_department"`
	Deadline              time.Time       `toml:"deadline" yaml:"deadline"`
	ContainmentActions    string          `toml:"containment_actions" yaml:"containment_actions"`
	RootCause             string          `toml:"root_cause" yaml:"root_cause"`
	CorrectiveActions     string          `toml:"corrective_actions" yaml:"corrective_actions"`
	PreventiveActions     string          `toml:"preventive_actions" yaml:"preventive_actions"`
	ClosureSummary        string          `toml:"closure_summary" yaml:"closure_summary"`
	CustomerConfirmation  bool            `toml:"customer_confirmation" yaml:"customer_confirmation"`
	CompletedPRs          []string        `toml:"completed_prs" yaml:"completed_prs"`
	Comments              []CommentRecord `toml:"comments" yaml:"comments"`
}

type CommentRecord struct {
	AuthorID  string    `toml:"author_id" yaml:"author_id"`
	Text      string    `toml:"text" yaml:"text"`
	CreatedAt time.Time `toml:"created_at" yaml:"created_at"`
}

// Target is the persistence surface seeding writes through.
type Target interface {
	GetUser(ctx context.Context, userID string) (claim.User, error)
	CreateUser(ctx context.Context, user claim.User) error
	CreateClaim(ctx context.Context, c claim.Claim) error
	CreateComment(ctx context.Context, claimID string, comment claim.Comment) error
	RaiseClaimNumber(ctx context.Context, floor int64) error
}

type Result struct {
	UsersCreated  int
	UsersSkipped  int
	ClaimsCreated int
	ClaimsSkipped int
}

// DefaultDocument holds the stock user directory used when no file is given.
func DefaultDocument() Document {
	user := func(id, name, email string, role claim.Role, department string) UserRecord {
		return UserRecord{
			ID:         id,
			Name:       name,
			Email:      email,
			AvatarURL:  "https://i.pravatar.cc/150?u=" + id,
			Role:       string(role),
			Department: department,
		}
	}
	return Document{
		Version: DocumentVersion,
		Users: []UserRecord{
			user("user-1", "Nguyễn Văn An", "an.nguyen@ykk.com", claim.RoleQCManager, claim.DepartmentQC),
			user("user-2", "Trần Thị Bích", "bich.tran@ykk.com", claim.RoleQCStaff, claim.DepartmentQC),
			user("user-3", "Lê Minh Cường", "cuong.le@ykk.com", claim.RoleDepartmentStaff, "Weaving"),
			user("user-4", "Phạm Thị Dung", "dung.pham@ykk.com", claim.RoleDepartmentStaff, "Dyeing"),
			user("user-5", "Hoàng Văn E", "e.hoang@ykk.com", claim.RoleAdmin, claim.DepartmentAdmin),
			user("user-6", "Vũ Thị F", "f.vu@ykk.com", claim.RoleViewer, claim.DepartmentNone),
			user("user-7", "Đặng Văn G", "g.dang@ykk.com", claim.RoleDepartmentStaff, "Shipping"),
		},
	}
}

// Load reads a .toml, .yaml or .yml seed file.
func Load(path string) (Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Document{}, errors.New("seed file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errs.Wrap(err, "read seed file")
	}
	return Parse(raw, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

func Parse(raw []byte, format string) (Document, error) {
	var doc Document
	switch format {
	case "toml":
		if err := toml.Unmarshal(raw, &doc); err != nil {
			return Document{}, errs.Wrap(err, "decode toml seed")
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return Document{}, errs.Wrap(err, "decode yaml seed")
		}
	default:
		return Document{}, fmt.Errorf("unsupported seed format %q", format)
	}
	if doc.Version != DocumentVersion {
		return Document{}, fmt.Errorf("unsupported seed version %d: expected version = %d", doc.Version, DocumentVersion)
	}
	return doc, nil
}

// Apply inserts users then claims inside one transaction. Existing ids are
// skipped, so applying the same document twice is harmless. The claim
// sequence is raised past the highest seeded ordinal.
func Apply(ctx context.Context, uow ports.UnitOfWork, target Target, doc Document, now time.Time) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("context is required")
	}
	if uow == nil || target == nil {
		return Result{}, errors.New("seed target is required")
	}
	ctx = logging.WithAttrs(ctx, slog.String("component", "seed.apply"))

	var result Result
	err := uow.WithTx(ctx, func(txCtx context.Context) error {
		result = Result{}
		for _, record := range doc.Users {
			user, err := record.toUser()
			if err != nil {
				return err
			}
			if err := target.CreateUser(txCtx, user); err != nil {
				if errors.Is(err, ports.ErrDuplicateID) {
					result.UsersSkipped++
					continue
				}
				return errs.Wrapf(err, "seed user %s", user.ID)
			}
			result.UsersCreated++
		}

		var highest int64
		for _, record := range doc.Claims {
			c, err := record.toClaim(txCtx, target, now)
			if err != nil {
				return err
			}
			if ordinal := claimOrdinal(c.ID); ordinal > highest {
				highest = ordinal
			}
			if err := target.CreateClaim(txCtx, c); err != nil {
				if errors.Is(err, ports.ErrDuplicateID) {
					result.ClaimsSkipped++
					continue
				}
				return errs.Wrapf(err, "seed claim %s", c.ID)
			}
			for _, comment := range record.Comments {
				seeded, err := comment.toComment(txCtx, target, c.CreatedAt)
				if err != nil {
					return errs.Wrapf(err, "seed comment on %s", c.ID)
				}
				if err := target.CreateComment(txCtx, c.ID, seeded); err != nil {
					return errs.Wrapf(err, "seed comment on %s", c.ID)
				}
			}
			result.ClaimsCreated++
		}
		if highest > 0 {
			return target.RaiseClaimNumber(txCtx, highest)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logging.Info(ctx, "seed applied",
		slog.Int("users_created", result.UsersCreated),
		slog.Int("users_skipped", result.UsersSkipped),
		slog.Int("claims_created", result.ClaimsCreated),
		slog.Int("claims_skipped", result.ClaimsSkipped),
	)
	return result, nil
}

func (r UserRecord) toUser() (claim.User, error) {
	user := claim.User{
		ID:         strings.TrimSpace(r.ID),
		Name:       strings.TrimSpace(r.Name),
		Email:      strings.TrimSpace(r.Email),
		AvatarURL:  strings.TrimSpace(r.AvatarURL),
		Role:       claim.Role(strings.TrimSpace(r.Role)),
		Department: strings.TrimSpace(r.Department),
	}
	if user.ID == "" || user.Name == "" {
		return claim.User{}, fmt.Errorf("seed user requires id and name: %+v", r)
	}
	if !user.Role.Valid() {
		return claim.User{}, fmt.Errorf("seed user %s has unknown role %q", user.ID, r.Role)
	}
	if user.Department == "" {
		user.Department = claim.DepartmentNone
	}
	return user, nil
}

func (r ClaimRecord) toClaim(ctx context.Context, target Target, now time.Time) (claim.Claim, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return claim.Claim{}, errors.New("seed claim requires id")
	}
	creator, err := target.GetUser(ctx, strings.TrimSpace(r.CreatorID))
	if err != nil {
		return claim.Claim{}, errs.Wrapf(err, "seed claim %s creator", id)
	}
	assignee, err := target.GetUser(ctx, strings.TrimSpace(r.AssigneeID))
	if err != nil {
		return claim.Claim{}, errs.Wrapf(err, "seed claim %s assignee", id)
	}

	draft := claim.Draft{
		CustomerName:          r.CustomerName,
		OrderID:               r.OrderID,
		ProductCode:           r.ProductCode,
		DefectType:            r.DefectType,
		Description:           r.Description,
		Severity:              claim.Severity(r.Severity),
		Quantity:              r.Quantity,
		TotalQuantity:         r.TotalQuantity,
		DiscoveryLocation:     r.DiscoveryLocation,
		ResponsibleDepartment: r.ResponsibleDepartment,
		Deadline:              r.Deadline.UTC(),
		Assignee:              assignee,
		ContainmentActions:    r.ContainmentActions,
	}
	if err := draft.Validate(); err != nil {
		return claim.Claim{}, errs.Wrapf(err, "seed claim %s", id)
	}

	createdAt := r.CreatedAt.UTC()
	if r.CreatedAt.IsZero() {
		createdAt = now.UTC()
	}
	c := claim.NewFromDraft(draft, id, creator, createdAt)
	if strings.TrimSpace(r.Status) != "" {
		status, err := claim.ParseStatus(r.Status)
		if err != nil {
			return claim.Claim{}, errs.Wrapf(err, "seed claim %s", id)
		}
		c.Status = status
	}
	c.RootCause.RootCause = r.RootCause
	c.CorrectiveActions = r.CorrectiveActions
	c.PreventiveActions = r.PreventiveActions
	c.ClosureSummary = r.ClosureSummary
	c.CustomerConfirmation = r.CustomerConfirmation
	if len(r.CompletedPRs) > 0 {
		c.CompletedPRs = append([]string{}, r.CompletedPRs...)
	}
	if err := c.Validate(); err != nil {
		return claim.Claim{}, errs.Wrapf(err, "seed claim %s", id)
	}
	return c, nil
}

func (r CommentRecord) toComment(ctx context.Context, target Target, fallback time.Time) (claim.Comment, error) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return claim.Comment{}, errors.New("comment text is required")
	}
	author, err := target.GetUser(ctx, strings.TrimSpace(r.AuthorID))
	if err != nil {
		return claim.Comment{}, err
	}
	createdAt := r.CreatedAt.UTC()
	if r.CreatedAt.IsZero() {
		createdAt = fallback
	}
	return claim.Comment{ID: uuid.NewString(), Author: author, CreatedAt: createdAt, Text: text}, nil
}

// claimOrdinal reads the numeric suffix of PREFIX-NNN, or 0.
func claimOrdinal(id string) int64 {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
