package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	"claimdesk/internal/infrastructure/persistence/sqlite/model"
	"claimdesk/internal/ports"
)

const claimSequence = "claims"

type ClaimRepository struct {
	db *gorm.DB
}

var _ ports.ClaimRepository = (*ClaimRepository)(nil)

func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *ClaimRepository) ListUsers(ctx context.Context) ([]claim.User, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.User
	if err := db.Order("user_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query users")
	}

	users := make([]claim.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, mapUser(row))
	}
	return users, nil
}

func (r *ClaimRepository) GetUser(ctx context.Context, userID string) (claim.User, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return claim.User{}, err
	}

	var row model.User
	if err := db.Where("user_id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return claim.User{}, fmt.Errorf("%w: %q", ports.ErrUserNotFound, userID)
		}
		return claim.User{}, errs.Wrap(err, "query user")
	}
	return mapUser(row), nil
}

func (r *ClaimRepository) CreateUser(ctx context.Context, user claim.User) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.User{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return errs.Wrap(err, "count user")
	}
	if count > 0 {
		return fmt.Errorf("%w: user %q", ports.ErrDuplicateID, user.ID)
	}

	now := formatTime(time.Now())
	row := model.User{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		AvatarURL:  user.AvatarURL,
		Role:       string(user.Role),
		Department: user.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert user")
	}
	return nil
}

func (r *ClaimRepository) UpdateUser(ctx context.Context, user claim.User) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.User{}).
		Where("user_id = ?", user.ID).
		Updates(map[string]any{
			"name":       user.Name,
			"email":      user.Email,
			"avatar_url": user.AvatarURL,
			"role":       string(user.Role),
			"department": user.Department,
			"updated_at": formatTime(time.Now()),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update user")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", ports.ErrUserNotFound, user.ID)
	}
	return nil
}

func (r *ClaimRepository) ListClaims(ctx context.Context, filter ports.ClaimFilter) ([]claim.Claim, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Claim{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if assignee := strings.TrimSpace(filter.AssigneeID); assignee != "" {
		query = query.Where("assignee_id = ?", assignee)
	}
	if department := strings.TrimSpace(filter.Department); department != "" {
		query = query.Where("responsible_department = ?", department)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"lower(claim_id) LIKE ? OR lower(customer_name) LIKE ? OR lower(order_id) LIKE ? OR lower(product_code) LIKE ?",
			like, like, like, like,
		)
	}

	var rows []model.Claim
	if err := query.Order("created_at desc").Order("claim_id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query claims")
	}
	if len(rows) == 0 {
		return []claim.Claim{}, nil
	}

	users, err := loadUsers(db)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ClaimID)
	}
	comments, err := loadComments(db, users, ids...)
	if err != nil {
		return nil, err
	}

	items := make([]claim.Claim, 0, len(rows))
	for _, row := range rows {
		item, err := mapClaim(row, users, comments[row.ClaimID])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *ClaimRepository) GetClaim(ctx context.Context, claimID string) (claim.Claim, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return claim.Claim{}, err
	}

	var row model.Claim
	if err := db.Where("claim_id = ?", claimID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return claim.Claim{}, fmt.Errorf("%w: %q", ports.ErrClaimNotFound, claimID)
		}
		return claim.Claim{}, errs.Wrap(err, "query claim")
	}

	users, err := loadUsers(db)
	if err != nil {
		return claim.Claim{}, err
	}
	comments, err := loadComments(db, users, claimID)
	if err != nil {
		return claim.Claim{}, err
	}
	return mapClaim(row, users, comments[claimID])
}

func (r *ClaimRepository) ListComments(ctx context.Context, claimID string) ([]claim.Comment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	users, err := loadUsers(db)
	if err != nil {
		return nil, err
	}
	comments, err := loadComments(db, users, claimID)
	if err != nil {
		return nil, err
	}
	if items, ok := comments[claimID]; ok {
		return items, nil
	}
	return []claim.Comment{}, nil
}

func (r *ClaimRepository) NextClaimNumber(ctx context.Context) (int64, error) {
	if ports.TxFromContext(ctx) != nil {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return 0, err
		}

		row := model.Sequence{Name: claimSequence, Value: 1}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("sequences.value + 1")}),
		}).Create(&row).Error; err != nil {
			return 0, errs.Wrap(err, "advance claim sequence")
		}

		var current model.Sequence
		if err := db.Where("name = ?", claimSequence).Take(&current).Error; err != nil {
			return 0, errs.Wrap(err, "read claim sequence")
		}
		return current.Value, nil
	}

	var next int64
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		value, err := r.NextClaimNumber(ports.WithTxContext(ctx, tx))
		if err != nil {
			return err
		}
		next = value
		return nil
	}); err != nil {
		return 0, err
	}
	return next, nil
}

// RaiseClaimNumber moves the sequence up to at least floor. Used after importing
// claims that already carry ids.
func (r *ClaimRepository) RaiseClaimNumber(ctx context.Context, floor int64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Sequence{Name: claimSequence, Value: floor}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("CASE WHEN sequences.value < ? THEN ? ELSE sequences.value END", floor, floor)}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "raise claim sequence")
	}
	return nil
}

func (r *ClaimRepository) CreateClaim(ctx context.Context, c claim.Claim) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.Claim{}).Where("claim_id = ?", c.ID).Count(&count).Error; err != nil {
		return errs.Wrap(err, "count claim")
	}
	if count > 0 {
		return fmt.Errorf("%w: claim %q", ports.ErrDuplicateID, c.ID)
	}

	row := claimRow(c)
	row.UpdatedAt = formatTime(time.Now())
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert claim")
	}
	return nil
}

func (r *ClaimRepository) UpdateClaim(ctx context.Context, c claim.Claim) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := claimRow(c)
	row.UpdatedAt = formatTime(time.Now())
	// Select("*") so zero values (cleared text, false confirmation) are written too.
	result := db.Model(&model.Claim{}).
		Where("claim_id = ?", c.ID).
		Select("*").
		Omit("claim_id", "created_at", "creator_id").
		Updates(&row)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update claim")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", ports.ErrClaimNotFound, c.ID)
	}
	return nil
}

func (r *ClaimRepository) CreateComment(ctx context.Context, claimID string, comment claim.Comment) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	var owners int64
	if err := db.Model(&model.Claim{}).Where("claim_id = ?", claimID).Count(&owners).Error; err != nil {
		return errs.Wrap(err, "check comment claim")
	}
	if owners == 0 {
		return ports.ErrClaimNotFound
	}

	row := model.Comment{
		CommentID: comment.ID,
		ClaimID:   claimID,
		UserID:    comment.Author.ID,
		Text:      comment.Text,
		CreatedAt: formatTime(comment.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert comment")
	}
	return nil
}

func (r *ClaimRepository) ListNotifications(ctx context.Context, limit int) ([]activity.Notification, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Notification{}).Order("created_at desc").Order("seq asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query notifications")
	}

	items := make([]activity.Notification, 0, len(rows))
	for _, row := range rows {
		createdAt, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, errs.Wrapf(err, "parse notification %s created_at", row.NotificationID)
		}
		items = append(items, activity.Notification{
			ID:      row.NotificationID,
			ClaimID: row.ClaimID,
			ActorID: row.UserID,
			Message: activity.Message{
				Kind:       activity.Kind(row.Kind),
				ActorName:  row.ActorName,
				ClaimID:    row.ClaimID,
				FieldLabel: row.FieldLabel,
				OldValue:   row.OldValue,
				NewValue:   row.NewValue,
				TargetName: row.TargetName,
			},
			Read:      row.IsRead,
			CreatedAt: createdAt,
		})
	}
	return items, nil
}

func (r *ClaimRepository) CountUnread(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Notification{}).Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count unread notifications")
	}
	return count, nil
}

func (r *ClaimRepository) CreateNotification(ctx context.Context, n activity.Notification) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Notification{
		NotificationID: n.ID,
		ClaimID:        n.ClaimID,
		UserID:         n.ActorID,
		Kind:           string(n.Message.Kind),
		ActorName:      n.Message.ActorName,
		FieldLabel:     n.Message.FieldLabel,
		OldValue:       n.Message.OldValue,
		NewValue:       n.Message.NewValue,
		TargetName:     n.Message.TargetName,
		IsRead:         n.Read,
		CreatedAt:      formatTime(n.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert notification")
	}
	return nil
}

func (r *ClaimRepository) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Model(&model.Notification{}).Where("is_read = ?", false).Update("is_read", true)
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "mark notifications read")
	}
	return result.RowsAffected, nil
}

func loadUsers(db *gorm.DB) (map[string]claim.User, error) {
	var rows []model.User
	if err := db.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query users")
	}
	users := make(map[string]claim.User, len(rows))
	for _, row := range rows {
		users[row.UserID] = mapUser(row)
	}
	return users, nil
}

func loadComments(db *gorm.DB, users map[string]claim.User, claimIDs ...string) (map[string][]claim.Comment, error) {
	var rows []model.Comment
	if err := db.Where("claim_id IN ?", claimIDs).
		Order("created_at asc").
		Order("comment_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query comments")
	}

	out := make(map[string][]claim.Comment, len(claimIDs))
	for _, row := range rows {
		createdAt, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, errs.Wrapf(err, "parse comment %s created_at", row.CommentID)
		}
		out[row.ClaimID] = append(out[row.ClaimID], claim.Comment{
			ID:        row.CommentID,
			Author:    lookupUser(users, row.UserID),
			CreatedAt: createdAt,
			Text:      row.Text,
		})
	}
	return out, nil
}

// lookupUser keeps a dangling reference visible as a bare id instead of failing the read.
func lookupUser(users map[string]claim.User, userID string) claim.User {
	if user, ok := users[userID]; ok {
		return user
	}
	return claim.User{ID: userID, Name: userID}
}

func mapUser(row model.User) claim.User {
	return claim.User{
		ID:         row.UserID,
		Name:       row.Name,
		Email:      row.Email,
		AvatarURL:  row.AvatarURL,
		Role:       claim.Role(row.Role),
		Department: row.Department,
	}
}

func claimRow(c claim.Claim) model.Claim {
	attachments := c.Attachments
	if attachments == nil {
		attachments = []claim.Attachment{}
	}
	return model.Claim{
		ClaimID:                 c.ID,
		CreatedAt:               formatTime(c.CreatedAt),
		CreatorID:               c.Creator.ID,
		CustomerName:            c.CustomerName,
		OrderID:                 c.OrderID,
		ProductCode:             c.ProductCode,
		DefectType:              c.DefectType,
		Description:             c.Description,
		Severity:                string(c.Severity),
		Quantity:                c.Quantity,
		TotalQuantity:           c.TotalQuantity,
		DiscoveryLocation:       c.DiscoveryLocation,
		ResponsibleDepartment:   c.ResponsibleDepartment,
		Deadline:                formatTime(c.Deadline),
		Status:                  string(c.Status),
		AssigneeID:              c.Assignee.ID,
		ContainmentActions:      c.ContainmentActions,
		TraceabilityAnalysis:    c.Traceability,
		RootCauseAnalysis:       c.RootCause,
		CorrectiveActions:       c.CorrectiveActions,
		PreventiveActions:       c.PreventiveActions,
		EffectivenessValidation: c.EffectivenessValidation,
		ClosureSummary:          c.ClosureSummary,
		CustomerConfirmation:    c.CustomerConfirmation,
		CompletedPRs:            claim.FormatCompletedPRs(c.CompletedPRs),
		Attachments:             attachments,
	}
}

func mapClaim(row model.Claim, users map[string]claim.User, comments []claim.Comment) (claim.Claim, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return claim.Claim{}, errs.Wrapf(err, "parse claim %s created_at", row.ClaimID)
	}
	deadline, err := parseTime(row.Deadline)
	if err != nil {
		return claim.Claim{}, errs.Wrapf(err, "parse claim %s deadline", row.ClaimID)
	}
	if comments == nil {
		comments = []claim.Comment{}
	}
	attachments := row.Attachments
	if attachments == nil {
		attachments = []claim.Attachment{}
	}

	return claim.Claim{
		ID:                      row.ClaimID,
		CreatedAt:               createdAt,
		Creator:                 lookupUser(users, row.CreatorID),
		CustomerName:            row.CustomerName,
		OrderID:                 row.OrderID,
		ProductCode:             row.ProductCode,
		DefectType:              row.DefectType,
		Description:             row.Description,
		Severity:                claim.Severity(row.Severity),
		Quantity:                row.Quantity,
		TotalQuantity:           row.TotalQuantity,
		DiscoveryLocation:       row.DiscoveryLocation,
		ResponsibleDepartment:   row.ResponsibleDepartment,
		Deadline:                deadline,
		Status:                  claim.Status(row.Status),
		Assignee:                lookupUser(users, row.AssigneeID),
		ContainmentActions:      row.ContainmentActions,
		Traceability:            row.TraceabilityAnalysis,
		RootCause:               row.RootCauseAnalysis,
		CorrectiveActions:       row.CorrectiveActions,
		PreventiveActions:       row.PreventiveActions,
		EffectivenessValidation: row.EffectivenessValidation,
		ClosureSummary:          row.ClosureSummary,
		CustomerConfirmation:    row.CustomerConfirmation,
		CompletedPRs:            claim.ParseCompletedPRs(row.CompletedPRs),
		Attachments:             attachments,
		Comments:                comments,
	}, nil
}

// storedTimeLayout is fixed width so text order in SQL matches time order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
