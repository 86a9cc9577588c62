package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/domain/activity"
	"claimdesk/internal/domain/claim"
	"claimdesk/internal/domain/permission"
	"claimdesk/internal/errs"
	"claimdesk/internal/infrastructure/notify"
	"claimdesk/internal/ports"
	"claimdesk/internal/usecase/claims"
)

const (
	maxJSONBodyBytes     = 1 << 20
	multipartMemoryBytes = 8 << 20
	defaultFeedLimit     = 50
)

type claimAPIService interface {
	ListClaims(ctx context.Context, filter ports.ClaimFilter) ([]claim.Claim, error)
	GetClaim(ctx context.Context, claimID string) (claim.Claim, error)
	CreateClaim(ctx context.Context, draft claim.Draft, actor claim.User) (claim.Claim, error)
	UpdateClaim(ctx context.Context, old claim.Claim, proposed claim.Claim, actor claim.User) (claims.UpdateResult, error)
	ChangeStatus(ctx context.Context, claimID string, status claim.Status, actor claim.User) (claims.UpdateResult, error)
	AddComment(ctx context.Context, c claim.Claim, text string, actor claim.User) (claim.Claim, error)
	AddAttachments(ctx context.Context, c claim.Claim, section claims.Section, files []claims.Upload, actor claim.User) (claim.Claim, error)
	RemoveAttachment(ctx context.Context, c claim.Claim, section claims.Section, url string, actor claim.User) (claim.Claim, error)
	GenerateReport(ctx context.Context, c claim.Claim) (string, error)
	ListNotifications(ctx context.Context, limit int) ([]activity.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
	UnreadCount(ctx context.Context) (int, error)
	ListUsers(ctx context.Context) ([]claim.User, error)
	GetUser(ctx context.Context, userID string) (claim.User, error)
	CreateUser(ctx context.Context, user claim.User, actor claim.User) (claim.User, error)
	UpdateUser(ctx context.Context, user claim.User, actor claim.User) (claim.User, error)
	Dashboard(ctx context.Context, actor claim.User) (claims.Dashboard, error)
}

var _ claimAPIService = (*claims.Service)(nil)

type claimAPIOptions struct {
	JWTSecret string
	// Feed serves the live notification websocket. Optional.
	Feed http.Handler
	// FilesDir is served under /files/. Optional.
	FilesDir string
}

type claimAPIHandler struct {
	svc      claimAPIService
	secret   string
	validate *validator.Validate
}

type createClaimRequest struct {
	CustomerName          string    `json:"customerName" validate:"required,max=200"`
	OrderID               string    `json:"orderId" validate:"max=100"`
	ProductCode           string    `json:"productCode" validate:"max=100"`
	DefectType            string    `json:"defectType" validate:"required"`
	Description           string    `json:"description"`
	Severity              string    `json:"severity" validate:"required,oneof=Critical High Medium Low"`
	Quantity              int       `json:"quantity" validate:"gte=0"`
	TotalQuantity         int       `json:"totalQuantity" validate:"gte=0,gtefield=Quantity"`
	DiscoveryLocation     string    `json:"discoveryLocation"`
	ResponsibleDepartment string    `json:"responsibleDepartment" validate:"required"`
	Deadline              time.Time `json:"deadline" validate:"required"`
	AssigneeID            string    `json:"assigneeId" validate:"required"`
	ContainmentActions    string    `json:"containmentActions"`
}

func (r createClaimRequest) draft() claim.Draft {
	return claim.Draft{
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
		Deadline:              r.Deadline,
		Assignee:              claim.User{ID: r.AssigneeID},
		ContainmentActions:    r.ContainmentActions,
	}
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type addCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type userRequest struct {
	ID         string `json:"id" validate:"omitempty,max=64"`
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	AvatarURL  string `json:"avatarUrl" validate:"omitempty,url"`
	Role       string `json:"role" validate:"required"`
	Department string `json:"department"`
}

func (r userRequest) user() claim.User {
	return claim.User{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		AvatarURL:  r.AvatarURL,
		Role:       claim.Role(r.Role),
		Department: r.Department,
	}
}

type meResponse struct {
	User            claim.User `json:"user"`
	CanCreateClaim  bool       `json:"canCreateClaim"`
	CanViewReports  bool       `json:"canViewReports"`
	CanViewSettings bool       `json:"canViewSettings"`
}

type updateClaimResponse struct {
	Claim         claim.Claim       `json:"claim"`
	Notifications []notify.FeedItem `json:"notifications"`
}

type notificationsResponse struct {
	Items  []notify.FeedItem `json:"items"`
	Unread int               `json:"unread"`
}

type reportResponse struct {
	ClaimID string `json:"claimId"`
	Report  string `json:"report"`
}

type apiErrorResponse struct {
	Error  string   `json:"error"`
	Kind   string   `json:"kind,omitempty"`
	Detail string   `json:"detail,omitempty"`
	Names  []string `json:"names,omitempty"`
}

func newClaimAPIHandler(svc claimAPIService, opts claimAPIOptions) http.Handler {
	h := &claimAPIHandler{
		svc:      svc,
		secret:   opts.JWTSecret,
		validate: newRequestValidator(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeAPIJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if dir := strings.TrimSpace(opts.FilesDir); dir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(dir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		if opts.Feed != nil {
			r.Handle("/ws", opts.Feed)
		}
		r.Route("/api", func(r chi.Router) {
			r.Get("/me", h.handleMe)
			r.Get("/dashboard", h.handleDashboard)
			r.Route("/claims", func(r chi.Router) {
				r.Get("/", h.handleListClaims)
				r.Post("/", h.handleCreateClaim)
				r.Route("/{claimID}", func(r chi.Router) {
					r.Get("/", h.handleGetClaim)
					r.Put("/", h.handleUpdateClaim)
					r.Patch("/status", h.handleChangeStatus)
					r.Post("/comments", h.handleAddComment)
					r.Post("/attachments", h.handleAddAttachments)
					r.Delete("/attachments", h.handleRemoveAttachment)
					r.Post("/report", h.handleGenerateReport)
				})
			})
			r.Get("/notifications", h.handleListNotifications)
			r.Post("/notifications/read-all", h.handleMarkAllRead)
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Put("/users/{userID}", h.handleUpdateUser)
		})
	})
	return r
}

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		ctx := logging.WithAttrs(r.Context(), slog.String("component", "cmd.serve"))
		logging.Debug(ctx, "http request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(started)),
		)
	})
}

// authenticate resolves the bearer token to a stored user. The stored role wins
// over whatever the token claims.
func (h *claimAPIHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeAPIMessage(w, http.StatusUnauthorized, "Vui lòng đăng nhập.")
			return
		}
		userID, err := parseActorToken(h.secret, raw)
		if err != nil {
			writeAPIMessage(w, http.StatusUnauthorized, "Phiên đăng nhập không hợp lệ.")
			return
		}
		actor, err := h.svc.GetUser(r.Context(), userID)
		if err != nil {
			if errs.IsKind(err, errs.KindNotFound) {
				writeAPIMessage(w, http.StatusUnauthorized, "Phiên đăng nhập không hợp lệ.")
				return
			}
			writeAPIError(r.Context(), w, err)
			return
		}

		ctx := logging.WithActor(r.Context(), actor.ID, string(actor.Role))
		ctx = withRequestActor(ctx, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *claimAPIHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := requestActor(r.Context())
	writeAPIJSON(w, http.StatusOK, meResponse{
		User:            actor,
		CanCreateClaim:  permission.CanCreateClaim(actor),
		CanViewReports:  permission.CanViewReports(actor),
		CanViewSettings: permission.CanViewSettings(actor),
	})
}

func (h *claimAPIHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	actor, _ := requestActor(r.Context())
	dashboard, err := h.svc.Dashboard(r.Context(), actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, dashboard)
}

func (h *claimAPIHandler) handleListClaims(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ports.ClaimFilter{
		AssigneeID: strings.TrimSpace(query.Get("assignee")),
		Department: strings.TrimSpace(query.Get("department")),
		Query:      strings.TrimSpace(query.Get("q")),
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := claim.ParseStatus(raw)
		if err != nil {
			writeAPIError(r.Context(), w, errs.WrapKind(err, errs.KindUnknownStatus, "parse status filter", "status"))
			return
		}
		filter.Status = status
	}

	items, err := h.svc.ListClaims(r.Context(), filter)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	if items == nil {
		items = []claim.Claim{}
	}
	writeAPIJSON(w, http.StatusOK, items)
}

func (h *claimAPIHandler) handleCreateClaim(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}

	actor, _ := requestActor(r.Context())
	created, err := h.svc.CreateClaim(r.Context(), req.draft(), actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, created)
}

func (h *claimAPIHandler) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	current, err := h.svc.GetClaim(r.Context(), chi.URLParam(r, "claimID"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, current)
}

// handleUpdateClaim takes the whole edited document. An omitted id means the one in the path.
func (h *claimAPIHandler) handleUpdateClaim(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claimID")
	var proposed claim.Claim
	if err := decodeJSONBody(r, &proposed); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	if strings.TrimSpace(proposed.ID) == "" {
		proposed.ID = claimID
	}

	old, err := h.svc.GetClaim(r.Context(), claimID)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	actor, _ := requestActor(r.Context())
	result, err := h.svc.UpdateClaim(r.Context(), old, proposed, actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, newUpdateClaimResponse(result))
}

func (h *claimAPIHandler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	status, err := claim.ParseStatus(req.Status)
	if err != nil {
		// Passed through so the service reports the unknown value.
		status = claim.Status(req.Status)
	}

	actor, _ := requestActor(r.Context())
	result, err := h.svc.ChangeStatus(r.Context(), chi.URLParam(r, "claimID"), status, actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, newUpdateClaimResponse(result))
}

func (h *claimAPIHandler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	current, err := h.svc.GetClaim(r.Context(), chi.URLParam(r, "claimID"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}

	actor, _ := requestActor(r.Context())
	updated, err := h.svc.AddComment(r.Context(), current, req.Text, actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, updated)
}

// handleAddAttachments accepts multipart "files" parts. Size limits are checked by the service
// so an oversized batch is reported with every offending name.
func (h *claimAPIHandler) handleAddAttachments(w http.ResponseWriter, r *http.Request) {
	section, err := claims.ParseSection(r.URL.Query().Get("section"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		writeAPIError(r.Context(), w, errs.WrapKind(err, errs.KindInvalidInput, "parse multipart form", "files"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeAPIError(r.Context(), w, errs.New(errs.KindInvalidInput, "no files in request", "files"))
		return
	}
	uploads, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}

	current, err := h.svc.GetClaim(r.Context(), chi.URLParam(r, "claimID"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	actor, _ := requestActor(r.Context())
	updated, err := h.svc.AddAttachments(r.Context(), current, section, uploads, actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, updated)
}

func openUploads(headers []*multipart.FileHeader) ([]claims.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, file := range opened {
			_ = file.Close()
		}
	}

	uploads := make([]claims.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, closeAll, errs.WrapKind(err, errs.KindUploadFailed, "open multipart file", header.Filename)
		}
		opened = append(opened, file)
		uploads = append(uploads, claims.Upload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		})
	}
	return uploads, closeAll, nil
}

func (h *claimAPIHandler) handleRemoveAttachment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	section, err := claims.ParseSection(query.Get("section"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	url := strings.TrimSpace(query.Get("url"))
	if url == "" {
		writeAPIError(r.Context(), w, errs.New(errs.KindInvalidInput, "url is required", "url"))
		return
	}

	current, err := h.svc.GetClaim(r.Context(), chi.URLParam(r, "claimID"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	actor, _ := requestActor(r.Context())
	updated, err := h.svc.RemoveAttachment(r.Context(), current, section, url, actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, updated)
}

func (h *claimAPIHandler) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	current, err := h.svc.GetClaim(r.Context(), chi.URLParam(r, "claimID"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	report, err := h.svc.GenerateReport(r.Context(), current)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, reportResponse{ClaimID: current.ID, Report: report})
}

func (h *claimAPIHandler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeedLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeAPIError(r.Context(), w, errs.New(errs.KindInvalidInput, fmt.Sprintf("invalid limit %q", raw), "limit"))
			return
		}
		limit = parsed
	}

	feed, err := h.svc.ListNotifications(r.Context(), limit)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	unread, err := h.svc.UnreadCount(r.Context())
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, notificationsResponse{Items: feedItems(feed), Unread: unread})
}

func (h *claimAPIHandler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.MarkAllNotificationsRead(r.Context())
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *claimAPIHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	if users == nil {
		users = []claim.User{}
	}
	writeAPIJSON(w, http.StatusOK, users)
}

func (h *claimAPIHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	actor, _ := requestActor(r.Context())
	created, err := h.svc.CreateUser(r.Context(), req.user(), actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, created)
}

func (h *claimAPIHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	userID := chi.URLParam(r, "userID")
	if req.ID != "" && req.ID != userID {
		writeAPIError(r.Context(), w, errs.New(errs.KindImmutableField, "user id cannot change", "id"))
		return
	}
	req.ID = userID

	actor, _ := requestActor(r.Context())
	updated, err := h.svc.UpdateUser(r.Context(), req.user(), actor)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, updated)
}

func (h *claimAPIHandler) decodeAndValidate(r *http.Request, dst any) error {
	if err := decodeJSONBody(r, dst); err != nil {
		return err
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			names := make([]string, 0, len(fieldErrs))
			for _, fieldErr := range fieldErrs {
				names = append(names, fieldErr.Field())
			}
			return errs.WrapKind(err, errs.KindInvalidInput, "validate request", names...)
		}
		return errs.WrapKind(err, errs.KindInvalidInput, "validate request")
	}
	return nil
}

// decodeJSONBody rejects unknown keys so a misspelled field is reported instead of ignored.
func decodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			name = strings.Trim(name, `"`)
			return errs.WrapKind(err, errs.KindUnknownField, "decode request body", name)
		}
		return errs.WrapKind(err, errs.KindInvalidInput, "decode request body")
	}
	return nil
}

func newUpdateClaimResponse(result claims.UpdateResult) updateClaimResponse {
	return updateClaimResponse{
		Claim:         result.Claim,
		Notifications: feedItems(result.Notifications),
	}
}

func feedItems(notifications []activity.Notification) []notify.FeedItem {
	items := make([]notify.FeedItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, notify.NewFeedItem(n))
	}
	return items
}

func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindPermissionDenied:
		return http.StatusForbidden
	case errs.KindUnknownField, errs.KindUnknownStatus, errs.KindImmutableField, errs.KindInvalidInput:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case errs.KindUploadFailed, errs.KindReportGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageForKind(kind errs.Kind) string {
	switch kind {
	case errs.KindPermissionDenied:
		return "Bạn không có quyền thực hiện thao tác này."
	case errs.KindUnknownField:
		return "Trường dữ liệu không hợp lệ."
	case errs.KindUnknownStatus:
		return "Trạng thái không hợp lệ."
	case errs.KindImmutableField:
		return "Không thể thay đổi mã claim."
	case errs.KindInvalidInput:
		return "Dữ liệu không hợp lệ."
	case errs.KindNotFound:
		return "Không tìm thấy dữ liệu."
	case errs.KindFileTooLarge:
		return "Tệp vượt quá dung lượng cho phép."
	case errs.KindUploadFailed:
		return "Tải tệp lên thất bại."
	case errs.KindReportGenerationFailed:
		return "Không thể tạo báo cáo AI."
	default:
		return "Đã xảy ra lỗi, vui lòng thử lại."
	}
}

// writeAPIError maps an error kind to a status and a localized message.
// Detail text is only exposed for client errors.
func writeAPIError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusForKind(kind)
	resp := apiErrorResponse{
		Error: messageForKind(kind),
		Kind:  string(kind),
		Names: errs.NamesOf(err),
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "cmd.serve"))
	if status < http.StatusInternalServerError {
		var kindErr *errs.Error
		if errors.As(err, &kindErr) {
			resp.Detail = kindErr.Msg
		}
		logging.Info(logCtx, "request rejected", slog.Int("status", status), slog.Any("err", errs.Loggable(err)))
	} else {
		logging.Error(logCtx, "request failed", slog.Int("status", status), slog.Any("err", errs.Loggable(err)))
	}
	writeAPIJSON(w, status, resp)
}

func writeAPIMessage(w http.ResponseWriter, status int, message string) {
	writeAPIJSON(w, status, apiErrorResponse{Error: message})
}

func writeAPIJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
