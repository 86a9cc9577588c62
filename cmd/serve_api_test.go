package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
	cacheinfra "claimdesk/internal/infrastructure/cache"
	"claimdesk/internal/infrastructure/notify"
	"claimdesk/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "claimdesk/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "claimdesk/internal/infrastructure/persistence/sqlite/uow"
	"claimdesk/internal/infrastructure/storage"
	"claimdesk/internal/usecase/claims"
)

const testJWTSecret = "local-dev-secret"

var (
	apiAdmin   = claim.User{ID: "user-1", Name: "Quản trị", Role: claim.RoleAdmin, Department: claim.DepartmentAdmin}
	apiManager = claim.User{ID: "user-2", Name: "Nguyễn Văn An", Role: claim.RoleQCManager, Department: claim.DepartmentQC}
	apiDyeing  = claim.User{ID: "user-4", Name: "Phạm Thị Dung", Role: claim.RoleDepartmentStaff, Department: "Dyeing"}
	apiViewer  = claim.User{ID: "user-6", Name: "Hoàng Văn Em", Role: claim.RoleViewer, Department: claim.DepartmentNone}
)

type stubReportGenerator struct {
	err error
}

func (s stubReportGenerator) Generate(_ context.Context, c claim.Claim) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "# Báo cáo 8D " + c.ID, nil
}

type apiTestEnv struct {
	handler http.Handler
}

func setupAPI(t *testing.T, reporter stubReportGenerator) apiTestEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "api.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(model.All()...))

	repo := sqliterepo.NewClaimRepository(db)
	for _, user := range []claim.User{apiAdmin, apiManager, apiDyeing, apiViewer} {
		require.NoError(t, repo.CreateUser(context.Background(), user))
	}

	filesDir := filepath.Join(t.TempDir(), "files")
	svc := claims.NewService(repo, sqliteuow.NewUnitOfWork(db), cacheinfra.NoopCache{},
		claims.WithStorage(storage.NewLocalStorage(filesDir, "http://localhost/files")),
		claims.WithReportGenerator(reporter),
		claims.WithStatusNotifier(notify.LogNotifier{}),
		claims.WithPublisher(notify.NewHub()),
		claims.WithMaxFileBytes(64),
	)
	return apiTestEnv{
		handler: newClaimAPIHandler(svc, claimAPIOptions{JWTSecret: testJWTSecret, FilesDir: filesDir}),
	}
}

func (e apiTestEnv) do(t *testing.T, method string, target string, actor *claim.User, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+testToken(t, *actor))
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func testToken(t *testing.T, user claim.User) string {
	t.Helper()
	token, _, err := issueActorToken(testJWTSecret, user, time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), "body=%s", resp.Body.String())
	return out
}

func newClaimBody() map[string]any {
	return map[string]any{
		"customerName":          "Công ty ABC",
		"orderId":               "PO-12345",
		"productCode":           "YK-Z-5C-N",
		"defectType":            "Lỗi màu sắc",
		"severity":              "High",
		"quantity":              50,
		"totalQuantity":         1000,
		"discoveryLocation":     "Kho khách hàng",
		"responsibleDepartment": "Dyeing",
		"deadline":              "2026-12-01T08:00:00Z",
		"assigneeId":            apiDyeing.ID,
	}
}

func createTestClaim(t *testing.T, env apiTestEnv) claim.Claim {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/api/claims", &apiManager, newClaimBody())
	require.Equal(t, http.StatusCreated, resp.Code, "body=%s", resp.Body.String())
	return decodeBody[claim.Claim](t, resp)
}

func TestAPIHealthNeedsNoToken(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	resp := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAPIRejectsMissingAndInvalidTokens(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})

	resp := env.do(t, http.MethodGet, "/api/claims", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ghost := claim.User{ID: "user-404", Role: claim.RoleAdmin}
	resp = env.do(t, http.MethodGet, "/api/claims", &ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me?access_token="+testToken(t, apiViewer), nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[meResponse](t, rec)
	assert.Equal(t, apiViewer.ID, me.User.ID)
	assert.False(t, me.CanCreateClaim)
}

func TestAPICreateListAndGetClaim(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	created := createTestClaim(t, env)
	assert.Equal(t, "CLM-001", created.ID)
	assert.Equal(t, claim.StatusNew, created.Status)
	assert.Equal(t, apiDyeing.Name, created.Assignee.Name)
	assert.Equal(t, apiManager.ID, created.Creator.ID)

	resp := env.do(t, http.MethodGet, "/api/claims?status="+url.QueryEscape("Mới"), &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	listed := decodeBody[[]claim.Claim](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, "CLM-001", listed[0].ID)

	resp = env.do(t, http.MethodGet, "/api/claims?status=completed", &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeBody[[]claim.Claim](t, resp))

	resp = env.do(t, http.MethodGet, "/api/claims/CLM-001", &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Công ty ABC", decodeBody[claim.Claim](t, resp).CustomerName)

	resp = env.do(t, http.MethodGet, "/api/claims/CLM-404", &apiViewer, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	apiErr := decodeBody[apiErrorResponse](t, resp)
	assert.Equal(t, string(errs.KindNotFound), apiErr.Kind)
	assert.Equal(t, []string{"CLM-404"}, apiErr.Names)
}

func TestAPICreateClaimValidation(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})

	body := newClaimBody()
	delete(body, "customerName")
	body["severity"] = "Huge"
	resp := env.do(t, http.MethodPost, "/api/claims", &apiManager, body)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	apiErr := decodeBody[apiErrorResponse](t, resp)
	assert.Equal(t, string(errs.KindInvalidInput), apiErr.Kind)
	assert.ElementsMatch(t, []string{"customerName", "severity"}, apiErr.Names)

	body = newClaimBody()
	body["colour"] = "red"
	resp = env.do(t, http.MethodPost, "/api/claims", &apiManager, body)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	apiErr = decodeBody[apiErrorResponse](t, resp)
	assert.Equal(t, string(errs.KindUnknownField), apiErr.Kind)
	assert.Equal(t, []string{"colour"}, apiErr.Names)

	resp = env.do(t, http.MethodPost, "/api/claims", &apiManager, "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAPIViewerCannotCreateClaim(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	resp := env.do(t, http.MethodPost, "/api/claims", &apiViewer, newClaimBody())
	require.Equal(t, http.StatusForbidden, resp.Code)
	apiErr := decodeBody[apiErrorResponse](t, resp)
	assert.Equal(t, string(errs.KindPermissionDenied), apiErr.Kind)
	assert.Equal(t, "Bạn không có quyền thực hiện thao tác này.", apiErr.Error)

	resp = env.do(t, http.MethodGet, "/api/claims", &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeBody[[]claim.Claim](t, resp))
}

func TestAPIChangeStatusFeedsNotifications(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	createTestClaim(t, env)

	resp := env.do(t, http.MethodPatch, "/api/claims/CLM-001/status", &apiManager, map[string]string{"status": "Đang xử lý"})
	require.Equal(t, http.StatusOK, resp.Code, "body=%s", resp.Body.String())
	updated := decodeBody[updateClaimResponse](t, resp)
	assert.Equal(t, claim.StatusInProgress, updated.Claim.Status)
	require.Len(t, updated.Notifications, 1)
	assert.Contains(t, updated.Notifications[0].Text, "Đang xử lý")

	resp = env.do(t, http.MethodGet, "/api/notifications?limit=10", &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	feed := decodeBody[notificationsResponse](t, resp)
	assert.Len(t, feed.Items, 2)
	assert.Equal(t, 2, feed.Unread)

	resp = env.do(t, http.MethodPost, "/api/notifications/read-all", &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(2), decodeBody[map[string]int64](t, resp)["updated"])

	resp = env.do(t, http.MethodGet, "/api/notifications", &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, decodeBody[notificationsResponse](t, resp).Unread)

	resp = env.do(t, http.MethodGet, "/api/notifications?limit=zero", &apiViewer, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAPIStatusChangeDeniedForDepartmentStaff(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	createTestClaim(t, env)

	resp := env.do(t, http.MethodPatch, "/api/claims/CLM-001/status", &apiDyeing, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, []string{"status"}, decodeBody[apiErrorResponse](t, resp).Names)

	resp = env.do(t, http.MethodPatch, "/api/claims/CLM-001/status", &apiManager, map[string]string{"status": "archived"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(errs.KindUnknownStatus), decodeBody[apiErrorResponse](t, resp).Kind)
}

func TestAPIUpdateClaimDocument(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	createTestClaim(t, env)

	resp := env.do(t, http.MethodGet, "/api/claims/CLM-001", &apiDyeing, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	current := decodeBody[claim.Claim](t, resp)

	edited := current
	edited.RootCause.RootCause = "Nhiệt độ bể nhuộm dao động"
	resp = env.do(t, http.MethodPut, "/api/claims/CLM-001", &apiDyeing, edited)
	require.Equal(t, http.StatusOK, resp.Code, "body=%s", resp.Body.String())
	result := decodeBody[updateClaimResponse](t, resp)
	assert.Equal(t, "Nhiệt độ bể nhuộm dao động", result.Claim.RootCause.RootCause)
	assert.Len(t, result.Notifications, 1)

	renamed := current
	renamed.ID = "CLM-999"
	resp = env.do(t, http.MethodPut, "/api/claims/CLM-001", &apiManager, renamed)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(errs.KindImmutableField), decodeBody[apiErrorResponse](t, resp).Kind)
}

func TestAPICommentOnClaim(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	createTestClaim(t, env)

	resp := env.do(t, http.MethodPost, "/api/claims/CLM-001/comments", &apiDyeing, map[string]string{"text": "Đã nhận mẫu lỗi"})
	require.Equal(t, http.StatusCreated, resp.Code, "body=%s", resp.Body.String())
	updated := decodeBody[claim.Claim](t, resp)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, apiDyeing.ID, updated.Comments[0].Author.ID)

	resp = env.do(t, http.MethodPost, "/api/claims/CLM-001/comments", &apiDyeing, map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func multipartFiles(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (e apiTestEnv) upload(t *testing.T, target string, actor claim.User, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartFiles(t, files)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+testToken(t, actor))
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func TestAPIAttachmentLifecycle(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	createTestClaim(t, env)

	resp := env.upload(t, "/api/claims/CLM-001/attachments", apiManager, map[string]string{"photo.jpg": "jpeg-bytes"})
	require.Equal(t, http.StatusCreated, resp.Code, "body=%s", resp.Body.String())
	updated := decodeBody[claim.Claim](t, resp)
	require.Len(t, updated.Attachments, 1)
	attachment := updated.Attachments[0]
	assert.Equal(t, "photo.jpg", attachment.Name)
	assert.Equal(t, claim.AttachmentImage, attachment.Kind)
	require.True(t, strings.HasPrefix(attachment.URL, "http://localhost/files/CLM-001/"), attachment.URL)

	filePath := strings.TrimPrefix(attachment.URL, "http://localhost")
	resp = env.do(t, http.MethodGet, filePath, nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "jpeg-bytes", resp.Body.String())

	target := "/api/claims/CLM-001/attachments?" + url.Values{"url": {attachment.URL}}.Encode()
	resp = env.do(t, http.MethodDelete, target, &apiManager, nil)
	require.Equal(t, http.StatusOK, resp.Code, "body=%s", resp.Body.String())
	assert.Empty(t, decodeBody[claim.Claim](t, resp).Attachments)

	resp = env.do(t, http.MethodGet, filePath, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPIAttachmentErrors(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	createTestClaim(t, env)

	resp := env.upload(t, "/api/claims/CLM-001/attachments", apiManager, map[string]string{
		"big.pdf":   strings.Repeat("x", 100),
		"small.pdf": "ok",
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	apiErr := decodeBody[apiErrorResponse](t, resp)
	assert.Equal(t, []string{"big.pdf"}, apiErr.Names)

	resp = env.upload(t, "/api/claims/CLM-001/attachments?section=rca", apiViewer, map[string]string{"a.pdf": "ok"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.upload(t, "/api/claims/CLM-001/attachments?section=closure", apiManager, map[string]string{"a.pdf": "ok"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.do(t, http.MethodDelete, "/api/claims/CLM-001/attachments?url=http%3A%2F%2Flocalhost%2Ffiles%2Fnope", &apiManager, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPIReport(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	createTestClaim(t, env)
	resp := env.do(t, http.MethodPost, "/api/claims/CLM-001/report", &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "# Báo cáo 8D CLM-001", decodeBody[reportResponse](t, resp).Report)

	failing := setupAPI(t, stubReportGenerator{err: errors.New("upstream 500: quota exceeded")})
	createTestClaim(t, failing)
	resp = failing.do(t, http.MethodPost, "/api/claims/CLM-001/report", &apiViewer, nil)
	require.Equal(t, http.StatusBadGateway, resp.Code)
	apiErr := decodeBody[apiErrorResponse](t, resp)
	assert.Equal(t, string(errs.KindReportGenerationFailed), apiErr.Kind)
	assert.Empty(t, apiErr.Detail)
	assert.NotContains(t, resp.Body.String(), "quota")
}

func TestAPIDashboardAccess(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})
	createTestClaim(t, env)

	resp := env.do(t, http.MethodGet, "/api/dashboard", &apiViewer, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/dashboard", &apiManager, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	dashboard := decodeBody[claims.Dashboard](t, resp)
	assert.Equal(t, 1, dashboard.Total)
	require.Len(t, dashboard.Urgent, 1)
	assert.Equal(t, "CLM-001", dashboard.Urgent[0].ID)
}

func TestAPIUserAdministration(t *testing.T) {
	t.Parallel()

	env := setupAPI(t, stubReportGenerator{})

	newUser := map[string]string{"id": "user-9", "name": "Đỗ Văn Hải", "role": "QC Staff", "department": "QC", "email": "hai@example.com"}
	resp := env.do(t, http.MethodPost, "/api/users", &apiManager, newUser)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = env.do(t, http.MethodPost, "/api/users", &apiAdmin, newUser)
	require.Equal(t, http.StatusCreated, resp.Code, "body=%s", resp.Body.String())

	newUser["email"] = "not-an-email"
	resp = env.do(t, http.MethodPut, "/api/users/user-9", &apiAdmin, newUser)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, []string{"email"}, decodeBody[apiErrorResponse](t, resp).Names)

	newUser["email"] = "hai@example.com"
	newUser["id"] = "user-10"
	resp = env.do(t, http.MethodPut, "/api/users/user-9", &apiAdmin, newUser)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(errs.KindImmutableField), decodeBody[apiErrorResponse](t, resp).Kind)

	newUser["id"] = ""
	newUser["role"] = "Admin"
	resp = env.do(t, http.MethodPut, "/api/users/user-9", &apiAdmin, newUser)
	require.Equal(t, http.StatusOK, resp.Code, "body=%s", resp.Body.String())
	assert.Equal(t, claim.RoleAdmin, decodeBody[claim.User](t, resp).Role)

	resp = env.do(t, http.MethodGet, "/api/users", &apiViewer, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeBody[[]claim.User](t, resp), 5)
}

func TestStatusForKind(t *testing.T) {
	t.Parallel()

	testCases := map[errs.Kind]int{
		errs.KindPermissionDenied:       http.StatusForbidden,
		errs.KindUnknownField:           http.StatusBadRequest,
		errs.KindUnknownStatus:          http.StatusBadRequest,
		errs.KindImmutableField:         http.StatusBadRequest,
		errs.KindInvalidInput:           http.StatusBadRequest,
		errs.KindNotFound:               http.StatusNotFound,
		errs.KindFileTooLarge:           http.StatusRequestEntityTooLarge,
		errs.KindUploadFailed:           http.StatusBadGateway,
		errs.KindReportGenerationFailed: http.StatusBadGateway,
		errs.KindPersistenceFailed:      http.StatusInternalServerError,
		"":                              http.StatusInternalServerError,
	}
	for kind, want := range testCases {
		assert.Equal(t, want, statusForKind(kind), "kind=%q", kind)
	}
}

func TestActorTokenRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now()
	token, expireAt, err := issueActorToken(testJWTSecret, apiManager, time.Hour, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), expireAt, time.Second)

	subject, err := parseActorToken(testJWTSecret, token)
	require.NoError(t, err)
	assert.Equal(t, apiManager.ID, subject)

	_, err = parseActorToken("other-secret", token)
	assert.Error(t, err)

	expired, _, err := issueActorToken(testJWTSecret, apiManager, time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = parseActorToken(testJWTSecret, expired)
	assert.Error(t, err)

	_, _, err = issueActorToken("", apiManager, time.Hour, now)
	assert.Error(t, err)
}

func TestClaimDocumentSchema(t *testing.T) {
	t.Parallel()

	raw, err := claimDocumentSchema()
	require.NoError(t, err)
	for _, want := range []string{`"customerName"`, `"rootCauseAnalysis"`, `"in_progress"`, `"title": "Claim"`} {
		assert.Contains(t, string(raw), want)
	}
}
