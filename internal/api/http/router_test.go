package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spindit/locker-service/internal/api/http/handlers"
	"github.com/spindit/locker-service/internal/auth"
	"github.com/spindit/locker-service/internal/config"
	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/events"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/repository/memory"
	"github.com/spindit/locker-service/internal/service"
	"github.com/spindit/locker-service/internal/validation"
)

type testServer struct {
	app    *fiber.App
	store  *repository.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, devTools bool) *testServer {
	t.Helper()
	store := memory.New().Repositories()
	cfg := config.Config{
		Auth:       config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 30, BcryptCost: bcrypt.MinCost},
		Assignment: config.AssignmentConfig{AutoReserve: true, LockTTLSeconds: 5},
	}
	v := validation.New()
	dispatcher := events.NewInMemoryDispatcher()

	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		Store: store, Dispatcher: dispatcher, Config: cfg.Assignment,
	})
	assignments.RegisterHandlers()
	requests := service.NewRequestService(service.RequestDependencies{
		Store: store, Assignments: assignments, Dispatcher: dispatcher, Validator: v,
	})
	authService := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: store.Users, Validator: v})

	routes := RouteConfig{
		Health:         handlers.NewHealthHandler("locker-service", "test", nil),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(service.NewUserService(service.UserDependencies{Store: store, Validator: v, BcryptCost: bcrypt.MinCost})),
		Zones:          handlers.NewZonesHandler(service.NewZoneService(service.ZoneDependencies{Store: store, Validator: v})),
		Lockers:        handlers.NewLockersHandler(service.NewLockerService(service.LockerDependencies{Store: store, Validator: v})),
		Requests:       handlers.NewRequestsHandler(requests, assignments),
		StaffRequests:  handlers.NewStaffRequestsHandler(requests, assignments),
		Children:       handlers.NewChildrenHandler(service.NewChildService(store.Children, v)),
		Dashboard:      handlers.NewDashboardHandler(service.NewDashboardService(store, nil, nil)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users),
	}
	if devTools {
		routes.DevTools = handlers.NewDevToolsHandler(service.NewDevToolsService(authService, requests, nil))
	}

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	RegisterRoutes(app, routes)
	return &testServer{app: app, store: store, tokens: authService.TokenManager()}
}

// staffToken stores a staff account and signs a token for it.
func (s *testServer) staffToken(t *testing.T) string {
	t.Helper()
	u := &domain.User{Email: "staff@example.test", FullName: "Front Office", Language: domain.DefaultLanguage, IsStaff: true}
	require.NoError(t, s.store.Users.Create(context.Background(), u))
	token, err := s.tokens.GenerateToken(u)
	require.NoError(t, err)
	return token.Value
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data object in %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

var guardianRequest = map[string]any{
	"requester_name":    "Alex Johnson",
	"requester_address": "Bahnhofstrasse 10\n8001 Zürich",
	"requester_phone":   "+41442010001",
	"student_name":      "Emma Johnson",
	"student_class":     "6A",
	"school_year":       "2025/26",
	"preferred_locker":  "102",
}

func TestGuardianFlow(t *testing.T) {
	s := newTestServer(t, false)
	locker := &domain.Locker{Number: 102, Status: domain.LockerStatusFree}
	require.NoError(t, s.store.Lockers.Create(context.Background(), locker))

	status, body := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"email": "parent@example.test", "password": "Spindit#10", "password_confirm": "Spindit#10",
		"profile": map[string]any{"full_name": "Alex Johnson"},
	})
	require.Equal(t, http.StatusCreated, status, body)
	token := data(t, body)["auth"].(map[string]any)["token"].(string)

	status, body = s.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "parent@example.test", data(t, body)["email"])
	assert.NotContains(t, data(t, body), "password_hash")

	status, body = s.do(t, http.MethodPost, "/requests", token, guardianRequest)
	require.Equal(t, http.StatusCreated, status, body)
	requestID := data(t, body)["id"].(string)
	assert.Equal(t, "reserved", data(t, body)["status"])

	status, body = s.do(t, http.MethodGet, "/requests", token, nil)
	require.Equal(t, http.StatusOK, status)
	page := data(t, body)
	assert.EqualValues(t, 1, page["total_items"])
	assert.EqualValues(t, 20, page["per_page"])

	status, body = s.do(t, http.MethodGet, "/assignments", token, nil)
	require.Equal(t, http.StatusOK, status)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, locker.ID, items[0].(map[string]any)["locker_id"])

	status, body = s.do(t, http.MethodPost, "/requests/"+requestID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "cancelled", data(t, body)["status"])
	freed, err := s.store.Lockers.GetByID(context.Background(), locker.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LockerStatusFree, freed.Status)

	status, body = s.do(t, http.MethodGet, "/staff/dashboard", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))
}

func TestAuthAndValidationErrors(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, http.MethodGet, "/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
	assert.NotEmpty(t, body["error"].(map[string]any)["request_id"])

	status, _ = s.do(t, http.MethodGet, "/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"email": "nope", "password": "short", "password_confirm": "short",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	fields := body["error"].(map[string]any)["details"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	status, body = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "nobody@example.test", "password": "Spindit#10",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestStaffAssignmentEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	token := s.staffToken(t)

	status, body := s.do(t, http.MethodPost, "/staff/zones", token, map[string]any{"name": "Zone A"})
	require.Equal(t, http.StatusCreated, status, body)
	zoneID := data(t, body)["id"].(string)

	status, body = s.do(t, http.MethodPost, "/staff/lockers", token, map[string]any{"number": 7, "zone_id": zoneID})
	require.Equal(t, http.StatusCreated, status, body)
	lockerID := data(t, body)["id"].(string)

	status, body = s.do(t, http.MethodPost, "/staff/lockers", token, map[string]any{"number": 7})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	guardian := &domain.User{Email: "parent@example.test", Language: domain.DefaultLanguage}
	require.NoError(t, s.store.Users.Create(context.Background(), guardian))
	input := map[string]any{"user_id": guardian.ID}
	for k, v := range guardianRequest {
		input[k] = v
	}
	input["preferred_locker"] = ""
	status, body = s.do(t, http.MethodPost, "/staff/requests", token, input)
	require.Equal(t, http.StatusCreated, status, body)
	requestID := data(t, body)["id"].(string)

	status, body = s.do(t, http.MethodGet, "/staff/requests/"+requestID+"/assignment", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, lockerID, data(t, body)["locker_id"])

	status, body = s.do(t, http.MethodPut, "/staff/requests/"+requestID+"/assignment", token, map[string]any{"locker_id": nil})
	require.Equal(t, http.StatusOK, status, body)
	assert.Nil(t, body["data"])

	status, body = s.do(t, http.MethodGet, "/staff/requests/"+requestID+"/assignment", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, body = s.do(t, http.MethodPut, "/staff/requests/"+requestID+"/assignment", token, map[string]any{"locker_id": lockerID})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, lockerID, data(t, body)["locker_id"])

	status, body = s.do(t, http.MethodGet, "/staff/lockers?status=reserved", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, data(t, body)["total_items"])

	status, body = s.do(t, http.MethodGet, "/staff/lockers?status=broken", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/staff/assignments/audit", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(t, body)["consistent"])

	status, body = s.do(t, http.MethodPost, "/staff/requests/bulk/status", token, map[string]any{
		"ids": []string{requestID, "missing"}, "status": "assigned",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, data(t, body)["succeeded"], 1)
	assert.Len(t, data(t, body)["failed"], 1)

	status, body = s.do(t, http.MethodGet, "/staff/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status)
	metrics := data(t, body)["metrics"].(map[string]any)
	assert.EqualValues(t, 1, metrics["total_lockers"])
	assert.EqualValues(t, 0, metrics["free_lockers"])

	status, _ = s.do(t, http.MethodDelete, "/staff/lockers/"+lockerID, token, nil)
	assert.Equal(t, http.StatusConflict, status)
	status, _ = s.do(t, http.MethodDelete, "/staff/requests/"+requestID, token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.do(t, http.MethodDelete, "/staff/lockers/"+lockerID, token, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestZoneMapRoundTrip(t *testing.T) {
	s := newTestServer(t, false)
	token := s.staffToken(t)
	zone := &domain.Zone{Name: "Zone A"}
	require.NoError(t, s.store.Zones.Create(context.Background(), zone))

	req := httptest.NewRequest(http.MethodPut, "/staff/zones/"+zone.ID+"/map", bytes.NewReader([]byte("png-bytes")))
	req.Header.Set(fiber.HeaderContentType, "image/png")
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/staff/zones/"+zone.ID+"/map", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))
}

func TestDevToolsRoutesAreGated(t *testing.T) {
	status, _ := newTestServer(t, false).do(t, http.MethodGet, "/dev/templates", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	s := newTestServer(t, true)
	status, body := s.do(t, http.MethodGet, "/dev/templates", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 10)

	status, body = s.do(t, http.MethodPost, "/dev/scenarios/2", "", map[string]any{"steps": []string{"signup"}})
	require.Equal(t, http.StatusOK, status, body)
	d := data(t, body)
	steps := d["steps"].([]any)
	assert.Equal(t, "success", steps[0].(map[string]any)["status"])
	assert.Equal(t, "success", steps[1].(map[string]any)["status"])
	assert.Equal(t, "idle", steps[3].(map[string]any)["status"])
	assert.NotEmpty(t, d["auth"].(map[string]any)["token"])

	status, body = s.do(t, http.MethodPost, "/dev/scenarios/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestHealthLive(t *testing.T) {
	s := newTestServer(t, false)
	status, body := s.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}
