package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/internal/db"
	"agentdesk/internal/handler"
	"agentdesk/internal/repository"
	"agentdesk/internal/room"
	"agentdesk/internal/router"
	"agentdesk/internal/service"
	"agentdesk/internal/summary"
	"agentdesk/internal/timer"
)

type authResponse struct {
	Token   string `json:"token"`
	Account struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"account"`
}

type sessionEnvelope struct {
	Session struct {
		User struct {
			ID       string `json:"id"`
			FullName string `json:"fullName"`
			Role     string `json:"role"`
		} `json:"user"`
		Attendance *struct {
			ID string `json:"id"`
		} `json:"attendance"`
		Break *struct {
			ID           string  `json:"id"`
			AttendanceID *string `json:"attendanceId"`
		} `json:"break"`
		Call *struct {
			ID       string `json:"id"`
			RoomID   string `json:"roomId"`
			TaskType string `json:"taskType"`
		} `json:"call"`
		RoomURL string `json:"roomUrl"`
	} `json:"session"`
}

type summaryEnvelope struct {
	Date    string `json:"date"`
	Summary []struct {
		UserID            string `json:"userId"`
		FullName          string `json:"fullName"`
		TotalWorkMinutes  int    `json:"totalWorkMinutes"`
		TotalBreakMinutes int    `json:"totalBreakMinutes"`
		TotalCallSeconds  int    `json:"totalCallSeconds"`
	} `json:"summary"`
	Attendance []json.RawMessage `json:"attendance"`
	Calls      []json.RawMessage `json:"calls"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestDashboardFlow(t *testing.T) {
	engine := setupTestEngine(t)

	agent := registerUser(t, engine, "agent@example.com", "123456")
	admin := registerUser(t, engine, "admin@example.com", "123456")

	session := getSession(t, engine, agent.Token)
	assert.Equal(t, "agent", session.Session.User.Role)
	assert.Nil(t, session.Session.Attendance)

	status, body := requestJSON(t, engine, http.MethodPost, "/api/attendance/clock-in", agent.Token, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	// Clocking in again from a second tab must be rejected.
	status, body = requestJSON(t, engine, http.MethodPost, "/api/attendance/clock-in", agent.Token, nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "interval_already_open", decodeError(t, body).Error.Code)

	status, body = requestJSON(t, engine, http.MethodPost, "/api/breaks/start", agent.Token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var afterBreak sessionEnvelope
	require.NoError(t, json.Unmarshal(body, &afterBreak))
	require.NotNil(t, afterBreak.Session.Break)
	require.NotNil(t, afterBreak.Session.Break.AttendanceID)
	assert.Equal(t, afterBreak.Session.Attendance.ID, *afterBreak.Session.Break.AttendanceID)

	status, _ = requestJSON(t, engine, http.MethodPost, "/api/breaks/end", agent.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = requestJSON(t, engine, http.MethodPost, "/api/calls/start", agent.Token, map[string]string{
		"taskType": "Lead Call",
		"notes":    "new prospect",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var inCall sessionEnvelope
	require.NoError(t, json.Unmarshal(body, &inCall))
	require.NotNil(t, inCall.Session.Call)
	assert.Equal(t, "Lead Call", inCall.Session.Call.TaskType)
	assert.Equal(t, "https://meet.test/"+inCall.Session.Call.RoomID, inCall.Session.RoomURL)

	status, _ = requestJSON(t, engine, http.MethodPost, "/api/calls/end", agent.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = requestJSON(t, engine, http.MethodPost, "/api/calls/end", agent.Token, nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "not_open", decodeError(t, body).Error.Code)

	status, _ = requestJSON(t, engine, http.MethodPost, "/api/attendance/clock-out", agent.Token, nil)
	require.Equal(t, http.StatusOK, status)

	// Agents cannot see the admin summary.
	status, _ = requestJSON(t, engine, http.MethodGet, "/api/admin/summary", agent.Token, nil)
	require.Equal(t, http.StatusForbidden, status)

	today := time.Now().UTC().Format("2006-01-02")
	status, body = requestJSON(t, engine, http.MethodGet, "/api/admin/summary?date="+today+"&userId="+session.Session.User.ID, admin.Token, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var report summaryEnvelope
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, today, report.Date)
	require.Len(t, report.Summary, 1)
	assert.Equal(t, "agent", report.Summary[0].FullName)
	assert.Len(t, report.Attendance, 1)
	assert.Len(t, report.Calls, 1)

	status, body = requestJSON(t, engine, http.MethodGet, "/api/admin/users", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var users struct {
		Users []json.RawMessage `json:"users"`
	}
	require.NoError(t, json.Unmarshal(body, &users))
	assert.Len(t, users.Users, 2)
}

func TestAuthErrors(t *testing.T) {
	engine := setupTestEngine(t)
	registerUser(t, engine, "dup@example.com", "123456")

	status, body := requestJSON(t, engine, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "DUP@example.com",
		"password": "123456",
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email_exists", decodeError(t, body).Error.Code)

	status, _ = requestJSON(t, engine, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "dup@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = requestJSON(t, engine, http.MethodGet, "/api/dashboard", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = requestJSON(t, engine, http.MethodGet, "/api/dashboard", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = requestJSON(t, engine, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "dup@example.com",
		"password": "123456",
	})
	require.Equal(t, http.StatusOK, status)
	var login authResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "dup@example.com", login.Account.Email)
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func setupTestEngine(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	migrations, err := db.Migrations("")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(database, migrations))

	accountRepo := repository.NewAccountRepository(database)
	userRepo := repository.NewUserRepository(database)
	intervalRepo := repository.NewIntervalRepository(database)

	authService := service.NewAuthService(accountRepo, "test-secret", 24*time.Hour)
	dashboardService := service.NewDashboardService(
		userRepo,
		timer.NewEngine(intervalRepo),
		summary.NewEngine(userRepo, intervalRepo),
		room.NewProvisioner("meet.test"),
		[]string{"admin@example.com"},
	)

	return router.New(authService, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Admin:     handler.NewAdminHandler(dashboardService),
	}, []string{"http://localhost:5173"})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, status, "register %s: %s", email, string(body))

	var resp authResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token, "empty token for %s", email)
	return resp
}

func getSession(t *testing.T, server http.Handler, token string) sessionEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var resp sessionEnvelope
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func decodeError(t *testing.T, body []byte) apiErrorEnvelope {
	t.Helper()
	var resp apiErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
