// NagarAlert Hub - Civic Incident Reporting and Real-Time Area Alerts
// Copyright 2026 NagarAlert contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nagaralert/hub

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nagaralert/hub/internal/alert"
	"github.com/nagaralert/hub/internal/auth"
	"github.com/nagaralert/hub/internal/config"
	"github.com/nagaralert/hub/internal/logging"
	"github.com/nagaralert/hub/internal/models"
	"github.com/nagaralert/hub/internal/realtime"
	"github.com/nagaralert/hub/internal/store"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "disabled",
		Format: "json",
		Output: io.Discard,
	})
}

// fakeAnalyzer returns a canned analysis.
type fakeAnalyzer struct {
	response string
	err      error
}

func (f *fakeAnalyzer) AnalyzeImage(context.Context, []byte, string, string) (string, error) {
	return f.response, f.err
}

type testEnv struct {
	server  *httptest.Server
	store   *store.BadgerStore
	handler *Handler
	jwt     *auth.JWTManager
}

func newTestEnv(t *testing.T, analyzer *fakeAnalyzer) *testEnv {
	t.Helper()

	st, err := store.NewBadgerStore("")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret-at-least-32-characters!!",
			SessionTimeout:    time.Hour,
			RateLimitDisabled: true,
		},
	}

	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry)
	orchestrator := alert.NewOrchestrator(st, nil, broadcaster)
	jwtManager := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)

	var a *fakeAnalyzer
	if analyzer != nil {
		a = analyzer
	}

	handler := NewHandler(cfg, st, registry, broadcaster, orchestrator, nil, nil, nil, jwtManager)
	if a != nil {
		handler.analyzer = a
	}

	middleware := NewMiddleware(&cfg.Security, jwtManager)
	server := httptest.NewServer(NewRouter(handler, middleware).Setup())
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: st, handler: handler, jwt: jwtManager}
}

func decodeEnvelope(t *testing.T, resp *http.Response) *models.APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return &envelope
}

func dataMap(t *testing.T, envelope *models.APIResponse) map[string]interface{} {
	t.Helper()
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", envelope.Data)
	}
	return data
}

func postJSON(t *testing.T, url string, body interface{}, token string) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, url, body, token)
}

func doJSON(t *testing.T, method, url string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func registerUser(t *testing.T, env *testEnv, mobile, password string) {
	t.Helper()
	resp := postJSON(t, env.server.URL+"/api/v1/users/register", map[string]interface{}{
		"first_name": "Asha",
		"mobile":     mobile,
		"password":   password,
		"area":       "Sector 4",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register returned %d", resp.StatusCode)
	}
}

func adminToken(t *testing.T, env *testEnv) string {
	t.Helper()
	admin := &models.User{Mobile: "910000000001", Role: "admin", FirstName: "Admin"}
	hash, err := auth.HashPassword("admin-password")
	if err != nil {
		t.Fatal(err)
	}
	admin.PasswordHash = hash
	if err := env.store.SaveUser(context.Background(), admin); err != nil {
		t.Fatal(err)
	}
	token, err := env.jwt.GenerateToken(admin.Mobile, "admin")
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		resp, err := http.Get(env.server.URL + path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		envelope := decodeEnvelope(t, resp)
		if resp.StatusCode != http.StatusOK || envelope.Status != "success" {
			t.Errorf("%s returned %d / %q", path, resp.StatusCode, envelope.Status)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	registerUser(t, env, "919876543210", "citizen-password")

	// Duplicate registration conflicts.
	resp := postJSON(t, env.server.URL+"/api/v1/users/register", map[string]interface{}{
		"first_name": "Asha",
		"mobile":     "919876543210",
		"password":   "citizen-password",
	}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register returned %d", resp.StatusCode)
	}

	// Login issues a token.
	resp = postJSON(t, env.server.URL+"/api/v1/users/login", map[string]string{
		"mobile":   "919876543210",
		"password": "citizen-password",
	}, "")
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}
	data := dataMap(t, envelope)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("expected token in login response")
	}
	claims, err := env.jwt.ValidateToken(token)
	if err != nil || claims.Role != "user" {
		t.Errorf("unexpected claims %+v, err %v", claims, err)
	}

	// Wrong password is rejected with the same message as unknown user.
	resp = postJSON(t, env.server.URL+"/api/v1/users/login", map[string]string{
		"mobile":   "919876543210",
		"password": "wrong",
	}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password returned %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.server.URL+"/api/v1/users/register", map[string]interface{}{
		"first_name": "Asha",
		"mobile":     "123",
		"password":   "short",
	}, "")
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %+v", envelope.Error)
	}
}

func submitMultipartReport(t *testing.T, env *testEnv, area string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("fake-jpeg-bytes"))
	mw.WriteField("latitude", "28.61")
	mw.WriteField("longitude", "77.20")
	mw.WriteField("category", "Pothole")
	mw.WriteField("area", area)
	mw.WriteField("description", "Deep pothole near the market")
	mw.WriteField("user_id", "919876543210")
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/reports/submit", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestSubmitReportAutoVerifies(t *testing.T) {
	env := newTestEnv(t, &fakeAnalyzer{
		response: `{"is_civic_issue": true, "issue_type": "Pothole", "severity": "High", "description": "pothole"}`,
	})

	resp := submitMultipartReport(t, env, "Sector 4")
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit returned %d", resp.StatusCode)
	}

	data := dataMap(t, envelope)
	if data["status"] != models.StatusVerified {
		t.Errorf("expected auto-verified report, got %v", data["status"])
	}
	if data["report_id"] == "" {
		t.Error("expected report id")
	}
}

func TestSubmitReportAnalyzerFailureStaysPending(t *testing.T) {
	env := newTestEnv(t, &fakeAnalyzer{err: io.ErrUnexpectedEOF})

	resp := submitMultipartReport(t, env, "Sector 4")
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit returned %d", resp.StatusCode)
	}
	if data := dataMap(t, envelope); data["status"] != models.StatusPending {
		t.Errorf("expected pending report, got %v", data["status"])
	}
}

func TestSubmitReportRejectsBadCoordinates(t *testing.T) {
	env := newTestEnv(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "photo.jpg")
	fw.Write([]byte("x"))
	mw.WriteField("latitude", "95.0")
	mw.WriteField("longitude", "77.2")
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/reports/submit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range latitude, got %d", resp.StatusCode)
	}
}

func TestVerifyReportTriggersNotification(t *testing.T) {
	env := newTestEnv(t, nil)
	token := adminToken(t, env)

	report := &models.Report{Area: "Sector 4", Category: "Pothole", Status: models.StatusPending}
	id, err := env.store.SaveReport(context.Background(), report)
	if err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodPatch, env.server.URL+"/api/v1/reports/"+id+"/verify",
		map[string]string{"status": models.StatusVerified}, token)
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify returned %d", resp.StatusCode)
	}

	data := dataMap(t, envelope)
	notification, ok := data["notification"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected notification result, got %v", data)
	}
	if notification["status"] != alert.StatusCompleted {
		t.Errorf("unexpected notification %v", notification)
	}
	if notification["target_area"] != "Sector 4" {
		t.Errorf("unexpected target area %v", notification["target_area"])
	}

	got, err := env.store.GetReport(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusVerified {
		t.Errorf("report status not updated: %q", got.Status)
	}
}

func TestVerifyReportRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	registerUser(t, env, "919876543210", "citizen-password")

	userToken, err := env.jwt.GenerateToken("919876543210", "user")
	if err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodPatch, env.server.URL+"/api/v1/reports/some-id/verify",
		map[string]string{"status": models.StatusVerified}, userToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPatch, env.server.URL+"/api/v1/reports/some-id/verify",
		map[string]string{"status": models.StatusVerified}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestSolveReportResolves(t *testing.T) {
	env := newTestEnv(t, nil)
	token := adminToken(t, env)

	report := &models.Report{Area: "Sector 4", Status: models.StatusVerified}
	id, err := env.store.SaveReport(context.Background(), report)
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, env.server.URL+"/api/v1/solutions/solve", map[string]string{
		"report_id":   id,
		"description": "Filled and re-surfaced",
	}, token)
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("solve returned %d: %+v", resp.StatusCode, envelope.Error)
	}

	got, err := env.store.GetReport(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusResolved || got.SolutionID == "" {
		t.Errorf("expected resolved report with solution link, got %+v", got)
	}
}

func TestWhatsAppWebhookIgnoredWhenDisabled(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.server.URL+"/api/v1/webhook/whatsapp", map[string]interface{}{
		"typeWebhook": "incomingMessageReceived",
		"messageData": map[string]interface{}{
			"chatId":      "919876543210@c.us",
			"textMessage": "hello",
		},
	}, "")
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook returned %d", resp.StatusCode)
	}
	if data := dataMap(t, envelope); data["status"] != "ignored" {
		t.Errorf("expected ignored result without sender, got %v", data)
	}
}

func TestWSStatusReflectsConnections(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/api/v1/ws/status")
	if err != nil {
		t.Fatal(err)
	}
	envelope := decodeEnvelope(t, resp)
	data := dataMap(t, envelope)
	if data["connections"].(float64) != 0 {
		t.Errorf("expected 0 connections, got %v", data["connections"])
	}

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/v1/ws?client_id=test-client"
	conn := dialWS(t, wsURL)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.handler.registry.Count() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err = http.Get(env.server.URL + "/api/v1/ws/status")
	if err != nil {
		t.Fatal(err)
	}
	envelope = decodeEnvelope(t, resp)
	data = dataMap(t, envelope)
	if data["connections"].(float64) != 1 {
		t.Errorf("expected 1 connection, got %v", data["connections"])
	}
}

func TestAuditEndpointRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/api/v1/audit")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	token := adminToken(t, env)
	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	envelope := decodeEnvelope(t, resp)
	if resp.StatusCode != http.StatusOK || envelope.Status != "success" {
		t.Errorf("audit returned %d / %q", resp.StatusCode, envelope.Status)
	}
}

func TestRequestIDThreadsIntoLogs(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() {
		logging.Init(logging.Config{Level: "disabled", Format: "json", Output: io.Discard})
	})

	// A failing analyzer makes the submit handler log a warning; that
	// warning must carry the caller's request ID.
	env := newTestEnv(t, &fakeAnalyzer{err: errors.New("model offline")})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("fake-jpeg-bytes"))
	mw.WriteField("latitude", "28.61")
	mw.WriteField("longitude", "77.20")
	mw.WriteField("category", "Pothole")
	mw.WriteField("area", "Sector 4")
	mw.WriteField("description", "Deep pothole near the market")
	mw.WriteField("user_id", "919876543210")
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/reports/submit", &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-ID", "req-correlate-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit returned %d", resp.StatusCode)
	}

	logged := buf.String()
	if !strings.Contains(logged, "image analysis failed") {
		t.Fatalf("expected analysis warning logged, got %q", logged)
	}
	if !strings.Contains(logged, `"request_id":"req-correlate-1"`) {
		t.Errorf("expected log line to carry the request ID, got %q", logged)
	}
}
