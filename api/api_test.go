package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gps-toll-system/auth"
	"gps-toll-system/config"
	"gps-toll-system/dashboard"
	"gps-toll-system/logger"
	"gps-toll-system/metrics"
	"gps-toll-system/session"
	"gps-toll-system/tables"
	"gps-toll-system/tolling"
)

const usersCSV = "username,password,vehicleNumber,vehicleRdNumber,phone,gpsId,amount,name,address,vehicleType\n" +
	"alice,pw1,KA01,RD1,555,G1,100.00,Alice,Main St,car\n" +
	"bob,pw2,KA02,RD2,556,G2,50.00,Bob,Side St\n"

const historyCSV = "2024-05-01 08:00:00,13.21,77.55,13.22,77.56,2,90,0.2,0,5,10,20,35.2\n" +
	"2024-05-02 18:00:00,13.21,77.55,13.22,77.56,4,120,0.4,4,5,10,20,39.4\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"users.csv": usersCSV,
		"admin.csv": "root,toor\n",
		"KA01.csv":  historyCSV,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	log := logger.NewNop()
	m := metrics.New()
	src := tables.NewDirSource(dir)
	processor := tolling.NewProcessor(tolling.Options{
		QueueSize: 1,
		Tracker:   tolling.NewMemoryTracker(),
		Pricer:    tolling.NewPricer(config.TollingConfig{}),
		Wallet:    tolling.NewWallet(src, "users.csv", true),
		History:   src,
		Logger:    log,
		Metrics:   m,
	})

	h := NewHandler(Deps{
		Verifier:    auth.NewVerifier(src, log),
		UsersTable:  auth.Table{Name: "users.csv", Header: true},
		AdminsTable: auth.Table{Name: "admin.csv"},
		Sessions:    session.NewManager("test-secret", time.Hour, session.NewMemoryStore()),
		Dashboard:   dashboard.NewService(src, "users.csv", true, log, m),
		Processor:   processor,
		Logger:      log,
		Metrics:     m,
	})
	srv := httptest.NewServer(RegisterRoutes(h, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func login(t *testing.T, srv *httptest.Server, path, username, password string) string {
	t.Helper()
	resp, body := do(t, "POST", srv.URL+path, "", `{"username":"`+username+`","password":"`+password+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s status = %d body = %v", username, resp.StatusCode, body)
	}
	return body["token"].(string)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"user ok", "/login", `{"username":"alice","password":"pw1"}`, http.StatusOK, ""},
		{"wrong password", "/login", `{"username":"alice","password":"wrong"}`, http.StatusUnauthorized, "Invalid username or password."},
		{"header row is not a user", "/login", `{"username":"username","password":"password"}`, http.StatusUnauthorized, "Invalid username or password."},
		{"admin ok", "/admin/login", `{"username":"root","password":"toor"}`, http.StatusOK, ""},
		{"user is not an admin", "/admin/login", `{"username":"alice","password":"pw1"}`, http.StatusUnauthorized, "Invalid admin username or password."},
		{"bad json", "/login", `{`, http.StatusBadRequest, "Invalid request payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, "POST", srv.URL+tt.path, "", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, tt.wantStatus, body)
			}
			if tt.wantError != "" && body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
			if tt.wantError == "" && body["token"] == "" {
				t.Error("missing token")
			}
		})
	}
}

func TestUserDashboard(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "/login", "alice", "pw1")

	resp, profile := do(t, "GET", srv.URL+"/me/profile", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d", resp.StatusCode)
	}
	if profile["name"] != "Alice" || profile["vehicle_number"] != "KA01" || profile["amount"] != "100.00" {
		t.Errorf("profile = %v", profile)
	}
	if _, ok := profile["password"]; ok {
		t.Error("profile leaks the password")
	}

	resp, history := do(t, "GET", srv.URL+"/me/history", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d", resp.StatusCode)
	}
	stats := history["stats"].(map[string]interface{})
	if stats["travel_count"] != 2.0 || stats["avg_distance"] != 3.0 {
		t.Errorf("stats = %v", stats)
	}
	entries := history["entries"].([]interface{})
	if entries[0].(map[string]interface{})["timestamp"] != "2024-05-02 18:00:00" {
		t.Errorf("entries not newest first: %v", entries)
	}
}

func TestSessionRules(t *testing.T) {
	srv := newTestServer(t)
	user := login(t, srv, "/login", "alice", "pw1")
	admin := login(t, srv, "/admin/login", "root", "toor")

	cases := []struct {
		name       string
		path       string
		token      string
		wantStatus int
	}{
		{"no session", "/me/profile", "", http.StatusUnauthorized},
		{"garbage token", "/me/profile", "xyz", http.StatusUnauthorized},
		{"admin on user page", "/me/profile", admin, http.StatusForbidden},
		{"user on admin page", "/admin/users", user, http.StatusForbidden},
		{"admin overview", "/admin/users", admin, http.StatusOK},
		{"admin vehicle history", "/admin/vehicles/KA01/history", admin, http.StatusOK},
		{"charges without ledger", "/admin/vehicles/KA01/charges", admin, http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, body := do(t, "GET", srv.URL+c.path, c.token, "")
			if resp.StatusCode != c.wantStatus {
				t.Errorf("status = %d, want %d (%v)", resp.StatusCode, c.wantStatus, body)
			}
		})
	}

	// bob's user row is malformed, so he has no profile.
	bob := login(t, srv, "/login", "bob", "pw2")
	if resp, _ := do(t, "GET", srv.URL+"/me/profile", bob, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("bob profile status = %d, want 404", resp.StatusCode)
	}
}

func TestLogoutAndCookie(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, "POST", srv.URL+"/login", "", `{"username":"alice","password":"pw1"}`)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != body["token"] {
		t.Fatalf("session cookie = %v", cookie)
	}

	req, _ := http.NewRequest("GET", srv.URL+"/me/profile", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: cookie.Value})
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Errorf("cookie auth status = %d", r.StatusCode)
	}

	token := cookie.Value
	if resp, _ := do(t, "POST", srv.URL+"/logout", token, ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	if resp, _ := do(t, "GET", srv.URL+"/me/profile", token, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("profile after logout status = %d, want 401", resp.StatusCode)
	}

	// A cookie that no longer parses is still cleared.
	req, _ = http.NewRequest("POST", srv.URL+"/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token + "x"})
	r, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusUnauthorized {
		t.Errorf("second logout status = %d, want 401", r.StatusCode)
	}
	var cleared *http.Cookie
	for _, c := range r.Cookies() {
		if c.Name == sessionCookie {
			cleared = c
		}
	}
	if cleared == nil || cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("cookie after failed logout = %v, want cleared", cleared)
	}
}

func TestReceiveGPS(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{"invalid json", `not json`, http.StatusBadRequest, "error", "Invalid JSON"},
		{"missing latitude", `{"vehicle_id":"KA01","timestamp":"2024-05-01 08:00:00","longitude":77.5}`, http.StatusBadRequest, "error", "Missing data"},
		{"null vehicle", `{"vehicle_id":null,"timestamp":"2024-05-01 08:00:00","longitude":77.5,"latitude":13.2}`, http.StatusBadRequest, "error", "Missing data"},
		{"bad timestamp", `{"vehicle_id":"KA01","timestamp":"yesterday","longitude":77.5,"latitude":13.2}`, http.StatusBadRequest, "", ""},
		{"accepted", `{"vehicle_id":1234,"timestamp":"2024-05-01 08:00:00","longitude":77.5,"latitude":13.2}`, http.StatusOK, "message", "GPS data received"},
		{"queue full", `{"vehicle_id":"KA01","timestamp":"2024-05-01 08:01:00","longitude":77.5,"latitude":13.2}`, http.StatusServiceUnavailable, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, "POST", srv.URL+"/gps", "", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, tt.wantStatus, body)
			}
			if tt.wantKey != "" && body[tt.wantKey] != tt.wantValue {
				t.Errorf("%s = %v, want %q", tt.wantKey, body[tt.wantKey], tt.wantValue)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	login(t, srv, "/login", "alice", "pw1")

	if resp, body := do(t, "GET", srv.URL+"/healthz", "", ""); resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", resp.StatusCode, body)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `toll_logins_total{result="success",role="user"} 1`) {
		t.Errorf("metrics missing login counter:\n%s", buf.String())
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}
