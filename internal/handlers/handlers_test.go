package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"weddingrsvp/internal/mailer"
	"weddingrsvp/internal/match"
	"weddingrsvp/internal/models"
	"weddingrsvp/internal/security"
	"weddingrsvp/internal/service"
	"weddingrsvp/internal/token"
)

// memStore is a minimal in-memory service.GuestStore for handler tests.
type memStore struct {
	mu     sync.Mutex
	guests map[int64]*models.Guest
	nextID int64
}

func newMemStore(guests ...*models.Guest) *memStore {
	s := &memStore{guests: make(map[int64]*models.Guest)}
	for _, g := range guests {
		s.nextID++
		if g.ID == 0 {
			g.ID = s.nextID
		}
		s.guests[g.ID] = g
	}
	return s
}

func (s *memStore) GuestByID(ctx context.Context, id int64) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guests[id], nil
}

func (s *memStore) GuestByCode(ctx context.Context, code string) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guests {
		if g.GuestCode == code {
			return g, nil
		}
	}
	return nil, nil
}

func (s *memStore) GuestByEmail(ctx context.Context, email string) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guests {
		if g.Email != "" && strings.EqualFold(g.Email, email) {
			return g, nil
		}
	}
	return nil, nil
}

func (s *memStore) GuestByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guests {
		if g.Phone == phone || g.Phone == "+"+phone {
			return g, nil
		}
	}
	return nil, nil
}

func (s *memStore) GuestsByPhoneTail(ctx context.Context, last4 string) ([]*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Guest
	for _, g := range s.guests {
		if strings.HasSuffix(g.Phone, last4) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *memStore) GuestByMagicToken(ctx context.Context, tok string) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guests {
		if tok != "" && g.MagicLinkToken == tok {
			return g, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateGuest(ctx context.Context, g *models.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g.ID = s.nextID
	s.guests[g.ID] = g
	return nil
}

func (s *memStore) UpdateGuest(ctx context.Context, g *models.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guests[g.ID] = g
	return nil
}

func (s *memStore) UpdateEmail(ctx context.Context, guestID int64, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.guests[guestID]; ok {
		g.Email = email
	}
	return nil
}

func (s *memStore) SetMagicLink(ctx context.Context, guestID int64, tok string, sentAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guests[guestID]
	g.MagicLinkToken = tok
	g.MagicLinkSentAt = &sentAt
	g.MagicLinkExpiresAt = &expiresAt
	g.MagicLinkUsedAt = nil
	return nil
}

func (s *memStore) ConsumeMagicLink(ctx context.Context, tok string, now time.Time) (*models.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guests {
		if g.MagicLinkToken == tok && g.MagicLinkUsedAt == nil &&
			g.MagicLinkExpiresAt != nil && g.MagicLinkExpiresAt.After(now) {
			used := now
			g.MagicLinkUsedAt = &used
			return g, nil
		}
	}
	return nil, nil
}

func (s *memStore) ClearExpiredMagicLinks(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (s *memStore) UpdateRSVP(ctx context.Context, g *models.Guest, companions []models.Companion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.guests[g.ID]
	if !ok {
		return nil
	}
	*stored = *g
	stored.Companions = companions
	return nil
}

type discardMailer struct{}

func (discardMailer) Send(ctx context.Context, msg mailer.Message) error { return nil }

type testApp struct {
	mux   *http.ServeMux
	store *memStore
	auth  *service.AuthService
}

func newTestApp(t *testing.T, loginMax int, guests ...*models.Guest) *testApp {
	t.Helper()
	store := newMemStore(guests...)
	tokens := token.NewService("test-secret", time.Hour, 15*time.Minute)
	limiter := security.NewLimiter(map[string]security.Limit{
		"login":          {Max: loginMax, Window: time.Minute},
		"recover":        {Max: 100, Window: time.Minute},
		"request_access": {Max: 100, Window: time.Minute},
	})

	authService := service.NewAuthService(store, match.New(store), tokens, limiter, discardMailer{},
		service.AccessModeMagic, "https://rsvp.example.com", time.Second, "es")
	rsvpService := service.NewRSVPService(store, discardMailer{},
		time.Now().Add(24*time.Hour), "https://rsvp.example.com", time.Second, "es")
	importService := service.NewImportService(store)

	mw := NewMiddleware(authService, limiter, "admin-secret")
	authHandler := NewAuthHandler(authService, time.Minute, 2*time.Minute, 2*time.Minute)
	guestHandler := NewGuestHandler(rsvpService)
	adminHandler := NewAdminHandler(importService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", mw.RateLimit("login", time.Minute, authHandler.Login))
	mux.HandleFunc("POST /api/recover-code", mw.RateLimit("recover", 2*time.Minute, authHandler.RecoverCode))
	mux.HandleFunc("POST /api/request-access", mw.RateLimit("request_access", 2*time.Minute, authHandler.RequestAccess))
	mux.HandleFunc("POST /api/magic-login", mw.RateLimit("login", time.Minute, authHandler.MagicLogin))
	mux.HandleFunc("GET /api/guest/me", mw.RequireGuest(guestHandler.Me))
	mux.HandleFunc("POST /api/guest/me/rsvp", mw.RequireGuest(guestHandler.SubmitRSVP))
	mux.HandleFunc("POST /api/admin/import-guests", mw.RequireAdmin(adminHandler.ImportGuests))

	return &testApp{mux: mux, store: store, auth: authService}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, req)
	return w
}

func testGuest() *models.Guest {
	return &models.Guest{
		GuestCode:       "ANAGARC-8H2K",
		FullName:        "Ana García",
		Email:           "ana@example.com",
		Phone:           "+34612345678",
		Language:        models.LangSpanish,
		InviteType:      models.InviteFull,
		MaxAccompanying: 2,
	}
}

func TestLoginEndpoint(t *testing.T) {
	app := newTestApp(t, 100, testGuest())

	w := app.do(t, "POST", "/api/login", map[string]string{
		"code":    "ANAGARC-8H2K",
		"contact": "ana@example.com",
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Guest       struct {
			GuestCode string `json:"guest_code"`
		} `json:"guest"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Errorf("unexpected token response: %+v", resp)
	}
	if resp.Guest.GuestCode != "ANAGARC-8H2K" {
		t.Errorf("guest code = %q", resp.Guest.GuestCode)
	}
}

func TestLoginFailuresShareOneBody(t *testing.T) {
	app := newTestApp(t, 100, testGuest())

	unknownCode := app.do(t, "POST", "/api/login", map[string]string{
		"code": "NOBODY-0000", "contact": "ana@example.com",
	}, nil)
	wrongContact := app.do(t, "POST", "/api/login", map[string]string{
		"code": "ANAGARC-8H2K", "contact": "other@example.com",
	}, nil)

	if unknownCode.Code != http.StatusUnauthorized || wrongContact.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401, 401", unknownCode.Code, wrongContact.Code)
	}
	if unknownCode.Body.String() != wrongContact.Body.String() {
		t.Errorf("failure bodies differ:\n%s\n%s", unknownCode.Body.String(), wrongContact.Body.String())
	}
}

func TestLoginRateLimitResponse(t *testing.T) {
	app := newTestApp(t, 2, testGuest())

	body := map[string]string{"code": "ANAGARC-8H2K", "contact": "other@example.com"}
	app.do(t, "POST", "/api/login", body, nil)
	failed := app.do(t, "POST", "/api/login", body, nil)
	limited := app.do(t, "POST", "/api/login", body, nil)

	if limited.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", limited.Code)
	}
	if limited.Header().Get("Retry-After") == "" {
		t.Error("429 missing Retry-After header")
	}
	// The throttled body matches the ordinary failure body, so a prober
	// learns nothing new from being limited.
	if limited.Body.String() != failed.Body.String() {
		t.Errorf("throttled body differs from failure body:\n%s\n%s", limited.Body.String(), failed.Body.String())
	}
}

func TestRecoverCodeAlwaysAccepted(t *testing.T) {
	app := newTestApp(t, 100, testGuest())

	matched := app.do(t, "POST", "/api/recover-code", map[string]string{
		"identifier": "ana@example.com",
	}, nil)
	unmatched := app.do(t, "POST", "/api/recover-code", map[string]string{
		"identifier": "nobody@example.com",
	}, nil)

	if matched.Code != http.StatusAccepted || unmatched.Code != http.StatusAccepted {
		t.Fatalf("statuses = %d, %d, want 202, 202", matched.Code, unmatched.Code)
	}
	if matched.Body.String() != unmatched.Body.String() {
		t.Errorf("matched and unmatched bodies differ:\n%s\n%s", matched.Body.String(), unmatched.Body.String())
	}
}

func TestRequestAccessIssuesMagicLink(t *testing.T) {
	app := newTestApp(t, 100, testGuest())

	matched := app.do(t, "POST", "/api/request-access", map[string]string{
		"full_name": "Ana García", "phone_last4": "5678", "email": "ana@example.com",
	}, nil)
	if matched.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", matched.Code, matched.Body.String())
	}

	guest, _ := app.store.GuestByCode(context.Background(), "ANAGARC-8H2K")
	if !guest.HasLiveMagicLink(time.Now()) {
		t.Error("no live magic link recorded for the matched guest")
	}

	unmatched := app.do(t, "POST", "/api/request-access", map[string]string{
		"full_name": "Carlos Ruiz", "phone_last4": "0000",
	}, nil)
	if unmatched.Code != http.StatusAccepted {
		t.Fatalf("unmatched status = %d, want 202", unmatched.Code)
	}
	if matched.Body.String() != unmatched.Body.String() {
		t.Errorf("matched and unmatched bodies differ:\n%s\n%s", matched.Body.String(), unmatched.Body.String())
	}
}

func TestMagicLoginEndpoint(t *testing.T) {
	app := newTestApp(t, 100, testGuest())

	if err := app.auth.RequestAccess(context.Background(), "Ana García", "5678", "", "", ""); err != nil {
		t.Fatalf("RequestAccess() error = %v", err)
	}
	guest, _ := app.store.GuestByCode(context.Background(), "ANAGARC-8H2K")

	w := app.do(t, "POST", "/api/magic-login", map[string]string{"token": guest.MagicLinkToken}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}

	again := app.do(t, "POST", "/api/magic-login", map[string]string{"token": guest.MagicLinkToken}, nil)
	if again.Code != http.StatusUnauthorized {
		t.Fatalf("reused link status = %d, want 401", again.Code)
	}
	if !strings.Contains(again.Body.String(), "already been used") {
		t.Errorf("reused link body = %s", again.Body.String())
	}
}

func TestMeRequiresAuth(t *testing.T) {
	app := newTestApp(t, 100, testGuest())

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := app.do(t, "GET", "/api/guest/me", nil, headers)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestMeAndRSVPFlow(t *testing.T) {
	app := newTestApp(t, 100, testGuest())

	login := app.do(t, "POST", "/api/login", map[string]string{
		"code": "ANAGARC-8H2K", "contact": "ana@example.com",
	}, nil)
	var session struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(login.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	authHeader := map[string]string{"Authorization": "Bearer " + session.AccessToken}

	me := app.do(t, "GET", "/api/guest/me", nil, authHeader)
	if me.Code != http.StatusOK {
		t.Fatalf("me status = %d; body %s", me.Code, me.Body.String())
	}

	rsvp := app.do(t, "POST", "/api/guest/me/rsvp", map[string]interface{}{
		"attending":   true,
		"num_adults":  1,
		"menu_choice": "vegetarian",
		"companions":  []map[string]interface{}{{"name": "Luis García"}},
	}, authHeader)
	if rsvp.Code != http.StatusOK {
		t.Fatalf("rsvp status = %d; body %s", rsvp.Code, rsvp.Body.String())
	}

	var profile struct {
		Confirmed  *bool `json:"confirmed"`
		NumAdults  int   `json:"num_adults"`
		Companions []struct {
			Name string `json:"name"`
		} `json:"companions"`
	}
	if err := json.Unmarshal(rsvp.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode rsvp: %v", err)
	}
	if profile.Confirmed == nil || !*profile.Confirmed || profile.NumAdults != 1 {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if len(profile.Companions) != 1 || profile.Companions[0].Name != "Luis García" {
		t.Errorf("companions = %+v", profile.Companions)
	}
}

func TestRSVPValidationErrors(t *testing.T) {
	app := newTestApp(t, 100, testGuest())

	login := app.do(t, "POST", "/api/login", map[string]string{
		"code": "ANAGARC-8H2K", "contact": "ana@example.com",
	}, nil)
	var session struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(login.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	authHeader := map[string]string{"Authorization": "Bearer " + session.AccessToken}

	tests := []struct {
		name     string
		body     map[string]interface{}
		wantCode int
	}{
		{
			name:     "missing attending",
			body:     map[string]interface{}{"num_adults": 1},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "over capacity",
			body: map[string]interface{}{
				"attending": true, "num_adults": 5, "menu_choice": "fish",
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "menu missing on full invite",
			body: map[string]interface{}{
				"attending": true, "num_adults": 1,
			},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, "POST", "/api/guest/me/rsvp", tt.body, authHeader)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d; body %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestAdminImportRequiresKey(t *testing.T) {
	app := newTestApp(t, 100)

	body := map[string]interface{}{
		"guests": []map[string]interface{}{
			{"full_name": "Ana García", "email": "ana@example.com"},
		},
	}

	noKey := app.do(t, "POST", "/api/admin/import-guests", body, nil)
	if noKey.Code != http.StatusUnauthorized {
		t.Fatalf("no key status = %d, want 401", noKey.Code)
	}
	wrongKey := app.do(t, "POST", "/api/admin/import-guests", body, map[string]string{"X-Admin-Key": "wrong"})
	if wrongKey.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d, want 401", wrongKey.Code)
	}

	ok := app.do(t, "POST", "/api/admin/import-guests", body, map[string]string{"X-Admin-Key": "admin-secret"})
	if ok.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", ok.Code, ok.Body.String())
	}

	var report struct {
		Created int `json:"created"`
	}
	if err := json.Unmarshal(ok.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Created != 1 {
		t.Errorf("created = %d, want 1", report.Created)
	}
}
