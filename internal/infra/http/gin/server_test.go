package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/document"
	"stayregister/internal/app/dto"
	exportsapp "stayregister/internal/app/handlers/exports"
	"stayregister/internal/app/handlers/registry"
	"stayregister/internal/app/middleware"
	"stayregister/internal/app/queries"
	"stayregister/internal/app/validation"
	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
	"stayregister/internal/infra/capture"
	"stayregister/internal/infra/obs"
	"stayregister/internal/infra/storage/memory"
)

const testSecret = "test-secret"

type stubCapturer struct {
	err error
}

func (s stubCapturer) Capture(ctx context.Context, doc document.Document) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.3 stub"), nil
}

type stubPicker struct {
	location string
	err      error
}

func (p stubPicker) Save(ctx context.Context, name string, pdf []byte) (string, error) {
	return p.location, p.err
}

type testEnv struct {
	router *gin.Engine
	stays  *memory.StayRepository
	outbox *memory.Outbox
}

func newTestEnv(t *testing.T, capturer exportsapp.Capturer, picker exportsapp.SavePicker) testEnv {
	t.Helper()
	return newLimitedEnv(t, capturer, picker, 0)
}

func newLimitedEnv(t *testing.T, capturer exportsapp.Capturer, picker exportsapp.SavePicker, exportsPerMinute int) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	staysRepo := memory.NewStayRepository()
	aptRepo := memory.NewApartmentRepository()
	aptRepo.Put(apartments.Apartment{ID: 1, OwnerID: "alice", Name: "Harbour Loft"})
	aptRepo.Put(apartments.Apartment{ID: 2, OwnerID: "bob", Name: "Mill House"})
	at := func(raw string) *time.Time {
		d := daterange.MustParse(raw)
		return &d
	}
	staysRepo.Put(&stays.Stay{ID: 1, OwnerID: "alice", ApartmentID: 1, GuestName: "Ada", CheckIn: at("2024-06-10"), CheckOut: at("2024-06-15"), NightsCount: 5, Year: 2024, PeopleCount: 2})
	staysRepo.Put(&stays.Stay{ID: 2, OwnerID: "alice", ApartmentID: 1, GuestName: "Bea", CheckIn: at("2024-06-15"), CheckOut: at("2024-06-18"), NightsCount: 3, Year: 2024, PeopleCount: 1})
	staysRepo.Put(&stays.Stay{ID: 3, OwnerID: "bob", ApartmentID: 2, GuestName: "Cy", CheckIn: at("2024-06-01"), NightsCount: 2, Year: 2024, PeopleCount: 1})

	factory := memory.Factory{StaysRepo: staysRepo, ApartmentsRepo: aptRepo}
	box := memory.NewOutbox()

	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	registry.Register(cmdBus, queryBus, registry.Deps{
		UoWFactory: factory,
		Outbox:     box,
		Capturer:   capturer,
		Picker:     picker,
		MinYear:    2000,
	})
	v := validation.New()
	cmds := middleware.ChainCommands(cmdBus,
		middleware.Validation(v),
		middleware.Authorization(middleware.RequireOwner{}),
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil, time.Hour),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box),
	)
	qs := middleware.ChainQueries(queryBus,
		middleware.QueryValidation(v),
		middleware.QueryAuthorization(middleware.RequireOwner{}),
	)

	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Apartments:     ApartmentHandler{Queries: qs},
		Stays:          StayHandler{Commands: cmds, Queries: qs},
		Exports:        ExportHandler{Commands: cmds, Queries: qs},
		AuthMiddleware: AuthMiddleware{Secret: []byte(testSecret)}.Handle,
		ExportLimit:    NewOwnerRateLimiter(exportsPerMinute).Middleware(),
		Metrics:        obs.NewMetrics(),
	})
	return testEnv{router: router, stays: staysRepo, outbox: box}
}

func token(t *testing.T, owner string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: owner, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func (e testEnv) do(t *testing.T, method, target, owner, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if owner != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, owner))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestListStaysFiltersAndSorts(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/stays?apartment_id=1&year=2024&month=6", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[dto.StayCollection](t, rec)
	if got.Total != 2 || got.Items[0].ID != 2 || got.Items[1].ID != 1 {
		t.Fatalf("unexpected collection %+v", got)
	}
	if got.Items[0].ApartmentName != "Harbour Loft" {
		t.Fatalf("apartment name missing")
	}
}

func TestListStaysErrors(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	cases := []struct {
		name   string
		target string
		owner  string
		status int
		field  string
	}{
		{"anonymous", "/api/v1/stays", "", http.StatusUnauthorized, ""},
		{"bad month", "/api/v1/stays?month=13", "alice", http.StatusBadRequest, "month"},
		{"future year", "/api/v1/stays?year=2999", "alice", http.StatusBadRequest, "year"},
		{"calendar needs month", "/api/v1/stays/calendar?year=2024", "alice", http.StatusBadRequest, "month"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tc.target, tc.owner, "")
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if tc.field != "" {
				body := decode[map[string]any](t, rec)
				if body["field"] != tc.field {
					t.Fatalf("field = %v, want %s", body["field"], tc.field)
				}
			}
		})
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/stays", "bob", "")
	got := decode[dto.StayCollection](t, rec)
	if got.Total != 1 || got.Items[0].ID != 3 {
		t.Fatalf("bob sees %+v", got.Items)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/stays/1", "bob", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/stays/99", "bob", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing delete status = %d", rec.Code)
	}
}

func TestCreateStayIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	body := `{"apartment_id":1,"guest_name":"Dora","check_in":"2024-07-01","check_out":"05/07/2024","people_count":2,"linen":"included"}`
	first := env.do(t, http.MethodPost, "/api/v1/stays", "alice", body, "Idempotency-Key", "k1")
	if first.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", first.Code, first.Body.String())
	}
	created := decode[dto.Stay](t, first)
	if created.NightsCount != 4 || created.CheckOut != "2024-07-05" {
		t.Fatalf("created = %+v", created)
	}
	second := env.do(t, http.MethodPost, "/api/v1/stays", "alice", body, "Idempotency-Key", "k1")
	if replay := decode[dto.Stay](t, second); replay.ID != created.ID {
		t.Fatalf("replay created a new stay: %d vs %d", replay.ID, created.ID)
	}
	list, _ := env.stays.List(context.Background(), "alice", stays.ListOptions{})
	if len(list) != 3 {
		t.Fatalf("alice has %d stays", len(list))
	}
	if env.outbox.Pending() != 1 {
		t.Fatalf("outbox pending = %d", env.outbox.Pending())
	}
}

func TestCreateStayValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	cases := []struct {
		body  string
		field string
	}{
		{`{"apartment_id":1,"guest_name":"X","people_count":0}`, "people_count"},
		{`{"apartment_id":2,"guest_name":"X","people_count":1}`, "apartment_id"},
		{`{"apartment_id":1,"guest_name":"X","people_count":1,"check_in":"2024-07-05","check_out":"2024-07-01"}`, "check_out"},
		{`{"apartment_id":1,"guest_name":"X","people_count":1,"check_in":"someday"}`, "check_in"},
	}
	for _, tc := range cases {
		rec := env.do(t, http.MethodPost, "/api/v1/stays", "alice", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d body=%s", tc.body, rec.Code, rec.Body.String())
		}
		if got := decode[map[string]any](t, rec)["field"]; got != tc.field {
			t.Errorf("%s: field = %v, want %s", tc.body, got, tc.field)
		}
	}
}

func TestCalendarEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/stays/calendar?year=2024&month=6&apartment_id=1", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	cal := decode[dto.Calendar](t, rec)
	if len(cal.Weeks) != 6 || len(cal.Weeks[0]) != 7 {
		t.Fatalf("grid shape = %d weeks", len(cal.Weeks))
	}
	if cal.Weeks[2][5].State != "turnover" {
		t.Fatalf("2024-06-15 = %+v", cal.Weeks[2][5])
	}
}

func TestDocumentEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/exports/document?year=2024&month=6", "alice", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("status = %d type=%s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if n := strings.Count(rec.Body.String(), "<script"); n != 1 {
		t.Fatalf("print document has %d scripts", n)
	}
	pdfIntent := env.do(t, http.MethodGet, "/api/v1/exports/document?year=2024&month=6&intent=pdf", "alice", "")
	if strings.Contains(pdfIntent.Body.String(), "<script") {
		t.Fatalf("pdf intent must not print")
	}
	if bad := env.do(t, http.MethodGet, "/api/v1/exports/document?year=2024&month=6&intent=fax", "alice", ""); bad.Code != http.StatusBadRequest {
		t.Fatalf("bad intent status = %d", bad.Code)
	}
}

func TestExportPDFOutcomes(t *testing.T) {
	t.Run("download fallback", func(t *testing.T) {
		env := newTestEnv(t, stubCapturer{}, stubPicker{err: exportsapp.ErrSaveUnsupported})
		rec := env.do(t, http.MethodPost, "/api/v1/exports/pdf?year=2024&month=6", "alice", "")
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
			t.Fatalf("status = %d type=%s", rec.Code, rec.Header().Get("Content-Type"))
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), "stays-2024-06") {
			t.Fatalf("disposition = %s", rec.Header().Get("Content-Disposition"))
		}
		if rec.Header().Get("X-Export-Outcome") == "" {
			t.Fatalf("outcome header missing")
		}
	})
	t.Run("saved", func(t *testing.T) {
		env := newTestEnv(t, stubCapturer{}, stubPicker{location: "https://files/x.pdf"})
		rec := env.do(t, http.MethodPost, "/api/v1/exports/pdf?year=2024&month=6", "alice", "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
		out := decode[dto.ExportOutcome](t, rec)
		if out.Method != exportsapp.MethodSaved || out.Location != "https://files/x.pdf" {
			t.Fatalf("outcome = %+v", out)
		}
	})
	t.Run("save failed", func(t *testing.T) {
		env := newTestEnv(t, stubCapturer{}, stubPicker{err: errors.New("disk full")})
		rec := env.do(t, http.MethodPost, "/api/v1/exports/pdf?year=2024&month=6", "alice", "")
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d", rec.Code)
		}
	})
	t.Run("save cancelled", func(t *testing.T) {
		env := newTestEnv(t, stubCapturer{}, stubPicker{err: context.Canceled})
		rec := env.do(t, http.MethodPost, "/api/v1/exports/pdf?year=2024&month=6", "alice", "")
		if rec.Code != statusClientClosedRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})
	t.Run("pipeline failure", func(t *testing.T) {
		perr := &capture.RenderPipelineError{Stage: capture.StageRoot, Err: capture.ErrDocumentRootMissing}
		env := newTestEnv(t, stubCapturer{err: perr}, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/exports/pdf?year=2024&month=6", "alice", "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := decode[map[string]any](t, rec); body["stage"] != "root" {
			t.Fatalf("body = %v", body)
		}
	})
	t.Run("no capture configured", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)
		rec := env.do(t, http.MethodPost, "/api/v1/exports/pdf?year=2024&month=6", "alice", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestExportRateLimit(t *testing.T) {
	env := newLimitedEnv(t, nil, nil, 2)
	target := "/api/v1/exports/document?year=2024&month=6"
	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodGet, target, "alice", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodGet, target, "alice", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("third request status = %d retry=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if other := env.do(t, http.MethodGet, target, "bob", ""); other.Code != http.StatusOK {
		t.Fatalf("limits must be per owner, got %d", other.Code)
	}
}

func TestAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := AuthMiddleware{Secret: []byte(testSecret), DevOwner: "dev"}
	r := gin.New()
	r.Use(m.Handle)
	r.GET("/", func(c *gin.Context) {
		p, ok := requireOwner(c)
		if !ok {
			return
		}
		c.String(http.StatusOK, p.OwnerID)
	})
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte(testSecret))
	foreign, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("other"))

	cases := []struct {
		name   string
		header string
		status int
		owner  string
	}{
		{"dev fallback", "", http.StatusOK, "dev"},
		{"valid", "Bearer " + token(t, "alice"), http.StatusOK, "alice"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong key", "Bearer " + foreign, http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.owner != "" && rec.Body.String() != tc.owner {
				t.Fatalf("owner = %s", rec.Body.String())
			}
		})
	}
}

func TestUpdateStay(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	body := `{"version":0,"apartment_id":1,"guest_name":"Ada Lovelace","check_in":"2024-06-10","check_out":"2024-06-13","people_count":3,"linen":"included"}`
	rec := env.do(t, http.MethodPut, "/api/v1/stays/1", "alice", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[dto.Stay](t, rec)
	if got.GuestName != "Ada Lovelace" || got.NightsCount != 3 || got.PeopleCount != 3 || got.Version != 1 {
		t.Fatalf("updated = %+v", got)
	}
	stored, _ := env.stays.ByID(context.Background(), "alice", 1)
	if stored.CheckOut == nil || daterange.FormatISO(*stored.CheckOut) != "2024-06-13" {
		t.Fatalf("stored check-out = %v", stored.CheckOut)
	}
	records := env.outbox.Records()
	if len(records) != 1 || records[0].Name != "stay.revised" {
		t.Fatalf("outbox = %+v", records)
	}

	// the same edit replayed against version 0 lost the race
	rec = env.do(t, http.MethodPut, "/api/v1/stays/1", "alice", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale update status = %d body=%s", rec.Code, rec.Body.String())
	}
	if after, _ := env.stays.ByID(context.Background(), "alice", 1); after.Version != 1 {
		t.Fatalf("stale update was written: v%d", after.Version)
	}
	if len(env.outbox.Records()) != 1 {
		t.Fatalf("stale update recorded an event")
	}
}

func TestUpdateStayRejections(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	cases := []struct {
		name   string
		target string
		owner  string
		body   string
		status int
		field  string
	}{
		{"missing version", "/api/v1/stays/1", "alice", `{"apartment_id":1,"guest_name":"X","people_count":1,"nights_count":2}`, http.StatusBadRequest, "version"},
		{"people count", "/api/v1/stays/1", "alice", `{"version":0,"apartment_id":1,"guest_name":"X","people_count":0,"nights_count":2}`, http.StatusBadRequest, "people_count"},
		{"dates reversed", "/api/v1/stays/1", "alice", `{"version":0,"apartment_id":1,"guest_name":"X","people_count":1,"check_in":"2024-06-15","check_out":"2024-06-10"}`, http.StatusBadRequest, "check_out"},
		{"foreign stay", "/api/v1/stays/1", "bob", `{"version":0,"apartment_id":2,"guest_name":"X","people_count":1,"nights_count":2}`, http.StatusForbidden, ""},
		{"missing stay", "/api/v1/stays/99", "alice", `{"version":0,"apartment_id":1,"guest_name":"X","people_count":1,"nights_count":2}`, http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, tc.target, tc.owner, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			if tc.field != "" {
				if got := decode[map[string]any](t, rec)["field"]; got != tc.field {
					t.Fatalf("field = %v, want %s", got, tc.field)
				}
			}
		})
	}
	if stored, _ := env.stays.ByID(context.Background(), "alice", 1); stored.GuestName != "Ada" {
		t.Fatalf("rejected update was written: %+v", stored)
	}
}
