package chi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
	"github.com/kailas-cloud/bookrec/internal/domain/query"
	"github.com/kailas-cloud/bookrec/internal/repository/catalog"
	"github.com/kailas-cloud/bookrec/internal/repository/vectorindex"
	healthuc "github.com/kailas-cloud/bookrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/bookrec/internal/usecase/recommend"
	usageuc "github.com/kailas-cloud/bookrec/internal/usecase/usage"
)

func TestRecommend_OK(t *testing.T) {
	rec := &fakeRecommender{
		result: recommenduc.Result{
			Books:           []book.Book{newBook(101, "Haunted", ptr(4.26)), newBook(104, "Dark House", nil)},
			SortKey:         recommenduc.SortEmotion,
			SearchPerformed: true,
			Retrieval:       recommenduc.Retrieval{Outcome: recommenduc.OutcomeOK},
		},
		tokens: 7,
	}
	h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodPost, "/recommend",
		`{"query":"a haunted house","category":"Fiction","tone":"Suspenseful","top_k":5}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "7" {
		t.Errorf("X-Embedding-Tokens = %q, want 7", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	want := recommenduc.Request{Query: "a haunted house", Category: "Fiction", Tone: "Suspenseful", TopK: 5}
	if rec.lastReq != want {
		t.Errorf("request = %+v, want %+v", rec.lastReq, want)
	}

	resp := decode[recommendResponse](t, rr)
	if !resp.SearchPerformed || resp.Degraded {
		t.Errorf("flags = %+v", resp)
	}
	if resp.SortKey != "emotion" {
		t.Errorf("sort_key = %q", resp.SortKey)
	}
	if len(resp.Results) != 2 || resp.Results[0].ISBN13 != 101 || resp.Results[1].ISBN13 != 104 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Rating != 4.3 {
		t.Errorf("rating = %v, want 4.3", resp.Results[0].Rating)
	}
}

func TestRecommend_EmptyResults(t *testing.T) {
	rec := &fakeRecommender{result: recommenduc.Result{
		SearchPerformed: true,
		SortKey:         recommenduc.SortNone,
		Retrieval:       recommenduc.Retrieval{Outcome: recommenduc.OutcomeDegraded},
	}}
	h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodPost, "/recommend", `{"query":"space opera"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[recommendResponse](t, rr)
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("results should be an empty array, got %v", resp.Results)
	}
	if !resp.Degraded {
		t.Error("degraded flag should be set")
	}
	if rr.Header().Get("X-Embedding-Tokens") != "" {
		t.Error("no embedding header expected when no tokens were used")
	}
}

func TestRecommend_Rejected(t *testing.T) {
	rej := &query.Rejection{Reason: query.ReasonTooShort, Message: "Search query must be at least 3 characters long."}
	rec := &fakeRecommender{result: recommenduc.Result{Rejection: rej}}
	h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodPost, "/recommend", `{"query":"ab"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[rejectionResponse](t, rr)
	if resp.Code != CodeQueryRejected || resp.Reason != "too short" || resp.Message != rej.Message {
		t.Errorf("response = %+v", resp)
	}
}

func TestRecommend_LongQueryRejectedByPipeline(t *testing.T) {
	svc := recommenduc.New(vectorindex.Nop{}, catalog.NewMemory(nil, book.Schema{}), recommenduc.Config{}, zap.NewNop())
	h := NewServer(svc, &fakeHealth{}, zap.NewNop()).Routes(RouterConfig{DisableHTTPMetrics: true})

	tests := []struct {
		name   string
		query  string
		reason query.Reason
	}{
		{"letters", strings.Repeat("a", 2001), query.ReasonTooLong},
		{"digits", strings.Repeat("1", 2001), query.ReasonNoWordContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/recommend", `{"query":"`+tt.query+`"}`)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
			}
			resp := decode[rejectionResponse](t, rr)
			if resp.Code != CodeQueryRejected || resp.Reason != string(tt.reason) {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestRecommend_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"top_k too large", `{"query":"dragons","top_k":51}`},
		{"negative top_k", `{"query":"dragons","top_k":-1}`},
		{"wrong type", `{"query":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{}
			h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

			rr := do(t, h, http.MethodPost, "/recommend", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if resp := decode[errorResponse](t, rr); resp.Code != CodeBadRequest {
				t.Errorf("code = %q", resp.Code)
			}
			if rec.calls != 0 {
				t.Error("pipeline must not run on invalid input")
			}
		})
	}
}

func TestRecommend_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"canceled", fmt.Errorf("recommend: %w", context.Canceled), statusClientClosedRequest, CodeRequestCanceled},
		{"catalog", fmt.Errorf("load: %w", domain.ErrCatalogUnavailable), http.StatusServiceUnavailable, CodeCatalogUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{err: tt.err}
			h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

			rr := do(t, h, http.MethodPost, "/recommend", `{"query":"dragons"}`)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			resp := decode[errorResponse](t, rr)
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
			if tt.code == CodeInternalError && resp.Message != "internal error" {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestRecommend_PanicRecovered(t *testing.T) {
	rec := &fakeRecommender{panicMsg: "kaboom"}
	h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodPost, "/recommend", `{"query":"dragons"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decode[errorResponse](t, rr); resp.Code != CodeInternalError {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestRecommend_RateLimited(t *testing.T) {
	rec := &fakeRecommender{result: recommenduc.Result{SearchPerformed: true}}
	h := newTestServer(rec, nil).Routes(RouterConfig{RequestsPerMinute: 2, DisableHTTPMetrics: true})

	for i := range 2 {
		if rr := do(t, h, http.MethodPost, "/recommend", `{"query":"dragons"}`); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}

	rr := do(t, h, http.MethodPost, "/recommend", `{"query":"dragons"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if resp := decode[errorResponse](t, rr); resp.Code != CodeRateLimited {
		t.Errorf("code = %q", resp.Code)
	}

	// Read-only routes are not limited.
	if rr := do(t, h, http.MethodGet, "/recommend/options", ""); rr.Code != http.StatusOK {
		t.Errorf("options status = %d", rr.Code)
	}
}

func TestFeaturedBooks(t *testing.T) {
	rec := &fakeRecommender{featured: []book.Book{
		newBook(1, "An Extremely Long Title That Goes On And On Beyond The Limit", ptr(4.0)),
	}}
	h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodGet, "/books/featured?limit=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rec.lastLimit != 3 {
		t.Errorf("limit = %d, want 3", rec.lastLimit)
	}
	resp := decode[featuredResponse](t, rr)
	if len(resp.Results) != 1 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if got := resp.Results[0].Title; got != "An Extremely Long Title That Goes On And On B..." {
		t.Errorf("featured title = %q", got)
	}
}

func TestFeaturedBooks_DefaultAndInvalidLimit(t *testing.T) {
	rec := &fakeRecommender{}
	h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	if rr := do(t, h, http.MethodGet, "/books/featured", ""); rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rec.lastLimit != 0 {
		t.Errorf("missing limit should pass 0 for the configured default, got %d", rec.lastLimit)
	}

	for _, q := range []string{"abc", "-1", "101"} {
		if rr := do(t, h, http.MethodGet, "/books/featured?limit="+q, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", q, rr.Code)
		}
	}
}

func TestFeaturedBooks_CatalogUnavailable(t *testing.T) {
	rec := &fakeRecommender{featuredErr: fmt.Errorf("list: %w", domain.ErrCatalogUnavailable)}
	h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodGet, "/books/featured", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRecommendOptions(t *testing.T) {
	rec := &fakeRecommender{options: recommenduc.Options{
		Categories: []string{"All", "Fiction", "Nonfiction"},
		Tones:      []string{"All", "Happy"},
	}}
	h := newTestServer(rec, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodGet, "/recommend/options", "")
	resp := decode[optionsResponse](t, rr)
	if len(resp.Categories) != 3 || resp.Categories[0] != "All" || len(resp.Tones) != 2 {
		t.Errorf("options = %+v", resp)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		status int
	}{
		{
			name: "healthy",
			report: healthuc.Report{
				Status: healthuc.Healthy,
				Checks: map[string]healthuc.CheckResult{healthuc.CheckCatalog: healthuc.CheckOK},
				Books:  3,
			},
			status: http.StatusOK,
		},
		{
			name: "degraded",
			report: healthuc.Report{
				Status: healthuc.Degraded,
				Checks: map[string]healthuc.CheckResult{healthuc.CheckDatabase: healthuc.CheckError},
			},
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeRecommender{}, &fakeHealth{report: tt.report}).
				Routes(RouterConfig{APIKeys: []string{"secret"}, DisableHTTPMetrics: true})

			rr := do(t, h, http.MethodGet, "/health", "")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			resp := decode[healthResponse](t, rr)
			if resp.Status != string(tt.report.Status) || resp.Books != tt.report.Books {
				t.Errorf("response = %+v", resp)
			}
			for k, v := range tt.report.Checks {
				if resp.Checks[k] != string(v) {
					t.Errorf("check %s = %q, want %q", k, resp.Checks[k], v)
				}
			}
		})
	}
}

func TestRoutes_NotFoundIsJSON(t *testing.T) {
	h := newTestServer(&fakeRecommender{}, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodGet, "/books", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	rr = do(t, h, http.MethodGet, "/recommend", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /recommend status = %d, want 405", rr.Code)
	}
}

type fakeUsage struct {
	got usageuc.Period
}

func (f *fakeUsage) Report(_ context.Context, p usageuc.Period) usageuc.Report {
	f.got = p
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return usageuc.Report{
		Period:     p,
		Start:      start,
		End:        start.AddDate(0, 1, 0),
		TokensUsed: 900,
		Limit:      1000,
		Remaining:  100,
	}
}

func TestGetUsage(t *testing.T) {
	u := &fakeUsage{}
	h := newTestServer(&fakeRecommender{}, nil).WithUsage(u).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodGet, "/usage?period=month", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if u.got != usageuc.PeriodMonth {
		t.Errorf("period passed = %q", u.got)
	}
	resp := decode[usageResponse](t, rr)
	if resp.Period != "month" || resp.TokensUsed != 900 || resp.Remaining != 100 || resp.Exhausted {
		t.Errorf("response = %+v", resp)
	}
	wantStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if resp.PeriodStart != wantStart {
		t.Errorf("period_start = %d, want %d", resp.PeriodStart, wantStart)
	}

	rr = do(t, h, http.MethodGet, "/usage", "")
	if rr.Code != http.StatusOK || u.got != usageuc.PeriodDay {
		t.Errorf("default period: status = %d, got %q", rr.Code, u.got)
	}
}

func TestGetUsage_InvalidPeriod(t *testing.T) {
	h := newTestServer(&fakeRecommender{}, nil).WithUsage(&fakeUsage{}).Routes(RouterConfig{DisableHTTPMetrics: true})

	rr := do(t, h, http.MethodGet, "/usage?period=week", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if resp := decode[errorResponse](t, rr); resp.Code != CodeBadRequest {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestGetUsage_NotMountedWithoutReporter(t *testing.T) {
	h := newTestServer(&fakeRecommender{}, nil).Routes(RouterConfig{DisableHTTPMetrics: true})

	if rr := do(t, h, http.MethodGet, "/usage", ""); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
