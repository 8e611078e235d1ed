package chi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
	healthuc "github.com/kailas-cloud/bookrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/bookrec/internal/usecase/recommend"
)

type fakeRecommender struct {
	result      recommenduc.Result
	err         error
	tokens      int
	featured    []book.Book
	featuredErr error
	options     recommenduc.Options

	lastReq   recommenduc.Request
	lastLimit int
	calls     int
	panicMsg  string
}

func (f *fakeRecommender) Recommend(ctx context.Context, req recommenduc.Request) (recommenduc.Result, error) {
	f.calls++
	f.lastReq = req
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(f.tokens)
	}
	return f.result, f.err
}

func (f *fakeRecommender) Featured(_ context.Context, n int) ([]book.Book, error) {
	f.lastLimit = n
	return f.featured, f.featuredErr
}

func (f *fakeRecommender) Options(context.Context) recommenduc.Options {
	return f.options
}

type fakeHealth struct {
	report healthuc.Report
}

func (f *fakeHealth) Check(context.Context) healthuc.Report { return f.report }

func newTestServer(rec *fakeRecommender, h *fakeHealth) *Server {
	if h == nil {
		h = &fakeHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewServer(rec, h, zap.NewNop())
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func ptr[T any](v T) *T { return &v }

func newBook(id int64, title string, rating *float64) book.Book {
	return book.New(id, book.Attrs{
		Title:       title,
		Authors:     "Author " + title,
		Description: "A short description.",
		Category:    "Fiction",
		Rating:      rating,
		Thumbnail:   "http://books.example/cover?id=" + title,
	})
}
