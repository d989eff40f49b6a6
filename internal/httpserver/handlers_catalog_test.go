package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/videocatalog/videocatalog/internal/cache"
)

func TestCachedReportWithoutCache(t *testing.T) {
	h := &handlers{deps: Deps{}}
	calls := 0
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/overview?drive=C", nil)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.cachedReport(rr, req, func() (any, error) {
			calls++
			return map[string]any{"n": calls}, nil
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
	}
	if calls != 2 {
		t.Errorf("compute called %d times, want 2 (no caching without ReportCache)", calls)
	}
}

func TestCachedReportHitsCache(t *testing.T) {
	h := &handlers{deps: Deps{ReportCache: cache.NewTTL(time.Minute)}}
	calls := 0
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/overview?drive=C", nil)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.cachedReport(rr, req, func() (any, error) {
			calls++
			return map[string]any{"n": calls}, nil
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1 (subsequent calls should hit cache)", calls)
	}
}

func TestCachedReportDifferentQueryNotShared(t *testing.T) {
	h := &handlers{deps: Deps{ReportCache: cache.NewTTL(time.Minute)}}
	calls := 0
	compute := func() (any, error) {
		calls++
		return map[string]any{"n": calls}, nil
	}

	req1 := httptest.NewRequest(http.MethodGet, "/v1/reports/overview?drive=C", nil)
	rr1 := httptest.NewRecorder()
	h.cachedReport(rr1, req1, compute)

	req2 := httptest.NewRequest(http.MethodGet, "/v1/reports/overview?drive=D", nil)
	rr2 := httptest.NewRecorder()
	h.cachedReport(rr2, req2, compute)

	if calls != 2 {
		t.Errorf("compute called %d times, want 2 (distinct query strings must not share a cache entry)", calls)
	}
}

func TestCachedReportErrorNotCached(t *testing.T) {
	h := &handlers{deps: Deps{ReportCache: cache.NewTTL(time.Minute)}}
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/overview?drive=C", nil)

	rr := httptest.NewRecorder()
	h.cachedReport(rr, req, func() (any, error) {
		return nil, errors.New("boom")
	})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}

	calls := 0
	rr2 := httptest.NewRecorder()
	h.cachedReport(rr2, req, func() (any, error) {
		calls++
		return map[string]any{"ok": true}, nil
	})
	if rr2.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr2.Code)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1 (a failed compute must not poison the cache)", calls)
	}
}
