package site_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mmatheygr/lead-scoring/internal/adapters/http/site"
)

func TestRegister(t *testing.T) {
	Convey("Given the embedded UI routes", t, func() {
		mux := http.NewServeMux()
		site.Register(context.Background(), mux)

		Convey("GET / serves the upload page", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(rec.Body.String(), ShouldContainSubstring, "<html")
		})

		Convey("The upload page loads its charts from the Plotly CDN", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Body.String(), ShouldContainSubstring, "cdn.plot.ly")
			So(rec.Body.String(), ShouldContainSubstring, "Plotly.react")
		})

		Convey("Registering on a nil mux panics", func() {
			So(func() { site.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestRootHandler(t *testing.T) {
	Convey("Given the root handler", t, func() {
		h := site.NewRootHandler()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h.HandleRoot(rec, req)

		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.Len(), ShouldBeGreaterThan, 0)
	})
}
