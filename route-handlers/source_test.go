package routehandlers_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/UoMCS/bigscreen/datastore"
	"github.com/UoMCS/bigscreen/models"
	rh "github.com/UoMCS/bigscreen/route-handlers"
	"github.com/UoMCS/bigscreen/sources"
	"github.com/UoMCS/bigscreen/webutil"
)

func sourceRouter(h *rh.SourceHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/sources", webutil.MakeHandler(h.HandleGetSources))
	r.Post("/sources", webutil.MakeHandler(h.HandleCreateSource))
	r.Get("/sources/{id}", webutil.MakeHandler(h.HandleGetSourceByID))
	r.Put("/sources/{id}", webutil.MakeHandler(h.HandleUpdateSource))
	r.Delete("/sources/{id}", webutil.MakeHandler(h.HandleDeleteSource))
	return r
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorMessage(rec *httptest.ResponseRecorder) string {
	var payload map[string]string
	Expect(json.Unmarshal(rec.Body.Bytes(), &payload)).To(Succeed())
	return payload["error"]
}

var _ = Describe("SourceHandler", func() {
	var (
		ctx    context.Context
		repo   *datastore.SourceRepository
		router http.Handler
		nextID int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)
		DeferCleanup(db.Close)

		repo = datastore.NewSourceRepository(db)
		Expect(repo.EnsureSchema(ctx)).To(Succeed())

		nextID = 100
		newID := func() int64 {
			nextID++
			return nextID
		}
		router = sourceRouter(rh.NewSourceHandler(repo, sources.DefaultRegistry(nil, "bigscreen-test"), newID))
	})

	It("creates a source and reads it back", func() {
		rec := serve(router, http.MethodPost, "/sources",
			`{"name":"News","module_name":"feed","arguments":"url=https://news.example.com/rss;weight=2"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var created models.SlideSource
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		Expect(created.ID).To(Equal(int64(101)))
		Expect(created.Enabled).To(BeTrue())
		Expect(created.Arguments).To(HaveKeyWithValue("weight", "2"))

		rec = serve(router, http.MethodGet, "/sources/101", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var fetched models.SlideSource
		Expect(json.Unmarshal(rec.Body.Bytes(), &fetched)).To(Succeed())
		Expect(fetched.Name).To(Equal("News"))
		Expect(fetched.Arguments.Encode()).To(Equal("url=https://news.example.com/rss;weight=2"))

		rec = serve(router, http.MethodGet, "/sources", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var all []models.SlideSource
		Expect(json.Unmarshal(rec.Body.Bytes(), &all)).To(Succeed())
		Expect(all).To(HaveLen(1))
	})

	It("honours an explicit enabled flag", func() {
		rec := serve(router, http.MethodPost, "/sources",
			`{"name":"Draft","module_name":"static","arguments":"html=<p>draft</p>","enabled":false}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		stored, err := repo.GetSourceByID(ctx, 101)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Enabled).To(BeFalse())
	})

	DescribeTable("rejects bad create requests",
		func(body, message string) {
			rec := serve(router, http.MethodPost, "/sources", body)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorMessage(rec)).To(ContainSubstring(message))
		},
		Entry("malformed json", `{"name":`, "Invalid request payload"),
		Entry("unknown field", `{"name":"x","module_name":"feed","colour":"red"}`, "Invalid request payload"),
		Entry("missing module", `{"name":"x"}`, "Missing required fields"),
		Entry("unknown module", `{"name":"x","module_name":"carousel"}`, `Unknown module "carousel"`),
		Entry("bad arguments", `{"name":"x","module_name":"feed","arguments":"url"}`, "Invalid arguments"),
	)

	It("updates a source and keeps enabled when it is omitted", func() {
		Expect(serve(router, http.MethodPost, "/sources",
			`{"name":"News","module_name":"feed","arguments":"url=https://a.example.com/rss","enabled":false}`).Code).
			To(Equal(http.StatusCreated))

		rec := serve(router, http.MethodPut, "/sources/101",
			`{"name":"Renamed","module_name":"feed","arguments":"url=https://b.example.com/rss"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		stored, err := repo.GetSourceByID(ctx, 101)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Name).To(Equal("Renamed"))
		Expect(stored.Arguments).To(HaveKeyWithValue("url", "https://b.example.com/rss"))
		Expect(stored.Enabled).To(BeFalse())
	})

	It("deletes a source", func() {
		Expect(serve(router, http.MethodPost, "/sources",
			`{"name":"News","module_name":"feed","arguments":"url=https://a.example.com/rss"}`).Code).
			To(Equal(http.StatusCreated))

		rec := serve(router, http.MethodDelete, "/sources/101", "")
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(serve(router, http.MethodGet, "/sources/101", "").Code).To(Equal(http.StatusNotFound))
	})

	It("answers 404 for missing sources", func() {
		Expect(serve(router, http.MethodGet, "/sources/7", "").Code).To(Equal(http.StatusNotFound))
		Expect(serve(router, http.MethodDelete, "/sources/7", "").Code).To(Equal(http.StatusNotFound))
		Expect(serve(router, http.MethodPut, "/sources/7",
			`{"name":"x","module_name":"feed"}`).Code).To(Equal(http.StatusNotFound))
	})

	It("rejects ids that are not positive integers", func() {
		for _, id := range []string{"abc", "0", "-4"} {
			rec := serve(router, http.MethodGet, "/sources/"+id, "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorMessage(rec)).To(Equal("Invalid source ID format"))
		}
	})

	Context("backed by a sources file", func() {
		BeforeEach(func() {
			registry, err := datastore.ParseFileRegistry([]byte(`
sources:
  - id: 3
    name: Welcome
    module: static
    arguments: "html=<h1>Hi</h1>"
`))
			Expect(err).NotTo(HaveOccurred())
			router = sourceRouter(rh.NewSourceHandler(registry, sources.DefaultRegistry(nil, "bigscreen-test"), func() int64 { return 1 }))
		})

		It("serves reads", func() {
			Expect(serve(router, http.MethodGet, "/sources/3", "").Code).To(Equal(http.StatusOK))
		})

		It("refuses writes with 405", func() {
			rec := serve(router, http.MethodPost, "/sources", `{"name":"x","module_name":"static"}`)
			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(errorMessage(rec)).To(Equal("source registry is read-only"))

			Expect(serve(router, http.MethodDelete, "/sources/3", "").Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})
})
