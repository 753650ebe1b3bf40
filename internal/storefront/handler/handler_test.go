package handler_test

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/trexinity/another/internal/catalog/cache"
	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/catalog/media"
	"github.com/trexinity/another/internal/catalog/views"
	"github.com/trexinity/another/internal/docstore/memstore"
	"github.com/trexinity/another/internal/engagement"
	"github.com/trexinity/another/internal/storefront/handler"
	"github.com/trexinity/another/internal/studio"
	"github.com/trexinity/another/internal/user/repository"
	"github.com/trexinity/another/internal/user/service"
	"github.com/trexinity/another/internal/watchlist"
	"github.com/trexinity/another/pkg/auth"
	"github.com/trexinity/another/pkg/config"
	"github.com/trexinity/another/pkg/logger"
	"github.com/trexinity/another/pkg/metrics"
	"github.com/trexinity/another/test/testutil"
)

type HandlerTestSuite struct {
	suite.Suite
	ctx        context.Context
	store      *memstore.Store
	catalog    *cache.Cache
	engagement *engagement.Service
	jwt        *auth.JWTManager
	server     *httptest.Server
	ready      error
}

func (suite *HandlerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memstore.New()
	suite.ready = nil
	log := logger.NewNoopLogger()

	testutil.SeedTitles(suite.T(), suite.store,
		testutil.CreateTestTitle("t1", "Alpha", testutil.WithViews(10), testutil.WithDuration(120), testutil.WithGenre("Drama"), testutil.WithLanguage("English")),
		testutil.CreateTestTitle("t2", "Beta", testutil.WithViews(50), testutil.WithGenre("Horror"), testutil.WithCreatedAt(time.Hour)),
		testutil.CreateTestTitle("t3", "Gamma", testutil.WithType(domain.TypeSeries), testutil.WithGenre("Drama")),
	)

	suite.catalog = cache.New(suite.store, cache.Config{}, log)
	_, err := suite.catalog.Load(suite.ctx)
	suite.Require().NoError(err)

	suite.engagement = engagement.NewService(
		engagement.NewManager(suite.store, engagement.Config{}, log, nil), nil, log)

	rbac, err := auth.NewRBACFromConfig(config.AuthConfig{}, log)
	suite.Require().NoError(err)
	authz := auth.NewAuthorizer(rbac, []string{"boss@example.com"})
	suite.jwt = auth.NewJWTManager("secret", "storefront", time.Hour)

	uploader, err := media.NewLocalUploader(afero.NewMemMapFs(), "/uploads", "http://localhost/uploads", zaptest.NewLogger(suite.T()))
	suite.Require().NoError(err)

	h := handler.New(handler.Dependencies{
		Catalog:    suite.catalog,
		Engagement: suite.engagement,
		Watchlists: watchlist.NewDocStore(suite.store),
		Profiles:   service.NewProfileService(repository.NewDocStoreRepository(suite.store, log), log),
		Studio:     studio.NewService(suite.store, uploader, authz, nil, studio.Config{}, log, nil),
		Auth:       auth.NewMiddleware(suite.jwt, authz, handler.WriteError, log),
		Metrics:    metrics.New(prometheus.NewRegistry()),
		Logger:     log,
		Sizes:      views.Sizes{Trending: 2, Recent: 2, Popular: 2},
		Ready: map[string]handler.Checker{
			"store": func(context.Context) error { return suite.ready },
		},
		Assets: http.FileServer(afero.NewHttpFs(uploader.Fs())),
	})
	suite.server = httptest.NewServer(h.Routes())
}

func (suite *HandlerTestSuite) TearDownTest() {
	suite.server.Close()
	suite.engagement.Wait()
}

func (suite *HandlerTestSuite) token(uid, email string) string {
	tok, _, err := suite.jwt.GenerateAccessToken(testutil.CreateTestSession(uid, email))
	suite.Require().NoError(err)
	return tok
}

func (suite *HandlerTestSuite) do(method, path, token string, body io.Reader, contentType string) (*http.Response, map[string]any) {
	req, err := http.NewRequestWithContext(suite.ctx, method, suite.server.URL+path, body)
	suite.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	var out map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		suite.Require().NoError(json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (suite *HandlerTestSuite) doJSON(method, path, token string, v any) (*http.Response, map[string]any) {
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		suite.Require().NoError(err)
		body = bytes.NewReader(data)
	}
	return suite.do(method, path, token, body, "application/json")
}

func errorField(body map[string]any) (string, string) {
	e, _ := body["error"].(map[string]any)
	typ, _ := e["type"].(string)
	field, _ := e["field"].(string)
	return typ, field
}

func (suite *HandlerTestSuite) TestHealthAndReady() {
	resp, _ := suite.do(http.MethodGet, "/health", "", nil, "")
	suite.Equal(http.StatusOK, resp.StatusCode)

	resp, body := suite.do(http.MethodGet, "/ready", "", nil, "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal(true, body["ready"])

	suite.ready = errors.New("store down")
	resp, body = suite.do(http.MethodGet, "/ready", "", nil, "")
	suite.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	suite.Equal(false, body["ready"])
}

func (suite *HandlerTestSuite) TestMetricsEndpoint() {
	suite.do(http.MethodGet, "/api/home", "", nil, "")

	suite.Eventually(func() bool {
		resp, err := http.Get(suite.server.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK &&
			strings.Contains(string(raw), `storefront_http_request_duration_seconds_count{method="GET",route="/api/home"`)
	}, time.Second, 10*time.Millisecond)
}

func (suite *HandlerTestSuite) TestCatalog() {
	resp, body := suite.do(http.MethodGet, "/api/catalog", "", nil, "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Len(body["titles"], 3)

	resp, body = suite.do(http.MethodGet, "/api/catalog?type=series", "", nil, "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Len(body["titles"], 1)

	resp, body = suite.do(http.MethodGet, "/api/catalog?type=short", "", nil, "")
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	typ, field := errorField(body)
	suite.Equal("VALIDATION", typ)
	suite.Equal("type", field)
}

func (suite *HandlerTestSuite) TestCatalogRefreshPicksUpNewTitles() {
	testutil.SeedTitles(suite.T(), suite.store, testutil.CreateTestTitle("t4", "Delta"))

	_, body := suite.do(http.MethodGet, "/api/catalog", "", nil, "")
	suite.Len(body["titles"], 3)

	_, body = suite.do(http.MethodGet, "/api/catalog?refresh=1", "", nil, "")
	suite.Len(body["titles"], 4)
}

func (suite *HandlerTestSuite) TestHome() {
	resp, body := suite.do(http.MethodGet, "/api/home", "", nil, "")

	suite.Equal(http.StatusOK, resp.StatusCode)
	featured, _ := body["featured"].(map[string]any)
	suite.Equal("t2", featured["id"])
	suite.Len(body["trending"], 2)
}

func (suite *HandlerTestSuite) TestSearchGenresLanguages() {
	_, body := suite.do(http.MethodGet, "/api/search?q=alp", "", nil, "")
	suite.Len(body["results"], 1)

	_, body = suite.do(http.MethodGet, "/api/search?q=%20", "", nil, "")
	suite.Empty(body["results"])

	_, body = suite.do(http.MethodGet, "/api/genres", "", nil, "")
	suite.Len(body["genres"], 2)

	_, body = suite.do(http.MethodGet, "/api/languages", "", nil, "")
	suite.Len(body["languages"], 2)
}

func (suite *HandlerTestSuite) TestGetTitle() {
	resp, body := suite.do(http.MethodGet, "/api/titles/t1", "", nil, "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("https://archive.org/download/t1/t1.mp4", body["playbackUrl"])
	suite.Equal(false, body["liked"])

	resp, body = suite.do(http.MethodGet, "/api/titles/nope", "", nil, "")
	suite.Equal(http.StatusNotFound, resp.StatusCode)
	typ, _ := errorField(body)
	suite.Equal("NOT_FOUND", typ)
}

func (suite *HandlerTestSuite) TestIncrementView() {
	resp, _ := suite.do(http.MethodPost, "/api/titles/t1/views", "", nil, "")
	suite.Equal(http.StatusAccepted, resp.StatusCode)

	suite.engagement.Wait()
	suite.Equal(int64(11), testutil.ReadTitle(suite.T(), suite.store, "t1").Views)
}

func (suite *HandlerTestSuite) TestToggleLike() {
	resp, body := suite.do(http.MethodPost, "/api/titles/t1/like", "", nil, "")
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
	typ, _ := errorField(body)
	suite.Equal("UNAUTHORIZED", typ)

	tok := suite.token("u1", "v@example.com")
	resp, body = suite.do(http.MethodPost, "/api/titles/t1/like", tok, nil, "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal(true, body["liked"])
	suite.Equal(float64(1), body["likes"])

	resp, body = suite.do(http.MethodPost, "/api/titles/missing/like", tok, nil, "")
	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func (suite *HandlerTestSuite) TestInvalidTokenRejected() {
	resp, _ := suite.do(http.MethodGet, "/api/home", "not-a-token", nil, "")
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (suite *HandlerTestSuite) TestWatchlistFlow() {
	tok := suite.token("u1", "v@example.com")

	resp, body := suite.do(http.MethodPut, "/api/me/watchlist/t1", tok, nil, "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal([]any{"t1"}, body["ids"])

	// Ids missing from the catalog stay stored but are not rendered.
	suite.do(http.MethodPut, "/api/me/watchlist/gone", tok, nil, "")
	_, body = suite.do(http.MethodGet, "/api/me/watchlist", tok, nil, "")
	suite.Equal([]any{"t1", "gone"}, body["ids"])
	suite.Len(body["titles"], 1)

	_, body = suite.do(http.MethodGet, "/api/titles/t1", tok, nil, "")
	suite.Equal(true, body["inWatchlist"])

	_, body = suite.do(http.MethodDelete, "/api/me/watchlist/t1", tok, nil, "")
	suite.Equal([]any{"gone"}, body["ids"])

	resp, _ = suite.do(http.MethodDelete, "/api/me/watchlist", tok, nil, "")
	suite.Equal(http.StatusNoContent, resp.StatusCode)
	_, body = suite.do(http.MethodGet, "/api/me/watchlist", tok, nil, "")
	suite.Empty(body["ids"])

	resp, _ = suite.do(http.MethodGet, "/api/me/watchlist", "", nil, "")
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (suite *HandlerTestSuite) TestFavoritesAndMe() {
	tok := suite.token("u1", "v@example.com")

	_, body := suite.do(http.MethodPut, "/api/me/favorites/t2", tok, nil, "")
	suite.Equal([]any{"t2"}, body["ids"])

	resp, body := suite.do(http.MethodGet, "/api/me", tok, nil, "")
	suite.Equal(http.StatusOK, resp.StatusCode)
	sess, _ := body["session"].(map[string]any)
	suite.Equal("u1", sess["uid"])
	suite.Equal([]any{"t2"}, sess["favorites"])

	_, body = suite.do(http.MethodDelete, "/api/me/favorites/t2", tok, nil, "")
	suite.Empty(body["ids"])
}

func (suite *HandlerTestSuite) TestProgressAndContinueWatching() {
	tok := suite.token("u1", "v@example.com")

	resp, _ := suite.doJSON(http.MethodPut, "/api/me/progress/t1", tok, map[string]any{"progress": 30, "duration": 120})
	suite.Equal(http.StatusOK, resp.StatusCode)

	_, body := suite.do(http.MethodGet, "/api/me/continue-watching", tok, nil, "")
	entries, _ := body["entries"].([]any)
	suite.Require().Len(entries, 1)
	entry, _ := entries[0].(map[string]any)
	suite.Equal(float64(25), entry["percent"])

	_, body = suite.do(http.MethodGet, "/api/me/history", tok, nil, "")
	suite.Len(body["history"], 1)

	resp, body = suite.doJSON(http.MethodPut, "/api/me/progress/t1", tok, map[string]any{"progress": -1})
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	_, field := errorField(body)
	suite.Equal("progress", field)

	resp, _ = suite.do(http.MethodDelete, "/api/me/progress/t1", tok, nil, "")
	suite.Equal(http.StatusNoContent, resp.StatusCode)
	_, body = suite.do(http.MethodGet, "/api/me/continue-watching", tok, nil, "")
	suite.Empty(body["entries"])
}

func (suite *HandlerTestSuite) TestAdminPublishJSON() {
	form := map[string]any{
		"title":        "Nosferatu",
		"genre":        "Horror",
		"videoSource":  "archive",
		"videoUrl":     "https://archive.org/details/nosferatu",
		"thumbnailUrl": "https://img.example.com/nosferatu.jpg",
	}

	resp, _ := suite.doJSON(http.MethodPost, "/api/admin/titles", suite.token("u1", "v@example.com"), form)
	suite.Equal(http.StatusForbidden, resp.StatusCode)

	resp, _ = suite.doJSON(http.MethodPost, "/api/admin/titles", "", form)
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)

	admin := suite.token("a1", "Boss@Example.com")
	resp, body := suite.doJSON(http.MethodPost, "/api/admin/titles", admin, form)
	suite.Require().Equal(http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	suite.NotEmpty(id)
	suite.Equal(float64(0), body["views"])

	_, cat := suite.do(http.MethodGet, "/api/catalog?refresh=1", "", nil, "")
	suite.Len(cat["titles"], 4)

	form["videoUrl"] = "https://example.com/x.mp4"
	resp, body = suite.doJSON(http.MethodPost, "/api/admin/titles", admin, form)
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	_, field := errorField(body)
	suite.Equal("videoUrl", field)
}

func (suite *HandlerTestSuite) TestAdminPublishMultipart() {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	suite.Require().NoError(mw.WriteField("title", "Metropolis"))
	suite.Require().NoError(mw.WriteField("genre", "Sci-Fi"))
	suite.Require().NoError(mw.WriteField("year", "1927"))
	suite.Require().NoError(mw.WriteField("videoSource", "googledrive"))
	suite.Require().NoError(mw.WriteField("videoUrl", "https://drive.google.com/file/d/XYZ987/view"))
	part, err := mw.CreateFormFile("thumbnail", "metropolis.png")
	suite.Require().NoError(err)
	_, err = part.Write([]byte("png-bytes"))
	suite.Require().NoError(err)
	suite.Require().NoError(mw.Close())

	resp, body := suite.do(http.MethodPost, "/api/admin/titles", suite.token("a1", "boss@example.com"), &buf, mw.FormDataContentType())

	suite.Require().Equal(http.StatusCreated, resp.StatusCode)
	suite.Equal("https://drive.google.com/file/d/XYZ987/preview", body["videoUrl"])
	suite.Equal(float64(1927), body["year"])
	thumb, _ := body["thumbnailUrl"].(string)
	suite.True(strings.HasPrefix(thumb, "http://localhost/uploads/thumbnails/"))

	// The stored asset is served back under /uploads.
	asset, err := http.Get(suite.server.URL + strings.TrimPrefix(thumb, "http://localhost"))
	suite.Require().NoError(err)
	defer asset.Body.Close()
	raw, _ := io.ReadAll(asset.Body)
	suite.Equal(http.StatusOK, asset.StatusCode)
	suite.Equal("png-bytes", string(raw))
}

func (suite *HandlerTestSuite) TestAdminUpdateAndDelete() {
	admin := suite.token("a1", "boss@example.com")

	resp, body := suite.doJSON(http.MethodPatch, "/api/admin/titles/t1", admin, map[string]any{"title": "Alpha Prime"})
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("Alpha Prime", body["title"])
	suite.Equal(float64(10), body["views"])

	resp, _ = suite.do(http.MethodDelete, "/api/admin/titles/t1", suite.token("u1", "v@example.com"), nil, "")
	suite.Equal(http.StatusForbidden, resp.StatusCode)

	resp, _ = suite.do(http.MethodDelete, "/api/admin/titles/t1", admin, nil, "")
	suite.Equal(http.StatusNoContent, resp.StatusCode)

	resp, _ = suite.do(http.MethodDelete, "/api/admin/titles/t1", admin, nil, "")
	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
