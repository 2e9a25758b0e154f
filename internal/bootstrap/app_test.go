package bootstrap_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballot-backend/internal/bootstrap"
	"ballot-backend/internal/pdfsig/pdfsigtest"
	"ballot-backend/internal/shared/config"
)

func buildApp(t *testing.T, mutate func(*config.Config)) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}
	app, err := bootstrap.Build(cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func issueToken(t *testing.T, r http.Handler, pollID string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ballot/token", strings.NewReader(`{"poll_id":"`+pollID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		PollToken string `json:"poll_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.PollToken)
	return body.PollToken
}

func upload(t *testing.T, r http.Handler, doc []byte, pollID, token string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("poll_id", pollID))
	require.NoError(t, writer.WriteField("poll_token", token))
	fw, err := writer.CreateFormFile("file", "declaration.pdf")
	require.NoError(t, err)
	_, err = fw.Write(doc)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ballot/validate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestVotingFlow(t *testing.T) {
	app := buildApp(t, nil)
	r := app.Router
	gov := pdfsigtest.NewIdentity(t, pdfsigtest.CertOptions{CommonName: "HELLENIC REPUBLIC", Organization: "Ministry of Digital Governance"})

	token := issueToken(t, r, "poll-1")
	doc := pdfsigtest.SignedPDF(t, gov, nil, pdfsigtest.Declaration("123456789", "YES", token)...)

	resp := upload(t, r, doc, "poll-1", token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"vote_choice":"YES"`)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))

	resp = upload(t, r, doc, "poll-1", token)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "duplicate_file")

	stats := httptest.NewRecorder()
	r.ServeHTTP(stats, httptest.NewRequest(http.MethodGet, "/api/ballot/stats?poll_id=poll-1", nil))
	require.Equal(t, http.StatusOK, stats.Code)
	assert.JSONEq(t, `{"poll_id":"poll-1","total_votes":1,"choices":{"YES":1}}`, stats.Body.String())

	metrics := httptest.NewRecorder()
	r.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/api/ballot/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "ballot_accepted_total")
}

func TestValidateRejectsForeignToken(t *testing.T) {
	app := buildApp(t, nil)
	gov := pdfsigtest.NewIdentity(t, pdfsigtest.CertOptions{CommonName: "HELLENIC REPUBLIC"})

	token := issueToken(t, app.Router, "poll-1")
	doc := pdfsigtest.SignedPDF(t, gov, nil, pdfsigtest.Declaration("123456789", "YES", token)...)

	resp := upload(t, app.Router, doc, "poll-2", token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid_token")
}

func TestUntrustedSignerIsForbidden(t *testing.T) {
	app := buildApp(t, nil)
	stranger := pdfsigtest.NewIdentity(t, pdfsigtest.CertOptions{CommonName: "Some Person"})

	token := issueToken(t, app.Router, "poll-1")
	doc := pdfsigtest.SignedPDF(t, stranger, nil, pdfsigtest.Declaration("123456789", "YES", token)...)

	resp := upload(t, app.Router, doc, "poll-1", token)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "Some Person")
}

func TestUploadRateLimit(t *testing.T) {
	app := buildApp(t, func(cfg *config.Config) { cfg.UploadsPerMinute = 1 })
	doc := pdfsigtest.UnsignedPDF("hello")

	first := upload(t, app.Router, doc, "poll-1", "tok")
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)
	second := upload(t, app.Router, doc, "poll-1", "tok")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// Token issuance is not an upload and stays unlimited.
	issueToken(t, app.Router, "poll-1")
	issueToken(t, app.Router, "poll-1")
}

func TestHealth(t *testing.T) {
	app := buildApp(t, nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/ballot/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := config.Defaults()
	cfg.Env = "production"
	_, err := bootstrap.Build(cfg)
	assert.Error(t, err)
}

func TestBuildWithSQLite(t *testing.T) {
	app := buildApp(t, func(cfg *config.Config) {
		cfg.DatabaseURL = "sqlite://" + t.TempDir() + "/votes.db"
	})
	require.NotNil(t, app.DB)

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/ballot/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"database":"ok"`)
}
