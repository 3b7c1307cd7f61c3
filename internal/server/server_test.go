package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ai"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/pipeline"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/store"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

const resumeText = `Jane Doe
Software Engineer
jane@example.com | +1 555 123 4567 | Berlin, Germany

Experience
Software Engineer, Acme Corp, 2019–2022
- Built billing APIs in Go

Education
BSc Computer Science, TU Berlin, 2015–2019

Skills
Go, PostgreSQL, Kubernetes
`

// fakeModel answers every AI call without a network.
type fakeModel struct{}

func (fakeModel) ParseResume(context.Context, types.ParseResumeInput) (types.ParsedResume, *ai.TokenUsage, error) {
	r := types.NewParsedResume()
	r.Name = "Jane Doe"
	r.Experience = []types.Experience{{Title: "Software Engineer", Company: "Acme Corp", Duration: "2019–2022"}}
	r.Skills = []string{"Go", "Kubernetes"}
	return r, nil, nil
}

func (fakeModel) ParseResumePDF(context.Context, types.ParseResumePDFInput) (types.ParsedResume, *ai.TokenUsage, error) {
	return types.ParsedResume{}, nil, errors.NewAIError(errors.ErrCodeAIUnavailable, "no pdf model", nil)
}

func (fakeModel) ExtractJobSpec(context.Context, types.ExtractJobSpecInput) (types.JobSpecification, *ai.TokenUsage, error) {
	return types.JobSpecification{
		Title:            "Backend Engineer",
		Company:          "Payments Co",
		RequiredSkills:   []string{"Go", "PostgreSQL", "Kafka"},
		Responsibilities: []string{"Own the ledger", "Design APIs"},
		Qualifications:   []string{"5 years"},
	}, nil, nil
}

func (fakeModel) TailorResume(_ context.Context, in types.TailorResumeInput) (types.TailorResumeOutput, *ai.TokenUsage, error) {
	out := in.Resume.Clone()
	out.Summary = "Go engineer focused on payments"
	return types.TailorResumeOutput{Resume: out, Commentary: "Strong fit"}, nil, nil
}

// failingStore refuses every save.
type failingStore struct {
	*store.MemoryGateway
}

func (failingStore) SaveResume(context.Context, store.Record) (store.Record, error) {
	return store.Record{}, errors.NewPersistenceError(errors.ErrCodePersistenceError, "database down", nil)
}

type testOption func(*ServerConfig, *Deps)

func newTestServer(t *testing.T, opts ...testOption) *Server {
	t.Helper()
	m := fakeModel{}
	cfg := ServerConfig{Version: "test", MaxRequestSize: 1 << 20}
	deps := Deps{
		Pipeline: pipeline.New(pipeline.Options{Parser: m, Extractor: m, Tailorer: m}),
		Flags:    pipeline.Flags{AIParsingEnabled: true, JobTailoringEnabled: true},
		Store:    store.NewMemoryGateway(),
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	s := NewServer(nil, cfg, deps, nil)
	t.Cleanup(func() {
		if s.RateLimiter != nil {
			s.RateLimiter.Close()
		}
	})
	return s
}

func multipartRequest(t *testing.T, target, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndStats(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "cvparser", health["service"])

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestParseEndpoint(t *testing.T) {
	s := newTestServer(t)

	t.Run("ai", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/parse", "cv.txt", []byte(resumeText), nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[types.ParseResult](t, rec)
		assert.Equal(t, types.ParseMethodAI, res.Method)
		assert.Equal(t, "Jane Doe", res.Resume.Name)
	})

	t.Run("ai disabled per request", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/parse", "cv.txt", []byte(resumeText), map[string]string{"ai": "false"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[types.ParseResult](t, rec)
		assert.Equal(t, types.ParseMethodRegex, res.Method)
		assert.GreaterOrEqual(t, res.Confidence, 0)
		assert.LessOrEqual(t, res.Confidence, 100)
	})

	t.Run("pdf without ai is unsupported", func(t *testing.T) {
		pdf := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
		rec := serve(s, multipartRequest(t, "/parse", "cv.pdf", pdf, map[string]string{"ai": "false"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.ErrCodeUnsupportedInput, decode[ErrorResponse](t, rec).Code)
	})

	t.Run("missing file", func(t *testing.T) {
		rec := serve(s, multipartRequest(t, "/parse", "", nil, map[string]string{"ai": "false"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.ErrCodeInvalidRequest, decode[ErrorResponse](t, rec).Code)
	})
}

func TestJobSpecEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, jsonRequest(t, http.MethodPost, "/jobspec", JobSpecRequest{
		Text: "Backend Engineer at Payments Co. Go, PostgreSQL and Kafka required.",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[types.JobSpecResult](t, rec)
	assert.Equal(t, "Backend Engineer", res.Spec.Title)
	assert.Equal(t, res.Spec.Confidence, res.Confidence)

	rec = serve(s, jsonRequest(t, http.MethodPost, "/jobspec", JobSpecRequest{Text: "  "}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, jsonRequest(t, http.MethodPost, "/jobspec", map[string]string{"description": "x"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestTailorEndpoint(t *testing.T) {
	resume := types.NewParsedResume()
	resume.Name = "Jane Doe"
	resume.Experience = []types.Experience{{Title: "Software Engineer", Company: "Acme Corp", Duration: "2019–2022"}}
	body := TailorRequest{
		Resume: resume,
		AdditionalContext: &types.UserAdditionalContext{
			JobSpecSource: types.JobSpecSourcePasted,
			JobSpecText:   "Backend Engineer, Go, PostgreSQL",
			Tone:          types.ToneCreative,
		},
	}

	t.Run("tailors", func(t *testing.T) {
		rec := serve(newTestServer(t), jsonRequest(t, http.MethodPost, "/tailor", body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[types.TailorResult](t, rec)
		assert.Equal(t, "Strong fit", res.Commentary)
		assert.Equal(t, "Acme Corp", res.Resume.Experience[0].Company)
	})

	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, func(_ *ServerConfig, d *Deps) { d.Flags.JobTailoringEnabled = false })
		rec := serve(s, jsonRequest(t, http.MethodPost, "/tailor", body))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, errors.ErrCodeFeatureDisabled, decode[ErrorResponse](t, rec).Code)
	})

	t.Run("invalid context", func(t *testing.T) {
		bad := body
		bad.AdditionalContext = &types.UserAdditionalContext{JobSpecSource: types.JobSpecSourcePasted, Tone: "Loud"}
		rec := serve(newTestServer(t), jsonRequest(t, http.MethodPost, "/tailor", bad))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.ErrCodeInvalidContext, decode[ErrorResponse](t, rec).Code)
	})
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, func(c *ServerConfig, _ *Deps) { c.APIKeys = []string{"secret-key-123"} })
	body := JobSpecRequest{Text: "Backend Engineer, Go"}

	rec := serve(s, jsonRequest(t, http.MethodPost, "/jobspec", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := jsonRequest(t, http.MethodPost, "/jobspec", body)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(s, req).Code)

	req = jsonRequest(t, http.MethodPost, "/jobspec", body)
	req.Header.Set("Authorization", "Bearer secret-key-123")
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code,
		"health stays public")

	s.APIKeys.Replace([]string{"rotated-key-456"})
	req = jsonRequest(t, http.MethodPost, "/jobspec", body)
	req.Header.Set("X-API-Key", "secret-key-123")
	assert.Equal(t, http.StatusUnauthorized, serve(s, req).Code)
}

func TestRateLimiting(t *testing.T) {
	s := newTestServer(t, func(c *ServerConfig, _ *Deps) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})
	body := JobSpecRequest{Text: "Backend Engineer, Go"}

	assert.Equal(t, http.StatusOK, serve(s, jsonRequest(t, http.MethodPost, "/jobspec", body)).Code)
	rec := serve(s, jsonRequest(t, http.MethodPost, "/jobspec", body))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := jsonRequest(t, http.MethodPost, "/jobspec", body)
	other.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusOK, serve(s, other).Code, "other clients have their own bucket")
}

func TestResumeLifecycle(t *testing.T) {
	s := newTestServer(t)

	addl := `{"jobSpecSource":"pasted","jobSpecText":"Backend Engineer, Go, PostgreSQL","tone":"Formal"}`
	rec := serve(s, multipartRequest(t, "/resumes", "cv.txt", []byte(resumeText), map[string]string{
		"title":             "Senior Engineer @ Acme!!",
		"additionalContext": addl,
		"isPublic":          "true",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[SaveResponse](t, rec)
	require.NotNil(t, created.Resume)
	assert.Nil(t, created.PersistenceError)
	assert.True(t, created.Result.Tailored)
	assert.Equal(t, "senior-engineer-acme", created.Resume.Slug)
	assert.True(t, created.Resume.IsPublic)
	assert.Equal(t, "Go engineer focused on payments", created.Resume.ParsedData.Summary)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/resumes/senior-engineer-acme", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[store.Record](t, rec).ViewCount)

	id := created.Resume.ID
	rec = serve(s, jsonRequest(t, http.MethodPut, "/resumes/"+id, map[string]any{"title": "Backend CV", "isPublic": false}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[store.Record](t, rec)
	assert.Equal(t, "Backend CV", updated.Title)
	assert.False(t, updated.IsPublic)
	assert.Equal(t, "senior-engineer-acme", updated.Slug, "edits keep the slug")

	rec = serve(s, jsonRequest(t, http.MethodPut, "/resumes/"+id, map[string]any{"title": " "}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/resumes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, serve(s, req).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/resumes/senior-engineer-acme", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrCodeNotFound, decode[ErrorResponse](t, rec).Code)

	req = httptest.NewRequest(http.MethodDelete, "/resumes/"+id, nil)
	assert.Equal(t, http.StatusNotFound, serve(s, req).Code)
}

func TestCreateResumeRejectsBadContext(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, multipartRequest(t, "/resumes", "cv.txt", []byte(resumeText), map[string]string{
		"additionalContext": `{"jobSpecSource":"fax","tone":"Formal"}`,
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidContext, decode[ErrorResponse](t, rec).Code)
}

func TestCreateResumeValidatesIsPublic(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, multipartRequest(t, "/resumes", "cv.txt", []byte(resumeText), map[string]string{
		"ai": "false", "isPublic": "yes please",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidRequest, decode[ErrorResponse](t, rec).Code)

	rec = serve(s, multipartRequest(t, "/resumes", "cv.txt", []byte(resumeText), map[string]string{
		"ai": "false", "isPublic": "true",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[SaveResponse](t, rec)
	require.NotNil(t, resp.Resume)
	assert.True(t, resp.Resume.IsPublic)
}

func TestCreateResumeReturnsResultWhenSaveFails(t *testing.T) {
	s := newTestServer(t, func(_ *ServerConfig, d *Deps) {
		d.Store = failingStore{store.NewMemoryGateway()}
	})

	rec := serve(s, multipartRequest(t, "/resumes", "cv.txt", []byte(resumeText), map[string]string{"ai": "false"}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decode[SaveResponse](t, rec)
	assert.Nil(t, resp.Resume)
	require.NotNil(t, resp.PersistenceError)
	assert.Equal(t, errors.ErrCodePersistenceError, resp.PersistenceError.Code)
	assert.Equal(t, types.ParseMethodRegex, resp.Result.Method)
	assert.Equal(t, "Jane Doe", resp.Result.Resume.Name)
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		byAPIKey bool
		byIP     bool
		want     string
	}{
		{name: "api key", headers: map[string]string{"X-API-Key": "k1"}, byAPIKey: true, byIP: true, want: "api:k1"},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer k2"}, byAPIKey: true, want: "api:k2"},
		{name: "ip fallback", byAPIKey: true, byIP: true, want: "ip:192.0.2.1"},
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "bogus, 198.51.100.7"}, byIP: true, want: "ip:198.51.100.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.8"}, byIP: true, want: "ip:198.51.100.8"},
		{name: "disabled", headers: map[string]string{"X-API-Key": "k1"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getRateLimitKey(req, tt.byAPIKey, tt.byIP))
		})
	}
}

func TestServerInfoListsEndpoints(t *testing.T) {
	var buf bytes.Buffer
	newTestServer(t).writeServerInfo(&buf)
	out := buf.String()
	assert.Contains(t, out, "POST   /resumes")
	assert.Contains(t, out, "API authentication: DISABLED")
	assert.True(t, strings.HasSuffix(out, "AI parsing: true, job tailoring: true\n"))
}
