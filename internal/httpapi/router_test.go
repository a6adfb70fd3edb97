package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/voxa/internal/evaluation"
	"github.com/abhisek/voxa/internal/feedback"
	"github.com/abhisek/voxa/internal/progression"
	"github.com/abhisek/voxa/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ledger := progression.New(s.LedgerRepo(), progression.Options{})
	return NewRouter(Deps{
		Evaluator: evaluation.NewService(ledger, evaluation.Options{}),
		Ledger:    ledger,
		Profiles:  progression.NewProfiles(s.ProfileRepo(), progression.Options{}),
		DB:        s,
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSubmitSessionAndReadBack(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{
		"transcript":     "Hi",
		"grammar_issues": []string{},
		"tone":           "confident",
	}

	w := doJSON(t, r, http.MethodPost, "/v1/users/alice/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	res := decode[evaluation.Result](t, w)
	assert.Equal(t, 67, res.Scores.Experience)
	assert.False(t, res.Duplicate)
	require.NotNil(t, res.Progression)
	assert.EqualValues(t, 67, res.Progression.TotalExperience)
	assert.Equal(t, w.Header().Get(headerRequestID), res.RequestID)

	// Identical re-submission is reported, not accrued.
	w = doJSON(t, r, http.MethodPost, "/v1/users/alice/sessions", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dup := decode[evaluation.Result](t, w)
	assert.True(t, dup.Duplicate)
	assert.EqualValues(t, 67, dup.Progression.TotalExperience)

	w = doJSON(t, r, http.MethodGet, "/v1/users/alice/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[progression.Status](t, w)
	assert.Equal(t, 1, st.TotalSessions)
	assert.Equal(t, res.Scores, st.LatestScores)

	w = doJSON(t, r, http.MethodGet, "/v1/users/alice/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[struct {
		Sessions []progression.HistoryEntry `json:"sessions"`
	}](t, w)
	require.Len(t, hist.Sessions, 1)
	assert.Equal(t, "Hi", hist.Sessions[0].Transcript)

	w = doJSON(t, r, http.MethodGet, "/v1/users/alice/progression", nil)
	require.Equal(t, http.StatusOK, w.Code)
	prog := decode[progression.ProgressionState](t, w)
	assert.Equal(t, 1, prog.Level)
	assert.Equal(t, 1, prog.Streak)
}

func TestSubmitSessionInvalid(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/users/alice/sessions", map[string]any{"transcript": "  "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode[ErrorEnvelope](t, w)
	assert.Equal(t, CodeInvalidInput, env.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/users/alice/sessions", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidRequest, decode[ErrorEnvelope](t, rec).Error.Code)
}

func TestPreviewFeedback(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/feedback", map[string]any{
		"transcript":     "Me and him goes to the store yesterday",
		"grammar_issues": []string{"missing comma", "subject-verb"},
		"tone":           "sarcastic",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[evaluation.Result](t, w)
	assert.Equal(t, 60, res.Scores.Grammar)
	assert.Equal(t, 50, res.Scores.Tone)
	assert.Contains(t, res.Report.Improvements, feedback.NoteGrammarSlipsPrefix+"missing comma, subject-verb")
	assert.Nil(t, res.Progression)

	// Nothing was stored.
	w = doJSON(t, r, http.MethodGet, "/v1/users/preview/status", nil)
	assert.Equal(t, 0, decode[progression.Status](t, w).TotalSessions)
}

func TestPreviewFeedbackPartialSignals(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/feedback", map[string]any{
		"transcript": "Thanks for waiting, I know the delay was frustrating",
		"tone":       "confident",
		"signals":    map[string]any{"pacing": "moderate", "clarity": "high"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[evaluation.Result](t, w)
	assert.Equal(t, 0.5, res.Signals.Empathy)
	assert.NotContains(t, res.Report.Improvements, feedback.NoteEmpathy)

	w = doJSON(t, r, http.MethodPost, "/v1/feedback", map[string]any{
		"transcript": "Thanks for waiting",
		"tone":       "confident",
		"signals":    map[string]any{"empathy": 0.1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode[evaluation.Result](t, w).Report.Improvements, feedback.NoteEmpathy)
}

func TestHistoryLimit(t *testing.T) {
	r := newTestRouter(t)
	for _, tr := range []string{"first try", "second try", "third try"} {
		w := doJSON(t, r, http.MethodPost, "/v1/users/bob/sessions", map[string]any{"transcript": tr, "tone": "neutral"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/v1/users/bob/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[struct {
		Sessions []progression.HistoryEntry `json:"sessions"`
	}](t, w)
	assert.Len(t, hist.Sessions, 2)

	w = doJSON(t, r, http.MethodGet, "/v1/users/bob/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryTimeWindow(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/v1/users/cara/sessions", map[string]any{"transcript": "only try", "tone": "neutral"})
	require.Equal(t, http.StatusCreated, w.Code)

	type page struct {
		Sessions []progression.HistoryEntry `json:"sessions"`
	}

	w = doJSON(t, r, http.MethodGet, "/v1/users/cara/history?from=2000-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[page](t, w).Sessions, 1)

	w = doJSON(t, r, http.MethodGet, "/v1/users/cara/history?to=2000-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[page](t, w).Sessions)

	w = doJSON(t, r, http.MethodGet, "/v1/users/cara/history?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/users/cara/history?from=2001-01-01T00:00:00Z&to=2000-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidInput, decode[ErrorEnvelope](t, w).Error.Code)
}

func TestProfileEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/users/dana/profile", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[progression.Profile](t, w)
	assert.Equal(t, "dana", p.UserID)
	assert.Equal(t, progression.DefaultVoice, p.PreferredVoice)
	assert.Equal(t, progression.DefaultBaselineTone, p.BaselineTone)

	w = doJSON(t, r, http.MethodPut, "/v1/users/dana/profile", map[string]any{"baseline_tone": "calm"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p = decode[progression.Profile](t, w)
	assert.Equal(t, progression.DefaultVoice, p.PreferredVoice)
	assert.Equal(t, "calm", p.BaselineTone)

	w = doJSON(t, r, http.MethodGet, "/v1/users/dana/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "calm", decode[progression.Profile](t, w).BaselineTone)

	req := httptest.NewRequest(http.MethodPut, "/v1/users/dana/profile", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageFailureMapsTo503(t *testing.T) {
	boom := &progression.StorageError{Op: "get_status", Err: errors.New("database is locked")}
	fr := failingReader{err: boom}
	r := NewRouter(Deps{Ledger: fr, Profiles: fr})

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/v1/users/alice/status"},
		{http.MethodGet, "/v1/users/alice/history"},
		{http.MethodGet, "/v1/users/alice/profile"},
		{http.MethodPut, "/v1/users/alice/profile"},
	} {
		var body any
		if req.method == http.MethodPut {
			body = map[string]any{"preferred_voice": "en-US-GuyNeural"}
		}
		w := doJSON(t, r, req.method, req.path, body)
		require.Equal(t, http.StatusServiceUnavailable, w.Code, req.path)
		assert.Equal(t, CodeStorageUnavailable, decode[ErrorEnvelope](t, w).Error.Code)
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	down := NewRouter(Deps{DB: failingPinger{}})
	w = doJSON(t, down, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(Deps{})
	w := doJSON(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	r := NewRouter(Deps{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(headerRequestID))
}

type failingReader struct{ err error }

func (f failingReader) GetStatus(context.Context, string) (progression.Status, error) {
	return progression.Status{}, f.err
}

func (f failingReader) GetHistoryPage(context.Context, string, progression.HistoryOpts) ([]progression.HistoryEntry, error) {
	return nil, f.err
}

func (f failingReader) GetProgression(context.Context, string) (progression.ProgressionState, error) {
	return progression.ProgressionState{}, f.err
}

func (f failingReader) Get(context.Context, string) (progression.Profile, error) {
	return progression.Profile{}, f.err
}

func (f failingReader) Update(context.Context, string, progression.ProfileUpdate) (progression.Profile, error) {
	return progression.Profile{}, f.err
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("closed") }
