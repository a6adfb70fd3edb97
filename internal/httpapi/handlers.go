package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/voxa/internal/evaluation"
	"github.com/abhisek/voxa/internal/progression"
	"github.com/abhisek/voxa/internal/signals"
)

// Evaluator runs sessions through the evaluation pipeline.
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluation.Request) (evaluation.Result, error)
	Preview(req evaluation.Request) evaluation.Result
}

// LedgerReader serves the read side of the progression ledger.
type LedgerReader interface {
	GetStatus(ctx context.Context, userID string) (progression.Status, error)
	GetHistoryPage(ctx context.Context, userID string, opts progression.HistoryOpts) ([]progression.HistoryEntry, error)
	GetProgression(ctx context.Context, userID string) (progression.ProgressionState, error)
}

// ProfileStore reads and updates user profiles.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (progression.Profile, error)
	Update(ctx context.Context, userID string, u progression.ProfileUpdate) (progression.Profile, error)
}

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// sessionBody is the JSON body of a session submission.
type sessionBody struct {
	Transcript    string                    `json:"transcript"`
	GrammarIssues []string                  `json:"grammar_issues"`
	Tone          string                    `json:"tone"`
	Signals       *signals.EmotionalSignals `json:"signals"`
}

func (b sessionBody) request(requestID, userID string) evaluation.Request {
	return evaluation.Request{
		RequestID:     requestID,
		UserID:        userID,
		Transcript:    b.Transcript,
		GrammarIssues: b.GrammarIssues,
		Tone:          b.Tone,
		Signals:       b.Signals,
	}
}

type SessionHandler struct {
	eval Evaluator
}

func NewSessionHandler(eval Evaluator) *SessionHandler {
	return &SessionHandler{eval: eval}
}

// POST /v1/users/:userID/sessions
func (h *SessionHandler) Submit(c *gin.Context) {
	var body sessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}

	res, err := h.eval.Evaluate(c.Request.Context(), body.request(c.GetString(ctxRequestID), c.Param("userID")))
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// POST /v1/feedback
func (h *SessionHandler) Preview(c *gin.Context) {
	var body sessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}

	req := body.request(c.GetString(ctxRequestID), "")
	if err := evaluation.ValidatePreview(req); err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, h.eval.Preview(req))
}

type ProgressHandler struct {
	ledger LedgerReader
}

func NewProgressHandler(ledger LedgerReader) *ProgressHandler {
	return &ProgressHandler{ledger: ledger}
}

// GET /v1/users/:userID/status
func (h *ProgressHandler) Status(c *gin.Context) {
	st, err := h.ledger.GetStatus(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, st)
}

// GET /v1/users/:userID/history?limit=N&from=RFC3339&to=RFC3339
func (h *ProgressHandler) History(c *gin.Context) {
	var opts progression.HistoryOpts
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondError(c, http.StatusBadRequest, CodeInvalidRequest, fmt.Errorf("limit %q must be a non-negative integer", raw))
			return
		}
		opts.Limit = n
	}
	for _, q := range []struct {
		name string
		dst  *time.Time
	}{{"from", &opts.From}, {"to", &opts.To}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, CodeInvalidRequest, fmt.Errorf("%s %q must be an RFC 3339 timestamp", q.name, raw))
			return
		}
		*q.dst = t
	}

	entries, err := h.ledger.GetHistoryPage(c.Request.Context(), c.Param("userID"), opts)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, gin.H{"sessions": entries})
}

// GET /v1/users/:userID/progression
func (h *ProgressHandler) Progression(c *gin.Context) {
	st, err := h.ledger.GetProgression(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, st)
}

type ProfileHandler struct {
	profiles ProfileStore
}

func NewProfileHandler(profiles ProfileStore) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GET /v1/users/:userID/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, p)
}

// PUT /v1/users/:userID/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var body progression.ProfileUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}

	p, err := h.profiles.Update(c.Request.Context(), c.Param("userID"), body)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, p)
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler { return &HealthHandler{db: db} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			RespondError(c, http.StatusServiceUnavailable, CodeStorageUnavailable, errors.New("database unreachable"))
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
