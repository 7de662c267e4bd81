package router

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lightdark-study/internal/calibration"
	"lightdark-study/internal/config"
	"lightdark-study/internal/models"
	"lightdark-study/internal/prediction"
	"lightdark-study/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testProtocol() *models.Protocol {
	return &models.Protocol{
		Conditions: []models.Condition{
			{InterfaceMode: models.InterfaceDark, RoomCondition: models.RoomDark, Label: "Dark Interface / Dark Room"},
		},
		Tasks: []models.TaskDefinition{
			{ID: "btn-1", Type: models.TaskButtonClick, Instruction: "Click the target button"},
		},
	}
}

func newTestServer(t *testing.T, debug bool, startLimit int) (*gin.Engine, *session.Controller) {
	t.Helper()
	var epochs atomic.Int64
	newEnv := func() session.Env {
		return session.Env{
			Now:  time.Now,
			Rand: rand.New(rand.NewSource(3)),
			Design: calibration.Design{
				FittsWidths:      []float64{20},
				FittsDistances:   []float64{100},
				FittsRepetitions: 1,
				HicksLevels:      []int{2},
				HicksRepetitions: 1,
				KeyAlphabet:      []string{"1", "2", "3"},
			},
			Params:    calibration.DefaultParams(),
			Predictor: prediction.NewService(prediction.DefaultParams()),
			Protocol:  testProtocol(),
			NewEpoch:  func() string { return "epoch-" + strconv.FormatInt(epochs.Add(1), 10) },
			Debug:     debug,
		}
	}
	log := zaptest.NewLogger(t)
	ctrl := session.NewController(newEnv, log, session.WithDelays(session.Delays{}))
	t.Cleanup(ctrl.Close)

	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "index.html"), []byte("<h1>study</h1>"), 0o644))

	engine := Setup(log, config.ServerConfig{
		SessionSecret:  "test-secret",
		AssetsDir:      assets,
		Debug:          debug,
		StartRateLimit: startLimit,
	}, ctrl)
	return engine, ctrl
}

// browser carries cookies and the CSRF token between requests.
type browser struct {
	t       *testing.T
	engine  *gin.Engine
	cookies map[string]*http.Cookie
	csrf    string
}

func newBrowser(t *testing.T, engine *gin.Engine) *browser {
	b := &browser{t: t, engine: engine, cookies: map[string]*http.Cookie{}}
	b.do(http.MethodGet, "/api/session", nil)
	require.NotEmpty(t, b.csrf)
	return b
}

func (b *browser) do(method, path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(b.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if b.csrf != "" {
		req.Header.Set(csrfTokenHeaderKey, b.csrf)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.engine.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	if token := rec.Header().Get(csrfTokenHeaderKey); token != "" {
		b.csrf = token
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type sessionBody struct {
	Phase         string `json:"phase"`
	Stage         string `json:"stage"`
	Token         uint64 `json:"token"`
	InterfaceMode string `json:"interfaceMode"`
	Participant   *struct {
		ParticipantID string `json:"participantId"`
		Completed     bool   `json:"completed"`
	} `json:"participant"`
	CurrentTask *models.Task `json:"currentTask"`
}

type trialBody struct {
	Stage string `json:"stage"`
	Token uint64 `json:"token"`
	Armed bool   `json:"armed"`
}

func armTrial(t *testing.T, b *browser, ctrl *session.Controller) uint64 {
	t.Helper()
	trial := decode[trialBody](t, b.do(http.MethodGet, "/api/calibration/trial", nil))
	rec := b.do(http.MethodPost, "/api/calibration/arm", map[string]any{"token": trial.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Eventually(t, func() bool { return ctrl.Snapshot().Armed }, time.Second, time.Millisecond)
	return trial.Token
}

func TestStudyFlowOverHTTP(t *testing.T) {
	engine, ctrl := newTestServer(t, false, 5)
	b := newBrowser(t, engine)

	rec := b.do(http.MethodPost, "/api/session/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decode[sessionBody](t, rec)
	assert.Equal(t, "instructions", s.Phase)
	require.NotNil(t, s.Participant)
	pid := s.Participant.ParticipantID

	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/api/session/next", nil).Code)
	s = decode[sessionBody](t, b.do(http.MethodPost, "/api/session/next", nil))
	assert.Equal(t, "running-fitts", s.Stage)
	assert.Equal(t, "neutral", s.InterfaceMode)

	// A response before the ready period has elapsed is refused.
	trial := decode[trialBody](t, b.do(http.MethodGet, "/api/calibration/trial", nil))
	rec = b.do(http.MethodPost, "/api/calibration/fitts", map[string]any{"token": trial.Token, "movementTimeMs": 400, "success": true})
	assert.Equal(t, http.StatusConflict, rec.Code)

	token := armTrial(t, b, ctrl)
	rec = b.do(http.MethodPost, "/api/calibration/fitts", map[string]any{"token": token, "movementTimeMs": 400, "success": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "running-hicks", decode[sessionBody](t, rec).Stage)

	token = armTrial(t, b, ctrl)
	rec = b.do(http.MethodPost, "/api/calibration/hicks", map[string]any{"token": token, "reactionTimeMs": 350, "key": "9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "keys outside the active window are rejected")
	rec = b.do(http.MethodPost, "/api/calibration/hicks", map[string]any{"token": token, "reactionTimeMs": 350, "correct": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "fitting", decode[sessionBody](t, rec).Stage)

	rec = b.do(http.MethodPost, "/api/calibration/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "condition-intro", decode[sessionBody](t, rec).Phase)
	assert.Equal(t, http.StatusConflict, b.do(http.MethodPost, "/api/calibration/finish", nil).Code)

	rec = b.do(http.MethodGet, "/api/calibration", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"calibrationComplete":true`)

	rec = b.do(http.MethodGet, "/api/calibration/chart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "series")
	assert.Equal(t, http.StatusBadRequest, b.do(http.MethodGet, "/api/calibration/chart?model=klm", nil).Code)

	s = decode[sessionBody](t, b.do(http.MethodPost, "/api/session/next", nil))
	assert.Equal(t, "task", s.Phase)
	assert.Equal(t, "dark", s.InterfaceMode)
	require.NotNil(t, s.CurrentTask)

	rec = b.do(http.MethodGet, "/api/tasks/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"btn-1"`)

	rec = b.do(http.MethodPost, "/api/tasks/result", map[string]any{
		"taskId":           "btn-1",
		"taskType":         "button-click",
		"completionTimeMs": 900,
		"totalClicks":      1,
		"success":          true,
		"targetDistancePx": 300,
		"targetWidthPx":    40,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "condition-complete", decode[sessionBody](t, rec).Phase)
	assert.Equal(t, http.StatusNotFound, b.do(http.MethodGet, "/api/tasks/current", nil).Code)

	s = decode[sessionBody](t, b.do(http.MethodPost, "/api/session/next", nil))
	assert.Equal(t, "completion", s.Phase)
	assert.True(t, s.Participant.Completed)

	rec = b.do(http.MethodGet, "/api/export/results.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="study-results-`+pid+`.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "btn-1")

	rec = b.do(http.MethodGet, "/api/export/calibration.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Fitts' Law Trials")

	rec = b.do(http.MethodGet, "/api/export/study.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), pid)
}

func TestCSRFRequired(t *testing.T) {
	engine, _ := newTestServer(t, false, 5)
	b := newBrowser(t, engine)
	b.csrf = "forged"

	rec := b.do(http.MethodPost, "/api/session/start", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStaleTabRejected(t *testing.T) {
	engine, ctrl := newTestServer(t, false, 5)
	first := newBrowser(t, engine)
	require.Equal(t, http.StatusOK, first.do(http.MethodPost, "/api/session/start", nil).Code)

	// A second tab without the bound cookie cannot drive the run.
	second := newBrowser(t, engine)
	assert.Equal(t, http.StatusConflict, second.do(http.MethodPost, "/api/session/next", nil).Code)
	assert.Equal(t, "instructions", string(ctrl.Snapshot().Phase))

	// After an operator reset the first tab is stale.
	ctrl.Reset()
	assert.Equal(t, http.StatusConflict, first.do(http.MethodPost, "/api/session/next", nil).Code)
}

func TestResetRebindsCaller(t *testing.T) {
	engine, ctrl := newTestServer(t, false, 5)
	b := newBrowser(t, engine)
	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/api/session/start", nil).Code)

	rec := b.do(http.MethodPost, "/api/session/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "consent", decode[sessionBody](t, rec).Phase)
	assert.False(t, ctrl.IsStale(ctrl.Snapshot().Epoch))

	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/api/session/start", nil).Code)
	assert.Equal(t, http.StatusOK, b.do(http.MethodPost, "/api/session/next", nil).Code)
}

func TestSkipRequiresDebug(t *testing.T) {
	engine, _ := newTestServer(t, false, 5)
	b := newBrowser(t, engine)
	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/api/session/start", nil).Code)
	assert.Equal(t, http.StatusForbidden, b.do(http.MethodPost, "/api/session/skip", nil).Code)

	engine, _ = newTestServer(t, true, 5)
	b = newBrowser(t, engine)
	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/api/session/start", nil).Code)
	rec := b.do(http.MethodPost, "/api/session/skip", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "calibration", decode[sessionBody](t, rec).Phase)
}

func TestStartRateLimited(t *testing.T) {
	engine, _ := newTestServer(t, false, 1)
	b := newBrowser(t, engine)
	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/api/session/start", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, b.do(http.MethodPost, "/api/session/start", nil).Code)
}

func TestStaticAssetsAndHeaders(t *testing.T) {
	engine, _ := newTestServer(t, false, 5)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "study")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestExportWithoutParticipant(t *testing.T) {
	engine, _ := newTestServer(t, false, 5)
	b := newBrowser(t, engine)
	assert.Equal(t, http.StatusNotFound, b.do(http.MethodGet, "/api/export/results.csv", nil).Code)
}
