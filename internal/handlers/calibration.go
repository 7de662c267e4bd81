package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/calibration"
	"lightdark-study/internal/models"
	"lightdark-study/internal/session"
)

type CalibrationHandler struct {
	log  *zap.Logger
	ctrl *session.Controller
}

func NewCalibrationHandler(log *zap.Logger, ctrl *session.Controller) *CalibrationHandler {
	return &CalibrationHandler{log: log, ctrl: ctrl}
}

type tokenRequest struct {
	Token uint64 `json:"token"`
}

type fittsRequest struct {
	Token          uint64  `json:"token"`
	MovementTimeMs float64 `json:"movementTimeMs"`
	Success        bool    `json:"success"`
}

type hicksRequest struct {
	Token          uint64  `json:"token"`
	ReactionTimeMs float64 `json:"reactionTimeMs"`
	Key            string  `json:"key"`
	Correct        bool    `json:"correct"`
}

// CalibrationView reports the frozen equations, a live fit over the trials
// so far and the per-level summaries.
type CalibrationView struct {
	Stage       session.Stage           `json:"stage"`
	Calibration *models.CalibrationData `json:"calibration,omitempty"`
	FittsFit    *calibration.Result     `json:"fittsFit,omitempty"`
	HicksFit    *calibration.Result     `json:"hicksFit,omitempty"`
	Preview     session.Preview         `json:"preview"`
	Summary     calibration.Summary     `json:"summary"`
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("malformed request body: %v: %w", err, apperrors.ErrInvalidInput)
	}
	return nil
}

func (h *CalibrationHandler) Trial(c *gin.Context) {
	view, err := h.ctrl.CurrentTrial()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CalibrationHandler) Arm(c *gin.Context) {
	var req tokenRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	ticket, err := h.ctrl.Arm(req.Token)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *CalibrationHandler) RecordFitts(c *gin.Context) {
	var req fittsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.record(c, session.RecordFitts{Token: req.Token, MovementTimeMs: req.MovementTimeMs, Success: req.Success})
}

func (h *CalibrationHandler) RecordHicks(c *gin.Context) {
	var req hicksRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.record(c, session.RecordHicks{Token: req.Token, ReactionTimeMs: req.ReactionTimeMs, Key: req.Key, Correct: req.Correct})
}

func (h *CalibrationHandler) Finish(c *gin.Context) {
	h.record(c, session.FinishCalibration{})
}

func (h *CalibrationHandler) record(c *gin.Context, ev session.Event) {
	state, err := h.ctrl.Dispatch(ev)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(state, h.ctrl.Debug()))
}

func (h *CalibrationHandler) Get(c *gin.Context) {
	state := h.ctrl.Snapshot()
	c.JSON(http.StatusOK, CalibrationView{
		Stage:       state.Stage,
		Calibration: state.Calibration,
		FittsFit:    state.FittsFit,
		HicksFit:    state.HicksFit,
		Preview:     h.ctrl.Preview(),
		Summary:     calibration.Summarize(state.FittsTrials, state.HicksTrials),
	})
}

// Chart returns echarts options for the trials of one model (?model=fitts
// or hicks) with its fitted line.
func (h *CalibrationHandler) Chart(c *gin.Context) {
	state := h.ctrl.Snapshot()
	preview := h.ctrl.Preview()

	switch model := c.DefaultQuery("model", "fitts"); model {
	case "fitts":
		eq := preview.Fitts.Equation
		if state.Calibration != nil && state.Calibration.FittsEquation != nil {
			eq = *state.Calibration.FittsEquation
		}
		chart := generateFittsChart(state.FittsTrials, eq)
		chart.Validate()
		c.JSON(http.StatusOK, chart.JSON())
	case "hicks":
		eq := preview.Hicks.Equation
		if state.Calibration != nil && state.Calibration.HicksEquation != nil {
			eq = *state.Calibration.HicksEquation
		}
		chart := generateHicksChart(state.HicksTrials, eq)
		chart.Validate()
		c.JSON(http.StatusOK, chart.JSON())
	default:
		respondError(c, h.log, fmt.Errorf("unknown model %q: %w", model, apperrors.ErrInvalidInput))
	}
}
