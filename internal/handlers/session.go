package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lightdark-study/internal/models"
	"lightdark-study/internal/session"
)

// EpochSessionKey is the cookie-session key binding a browser to the
// participant run it started.
const EpochSessionKey = "epoch"

// SessionView is the state snapshot sent to the UI.
type SessionView struct {
	session.State
	InterfaceMode models.InterfaceMode `json:"interfaceMode"`
	CurrentTask   *models.Task         `json:"currentTask,omitempty"`
	Debug         bool                 `json:"debug"`
}

func newSessionView(s session.State, debug bool) SessionView {
	view := SessionView{State: s, InterfaceMode: s.InterfaceMode(), Debug: debug}
	if task, ok := s.CurrentTask(); ok {
		view.CurrentTask = &task
	}
	return view
}

type SessionHandler struct {
	log  *zap.Logger
	ctrl *session.Controller
}

func NewSessionHandler(log *zap.Logger, ctrl *session.Controller) *SessionHandler {
	return &SessionHandler{log: log, ctrl: ctrl}
}

// bindEpoch stores the epoch of the run this browser now drives.
func bindEpoch(c *gin.Context, epoch string) error {
	s := sessions.Default(c)
	s.Set(EpochSessionKey, epoch)
	if err := s.Save(); err != nil {
		return fmt.Errorf("failed to save session cookie: %w", err)
	}
	return nil
}

func (h *SessionHandler) respond(c *gin.Context, s session.State) {
	c.JSON(http.StatusOK, newSessionView(s, h.ctrl.Debug()))
}

func (h *SessionHandler) Get(c *gin.Context) {
	h.respond(c, h.ctrl.Snapshot())
}

func (h *SessionHandler) Start(c *gin.Context) {
	state, err := h.ctrl.Dispatch(session.Start{})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := bindEpoch(c, state.Epoch); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("Participant session started",
		zap.String("participant_id", state.Participant.ParticipantID),
		zap.Strings("condition_order", state.Participant.ConditionOrder),
	)
	h.respond(c, state)
}

func (h *SessionHandler) Next(c *gin.Context) {
	h.dispatch(c, session.Next{})
}

func (h *SessionHandler) Skip(c *gin.Context) {
	h.dispatch(c, session.Skip{})
}

// Reset abandons the run from any tab and rebinds the caller to the fresh
// consent state.
func (h *SessionHandler) Reset(c *gin.Context) {
	state := h.ctrl.Reset()
	if err := bindEpoch(c, state.Epoch); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respond(c, state)
}

func (h *SessionHandler) dispatch(c *gin.Context, ev session.Event) {
	state, err := h.ctrl.Dispatch(ev)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respond(c, state)
}
