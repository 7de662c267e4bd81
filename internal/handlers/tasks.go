package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/models"
	"lightdark-study/internal/session"
)

type TaskHandler struct {
	log  *zap.Logger
	ctrl *session.Controller
}

func NewTaskHandler(log *zap.Logger, ctrl *session.Controller) *TaskHandler {
	return &TaskHandler{log: log, ctrl: ctrl}
}

// TaskView is the task the participant should perform now.
type TaskView struct {
	Task          models.Task          `json:"task"`
	Index         int                  `json:"index"`
	Total         int                  `json:"total"`
	Condition     models.Condition     `json:"condition"`
	InterfaceMode models.InterfaceMode `json:"interfaceMode"`
}

func (h *TaskHandler) Current(c *gin.Context) {
	state := h.ctrl.Snapshot()
	task, ok := state.CurrentTask()
	if !ok {
		respondError(c, h.log, fmt.Errorf("phase %s has no task: %w", state.Phase, apperrors.ErrNotFound))
		return
	}
	condition, _ := state.CurrentCondition()
	c.JSON(http.StatusOK, TaskView{
		Task:          task,
		Index:         state.TaskIndex,
		Total:         len(state.Tasks),
		Condition:     condition,
		InterfaceMode: state.InterfaceMode(),
	})
}

func (h *TaskHandler) RecordResult(c *gin.Context) {
	var input models.TaskInput
	if err := bindJSON(c, &input); err != nil {
		respondError(c, h.log, err)
		return
	}

	state, err := h.ctrl.Dispatch(session.RecordTask{Input: input})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(state, h.ctrl.Debug()))
}
