package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/export"
	"lightdark-study/internal/session"
)

type ExportHandler struct {
	log  *zap.Logger
	ctrl *session.Controller
	now  func() time.Time
}

func NewExportHandler(log *zap.Logger, ctrl *session.Controller) *ExportHandler {
	return &ExportHandler{log: log, ctrl: ctrl, now: time.Now}
}

// Download returns a gin handler serving the given export of the current
// participant as an attachment.
func (h *ExportHandler) Download(kind export.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := h.ctrl.Snapshot()
		if state.Participant == nil {
			respondError(c, h.log, fmt.Errorf("no participant to export: %w", apperrors.ErrNotFound))
			return
		}

		bundle, err := export.Build(state.Participant, state.Calibration, state.Results, h.now())
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		body, err := bundle.Get(kind)
		if err != nil {
			respondError(c, h.log, err)
			return
		}

		filename := export.Filename(kind, state.Participant.ParticipantID)
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Data(http.StatusOK, export.ContentType(kind), []byte(body))
	}
}
