package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"lightdark-study/internal/apperrors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("key %q: %w", "9", apperrors.ErrInvalidInput), http.StatusBadRequest},
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrDebugDisabled, http.StatusForbidden},
		{apperrors.ErrInvalidTransition, http.StatusConflict},
		{apperrors.ErrTrialNotArmed, http.StatusConflict},
		{apperrors.ErrNoActiveTrial, http.StatusConflict},
		{apperrors.ErrTaskMisconfigured, http.StatusConflict},
		{apperrors.ErrStaleSession, http.StatusConflict},
		{apperrors.ErrCalibrationFrozen, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
