package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/todaysafrica/newsroom/internal/backend"
	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"github.com/todaysafrica/newsroom/internal/editor/media"
	"github.com/todaysafrica/newsroom/internal/editor/workflow"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRespond(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{media.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{&backend.APIError{Status: 413, Kind: backend.ErrPayloadTooLarge}, http.StatusRequestEntityTooLarge},
		{media.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{fmt.Errorf("upload: %w", media.ErrStorage), http.StatusBadGateway},
		{fmt.Errorf("%w: blob:1", codec.ErrUnresolvedMedia), http.StatusConflict},
		{workflow.ErrIllegalTransition, http.StatusConflict},
		{workflow.ErrReasonRequired, http.StatusUnprocessableEntity},
		{&backend.APIError{Status: 401, Kind: backend.ErrUnauthorized}, http.StatusUnauthorized},
		{&backend.APIError{Status: 404, Kind: backend.ErrNotFound}, http.StatusNotFound},
		{&backend.APIError{Status: 400, Kind: backend.ErrBadRequest, Message: "titre déjà utilisé"}, http.StatusUnprocessableEntity},
		{&backend.APIError{Kind: backend.ErrUnavailable}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Respond(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
