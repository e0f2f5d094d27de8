package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestOK_WrapsSlices(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	OK(c, []string{"a"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"a"}, decode(t, w)["data"])
}

func TestBadGateway_HidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	BadGateway(c, errors.New("dial tcp 10.0.0.1:8081: connection refused"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body["message"], "10.0.0.1")
	assert.True(t, c.IsAborted())
	assert.Len(t, c.Errors, 1)
}

func TestInvalid_ListsFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Invalid(c, map[string]string{"titre": "requis"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"titre": "requis"}, decode(t, w)["fields"])
}
