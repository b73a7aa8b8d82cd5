package jobs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// postCreate drives the create handler with a nil store/queue: every case here
// must be rejected by validation before either is touched.
func postCreate(t *testing.T, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")

	NewHandler(nil, nil).create(c)
	return w
}

func TestCreateRejectsExcessiveMaxAttempts(t *testing.T) {
	w := postCreate(t, map[string]any{"type": "code_execution", "maxAttempts": 50})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateRejectsNegativeMaxAttempts(t *testing.T) {
	w := postCreate(t, map[string]any{"type": "code_execution", "maxAttempts": -1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateRejectsUnknownJobType(t *testing.T) {
	w := postCreate(t, map[string]any{"type": "mine_bitcoin"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateRejectsMalformedWorkspaceID(t *testing.T) {
	w := postCreate(t, map[string]any{"type": "data_export", "workspaceId": "nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
