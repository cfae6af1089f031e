package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/charlesng35/folio/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Success(ctx, http.StatusCreated, gin.H{"url": "/register?token=abc"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}
	resp := decode(t, rec)
	if !resp.Success || resp.Error != nil {
		t.Fatal("expected a success envelope without error information")
	}
}

func TestNewMetaRoundsPagesUp(t *testing.T) {
	meta := NewMeta(2, 50, 101)
	if meta.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", meta.TotalPages)
	}

	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	SuccessWithMeta(ctx, http.StatusOK, []string{"a"}, meta)

	resp := decode(t, rec)
	if resp.Meta == nil || resp.Meta.Total != 101 || resp.Meta.Page != 2 {
		t.Fatal("expected metadata to be serialised")
	}
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, fmt.Errorf("gate: %w", apperrors.ErrAccessExpired))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Success {
		t.Fatal("expected success to be false")
	}
	if resp.Error == nil || resp.Error.Code != apperrors.ErrAccessExpired.Code {
		t.Fatal("expected access expired code in response")
	}
}

func TestErrorWithGenericAndTimeoutErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	Error(ctx, errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}

	rec = httptest.NewRecorder()
	ctx, _ = gin.CreateTestContext(rec)
	Error(ctx, context.DeadlineExceeded)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected status %d got %d", http.StatusGatewayTimeout, rec.Code)
	}
	if resp := decode(t, rec); resp.Error.Code != apperrors.ErrTimeout.Code {
		t.Fatalf("unexpected code %s", resp.Error.Code)
	}
}
