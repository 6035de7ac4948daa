package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/types"
	"github.com/brokersim/brokerage-api/pkg/locks"
)

func perform(t *testing.T, method string, data interface{}, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)

	Handle(c, data, err)

	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return w, body
}

func TestHandleSuccess(t *testing.T) {
	w, body := perform(t, http.MethodGet, map[string]string{"k": "v"}, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !body.Success {
		t.Error("success flag not set")
	}

	// POSTs that succeed report created.
	w, _ = perform(t, http.MethodPost, map[string]string{"k": "v"}, nil)
	if w.Code != http.StatusCreated {
		t.Errorf("POST status = %d, want 201", w.Code)
	}
}

func TestHandleErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"validation",
			&types.ValidationError{Field: "quantity", Reason: "must be a positive integer"},
			http.StatusBadRequest, ErrCodeValidationFailed,
		},
		{
			"insufficient funds",
			&types.InsufficientFundsError{Required: decimal.NewFromInt(100), Available: decimal.NewFromInt(10)},
			http.StatusUnprocessableEntity, ErrCodeInsufficientFunds,
		},
		{
			"insufficient shares",
			&types.InsufficientSharesError{Symbol: "AAPL", Owned: 1, Requested: 5},
			http.StatusUnprocessableEntity, ErrCodeInsufficientShares,
		},
		{
			"upstream failure",
			&types.ExternalError{Op: "price lookup", Err: errors.New("feed down")},
			http.StatusBadGateway, ErrCodeUpstreamFailure,
		},
		{
			"wrapped upstream failure",
			fmt.Errorf("executing order: %w", &types.ExternalError{Op: "price lookup", Err: errors.New("feed down")}),
			http.StatusBadGateway, ErrCodeUpstreamFailure,
		},
		{
			"lock timeout",
			locks.ErrTimeout,
			http.StatusConflict, ErrCodeAccountBusy,
		},
		{
			"record not found",
			gorm.ErrRecordNotFound,
			http.StatusNotFound, ErrCodeNotFound,
		},
		{
			"unknown error",
			errors.New("boom"),
			http.StatusInternalServerError, ErrCodeInternalError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := perform(t, http.MethodPost, nil, tc.err)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if body.Success {
				t.Error("success flag set on error response")
			}
			if body.Error == nil || body.Error.Code != tc.wantCode {
				t.Errorf("error code = %v, want %s", body.Error, tc.wantCode)
			}
		})
	}
}
