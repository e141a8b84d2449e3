package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/collectiva/loan-engine/pkg/errors"
)

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]string{"loan_id": "LN-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestBusinessErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "loan not found",
			err:    apperrors.WrapLoanNotFound("LN-1"),
			status: http.StatusNotFound,
			code:   apperrors.ErrCodeLoanNotFound,
		},
		{
			name:   "state conflict",
			err:    apperrors.WrapStateConflict("LN-1", "rejected", "approved"),
			status: http.StatusConflict,
			code:   apperrors.ErrCodeStateConflict,
		},
		{
			name:   "remittance already filed",
			err:    apperrors.WrapRemittanceAlreadyFiled("agent", "2024-01-02"),
			status: http.StatusConflict,
			code:   apperrors.ErrCodeRemittanceAlreadyFiled,
		},
		{
			name:   "non-business day",
			err:    apperrors.WrapNonBusinessDay("2024-01-06"),
			status: http.StatusBadRequest,
			code:   apperrors.ErrCodeNonBusinessDay,
		},
		{
			name:   "payment exceeds balance",
			err:    apperrors.WrapPaymentExceedsBalance("LN-1", decimal.New(100, 0)),
			status: http.StatusUnprocessableEntity,
			code:   apperrors.ErrCodePaymentExceedsBalance,
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			BusinessError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}
