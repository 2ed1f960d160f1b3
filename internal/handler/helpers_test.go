package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"canopy/internal/domain"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"quota analysis error", &domain.AnalysisError{Reason: domain.ReasonQuotaExceeded}, http.StatusTooManyRequests},
		{"network analysis error", &domain.AnalysisError{Reason: domain.ReasonNetwork}, http.StatusBadGateway},
		{"malformed analysis error", &domain.AnalysisError{Reason: domain.ReasonMalformed}, http.StatusBadGateway},
		{"wrapped validation", fmt.Errorf("bad name: %w", domain.ErrValidation), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("node x: %w", domain.ErrNotFound), http.StatusNotFound},
		{"run active", domain.ErrRunActive, http.StatusConflict},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, tt.err)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("content type = %q, want problem+json", ct)
			}
		})
	}
}
