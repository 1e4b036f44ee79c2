// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package validation

import (
	"strings"
	"testing"
)

type recommendForm struct {
	Mood      string `validate:"omitempty,mood"`
	Count     int    `validate:"min=0,max=50"`
	SessionID string `validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		form    recommendForm
		wantErr bool
	}{
		{
			name: "valid happy",
			form: recommendForm{Mood: "happy", Count: 5, SessionID: "abc"},
		},
		{
			name: "valid random sentinel",
			form: recommendForm{Mood: "random", Count: 1, SessionID: "abc"},
		},
		{
			name: "empty mood allowed",
			form: recommendForm{Count: 5, SessionID: "abc"},
		},
		{
			name:    "unknown mood",
			form:    recommendForm{Mood: "angry", Count: 5, SessionID: "abc"},
			wantErr: true,
		},
		{
			name:    "count over cap",
			form:    recommendForm{Mood: "sad", Count: 51, SessionID: "abc"},
			wantErr: true,
		},
		{
			name:    "missing session id",
			form:    recommendForm{Mood: "neutral", Count: 5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateStruct(&tt.form)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&recommendForm{Mood: "angry", Count: 5, SessionID: "abc"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "must be one of") {
		t.Errorf("Message = %q, want mood list message", apiErr.Message)
	}
	if apiErr.Details["field"] != "Mood" {
		t.Errorf("Details[field] = %v, want Mood", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultiple(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&recommendForm{Mood: "angry", Count: 99})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 3 {
		t.Fatalf("Errors() len = %d, want 3", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if apiErr.Details["fields"] == nil {
		t.Error("Details[fields] missing for multi-error response")
	}
}
