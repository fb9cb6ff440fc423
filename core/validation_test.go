package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateRecords(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		wantErr bool
	}{
		{name: "nil", records: nil},
		{name: "unique", records: []Record{{ID: "a"}, {ID: "b"}}},
		{name: "blank ids are exempt", records: []Record{{ID: ""}, {ID: ""}}},
		{name: "duplicate", records: []Record{{ID: "a"}, {ID: "b"}, {ID: "a"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecords(tt.records)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSchema)
				assert.ErrorIs(t, err, ErrDuplicateID)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateTurn(t *testing.T) {
	tests := []struct {
		name    string
		turn    *Turn
		wantErr error
	}{
		{name: "valid user turn", turn: &Turn{Role: RoleUser, Text: "hi", At: time.Now()}},
		{name: "valid assistant turn", turn: &Turn{Role: RoleAssistant, Text: "hello", At: time.Now()}},
		{name: "nil", turn: nil, wantErr: ErrEmptyText},
		{name: "empty text", turn: &Turn{Role: RoleUser, At: time.Now()}, wantErr: ErrEmptyText},
		{name: "bad role", turn: &Turn{Role: Role(9), Text: "x", At: time.Now()}, wantErr: ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTurn(tt.turn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateTurn_FutureTimestamp(t *testing.T) {
	err := ValidateTurn(&Turn{Role: RoleUser, Text: "x", At: time.Now().Add(time.Hour)})
	assert.Error(t, err)
}

func TestIsValidTimestamp(t *testing.T) {
	assert.True(t, IsValidTimestamp(time.Now()))
	assert.True(t, IsValidTimestamp(time.Now().Add(-time.Hour)))
	assert.False(t, IsValidTimestamp(time.Now().Add(time.Minute)))
}
