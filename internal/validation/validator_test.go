package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sleepfit-stats/internal/apperror"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Theme    string `json:"theme,omitempty" validate:"omitempty,oneof=light dark system"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Quality  int    `json:"quality" validate:"gte=1,lte=10"`
}

func TestStruct(t *testing.T) {
	valid := signup{Email: "a@example.com", Password: "secret1", Quality: 5}

	tests := []struct {
		name      string
		mutate    func(*signup)
		wantField string
		wantMsg   string
	}{
		{"valid", func(*signup) {}, "", ""},
		{"missing email", func(s *signup) { s.Email = "" }, "email", "email is required"},
		{"bad email", func(s *signup) { s.Email = "nope" }, "email", "email must be a valid email address"},
		{"short password", func(s *signup) { s.Password = "abc" }, "password", "password must be at least 6 characters"},
		{"unknown theme", func(s *signup) { s.Theme = "neon" }, "theme", "theme must be one of: light, dark, system"},
		{"bad date", func(s *signup) { s.Date = "15/01/2024" }, "date", "date must be a date in YYYY-MM-DD format"},
		{"quality too high", func(s *signup) { s.Quality = 11 }, "quality", "quality must be less than or equal to 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			err := Struct(in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestValidatorIsShared(t *testing.T) {
	assert.Same(t, Validator(), Validator())
}
