package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "jimi hendrix", want: "Jimi Hendrix"},
		{input: "jimi hèndrix__", want: "Jimi Hendrix"},
		{input: "jimi@hend@rix", want: "Jimi Hend Rix"},
		{input: "   JIMI    HENDRIX   ", want: "Jimi Hendrix"},
		{input: "中村哲二", want: ""},
		{input: "jimi中村hèndrix__", want: "Jimi Hendrix"},
		{input: "{bad: code}", want: "Bad Code"},
		{input: "Zoë Saldaña-Perego", want: "Zoe Saldana Perego"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "Jimi Hendrix"},
		{name: "with dash", input: "Anne-Marie"},
		{name: "non latin letters", input: "中村哲二"},
		{name: "diacritics", input: "Zoë"},
		{name: "empty", input: "", wantErr: true},
		{name: "spaces only", input: "   ", wantErr: true},
		{name: "too short", input: "a", wantErr: true},
		{name: "digits", input: "jimi2", wantErr: true},
		{name: "symbols", input: "{bad: code}", wantErr: true},
		{name: "underscores", input: "jimi hèndrix__", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 201), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "jimi@example.com"},
		{name: "valid with plus", input: "jimi+tours@example.co.uk"},
		{name: "surrounding spaces", input: "  jimi@example.com  "},
		{name: "empty", input: "", wantErr: true},
		{name: "no at", input: "jimi.example.com", wantErr: true},
		{name: "no domain", input: "jimi@", wantErr: true},
		{name: "space inside", input: "ji mi@example.com", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 250) + "@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jimi@example.com", NormalizeEmail("  Jimi@Example.COM "))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
		errMsg   string
	}{
		{name: "valid", password: "Secret123!"},
		{name: "valid min length", password: "Aa1!aaaa"},
		{name: "valid max length", password: "Aa1!" + strings.Repeat("a", MaxPasswordLen-4)},
		{name: "empty", password: "", wantErr: true, errMsg: "cannot be empty"},
		{name: "too short", password: "Aa1!aaa", wantErr: true, errMsg: "at least 8"},
		{name: "too long", password: "Aa1!" + strings.Repeat("a", MaxPasswordLen-3), wantErr: true, errMsg: "must not exceed"},
		{name: "no upper", password: "secret123!", wantErr: true, errMsg: "upper case"},
		{name: "no lower", password: "SECRET123!", wantErr: true, errMsg: "lower case"},
		{name: "no digit", password: "Secretttt!", wantErr: true, errMsg: "digit"},
		{name: "no special", password: "Secret1234", wantErr: true, errMsg: PasswordSpecials},
		{name: "unsupported special only", password: "Secret123?", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}
