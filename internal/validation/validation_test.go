package validation

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{
			name:    "international format",
			phone:   "+34612345678",
			wantErr: false,
		},
		{
			name:    "formatted with spaces and dashes",
			phone:   "+40 721-111-222",
			wantErr: false,
		},
		{
			name:    "parentheses",
			phone:   "(612) 345 678",
			wantErr: false,
		},
		{
			name:    "too few digits",
			phone:   "12345",
			wantErr: true,
		},
		{
			name:    "too many digits",
			phone:   "1234567890123456",
			wantErr: true,
		},
		{
			name:    "letters",
			phone:   "call-me-maybe",
			wantErr: true,
		},
		{
			name:    "empty",
			phone:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhone(tt.phone)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePhone(%q) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFullName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid name",
			input:   "Ana García",
			wantErr: false,
		},
		{
			name:    "single name",
			input:   "Ana",
			wantErr: false,
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
		{
			name:    "only whitespace",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "single character",
			input:   "A",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFullName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFullName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLast4(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "four digits",
			input:   "5678",
			wantErr: false,
		},
		{
			name:    "three digits",
			input:   "567",
			wantErr: true,
		},
		{
			name:    "five digits",
			input:   "56789",
			wantErr: true,
		},
		{
			name:    "letters",
			input:   "abcd",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLast4(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLast4(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
