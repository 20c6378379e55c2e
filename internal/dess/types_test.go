package dess

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFlexString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string", `"230.1"`, "230.1"},
		{"integer", `52`, "52"},
		{"float", `49.97`, "49.97"},
		{"negative", `-120`, "-120"},
		{"empty string", `""`, ""},
		{"text", `"Grid Mode"`, "Grid Mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.input, err)
			}
			if f.String() != tt.want {
				t.Errorf("got %q, want %q", f.String(), tt.want)
			}
		})
	}
}

func TestFlexString_Int(t *testing.T) {
	if got := FlexString("42").Int(); got != 42 {
		t.Errorf("Int() = %d, want 42", got)
	}
	if got := FlexString("not a number").Int(); got != 0 {
		t.Errorf("Int() = %d, want 0 for unparseable value", got)
	}
}

func TestSession_Valid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session *Session
		want    bool
	}{
		{
			name:    "nil session",
			session: nil,
			want:    false,
		},
		{
			name:    "missing token",
			session: &Session{Secret: "s", ExpiresAt: now.Add(time.Hour)},
			want:    false,
		},
		{
			name:    "missing secret",
			session: &Session{Token: "t", ExpiresAt: now.Add(time.Hour)},
			want:    false,
		},
		{
			name:    "expired",
			session: &Session{Token: "t", Secret: "s", ExpiresAt: now.Add(-time.Hour)},
			want:    false,
		},
		{
			name:    "inside expiry margin",
			session: &Session{Token: "t", Secret: "s", ExpiresAt: now.Add(30 * time.Second)},
			want:    false,
		},
		{
			name:    "valid",
			session: &Session{Token: "t", Secret: "s", ExpiresAt: now.Add(time.Hour)},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
