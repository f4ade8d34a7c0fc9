package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		// Valid emails
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"user123@example.co.uk", true},
		{"a@b.co", true},
		{"user@localhost", true},  // RFC 5322 allows single-label domains
		{"admin@mailserver", true}, // useful for dev/test environments

		// Invalid emails - empty/whitespace
		{"", false},
		{"   ", false},

		// Invalid emails - missing parts
		{"user", false},
		{"user@", false},
		{"@example.com", false},

		// Invalid emails - bad format (previously allowed by weak regex)
		{".user@example.com", false},   // leading dot in local
		{"user.@example.com", false},   // trailing dot in local
		{"user..name@example.com", false}, // consecutive dots
		{"user@.example.com", false},   // leading dot in domain
		{"user@example..com", false},   // consecutive dots in domain

		// Invalid emails - display name format (should be rejected)
		{"User Name <user@example.com>", false},

		// Invalid emails - other malformed
		{"user @example.com", false},  // space in local
		{"user@ example.com", false},  // space after @
		{"user@exam ple.com", false},  // space in domain
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsInvitableEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"a@b.com", true},
		{"someone@my_host", true}, // looser than the registration rule
		{"a@b", true},
		{"", false},
		{"no-at-sign", false},
	}
	for _, tc := range cases {
		if got := IsInvitableEmail(tc.email); got != tc.want {
			t.Errorf("IsInvitableEmail(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User@Example.COM", "user@example.com"},
		{"  a@b.co  ", "a@b.co"},
		{"already@lower.case", "already@lower.case"},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateGroupName(t *testing.T) {
	long := ""
	for i := 0; i < 101; i++ {
		long += "x"
	}

	tests := []struct {
		name     string
		in       string
		want     string
		wantFail bool
	}{
		{"plain name", "Team X", "Team X", false},
		{"trims whitespace", "  Team X  ", "Team X", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"exactly 100 chars", long[:100], long[:100], false},
		{"101 chars", long, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, problem := ValidateGroupName(tt.in)
			if (problem != "") != tt.wantFail {
				t.Fatalf("ValidateGroupName(%q) problem = %q, wantFail %v", tt.in, problem, tt.wantFail)
			}
			if !tt.wantFail && got != tt.want {
				t.Errorf("ValidateGroupName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"valid", "correct-h0rse-battery", true},
		{"valid with bracket symbol", "Tr0ub4dour[xyz]", true},
		{"too short", "Ab1!short", false},
		{"no letter", "123456789012!@#", false},
		{"no digit", "letters-and-symbols!", false},
		{"no symbol", "letters4nddigits99", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := ValidatePassword(tt.password)
			if (problem == "") != tt.wantOK {
				t.Errorf("ValidatePassword(%q) = %q, wantOK %v", tt.password, problem, tt.wantOK)
			}
		})
	}
}
