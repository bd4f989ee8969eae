package validation

import (
	"testing"

	"github.com/google/uuid"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) bool
		value string
		want  bool
	}{
		{"email", IsValidEmail, "jane.doe@school.edu", true},
		{"email without domain", IsValidEmail, "jane@", false},
		{"email upper case must be normalized first", IsValidEmail, "Jane@School.edu", false},
		{"student number", IsValidStudentNumber, "300123456", true},
		{"student number too short", IsValidStudentNumber, "123", false},
		{"student number letters", IsValidStudentNumber, "30012345a", false},
		{"course code", IsValidCourseCode, "COMP308", true},
		{"course code with suffix", IsValidCourseCode, "MATH101A", true},
		{"course code lower case", IsValidCourseCode, "comp308", false},
		{"username", IsValidUsername, "root.admin", true},
		{"username too short", IsValidUsername, "ab", false},
		{"name", IsValidName, "  Ada ", true},
		{"blank name", IsValidName, "   ", false},
		{"password", IsStrongPassword, "Secret123", true},
		{"password without digit", IsStrongPassword, "Secretive", false},
		{"password too short", IsStrongPassword, "abc12", false},
		{"id", IsValidID, uuid.NewString(), true},
		{"id without dashes", IsValidID, "0f8fad5bd9cb469fa16570867728950e", false},
		{"id garbage", IsValidID, "not-an-id", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.value); got != tt.want {
				t.Fatalf("%q: got %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Jane@School.EDU "); got != "jane@school.edu" {
		t.Errorf("NormalizeEmail = %q", got)
	}
	if got := NormalizeCourseCode(" comp308 "); got != "COMP308" {
		t.Errorf("NormalizeCourseCode = %q", got)
	}
}

func TestOptionalStringValidation(t *testing.T) {
	if !NewStringValidation("").WithRequired(false).Validate() {
		t.Error("empty optional value should pass")
	}
	if NewStringValidation("").Validate() {
		t.Error("empty required value should fail")
	}
}
