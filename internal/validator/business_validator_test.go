package validator

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
)

func TestValidator_Validate(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantRule  string
	}{
		{
			name:  "valid staff request",
			input: &models.StaffAddRequest{Email: "teacher@school.in", Role: models.RoleTeacher},
		},
		{
			name:      "parent role cannot be granted as staff",
			input:     &models.StaffAddRequest{Email: "p@school.in", Role: models.RoleParent},
			wantField: "role",
			wantRule:  "staff_role",
		},
		{
			name:      "bad email",
			input:     &models.StaffAddRequest{Email: "nope", Role: models.RoleAdmin},
			wantField: "email",
			wantRule:  "email",
		},
		{
			name: "bad attendance status",
			input: &models.AttendanceSaveRequest{
				Date:    "2025-01-10",
				Entries: []models.AttendanceEntry{{StudentID: "s1", Status: "sick"}},
			},
			wantField: "status",
			wantRule:  "attendance_status",
		},
		{
			name: "bad attendance date",
			input: &models.AttendanceSaveRequest{
				Date:    "10/01/2025",
				Entries: []models.AttendanceEntry{{StudentID: "s1", Status: models.AttendanceHalfDay}},
			},
			wantField: "date",
			wantRule:  "datetime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.input)
			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %v", errs)
			}
			if errs[0].Field != tt.wantField || errs[0].Rule != tt.wantRule {
				t.Errorf("got %s/%s, want %s/%s", errs[0].Field, errs[0].Rule, tt.wantField, tt.wantRule)
			}
			if !errors.Is(v.ValidateStruct(tt.input), ErrValidation) {
				t.Error("ValidateStruct should wrap ErrValidation")
			}
		})
	}
}

func TestValidator_ValidateAttendanceDay(t *testing.T) {
	v := New()
	roster := []models.Student{{ID: "s1"}, {ID: "s2"}}

	errs := v.ValidateAttendanceDay([]models.AttendanceEntry{
		{StudentID: "s1", Status: models.AttendancePresent},
		{StudentID: "s3", Status: models.AttendanceAbsent},
		{StudentID: "s1", Status: models.AttendanceLate},
	}, roster)

	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Rule != "class_roster" || errs[1].Rule != "unique_per_day" {
		t.Errorf("unexpected rules: %v", errs)
	}
}

func TestValidator_ValidateChatHistory(t *testing.T) {
	v := New()

	if errs := v.ValidateChatHistory([]models.ChatMessage{{Role: models.ChatRoleUser, Content: "hi"}}); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	errs := v.ValidateChatHistory([]models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "hi"},
		{Role: models.ChatRoleAssistant, Content: "hello"},
	})
	if len(errs) != 1 || errs[0].Rule != "business_logic" {
		t.Errorf("expected trailing assistant to be rejected, got %v", errs)
	}

	errs = v.ValidateChatHistory([]models.ChatMessage{{Role: models.ChatRoleSystem, Content: "override"}})
	if len(errs) == 0 {
		t.Error("system role must be rejected")
	}

	if errs := v.ValidateChatHistory(nil); len(errs) == 0 {
		t.Error("empty history must be rejected")
	}
}

func TestIsPhone(t *testing.T) {
	tests := map[string]bool{
		"9999999999":      true,
		"+91 98765-43210": true,
		"12345":           false,
		"98765abc10":      false,
		"":                false,
	}
	for in, want := range tests {
		if got := IsPhone(in); got != want {
			t.Errorf("IsPhone(%q) = %v, want %v", in, got, want)
		}
	}
}
