package models

import (
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 string
		want           bool
	}{
		{"identical", "10:00", "10:30", "10:00", "10:30", true},
		{"partial", "10:00", "10:30", "10:15", "10:45", true},
		{"contained", "10:00", "11:00", "10:15", "10:30", true},
		{"touching end to start", "10:00", "10:30", "10:30", "11:00", false},
		{"touching start to end", "10:30", "11:00", "10:00", "10:30", false},
		{"disjoint", "08:00", "08:30", "14:00", "14:30", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.want {
				t.Errorf("Overlaps(%s-%s, %s-%s) = %v, want %v", tt.s1, tt.e1, tt.s2, tt.e2, got, tt.want)
			}
			if got := Overlaps(tt.s2, tt.e2, tt.s1, tt.e1); got != tt.want {
				t.Errorf("Overlaps not symmetric for %s", tt.name)
			}
		})
	}
}

func TestAppointmentDurations(t *testing.T) {
	tests := []struct {
		appt AppointmentType
		want time.Duration
	}{
		{GeneralConsultation, 30 * time.Minute},
		{FollowUp, 15 * time.Minute},
		{PhysicalExam, 45 * time.Minute},
		{SpecialistConsultation, 60 * time.Minute},
		{AppointmentType("bogus"), 30 * time.Minute}, // falls back to consultation
	}
	for _, tt := range tests {
		if got := tt.appt.Duration(); got != tt.want {
			t.Errorf("%s duration = %v, want %v", tt.appt, got, tt.want)
		}
	}
}

func TestParseAppointmentType(t *testing.T) {
	got, err := ParseAppointmentType("  Physical ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != PhysicalExam {
		t.Errorf("got %s, want %s", got, PhysicalExam)
	}

	if _, err := ParseAppointmentType("surgery"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"555-123-4567", "+1 (555) 123-4567", "5551234567"}
	for _, p := range valid {
		if err := ValidatePhone(p); err != nil {
			t.Errorf("ValidatePhone(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{"12345", "555-12ab", "call me"}
	for _, p := range invalid {
		if err := ValidatePhone(p); err == nil {
			t.Errorf("ValidatePhone(%q) = nil, want error", p)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("maria.garcia@example.com"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, e := range []string{"not-an-email", "a@b", "@example.com", ""} {
		if err := ValidateEmail(e); err == nil {
			t.Errorf("ValidateEmail(%q) = nil, want error", e)
		}
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Maria Garcia"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateName("O'Brien"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, n := range []string{"", "X", "123"} {
		if err := ValidateName(n); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", n)
		}
	}
}

func TestPatientInfoValidate(t *testing.T) {
	p := PatientInfo{Name: "Maria Garcia", Phone: "555-123-4567", Email: "maria@example.com"}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Email = "nope"
	if err := p.Validate(); err == nil {
		t.Error("expected error for bad email")
	}
}
