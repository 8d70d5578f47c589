package validator

import "testing"

func TestCheck_KeepsFirstMessage(t *testing.T) {
	v := New()
	v.Check(false, "phone", "must be provided")
	v.Check(false, "phone", "must be a valid number")

	if v.Valid() {
		t.Fatalf("validator must be invalid")
	}
	if got := v.Errors["phone"]; got != "must be provided" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMatches_Phone(t *testing.T) {
	cases := map[string]bool{
		"01012345678":   true,
		"0101234567":    false,
		"02012345678":   false,
		"+201012345678": false,
		"01a12345678":   false,
	}
	for in, want := range cases {
		if got := Matches(in, PhoneRX); got != want {
			t.Fatalf("Matches(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPermittedValue(t *testing.T) {
	if !PermittedValue("car", "tuktuk", "car") {
		t.Fatalf("car must be permitted")
	}
	if PermittedValue("bus", "tuktuk", "car") {
		t.Fatalf("bus must not be permitted")
	}
}

func TestInRange(t *testing.T) {
	if !InRange(15.0, 15, 3000) || InRange(3000.5, 15, 3000) {
		t.Fatalf("unexpected range result")
	}
}
