package domain

import "testing"

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingConfirmed, BookingInProgress, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingInProgress, BookingCompleted, true},
		{BookingPending, BookingCompleted, false},
		{BookingInProgress, BookingCancelled, false},
		{BookingCompleted, BookingPending, false},
		{BookingCancelled, BookingConfirmed, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":      RoleAdmin,
		" Admin ":    RoleAdmin,
		"decorator":  RoleDecorator,
		"user":       RoleUser,
		"":           RoleUser,
		"superadmin": RoleUser,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestProfilePatch_Apply(t *testing.T) {
	name := "Nadia"
	id := Identity{UID: "u1", DisplayName: "old", PhotoURL: "p.png"}

	got := ProfilePatch{DisplayName: &name}.Apply(id)
	if got.DisplayName != "Nadia" {
		t.Errorf("expected display name to change, got %q", got.DisplayName)
	}
	if got.PhotoURL != "p.png" {
		t.Errorf("expected photo untouched, got %q", got.PhotoURL)
	}
	if id.DisplayName != "old" {
		t.Error("Apply must not mutate its argument")
	}
	if !(ProfilePatch{}).Empty() {
		t.Error("zero patch must be empty")
	}
}

func TestBookingStatus_Valid(t *testing.T) {
	for _, s := range []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled} {
		if !s.Valid() {
			t.Errorf("%q must be valid", s)
		}
	}
	if BookingStatus("done").Valid() || BookingStatus("").Valid() {
		t.Error("unknown statuses must be invalid")
	}
}
