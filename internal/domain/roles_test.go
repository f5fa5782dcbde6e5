package domain

import "testing"

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"client":      RoleClient,
		"user":        RoleClient,
		" Technical ": RoleTechnician,
		"technician":  RoleTechnician,
		"ADMIN":       RoleAdmin,
	}
	for in, want := range cases {
		got, ok := ParseRole(in)
		if !ok || got != want {
			t.Errorf("ParseRole(%q) = %q,%v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatalf("ParseRole(root) should fail")
	}
	if Role("root").Valid() {
		t.Fatalf("unknown role reported valid")
	}
}

func TestCanTransition(t *testing.T) {
	legal := [][2]OrderStatus{
		{StatusPending, StatusDone},
		{StatusPending, StatusCancelled},
	}
	for _, tr := range legal {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be legal", tr[0], tr[1])
		}
	}
	illegal := [][2]OrderStatus{
		{StatusDone, StatusPending},
		{StatusDone, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusDone},
		{StatusPending, StatusPending},
	}
	for _, tr := range illegal {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be illegal", tr[0], tr[1])
		}
	}
	if StatusPending.Terminal() || !StatusDone.Terminal() || !StatusCancelled.Terminal() {
		t.Fatalf("terminal states wrong")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if s, ok := ParseOrderStatus("canceled"); !ok || s != StatusCancelled {
		t.Fatalf("canceled -> %q,%v", s, ok)
	}
	if s, ok := ParseOrderStatus(" DONE "); !ok || s != StatusDone {
		t.Fatalf("DONE -> %q,%v", s, ok)
	}
	if _, ok := ParseOrderStatus("shipped"); ok {
		t.Fatalf("shipped should not parse")
	}
}
