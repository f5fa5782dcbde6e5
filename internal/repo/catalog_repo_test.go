package repo

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tbourn/service-connect/internal/domain"
)

func TestSeedServices_OnlyWhenEmpty(t *testing.T) {
	db := newRepoDB(t)

	n, err := SeedServices(ctxT(), db, DefaultCatalog())
	if err != nil {
		t.Fatalf("SeedServices: %v", err)
	}
	if n != 10 {
		t.Fatalf("expected 10 seeded services, got %d", n)
	}

	n, err = SeedServices(ctxT(), db, DefaultCatalog())
	if err != nil || n != 0 {
		t.Fatalf("second seed should be a no-op, got n=%d err=%v", n, err)
	}
	total, _ := CountServices(ctxT(), db)
	if total != 10 {
		t.Fatalf("catalog size = %d; want 10", total)
	}
}

func TestSeedServices_RejectsNegativePrice(t *testing.T) {
	db := newRepoDB(t)
	bad := []domain.Service{{Name: "Free money", Category: "Home", Price: decimal.NewFromInt(-1)}}
	if _, err := SeedServices(ctxT(), db, bad); err == nil {
		t.Fatalf("expected error for negative price")
	}
	if total, _ := CountServices(ctxT(), db); total != 0 {
		t.Fatalf("nothing should be written, got %d", total)
	}
}

func TestListServices_CategoryFilter(t *testing.T) {
	db := newRepoDB(t)
	if _, err := SeedServices(ctxT(), db, DefaultCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	all, err := ListServices(ctxT(), db, "All")
	if err != nil || len(all) != 10 {
		t.Fatalf("ListServices(All) = %d, %v", len(all), err)
	}
	if all[0].Name != "House Cleaning" || !all[0].Price.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected first service: %+v", all[0])
	}

	home, err := ListServices(ctxT(), db, "home")
	if err != nil {
		t.Fatalf("ListServices(home): %v", err)
	}
	if len(home) != 4 {
		t.Fatalf("expected 4 Home services, got %d", len(home))
	}
	for _, s := range home {
		if s.Category != "Home" {
			t.Fatalf("filter leaked %+v", s)
		}
	}

	cats, err := ListCategories(ctxT(), db)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if want := []string{"Auto", "Home", "Maintenance", "Tech"}; !reflect.DeepEqual(cats, want) {
		t.Fatalf("categories = %v; want %v", cats, want)
	}
}

func TestGetService_NotFound(t *testing.T) {
	db := newRepoDB(t)
	if _, err := GetService(ctxT(), db, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSeedUsers_SkipsExisting(t *testing.T) {
	db := newRepoDB(t)
	users := []domain.User{
		{Email: "admin@serviceconnect.com", PasswordHash: "h", Name: "Admin", Role: domain.RoleAdmin, Active: true},
		{Email: "tech@example.com", PasswordHash: "h", Name: "Demo Tech", Role: domain.RoleTechnician, Active: true},
	}
	n, err := SeedUsers(ctxT(), db, users)
	if err != nil || n != 2 {
		t.Fatalf("SeedUsers = %d, %v", n, err)
	}
	n, err = SeedUsers(ctxT(), db, users)
	if err != nil || n != 0 {
		t.Fatalf("re-seed should skip existing, got %d, %v", n, err)
	}
}
