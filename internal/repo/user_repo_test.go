package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/tbourn/service-connect/internal/domain"
)

func TestCreateUser_DuplicateEmail_CaseInsensitive(t *testing.T) {
	db := newRepoDB(t)

	first := &domain.User{Email: "Ana@Example.com", PasswordHash: "h", Name: "Ana", Role: domain.RoleClient, Active: true}
	if err := CreateUser(ctxT(), db, first); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if first.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %q", first.Email)
	}

	dup := &domain.User{Email: " ana@example.COM ", PasswordHash: "h2", Name: "Other", Role: domain.RoleTechnician, Active: true}
	if err := CreateUser(ctxT(), db, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetUserByEmail(ctxT(), db, "ANA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != first.ID || got.Name != "Ana" || got.Role != domain.RoleClient {
		t.Fatalf("first registration altered: %+v", got)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newRepoDB(t)
	if _, err := GetUser(ctxT(), db, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetUserByEmail(ctxT(), db, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEmailExists(t *testing.T) {
	db := newRepoDB(t)
	u := mkUser(t, db, "eve", domain.RoleClient)

	ok, err := EmailExists(ctxT(), db, u.Email)
	if err != nil || !ok {
		t.Fatalf("EmailExists(existing) = %v, %v", ok, err)
	}
	ok, err = EmailExists(ctxT(), db, "missing@example.com")
	if err != nil || ok {
		t.Fatalf("EmailExists(missing) = %v, %v", ok, err)
	}
}

func TestTouchLastLogin_And_UpdateProfile(t *testing.T) {
	db := newRepoDB(t)
	u := mkUser(t, db, "bob", domain.RoleTechnician)

	at := time.Date(2030, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := TouchLastLogin(ctxT(), db, u.ID, at); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}

	phone := "+201234567890"
	bio := "Electrician"
	if err := UpdateProfile(ctxT(), db, u.ID, "Bob B.", &phone, &bio); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	got, err := GetUser(ctxT(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("last_login not stored: %v", got.LastLogin)
	}
	if got.Name != "Bob B." || got.Phone == nil || *got.Phone != phone || got.Bio == nil || *got.Bio != bio {
		t.Fatalf("profile not updated: %+v", got)
	}
	if got.Role != domain.RoleTechnician || got.Email != u.Email {
		t.Fatalf("role/email must be untouched: %+v", got)
	}

	if err := UpdateProfile(ctxT(), db, 9999, "x", nil, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestListActiveTechnicians_FiltersAndOrdersByName(t *testing.T) {
	db := newRepoDB(t)
	mkUser(t, db, "Zed", domain.RoleTechnician)
	mkUser(t, db, "Amy", domain.RoleTechnician)
	inactive := mkUser(t, db, "Bea", domain.RoleTechnician)
	mkUser(t, db, "Carl", domain.RoleClient)
	mkUser(t, db, "Root", domain.RoleAdmin)

	if err := db.Model(&domain.User{}).Where("id = ?", inactive.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	techs, err := ListActiveTechnicians(ctxT(), db)
	if err != nil {
		t.Fatalf("ListActiveTechnicians: %v", err)
	}
	if len(techs) != 2 || techs[0].Name != "Amy" || techs[1].Name != "Zed" {
		t.Fatalf("unexpected technicians: %+v", techs)
	}
}

func TestCountUsersByRole(t *testing.T) {
	db := newRepoDB(t)
	mkUser(t, db, "c1", domain.RoleClient)
	mkUser(t, db, "c2", domain.RoleClient)
	mkUser(t, db, "t1", domain.RoleTechnician)

	counts, err := CountUsersByRole(ctxT(), db)
	if err != nil {
		t.Fatalf("CountUsersByRole: %v", err)
	}
	if counts[domain.RoleClient] != 2 || counts[domain.RoleTechnician] != 1 || counts[domain.RoleAdmin] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	total, err := CountUsers(ctxT(), db)
	if err != nil || total != 3 {
		t.Fatalf("CountUsers = %d, %v", total, err)
	}
}
