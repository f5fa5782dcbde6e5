package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/tbourn/service-connect/internal/domain"
)

func TestReplaceAssignment_LastWriterWins_SingleRow(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	t1 := mkUser(t, db, "T1", domain.RoleTechnician)
	t2 := mkUser(t, db, "T2", domain.RoleTechnician)
	svc := mkService(t, db, "Electrical Wiring", 100)
	o := mkOrder(t, db, c, svc, time.Now().UTC())

	if _, err := ReplaceAssignment(ctxT(), db, o.ID, t1.ID); err != nil {
		t.Fatalf("assign t1: %v", err)
	}
	if _, err := ReplaceAssignment(ctxT(), db, o.ID, t2.ID); err != nil {
		t.Fatalf("assign t2: %v", err)
	}

	n, err := CountAssignments(ctxT(), db, o.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountAssignments = %d, %v; want 1", n, err)
	}
	a, err := GetAssignment(ctxT(), db, o.ID)
	if err != nil || a.TechnicianID != t2.ID {
		t.Fatalf("GetAssignment = %+v, %v; want technician %d", a, err, t2.ID)
	}
}

func TestReplaceAssignment_RollsBackOnInsertFailure(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	t1 := mkUser(t, db, "T1", domain.RoleTechnician)
	svc := mkService(t, db, "Locksmith", 60)
	o := mkOrder(t, db, c, svc, time.Now().UTC())

	if _, err := ReplaceAssignment(ctxT(), db, o.ID, t1.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Unknown technician -> FK failure on insert; the delete must be undone.
	if _, err := ReplaceAssignment(ctxT(), db, o.ID, 424242); err == nil {
		t.Fatalf("expected FK failure for unknown technician")
	}
	a, err := GetAssignment(ctxT(), db, o.ID)
	if err != nil || a.TechnicianID != t1.ID {
		t.Fatalf("previous assignment lost: %+v, %v", a, err)
	}
}

func TestGetAssignment_Unassigned(t *testing.T) {
	db := newRepoDB(t)
	if _, err := GetAssignment(ctxT(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
