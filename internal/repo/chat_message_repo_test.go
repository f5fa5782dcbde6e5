package repo

import (
	"testing"
	"time"

	"github.com/tbourn/service-connect/internal/domain"
)

func TestListChatMessages_AscendingWithTieBreak(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	tech := mkUser(t, db, "Tech", domain.RoleTechnician)
	svc := mkService(t, db, "Tech Support", 60)
	o := mkOrder(t, db, c, svc, time.Now().UTC())

	t1 := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	m3 := mkMessage(t, db, o.ID, c.ID, "third", t1.Add(2*time.Second))
	m1 := mkMessage(t, db, o.ID, tech.ID, "first", t1)
	m2a := mkMessage(t, db, o.ID, c.ID, "second-a", t1.Add(time.Second))
	m2b := mkMessage(t, db, o.ID, tech.ID, "second-b", t1.Add(time.Second))

	rows, err := ListChatMessages(ctxT(), db, o.ID)
	if err != nil {
		t.Fatalf("ListChatMessages: %v", err)
	}
	want := []uint{m1.ID, m2a.ID, m2b.ID, m3.ID}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows; want %d", len(rows), len(want))
	}
	for i, id := range want {
		if rows[i].ID != id {
			t.Fatalf("position %d: got id %d; want %d", i, rows[i].ID, id)
		}
	}
	if rows[0].SenderName != "Tech" || rows[0].SenderRole != domain.RoleTechnician {
		t.Fatalf("sender join unexpected: %+v", rows[0])
	}
}

func TestCreateChatMessage_DefaultsUnread(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	svc := mkService(t, db, "Locksmith", 60)
	o := mkOrder(t, db, c, svc, time.Now().UTC())

	m, err := CreateChatMessage(ctxT(), db, o.ID, c.ID, "hello")
	if err != nil {
		t.Fatalf("CreateChatMessage: %v", err)
	}
	if m.ID == 0 || m.IsRead || m.CreatedAt.IsZero() {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestCreateChatMessage_UnknownOrder_FK(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	if _, err := CreateChatMessage(ctxT(), db, "no-such-order", c.ID, "hi"); err == nil {
		t.Fatalf("expected FK error for unknown order")
	}
}

func TestMarkMessagesRead_SkipsOwn_Idempotent(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	tech := mkUser(t, db, "Tech", domain.RoleTechnician)
	svc := mkService(t, db, "Tech Support", 60)
	o := mkOrder(t, db, c, svc, time.Now().UTC())

	now := time.Now().UTC()
	mkMessage(t, db, o.ID, tech.ID, "On my way", now)
	mkMessage(t, db, o.ID, tech.ID, "Arriving", now.Add(time.Second))
	mkMessage(t, db, o.ID, c.ID, "ok", now.Add(2*time.Second))

	n, err := MarkMessagesRead(ctxT(), db, o.ID, c.ID)
	if err != nil || n != 2 {
		t.Fatalf("first MarkMessagesRead = %d, %v; want 2", n, err)
	}
	n, err = MarkMessagesRead(ctxT(), db, o.ID, c.ID)
	if err != nil || n != 0 {
		t.Fatalf("second MarkMessagesRead = %d, %v; want 0", n, err)
	}

	// The client's own message is still unread for the technician.
	unread, err := UnreadByOrder(ctxT(), db, tech.ID, []string{o.ID})
	if err != nil || unread[o.ID] != 1 {
		t.Fatalf("technician unread = %v, %v; want 1", unread, err)
	}
}

func TestCountUnreadForClient_NeverCountsOwn(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	other := mkUser(t, db, "Other", domain.RoleClient)
	tech := mkUser(t, db, "Tech", domain.RoleTechnician)
	svc := mkService(t, db, "Tech Support", 60)
	o1 := mkOrder(t, db, c, svc, time.Now().UTC())
	o2 := mkOrder(t, db, c, svc, time.Now().UTC())
	foreign := mkOrder(t, db, other, svc, time.Now().UTC())

	now := time.Now().UTC()
	mkMessage(t, db, o1.ID, tech.ID, "a", now)
	mkMessage(t, db, o2.ID, tech.ID, "b", now)
	mkMessage(t, db, o1.ID, c.ID, "mine", now)
	mkMessage(t, db, foreign.ID, tech.ID, "not yours", now)

	n, err := CountUnreadForClient(ctxT(), db, c.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountUnreadForClient = %d, %v; want 2", n, err)
	}
}

func TestCountUnreadForTechnician_PendingVisibleOrders(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	t1 := mkUser(t, db, "T1", domain.RoleTechnician)
	t2 := mkUser(t, db, "T2", domain.RoleTechnician)
	svc := mkService(t, db, "Plumbing Repair", 80)

	open := mkOrder(t, db, c, svc, time.Now().UTC())
	mine := mkOrder(t, db, c, svc, time.Now().UTC())
	theirs := mkOrder(t, db, c, svc, time.Now().UTC())
	done := mkOrder(t, db, c, svc, time.Now().UTC())

	if _, err := ReplaceAssignment(ctxT(), db, mine.ID, t1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := ReplaceAssignment(ctxT(), db, theirs.ID, t2.ID); err != nil {
		t.Fatal(err)
	}
	if ok, _ := CompareAndSetStatus(ctxT(), db, done.ID, domain.StatusPending, domain.StatusDone, 1); !ok {
		t.Fatal("complete failed")
	}

	now := time.Now().UTC()
	for _, o := range []*domain.Order{open, mine, theirs, done} {
		mkMessage(t, db, o.ID, c.ID, "hello", now)
	}
	mkMessage(t, db, open.ID, t1.ID, "own message", now)

	n, err := CountUnreadForTechnician(ctxT(), db, t1.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountUnreadForTechnician(t1) = %d, %v; want 2 (open + mine)", n, err)
	}
	n, err = CountUnreadForTechnician(ctxT(), db, t2.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountUnreadForTechnician(t2) = %d, %v; want 2 (open + theirs)", n, err)
	}
}

func TestLatestMessages_PicksNewestPerOrder(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "Client", domain.RoleClient)
	svc := mkService(t, db, "Painting", 200)
	a := mkOrder(t, db, c, svc, time.Now().UTC())
	b := mkOrder(t, db, c, svc, time.Now().UTC())
	empty := mkOrder(t, db, c, svc, time.Now().UTC())

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mkMessage(t, db, a.ID, c.ID, "a1", base)
	mkMessage(t, db, a.ID, c.ID, "a2", base.Add(time.Minute))
	mkMessage(t, db, b.ID, c.ID, "b1", base)

	got, err := LatestMessages(ctxT(), db, []string{a.ID, b.ID, empty.ID})
	if err != nil {
		t.Fatalf("LatestMessages: %v", err)
	}
	if got[a.ID].Body != "a2" || got[b.ID].Body != "b1" {
		t.Fatalf("unexpected latest: %+v", got)
	}
	if _, ok := got[empty.ID]; ok {
		t.Fatalf("order without messages must be absent")
	}

	none, err := LatestMessages(ctxT(), db, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("empty input = %v, %v", none, err)
	}
}
