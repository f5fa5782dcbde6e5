package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbourn/service-connect/internal/domain"
)

func TestCreateOrder_And_GetOrderRow_Joins(t *testing.T) {
	db := newRepoDB(t)
	client := mkUser(t, db, "Client", domain.RoleClient)
	tech := mkUser(t, db, "Tech", domain.RoleTechnician)
	svc := mkService(t, db, "Plumbing Repair", 80)

	o := mkOrder(t, db, client, svc, time.Now().UTC())

	row, err := GetOrderRow(ctxT(), db, o.ID)
	if err != nil {
		t.Fatalf("GetOrderRow: %v", err)
	}
	if row.ServiceName != "Plumbing Repair" || row.ClientName != "Client" || row.ClientEmail != client.Email {
		t.Fatalf("join fields unexpected: %+v", row)
	}
	if row.TechnicianID != nil || row.TechnicianName != nil {
		t.Fatalf("unassigned order should have no technician: %+v", row)
	}
	if row.Status != domain.StatusPending || !row.Price.Equal(decimal.NewFromInt(80)) || row.Version != 1 {
		t.Fatalf("order fields unexpected: %+v", row)
	}

	if _, err := ReplaceAssignment(ctxT(), db, o.ID, tech.ID); err != nil {
		t.Fatalf("ReplaceAssignment: %v", err)
	}
	row, err = GetOrderRow(ctxT(), db, o.ID)
	if err != nil {
		t.Fatalf("GetOrderRow: %v", err)
	}
	if row.TechnicianID == nil || *row.TechnicianID != tech.ID || row.TechnicianName == nil || *row.TechnicianName != "Tech" {
		t.Fatalf("technician join unexpected: %+v", row)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	db := newRepoDB(t)
	if _, err := GetOrder(ctxT(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetOrderRow(ctxT(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersForClient_NewestFirst_OnlyOwn(t *testing.T) {
	db := newRepoDB(t)
	c1 := mkUser(t, db, "C1", domain.RoleClient)
	c2 := mkUser(t, db, "C2", domain.RoleClient)
	svc := mkService(t, db, "Tech Support", 60)

	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	oldest := mkOrder(t, db, c1, svc, base)
	newest := mkOrder(t, db, c1, svc, base.Add(2*time.Hour))
	mkOrder(t, db, c2, svc, base.Add(time.Hour))

	rows, err := ListOrdersForClient(ctxT(), db, c1.ID)
	if err != nil {
		t.Fatalf("ListOrdersForClient: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != newest.ID || rows[1].ID != oldest.ID {
		t.Fatalf("unexpected order/filter: %+v", rows)
	}
}

func TestListPendingOrders_SystemWide(t *testing.T) {
	db := newRepoDB(t)
	c1 := mkUser(t, db, "C1", domain.RoleClient)
	c2 := mkUser(t, db, "C2", domain.RoleClient)
	tech := mkUser(t, db, "T", domain.RoleTechnician)
	svc := mkService(t, db, "Locksmith", 60)

	now := time.Now().UTC()
	p1 := mkOrder(t, db, c1, svc, now.Add(-time.Hour))
	p2 := mkOrder(t, db, c2, svc, now)
	done := mkOrder(t, db, c1, svc, now.Add(-2*time.Hour))
	if _, err := ReplaceAssignment(ctxT(), db, p1.ID, tech.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if ok, err := CompareAndSetStatus(ctxT(), db, done.ID, domain.StatusPending, domain.StatusDone, 1); err != nil || !ok {
		t.Fatalf("CompareAndSetStatus: %v %v", ok, err)
	}

	rows, err := ListPendingOrders(ctxT(), db)
	if err != nil {
		t.Fatalf("ListPendingOrders: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != p2.ID || rows[1].ID != p1.ID {
		t.Fatalf("expected both pending orders regardless of assignment, got %+v", rows)
	}

	mine, err := ListOrdersAssignedTo(ctxT(), db, tech.ID)
	if err != nil || len(mine) != 1 || mine[0].ID != p1.ID {
		t.Fatalf("ListOrdersAssignedTo = %+v, %v", mine, err)
	}
}

func TestListOrders_Filters_Paging_Count(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "C", domain.RoleClient)
	plumbing := mkService(t, db, "Plumbing Repair", 80)
	paint := mkService(t, db, "Painting Service", 200)

	base := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, mkOrder(t, db, c, plumbing, base.Add(time.Duration(i)*time.Minute)).ID)
	}
	p := mkOrder(t, db, c, paint, base.Add(10*time.Minute))
	if ok, _ := CompareAndSetStatus(ctxT(), db, p.ID, domain.StatusPending, domain.StatusDone, 1); !ok {
		t.Fatalf("complete paint order failed")
	}

	all, err := ListOrders(ctxT(), db, OrderFilter{})
	if err != nil || len(all) != 4 || all[0].ID != p.ID {
		t.Fatalf("ListOrders(all) = %d rows, first=%v, err=%v", len(all), all, err)
	}

	byService, _ := ListOrders(ctxT(), db, OrderFilter{ServiceName: "Plumbing Repair"})
	if len(byService) != 3 {
		t.Fatalf("service filter: got %d", len(byService))
	}
	byStatus, _ := ListOrders(ctxT(), db, OrderFilter{Status: domain.StatusDone})
	if len(byStatus) != 1 || byStatus[0].ID != p.ID {
		t.Fatalf("status filter: %+v", byStatus)
	}
	byDate, _ := ListOrders(ctxT(), db, OrderFilter{BookingDate: "2031-01-01"})
	if len(byDate) != 0 {
		t.Fatalf("date filter should match nothing: %+v", byDate)
	}

	page, _ := ListOrders(ctxT(), db, OrderFilter{ServiceName: "Plumbing Repair", Offset: 1, Limit: 1})
	if len(page) != 1 || page[0].ID != ids[1] {
		t.Fatalf("paging unexpected: %+v", page)
	}

	n, err := CountOrders(ctxT(), db, OrderFilter{ServiceName: "Plumbing Repair", Limit: 1})
	if err != nil || n != 3 {
		t.Fatalf("CountOrders = %d, %v", n, err)
	}
}

func TestCompareAndSetStatus_StaleVersionOrStateLoses(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "C", domain.RoleClient)
	svc := mkService(t, db, "Carpet Cleaning", 70)
	o := mkOrder(t, db, c, svc, time.Now().UTC())

	ok, err := CompareAndSetStatus(ctxT(), db, o.ID, domain.StatusPending, domain.StatusDone, 1)
	if err != nil || !ok {
		t.Fatalf("first CAS = %v, %v", ok, err)
	}
	// Second writer still believes version 1 / Pending.
	ok, err = CompareAndSetStatus(ctxT(), db, o.ID, domain.StatusPending, domain.StatusCancelled, 1)
	if err != nil || ok {
		t.Fatalf("stale CAS should lose, got %v, %v", ok, err)
	}

	got, _ := GetOrder(ctxT(), db, o.ID)
	if got.Status != domain.StatusDone || got.Version != 2 {
		t.Fatalf("unexpected state after CAS: %+v", got)
	}
	if !got.Price.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("price snapshot must not change: %s", got.Price)
	}
}

func TestCountOrdersByStatus_And_SumOrderPrices(t *testing.T) {
	db := newRepoDB(t)
	c := mkUser(t, db, "C", domain.RoleClient)
	cheap := mkService(t, db, "Cheap", 50)
	dear := &domain.Service{Name: "Dear", Category: "Home", Price: decimal.RequireFromString("120.50")}
	if err := db.Create(dear).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	a := mkOrder(t, db, c, cheap, time.Now().UTC())
	b := mkOrder(t, db, c, dear, time.Now().UTC())
	mkOrder(t, db, c, cheap, time.Now().UTC())
	for _, id := range []string{a.ID, b.ID} {
		if ok, _ := CompareAndSetStatus(ctxT(), db, id, domain.StatusPending, domain.StatusDone, 1); !ok {
			t.Fatalf("complete %s failed", id)
		}
	}

	counts, err := CountOrdersByStatus(ctxT(), db)
	if err != nil {
		t.Fatalf("CountOrdersByStatus: %v", err)
	}
	if counts[domain.StatusDone] != 2 || counts[domain.StatusPending] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	sum, err := SumOrderPrices(ctxT(), db, domain.StatusDone)
	if err != nil {
		t.Fatalf("SumOrderPrices: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("170.50")) {
		t.Fatalf("revenue = %s; want 170.50", sum)
	}

	none, err := SumOrderPrices(ctxT(), db, domain.StatusCancelled)
	if err != nil || !none.IsZero() {
		t.Fatalf("empty sum = %s, %v", none, err)
	}
}
