package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/ration-slots/internal/catalog"
)

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return &Engine{
		Store:   NewMemoryStore(),
		Catalog: catalog.NewMemory([]string{"9-11 AM", "2-4 PM"}),
		Now:     func() time.Time { return testNow },
	}
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCreateRejectsOutsideEnrollmentWindow(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	for _, day := range []string{"2024-06-06", "2024-06-10", "2024-06-30", "2024-07-31"} {
		_, err := e.Create(ctx, "hh-1", date(day), "9-11 AM")
		if !errors.Is(err, ErrOutsideEnrollmentWindow) {
			t.Fatalf("Create(%s): want ErrOutsideEnrollmentWindow, got %v", day, err)
		}
	}

	// no store write happened
	bs, err := e.List(ctx, ListFilter{HouseholdID: "hh-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 0 {
		t.Fatalf("rejected creates left %d bookings behind", len(bs))
	}
}

func TestCreateAcceptsEnrollmentWindowEdges(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	b1, err := e.Create(ctx, "hh-1", date("2024-06-01"), "9-11 AM")
	if err != nil {
		t.Fatalf("day 1: %v", err)
	}
	if b1.Status != StatusReserved {
		t.Fatalf("want status reserved, got %s", b1.Status)
	}
	if b1.Period != "2024-06" {
		t.Fatalf("want period 2024-06, got %s", b1.Period)
	}

	if _, err := e.Create(ctx, "hh-2", date("2024-06-05"), "2-4 PM"); err != nil {
		t.Fatalf("day 5: %v", err)
	}
}

func TestCreateRejectsUnknownSlotWindow(t *testing.T) {
	e := newTestEngine()

	_, err := e.Create(context.Background(), "hh-1", date("2024-06-03"), "midnight")
	if !errors.Is(err, ErrUnknownSlotWindow) {
		t.Fatalf("want ErrUnknownSlotWindow, got %v", err)
	}
}

func TestCreatePreconditionOrder(t *testing.T) {
	// both the window and the catalog check would fail; the enrollment
	// window check runs first
	e := newTestEngine()
	_, err := e.Create(context.Background(), "hh-1", date("2024-06-10"), "midnight")
	if !errors.Is(err, ErrOutsideEnrollmentWindow) {
		t.Fatalf("want ErrOutsideEnrollmentWindow first, got %v", err)
	}
}

func TestCreateDuplicatePerPeriod(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	if _, err := e.Create(ctx, "hh-1", date("2024-06-03"), "9-11 AM"); err != nil {
		t.Fatal(err)
	}
	// different date, same month
	_, err := e.Create(ctx, "hh-1", date("2024-06-04"), "2-4 PM")
	if !errors.Is(err, ErrDuplicateBookingForPeriod) {
		t.Fatalf("want ErrDuplicateBookingForPeriod, got %v", err)
	}
	// different household, same month is fine
	if _, err := e.Create(ctx, "hh-2", date("2024-06-04"), "2-4 PM"); err != nil {
		t.Fatal(err)
	}
	// same household, different month is fine
	if _, err := e.Create(ctx, "hh-1", date("2024-07-02"), "9-11 AM"); err != nil {
		t.Fatal(err)
	}
}

func TestWithdrawalFreesThePeriod(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	b, err := e.Create(ctx, "hh-1", date("2024-06-03"), "9-11 AM")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Cancel(ctx, b.ID, "hh-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Create(ctx, "hh-1", date("2024-06-04"), "2-4 PM"); err != nil {
		t.Fatalf("create after withdrawal: %v", err)
	}
}

func TestCancelPreconditions(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	b, err := e.Create(ctx, "hh-1", date("2024-06-03"), "9-11 AM")
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Cancel(ctx, "no-such-id", "hh-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: want ErrNotFound, got %v", err)
	}
	if err := e.Cancel(ctx, b.ID, "hh-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("wrong owner: want ErrForbidden, got %v", err)
	}

	if err := e.Cancel(ctx, b.ID, "hh-1"); err != nil {
		t.Fatal(err)
	}
	// second cancel fails cleanly, it does not silently succeed
	if err := e.Cancel(ctx, b.ID, "hh-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("repeat cancel: want ErrInvalidTransition, got %v", err)
	}
}

func TestCancelPastSlot(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	// slot in May, "now" is June 1st
	b, err := e.Create(ctx, "hh-1", date("2024-05-03"), "9-11 AM")
	if err != nil {
		t.Fatal(err)
	}

	err = e.Cancel(ctx, b.ID, "hh-1")
	if !errors.Is(err, ErrPastSlotNotCancellable) {
		t.Fatalf("want ErrPastSlotNotCancellable, got %v", err)
	}

	// state unchanged
	got, err := e.Store.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusReserved {
		t.Fatalf("failed cancel changed status to %s", got.Status)
	}
}

func TestFulfillLifecycle(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	if err := e.Fulfill(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: want ErrNotFound, got %v", err)
	}

	b, err := e.Create(ctx, "hh-1", date("2024-06-03"), "9-11 AM")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Fulfill(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := e.Store.Get(ctx, b.ID)
	if got.Status != StatusFulfilled {
		t.Fatalf("want fulfilled, got %s", got.Status)
	}

	if err := e.Fulfill(ctx, b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("repeat fulfill: want ErrInvalidTransition, got %v", err)
	}
	// cancel after fulfilment is rejected and the state stays terminal
	if err := e.Cancel(ctx, b.ID, "hh-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel fulfilled: want ErrInvalidTransition, got %v", err)
	}
	got, _ = e.Store.Get(ctx, b.ID)
	if got.Status != StatusFulfilled {
		t.Fatalf("terminal state was overwritten: %s", got.Status)
	}
}

// The original application's flow, end to end.
func TestHouseholdScenario(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	b, err := e.Create(ctx, "hh-A", date("2024-06-03"), "9-11 AM")
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusReserved {
		t.Fatalf("want reserved, got %s", b.Status)
	}

	if _, err := e.Create(ctx, "hh-A", date("2024-06-04"), "9-11 AM"); !errors.Is(err, ErrDuplicateBookingForPeriod) {
		t.Fatalf("second booking same period: want ErrDuplicateBookingForPeriod, got %v", err)
	}

	if err := e.Fulfill(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.Cancel(ctx, b.ID, "hh-A"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel after fulfilment: want ErrInvalidTransition, got %v", err)
	}
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// different dates, same period: all compete for the same key
			d := date("2024-06-01").AddDate(0, 0, i%5)
			_, errs[i] = e.Create(ctx, "hh-race", d, "9-11 AM")
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateBookingForPeriod):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Fatalf("want exactly 1 winner and %d duplicates, got %d/%d", n-1, ok, dup)
	}
}

func TestConcurrentCancelSingleWinner(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	b, err := e.Create(ctx, "hh-1", date("2024-06-03"), "9-11 AM")
	if err != nil {
		t.Fatal(err)
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.Cancel(ctx, b.ID, "hh-1")
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInvalidTransition):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != n-1 {
		t.Fatalf("want exactly 1 winner, got %d winners / %d conflicts", ok, conflict)
	}
}

type failingCatalog struct{}

func (failingCatalog) ListWindows(ctx context.Context) ([]catalog.SlotWindow, error) {
	return nil, catalog.ErrUnavailable
}

func TestCreateSurfacesCatalogUnavailable(t *testing.T) {
	e := newTestEngine()
	e.Catalog = failingCatalog{}
	ctx := context.Background()

	_, err := e.Create(ctx, "hh-1", date("2024-06-03"), "9-11 AM")
	if !errors.Is(err, catalog.ErrUnavailable) {
		t.Fatalf("want catalog.ErrUnavailable, got %v", err)
	}

	bs, _ := e.List(ctx, ListFilter{HouseholdID: "hh-1"})
	if len(bs) != 0 {
		t.Fatalf("failed create left %d bookings behind", len(bs))
	}
}

func TestListFiltersAndSort(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	mk := func(hh, d, win string) Booking {
		t.Helper()
		b, err := e.Create(ctx, hh, date(d), win)
		if err != nil {
			t.Fatalf("create %s %s: %v", hh, d, err)
		}
		return b
	}

	mk("hh-A", "2024-06-03", "9-11 AM")
	mk("hh-A", "2024-07-01", "9-11 AM")
	mk("hh-A", "2024-08-05", "2-4 PM")
	mk("hh-B", "2024-06-03", "2-4 PM")

	// scoped to one household, never leaking another's rows
	bs, err := e.List(ctx, ListFilter{HouseholdID: "hh-A"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 3 {
		t.Fatalf("want 3 bookings for hh-A, got %d", len(bs))
	}
	for _, b := range bs {
		if b.HouseholdID != "hh-A" {
			t.Fatalf("list leaked booking of %s", b.HouseholdID)
		}
	}

	// default sort is slot date descending
	if !bs[0].SlotDate.After(bs[1].SlotDate) || !bs[1].SlotDate.After(bs[2].SlotDate) {
		t.Fatalf("default sort not descending: %v %v %v", bs[0].SlotDate, bs[1].SlotDate, bs[2].SlotDate)
	}

	bs, err = e.List(ctx, ListFilter{HouseholdID: "hh-A", Sort: SortSlotDateAsc})
	if err != nil {
		t.Fatal(err)
	}
	if !bs[0].SlotDate.Before(bs[1].SlotDate) {
		t.Fatal("asc sort not ascending")
	}

	bs, err = e.List(ctx, ListFilter{Period: "2024-06"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 2 {
		t.Fatalf("want 2 bookings in 2024-06, got %d", len(bs))
	}

	d := date("2024-07-01")
	bs, err = e.List(ctx, ListFilter{SlotDate: &d})
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 1 || bs[0].Period != "2024-07" {
		t.Fatalf("slotDate filter: got %v", bs)
	}
}
