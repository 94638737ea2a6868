package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"betcha_portal/internal/app"
	"betcha_portal/internal/domain"
)

func TestSortByTransactionDesc(t *testing.T) {
	bs := []domain.Booking{
		{ID: "a", TransactionNumber: "TRX-003"},
		{ID: "b", TransactionNumber: "TRX-010"},
		{ID: "c", TransactionNumber: "TRX-001"},
	}
	app.SortByTransactionDesc(bs)

	want := []string{"TRX-010", "TRX-003", "TRX-001"}
	for i, w := range want {
		if bs[i].TransactionNumber != w {
			t.Fatalf("pos %d: got %s, want %s", i, bs[i].TransactionNumber, w)
		}
	}
}

func TestSortByTransactionDesc_UnparsableAndTies(t *testing.T) {
	bs := []domain.Booking{
		{ID: "a", TransactionNumber: "no-digits"},
		{ID: "b", TransactionNumber: "TRX-7"},
		{ID: "c", TransactionNumber: "ALT-007"}, // same key as TRX-7
		{ID: "d", TransactionNumber: ""},
	}
	app.SortByTransactionDesc(bs)

	// 7s first, keeping original relative order (b before c); zero-keyed
	// entries keep theirs too (a before d).
	got := []string{bs[0].ID, bs[1].ID, bs[2].ID, bs[3].ID}
	want := []string{"b", "c", "a", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestCategorize_Rules(t *testing.T) {
	cases := []struct {
		status string
		rating int
		bucket string
	}{
		{domain.StatusCompleted, 0, "toRate"},
		{domain.StatusCompleted, 4, "completed"},
		{domain.StatusCancel, 0, "completed"},
		{domain.StatusCancel, 3, "completed"},
		{domain.StatusReserved, 0, "pending"},
		{domain.StatusPendingPayment, 0, "pending"},
		{domain.StatusFullyPaid, 0, "pending"},
		{domain.StatusCheckedIn, 0, "pending"},
		{domain.StatusCheckedOut, 0, "pending"},
		{"SomethingNew", 0, "pending"}, // defensive default
	}
	for _, c := range cases {
		b := app.Categorize([]domain.Booking{{ID: "x", Status: c.status, Rating: c.rating}})
		got := "none"
		switch {
		case len(b.Pending) == 1:
			got = "pending"
		case len(b.ToRate) == 1:
			got = "toRate"
		case len(b.Completed) == 1:
			got = "completed"
		}
		if got != c.bucket {
			t.Fatalf("status=%s rating=%d: got %s, want %s", c.status, c.rating, got, c.bucket)
		}
	}
}

// Every booking lands in exactly one bucket: no loss, no duplication.
func TestCategorize_TotalPartition(t *testing.T) {
	in := []domain.Booking{
		{ID: "1", Status: domain.StatusReserved},
		{ID: "2", Status: domain.StatusCompleted, Rating: 0},
		{ID: "3", Status: domain.StatusCompleted, Rating: 5},
		{ID: "4", Status: domain.StatusCancel},
		{ID: "5", Status: "Bogus"},
		{ID: "6", Status: domain.StatusCheckedOut},
		{ID: "7", Status: ""},
	}
	b := app.Categorize(in)

	seen := map[string]int{}
	for _, bucket := range [][]domain.Booking{b.Pending, b.ToRate, b.Completed} {
		for _, bk := range bucket {
			seen[bk.ID]++
		}
	}
	if len(seen) != len(in) {
		t.Fatalf("partition lost bookings: %d ids out of %d", len(seen), len(in))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("booking %s appeared %d times", id, n)
		}
	}
}

func TestCategorize_PreservesOrder(t *testing.T) {
	in := []domain.Booking{
		{ID: "p2", Status: domain.StatusReserved, TransactionNumber: "TRX-9"},
		{ID: "p1", Status: domain.StatusCheckedIn, TransactionNumber: "TRX-3"},
	}
	b := app.Categorize(in)
	if len(b.Pending) != 2 || b.Pending[0].ID != "p2" || b.Pending[1].ID != "p1" {
		t.Fatalf("input order not preserved: %+v", b.Pending)
	}
}

// The end-to-end pipeline scenario: sort, categorize, assemble, patch photos.
func TestDashboard_Pipeline(t *testing.T) {
	fc := &fakeClient{
		bookings: []domain.Booking{
			{ID: "b1", TransactionNumber: "TRX-5", Status: domain.StatusReserved, PropertyID: "p1"},
			{ID: "b2", TransactionNumber: "TRX-20", Status: domain.StatusCompleted, Rating: 0, PropertyID: "p2"},
			{ID: "b3", TransactionNumber: "TRX-1", Status: domain.StatusCancel, PropertyID: "p3"},
		},
		properties: map[string]domain.Property{
			"p1": {ID: "p1", PhotoLinks: []string{"https://cdn/p1.jpg"}},
			"p2": {ID: "p2", PhotoLinks: []string{"https://cdn/p2.jpg", "https://cdn/p2b.jpg"}},
			"p3": {ID: "p3"}, // no photo
		},
	}
	svc := app.NewBookingService(fc, app.NewPhotoResolver(fc, newMemCache(), time.Minute), 3, 0)

	d, err := svc.Dashboard(context.Background(), "guest-1")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	wantAll := []string{"TRX-20", "TRX-5", "TRX-1"}
	if len(d.All) != 3 {
		t.Fatalf("all: %d cards", len(d.All))
	}
	for i, w := range wantAll {
		if d.All[i].TransactionNumber != w {
			t.Fatalf("all[%d]=%s, want %s", i, d.All[i].TransactionNumber, w)
		}
	}
	if len(d.Pending) != 1 || d.Pending[0].TransactionNumber != "TRX-5" {
		t.Fatalf("pending: %+v", d.Pending)
	}
	if len(d.ToRate) != 1 || d.ToRate[0].TransactionNumber != "TRX-20" {
		t.Fatalf("toRate: %+v", d.ToRate)
	}
	if len(d.Completed) != 1 || d.Completed[0].TransactionNumber != "TRX-1" {
		t.Fatalf("completed: %+v", d.Completed)
	}

	// photos patched by property id across every bucket the booking shows in
	if d.All[1].PhotoURL != "https://cdn/p1.jpg" || d.Pending[0].PhotoURL != "https://cdn/p1.jpg" {
		t.Fatalf("p1 photo not patched everywhere: all=%s pending=%s", d.All[1].PhotoURL, d.Pending[0].PhotoURL)
	}
	if d.ToRate[0].PhotoURL != "https://cdn/p2.jpg" {
		t.Fatalf("p2 photo: %s", d.ToRate[0].PhotoURL)
	}
	// no photo -> placeholder stays
	if d.Completed[0].PhotoURL != app.PlaceholderPhotoURL {
		t.Fatalf("p3 should keep placeholder, got %s", d.Completed[0].PhotoURL)
	}
}

func TestDashboard_FetchFailureIsFatal(t *testing.T) {
	fc := &fakeClient{bookingsErr: errors.New("backend down")}
	svc := app.NewBookingService(fc, app.NewPhotoResolver(fc, newMemCache(), time.Minute), 3, 0)

	if _, err := svc.Dashboard(context.Background(), "guest-1"); err == nil {
		t.Fatalf("expected error when booking list fetch fails")
	}
}

// Per-photo failures never surface; the card keeps the placeholder.
func TestDashboard_PhotoFailureIsSilent(t *testing.T) {
	fc := &fakeClient{
		bookings:    []domain.Booking{{ID: "b1", TransactionNumber: "TRX-1", Status: domain.StatusReserved, PropertyID: "p1"}},
		propertyErr: errors.New("photo backend down"),
	}
	svc := app.NewBookingService(fc, app.NewPhotoResolver(fc, newMemCache(), time.Minute), 3, 0)

	d, err := svc.Dashboard(context.Background(), "guest-1")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.All[0].PhotoURL != app.PlaceholderPhotoURL {
		t.Fatalf("expected placeholder, got %s", d.All[0].PhotoURL)
	}
}

func TestTab_BucketsAndUnknown(t *testing.T) {
	fc := &fakeClient{
		bookings: []domain.Booking{
			{ID: "b1", TransactionNumber: "TRX-2", Status: domain.StatusReserved, PropertyID: "p1"},
			{ID: "b2", TransactionNumber: "TRX-1", Status: domain.StatusCompleted, Rating: 5, PropertyID: "p1"},
		},
		properties: map[string]domain.Property{"p1": {ID: "p1", PhotoLinks: []string{"https://cdn/p1.jpg"}}},
	}
	svc := app.NewBookingService(fc, app.NewPhotoResolver(fc, newMemCache(), time.Minute), 3, 0)

	// no snapshot yet: Tab runs the full pipeline itself
	cards, err := svc.Tab(context.Background(), "guest-1", "completed")
	if err != nil {
		t.Fatalf("Tab: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != "b2" {
		t.Fatalf("completed tab: %+v", cards)
	}

	// snapshot path
	cards, err = svc.Tab(context.Background(), "guest-1", "pending")
	if err != nil {
		t.Fatalf("Tab: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != "b1" || cards[0].PhotoURL != "https://cdn/p1.jpg" {
		t.Fatalf("pending tab: %+v", cards)
	}

	if _, err := svc.Tab(context.Background(), "guest-1", "archived"); err == nil {
		t.Fatalf("expected error for unknown tab")
	}
}

func TestRate_ValidatesAndDropsSnapshot(t *testing.T) {
	fc := &fakeClient{
		bookings: []domain.Booking{
			{ID: "b1", TransactionNumber: "TRX-1", Status: domain.StatusCompleted, Rating: 0, PropertyID: "p1"},
		},
	}
	svc := app.NewBookingService(fc, app.NewPhotoResolver(fc, newMemCache(), time.Minute), 3, 0)
	ctx := context.Background()

	if _, err := svc.Rate(ctx, "b1", 0); err == nil {
		t.Fatalf("expected range error for rating 0")
	}
	if _, err := svc.Rate(ctx, "b1", 6); err == nil {
		t.Fatalf("expected range error for rating 6")
	}

	if _, err := svc.Dashboard(ctx, "guest-1"); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	updated, err := svc.Rate(ctx, "b1", 4)
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if updated.Rating != 4 {
		t.Fatalf("updated rating %d", updated.Rating)
	}

	// snapshot was dropped, so the tab read sees the re-fetched state
	fc.mu.Lock()
	fc.bookings[0].Rating = 4
	fc.mu.Unlock()
	cards, err := svc.Tab(ctx, "guest-1", "completed")
	if err != nil {
		t.Fatalf("Tab: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != "b1" {
		t.Fatalf("rated booking should have moved to completed: %+v", cards)
	}
}
