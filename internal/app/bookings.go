package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"betcha_portal/internal/domain"
)

// ErrUnknownTab marks a tab name outside all|pending|to-rate|completed.
var ErrUnknownTab = errors.New("unknown tab")

// PlaceholderPhotoURL is served on every card immediately; cards are patched
// in place once the real photo resolves.
const PlaceholderPhotoURL = "/images/property-placeholder.svg"

// SortByTransactionDesc orders bookings by the numeric part of their
// transaction number, highest first. Non-digit characters are ignored; a
// transaction number with no digits sorts as 0. Stable, so ties keep their
// original relative order.
func SortByTransactionDesc(bs []domain.Booking) {
	sort.SliceStable(bs, func(i, j int) bool {
		return transactionKey(bs[i].TransactionNumber) > transactionKey(bs[j].TransactionNumber)
	})
}

func transactionKey(s string) int64 {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Categorize partitions bookings into the three guest-facing tabs:
//
//	pending:   PendingPayment, Reserved, FullyPaid, CheckedIn, CheckedOut
//	toRate:    Completed with no rating yet
//	completed: Completed with a rating, or Cancel
//
// A status outside the known vocabulary lands in pending rather than being
// dropped; the partition is total. Input order is preserved per bucket.
func Categorize(bs []domain.Booking) domain.Buckets {
	var out domain.Buckets
	for _, b := range bs {
		switch b.Status {
		case domain.StatusCompleted:
			if b.Rating == 0 {
				out.ToRate = append(out.ToRate, b)
			} else {
				out.Completed = append(out.Completed, b)
			}
		case domain.StatusCancel:
			out.Completed = append(out.Completed, b)
		default:
			out.Pending = append(out.Pending, b)
		}
	}
	return out
}

// BookingService runs the guest dashboard pipeline:
// fetch -> normalize -> sort -> categorize -> assemble placeholder cards ->
// bounded-concurrency photo resolve -> patch cards by property id.
//
// The latest dashboard per guest is kept as a snapshot so tab reads don't
// re-run the whole pipeline; serving a tab re-checks any card still on the
// placeholder against the photo cache (usually a hit by then).
type BookingService struct {
	api    domain.BetchaClient
	photos *PhotoResolver

	photoWorkers int
	batchPause   time.Duration

	mu        sync.Mutex
	snapshots map[string]*domain.Dashboard // by guest user id
}

func NewBookingService(api domain.BetchaClient, photos *PhotoResolver, photoWorkers int, batchPause time.Duration) *BookingService {
	if photoWorkers <= 0 {
		photoWorkers = 3
	}
	return &BookingService{
		api:          api,
		photos:       photos,
		photoWorkers: photoWorkers,
		batchPause:   batchPause,
		snapshots:    make(map[string]*domain.Dashboard),
	}
}

// Dashboard builds all four views for the guest. A booking-list fetch
// failure is fatal to the whole pass (the caller shows one retry affordance,
// not per-tab errors); per-photo failures never surface.
func (s *BookingService) Dashboard(ctx context.Context, userID string) (domain.Dashboard, error) {
	bookings, err := s.api.GuestBookings(ctx, userID)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("guest %s bookings: %w", userID, err)
	}

	SortByTransactionDesc(bookings)
	buckets := Categorize(bookings)

	d := domain.Dashboard{
		All:       toCards(bookings),
		Pending:   toCards(buckets.Pending),
		ToRate:    toCards(buckets.ToRate),
		Completed: toCards(buckets.Completed),
	}
	s.resolvePhotos(ctx, &d)

	s.mu.Lock()
	s.snapshots[userID] = &d
	s.mu.Unlock()

	return cloneDashboard(&d), nil
}

// Tab returns a single bucket. When a snapshot exists it is reused; cards
// still showing the placeholder get one more look at the photo cache, which
// covers photos that resolved after the snapshot was taken.
func (s *BookingService) Tab(ctx context.Context, userID, tab string) ([]domain.BookingCard, error) {
	s.mu.Lock()
	snap := s.snapshots[userID]
	s.mu.Unlock()

	if snap == nil {
		d, err := s.Dashboard(ctx, userID)
		if err != nil {
			return nil, err
		}
		return bucketOf(&d, tab)
	}

	s.backfillPlaceholders(ctx, snap)
	s.mu.Lock()
	out, err := bucketOf(snap, tab)
	s.mu.Unlock()
	return out, err
}

// Rate proxies the rating to the backend. On success any snapshot holding
// the booking is dropped so the next read re-categorizes it; nothing is
// updated optimistically.
func (s *BookingService) Rate(ctx context.Context, bookingID string, rating int) (domain.Booking, error) {
	if rating < 1 || rating > 5 {
		return domain.Booking{}, fmt.Errorf("rating %d out of range 1..5", rating)
	}
	updated, err := s.api.RateBooking(ctx, bookingID, rating)
	if err != nil {
		return domain.Booking{}, err
	}

	s.mu.Lock()
	for userID, snap := range s.snapshots {
		if dashboardHas(snap, bookingID) {
			delete(s.snapshots, userID)
		}
	}
	s.mu.Unlock()

	return updated, nil
}

/********** card assembly & photo patching **********/

func toCards(bs []domain.Booking) []domain.BookingCard {
	out := make([]domain.BookingCard, 0, len(bs))
	for _, b := range bs {
		out = append(out, domain.BookingCard{
			ID:                b.ID,
			TransactionNumber: b.TransactionNumber,
			Status:            b.Status,
			Rating:            b.Rating,
			PropertyID:        b.PropertyID,
			PropertyName:      b.PropertyName,
			CheckIn:           b.CheckIn,
			CheckOut:          b.CheckOut,
			PhotoURL:          PlaceholderPhotoURL,
		})
	}
	return out
}

// resolvePhotos fetches photos for every distinct property in the dashboard
// with bounded fan-out, then patches each matching card. Patches are keyed
// by property id, never by slice position: the same booking appears in both
// the All bucket and its category bucket, and workers settle in any order.
func (s *BookingService) resolvePhotos(ctx context.Context, d *domain.Dashboard) {
	ids := distinctPropertyIDs(d)
	if len(ids) == 0 {
		return
	}

	var mu sync.Mutex
	resolved := make(map[string]string, len(ids))
	ForEachBatch(ctx, ids, s.photoWorkers, s.batchPause, func(ctx context.Context, id string) {
		if u := s.photos.Photo(ctx, id); u != "" {
			mu.Lock()
			resolved[id] = u
			mu.Unlock()
		}
	})

	patchCards(d, resolved)
}

// backfillPlaceholders re-resolves only cards that still carry the
// placeholder. Those lookups are cache hits unless the property has never
// been fetched at all.
func (s *BookingService) backfillPlaceholders(ctx context.Context, d *domain.Dashboard) {
	s.mu.Lock()
	var ids []string
	seen := make(map[string]struct{})
	forEachCard(d, func(c *domain.BookingCard) {
		if c.PhotoURL != PlaceholderPhotoURL || c.PropertyID == "" {
			return
		}
		if _, dup := seen[c.PropertyID]; !dup {
			seen[c.PropertyID] = struct{}{}
			ids = append(ids, c.PropertyID)
		}
	})
	s.mu.Unlock()

	if len(ids) == 0 {
		return
	}

	var mu sync.Mutex
	resolved := make(map[string]string, len(ids))
	ForEachBatch(ctx, ids, s.photoWorkers, s.batchPause, func(ctx context.Context, id string) {
		if u := s.photos.Photo(ctx, id); u != "" {
			mu.Lock()
			resolved[id] = u
			mu.Unlock()
		}
	})

	s.mu.Lock()
	patchCards(d, resolved)
	s.mu.Unlock()
}

func distinctPropertyIDs(d *domain.Dashboard) []string {
	seen := make(map[string]struct{})
	var ids []string
	forEachCard(d, func(c *domain.BookingCard) {
		if c.PropertyID == "" {
			return
		}
		if _, dup := seen[c.PropertyID]; !dup {
			seen[c.PropertyID] = struct{}{}
			ids = append(ids, c.PropertyID)
		}
	})
	return ids
}

func patchCards(d *domain.Dashboard, resolved map[string]string) {
	forEachCard(d, func(c *domain.BookingCard) {
		if u, ok := resolved[c.PropertyID]; ok && u != "" {
			c.PhotoURL = u
		}
	})
}

func forEachCard(d *domain.Dashboard, fn func(*domain.BookingCard)) {
	for _, bucket := range [][]domain.BookingCard{d.All, d.Pending, d.ToRate, d.Completed} {
		for i := range bucket {
			fn(&bucket[i])
		}
	}
}

func dashboardHas(d *domain.Dashboard, bookingID string) bool {
	for _, c := range d.All {
		if c.ID == bookingID {
			return true
		}
	}
	return false
}

func bucketOf(d *domain.Dashboard, tab string) ([]domain.BookingCard, error) {
	var src []domain.BookingCard
	switch tab {
	case "all":
		src = d.All
	case "pending":
		src = d.Pending
	case "to-rate":
		src = d.ToRate
	case "completed":
		src = d.Completed
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	out := make([]domain.BookingCard, len(src))
	copy(out, src)
	return out, nil
}

// cloneDashboard copies the bucket slices so callers never alias the
// snapshot that backfill keeps patching.
func cloneDashboard(d *domain.Dashboard) domain.Dashboard {
	cp := func(in []domain.BookingCard) []domain.BookingCard {
		if len(in) == 0 {
			return nil
		}
		out := make([]domain.BookingCard, len(in))
		copy(out, in)
		return out
	}
	return domain.Dashboard{
		All:       cp(d.All),
		Pending:   cp(d.Pending),
		ToRate:    cp(d.ToRate),
		Completed: cp(d.Completed),
	}
}
