package app_test

import (
	"context"
	"encoding/json"
	"sync"

	"betcha_portal/internal/domain"
)

// ---- fakes ----

type fakeClient struct {
	mu sync.Mutex

	bookings    []domain.Booking
	bookingsErr error

	properties    map[string]domain.Property
	propertyErr   error
	propertyCalls map[string]int

	rated map[string]int

	ticket   domain.Ticket
	ticketFn func(ctx context.Context, ticketID string) (domain.Ticket, error)
}

func (f *fakeClient) GuestBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookingsErr != nil {
		return nil, f.bookingsErr
	}
	out := make([]domain.Booking, len(f.bookings))
	copy(out, f.bookings)
	return out, nil
}

func (f *fakeClient) Property(ctx context.Context, propertyID string) (domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.propertyCalls == nil {
		f.propertyCalls = map[string]int{}
	}
	f.propertyCalls[propertyID]++
	if f.propertyErr != nil {
		return domain.Property{}, f.propertyErr
	}
	p, ok := f.properties[propertyID]
	if !ok {
		return domain.Property{ID: propertyID}, nil
	}
	return p, nil
}

func (f *fakeClient) RateBooking(ctx context.Context, bookingID string, rating int) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rated == nil {
		f.rated = map[string]int{}
	}
	f.rated[bookingID] = rating
	for _, b := range f.bookings {
		if b.ID == bookingID {
			b.Rating = rating
			return b, nil
		}
	}
	return domain.Booking{ID: bookingID, Rating: rating}, nil
}

func (f *fakeClient) SenderTickets(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return []domain.Ticket{f.ticket}, nil
}

func (f *fakeClient) Ticket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	if f.ticketFn != nil {
		return f.ticketFn(ctx, ticketID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticket, nil
}

func (f *fakeClient) ReplyTicket(ctx context.Context, ticketID string, reply domain.TicketReply) error {
	return nil
}

func (f *fakeClient) calls(propertyID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.propertyCalls[propertyID]
}

// memCache is an in-process Cache that round-trips values through JSON like
// the redis adapter does.
type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemCache() *memCache { return &memCache{m: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	b, ok := c.m[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.m[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}
