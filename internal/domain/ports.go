package domain

import "context"

type Property struct {
	ID         string
	Name       string
	PhotoLinks []string
}

type BetchaClient interface {
	GuestBookings(ctx context.Context, userID string) ([]Booking, error)
	Property(ctx context.Context, propertyID string) (Property, error)
	RateBooking(ctx context.Context, bookingID string, rating int) (Booking, error)

	SenderTickets(ctx context.Context, userID string) ([]Ticket, error)
	Ticket(ctx context.Context, ticketID string) (Ticket, error)
	ReplyTicket(ctx context.Context, ticketID string, reply TicketReply) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models

// BookingCard is the per-booking view the portal serves. PhotoURL starts as
// the placeholder and is patched once the property photo resolves.
type BookingCard struct {
	ID                string `json:"id"`
	TransactionNumber string `json:"transactionNumber"`
	Status            string `json:"status"`
	Rating            int    `json:"rating"`
	PropertyID        string `json:"propertyId"`
	PropertyName      string `json:"propertyName,omitempty"`
	CheckIn           string `json:"checkIn,omitempty"`
	CheckOut          string `json:"checkOut,omitempty"`
	PhotoURL          string `json:"photoUrl"`
}

type Dashboard struct {
	All       []BookingCard `json:"all"`
	Pending   []BookingCard `json:"pending"`
	ToRate    []BookingCard `json:"toRate"`
	Completed []BookingCard `json:"completed"`
}

type MessageView struct {
	DateTime  string `json:"dateTime"`
	UserLevel string `json:"userLevel"`
	Text      string `json:"text"`
}

type TicketView struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Messages []MessageView `json:"messages"`
}
