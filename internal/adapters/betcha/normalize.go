package betcha

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"betcha_portal/internal/domain"
)

/********** wire types **********/

// bookingWire tolerates the field spellings the backend has been seen to use.
// propertyId arrives either as a bare id string or as a populated object.
type bookingWire struct {
	ID                string          `json:"id"`
	MongoID           string          `json:"_id"`
	TransactionNumber string          `json:"transactionNumber"`
	TransNo           string          `json:"transNo"`
	Status            string          `json:"status"`
	Rating            int             `json:"rating"`
	PropertyID        json.RawMessage `json:"propertyId"`
	PropertyName      string          `json:"propertyName"`
	CheckIn           string          `json:"checkIn"`
	CheckOut          string          `json:"checkOut"`
}

func (w bookingWire) toDomain() domain.Booking {
	b := domain.Booking{
		ID:                firstNonEmpty(w.ID, w.MongoID),
		TransactionNumber: firstNonEmpty(w.TransactionNumber, w.TransNo),
		Status:            w.Status,
		Rating:            w.Rating,
		PropertyName:      w.PropertyName,
		CheckIn:           w.CheckIn,
		CheckOut:          w.CheckOut,
	}
	b.PropertyID, b.PropertyName = resolveProperty(w.PropertyID, w.PropertyName)
	return b
}

// resolveProperty accepts "abc123" or {"_id":"abc123","name":"Villa"}.
func resolveProperty(raw json.RawMessage, fallbackName string) (string, string) {
	if len(raw) == 0 {
		return "", fallbackName
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, fallbackName
	}
	var obj struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return firstNonEmpty(obj.ID, obj.MongoID), firstNonEmpty(obj.Name, fallbackName)
	}
	return "", fallbackName
}

type propertyWire struct {
	ID         string   `json:"id"`
	MongoID    string   `json:"_id"`
	Name       string   `json:"name"`
	PhotoLinks []string `json:"photoLinks"`
}

func (w propertyWire) toDomain(requestedID string) domain.Property {
	return domain.Property{
		ID:         firstNonEmpty(w.ID, w.MongoID, requestedID),
		Name:       w.Name,
		PhotoLinks: w.PhotoLinks,
	}
}

type messageWire struct {
	DateTime  string `json:"dateTime"`
	UserLevel string `json:"userLevel"`
	Message   string `json:"message"`
	Text      string `json:"text"`
}

type ticketWire struct {
	ID       string        `json:"id"`
	MongoID  string        `json:"_id"`
	Status   string        `json:"status"`
	Messages []messageWire `json:"messages"`
}

func (w ticketWire) toDomain() domain.Ticket {
	t := domain.Ticket{
		ID:       firstNonEmpty(w.ID, w.MongoID),
		Status:   w.Status,
		Messages: make([]domain.Message, 0, len(w.Messages)),
	}
	for _, m := range w.Messages {
		t.Messages = append(t.Messages, domain.Message{
			DateTime:  parseWhen(m.DateTime),
			UserLevel: m.UserLevel,
			Text:      firstNonEmpty(m.Text, m.Message),
		})
	}
	// ascending regardless of arrival order
	domain.SortMessagesAsc(t.Messages)
	return t
}

func parseWhen(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

/********** booking-list normalization **********/

// The booking-list endpoint answers in one of three shapes:
//
//	grouped:  {"message": "...", "pending": [...], "rate": [...], "completed": [...]}
//	nested:   {"success": true, "data": [{"bookings": [...]}, ...]}
//	flat:     [...]
//
// Each shape gets its own normalization function, chosen by a discriminant
// check. Anything unrecognized degrades to an empty list with a warning.

type groupedPayload struct {
	Message   string        `json:"message"`
	Pending   []bookingWire `json:"pending"`
	Rate      []bookingWire `json:"rate"`
	Completed []bookingWire `json:"completed"`
}

type nestedPayload struct {
	Success bool `json:"success"`
	Data    []struct {
		Bookings []bookingWire `json:"bookings"`
	} `json:"data"`
}

func normalizeBookings(raw json.RawMessage) []domain.Booking {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '[' {
		return normalizeFlat(raw)
	}

	// object: probe the discriminant keys once
	var probe struct {
		Data      json.RawMessage `json:"data"`
		Pending   json.RawMessage `json:"pending"`
		Rate      json.RawMessage `json:"rate"`
		Completed json.RawMessage `json:"completed"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		log.Warn().Err(err).Msg("booking list: unrecognized payload, treating as empty")
		return nil
	}
	switch {
	case probe.Data != nil:
		return normalizeNested(raw)
	case probe.Pending != nil || probe.Rate != nil || probe.Completed != nil:
		return normalizeGrouped(raw)
	}
	log.Warn().Msg("booking list: object payload without known keys, treating as empty")
	return nil
}

func normalizeFlat(raw json.RawMessage) []domain.Booking {
	var ws []bookingWire
	if err := json.Unmarshal(raw, &ws); err != nil {
		log.Warn().Err(err).Msg("booking list: flat payload did not decode, treating as empty")
		return nil
	}
	return toBookings(ws)
}

func normalizeGrouped(raw json.RawMessage) []domain.Booking {
	var p groupedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn().Err(err).Msg("booking list: grouped payload did not decode, treating as empty")
		return nil
	}
	out := make([]domain.Booking, 0, len(p.Pending)+len(p.Rate)+len(p.Completed))
	out = append(out, toBookings(p.Pending)...)
	out = append(out, toBookings(p.Rate)...)
	out = append(out, toBookings(p.Completed)...)
	return out
}

func normalizeNested(raw json.RawMessage) []domain.Booking {
	var p nestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn().Err(err).Msg("booking list: nested payload did not decode, treating as empty")
		return nil
	}
	var out []domain.Booking
	for _, grp := range p.Data {
		out = append(out, toBookings(grp.Bookings)...)
	}
	return out
}

func toBookings(ws []bookingWire) []domain.Booking {
	if len(ws) == 0 {
		return nil
	}
	out := make([]domain.Booking, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.toDomain())
	}
	return out
}

// decodeBooking handles a single booking that may arrive bare or wrapped in
// {"booking": {...}} (the rate endpoint has used both).
func decodeBooking(raw json.RawMessage) (domain.Booking, bool) {
	var wrapped struct {
		Booking *bookingWire `json:"booking"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Booking != nil {
		return wrapped.Booking.toDomain(), true
	}
	var w bookingWire
	if err := json.Unmarshal(raw, &w); err == nil && (w.ID != "" || w.MongoID != "") {
		return w.toDomain(), true
	}
	return domain.Booking{}, false
}
