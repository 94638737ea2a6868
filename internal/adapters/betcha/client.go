// internal/adapters/betcha/client.go
package betcha

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"betcha_portal/internal/adapters/observability"
	"betcha_portal/internal/domain"
)

// Client talks to the Betcha REST API with client-side rate limiting and
// retries on transient failures.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) GuestBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	var raw json.RawMessage
	u := fmt.Sprintf("%s/booking/guest/%s", c.base, url.PathEscape(userID))
	if err := c.do(ctx, http.MethodGet, "booking_guest", u, nil, &raw); err != nil {
		return nil, err
	}
	// Malformed/unexpected shapes degrade to an empty list, never an error.
	return normalizeBookings(raw), nil
}

func (c *Client) Property(ctx context.Context, propertyID string) (domain.Property, error) {
	var w propertyWire
	u := fmt.Sprintf("%s/property/display/%s", c.base, url.PathEscape(propertyID))
	if err := c.do(ctx, http.MethodGet, "property_display", u, nil, &w); err != nil {
		return domain.Property{}, err
	}
	return w.toDomain(propertyID), nil
}

func (c *Client) RateBooking(ctx context.Context, bookingID string, rating int) (domain.Booking, error) {
	var raw json.RawMessage
	u := fmt.Sprintf("%s/booking/rate/%s", c.base, url.PathEscape(bookingID))
	body := map[string]int{"rating": rating}
	if err := c.do(ctx, http.MethodPatch, "booking_rate", u, body, &raw); err != nil {
		return domain.Booking{}, err
	}
	b, ok := decodeBooking(raw)
	if !ok {
		return domain.Booking{}, fmt.Errorf("rate response for %s: unrecognized payload", bookingID)
	}
	return b, nil
}

func (c *Client) SenderTickets(ctx context.Context, userID string) ([]domain.Ticket, error) {
	var w struct {
		Tickets []ticketWire `json:"tickets"`
	}
	u := fmt.Sprintf("%s/tk/sender/%s", c.base, url.PathEscape(userID))
	if err := c.do(ctx, http.MethodGet, "ticket_sender", u, nil, &w); err != nil {
		return nil, err
	}
	out := make([]domain.Ticket, 0, len(w.Tickets))
	for _, t := range w.Tickets {
		out = append(out, t.toDomain())
	}
	return out, nil
}

func (c *Client) Ticket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	var w struct {
		Ticket ticketWire `json:"ticket"`
	}
	u := fmt.Sprintf("%s/tk/display/%s", c.base, url.PathEscape(ticketID))
	if err := c.do(ctx, http.MethodGet, "ticket_display", u, nil, &w); err != nil {
		return domain.Ticket{}, err
	}
	return w.Ticket.toDomain(), nil
}

func (c *Client) ReplyTicket(ctx context.Context, ticketID string, reply domain.TicketReply) error {
	u := fmt.Sprintf("%s/tk/reply/%s", c.base, url.PathEscape(ticketID))
	body := map[string]string{
		"userId":    reply.UserID,
		"userLevel": reply.UserLevel,
		"message":   reply.Message,
	}
	return c.do(ctx, http.MethodPost, "ticket_reply", u, body, nil)
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("betcha: not found")
	ErrUnauthorized = errors.New("betcha: unauthorized")
	ErrForbidden    = errors.New("betcha: forbidden")
)

// do performs a request with client-side rate limiting, retries, and JSON
// decode into out (out may be nil for fire-and-forget replies). Retries on
// 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, method, endpoint, reqURL string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "betcha-portal/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("betcha", endpoint, 0, time.Since(start))
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("betcha", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay (200ms, 400ms, 800ms...) with
// up to +50% jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
