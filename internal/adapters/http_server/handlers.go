// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"betcha_portal/internal/adapters/betcha"
	"betcha_portal/internal/app"
	"betcha_portal/internal/domain"
)

type Handlers struct {
	Bookings     *app.BookingService
	API          domain.BetchaClient
	PollInterval time.Duration
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(15 * time.Second))
		r.Get("/v1/guests/{userID}/bookings", h.dashboard)
		r.Get("/v1/guests/{userID}/bookings/{tab}", h.tab)
		r.Patch("/v1/bookings/{id}/rating", h.rate)
		r.Get("/v1/guests/{userID}/tickets", h.listTickets)
		r.Get("/v1/tickets/{id}", h.getTicket)
		r.Post("/v1/tickets/{id}/reply", h.reply)
	})

	// The watch stream stays outside the timeout wrapper: http.TimeoutHandler
	// buffers writes and would break SSE flushing.
	s.mux.Get("/v1/tickets/{id}/watch", h.watchTicket)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeUpstreamProblem maps outbound client failures onto one uniform retry
// affordance: 404 for a missing resource, 502 for everything else.
func writeUpstreamProblem(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, betcha.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	writeProblem(w, http.StatusBadGateway, "Upstream Unavailable", what+" could not be loaded, retry")
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCacheableJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

/********** bookings **********/

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	d, err := h.Bookings.Dashboard(r.Context(), userID)
	if err != nil {
		writeUpstreamProblem(w, err, "bookings")
		return
	}
	writeCacheableJSON(w, r, d)
}

func (h *Handlers) tab(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	tab := chi.URLParam(r, "tab")
	cards, err := h.Bookings.Tab(r.Context(), userID, tab)
	if err != nil {
		if errors.Is(err, app.ErrUnknownTab) {
			writeProblem(w, http.StatusBadRequest, "Invalid tab", err.Error())
			return
		}
		writeUpstreamProblem(w, err, "bookings")
		return
	}
	writeCacheableJSON(w, r, cards)
}

func (h *Handlers) rate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected {\"rating\": 1..5}")
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		writeProblem(w, http.StatusBadRequest, "Invalid rating", "rating must be between 1 and 5")
		return
	}
	updated, err := h.Bookings.Rate(r.Context(), id, body.Rating)
	if err != nil {
		writeUpstreamProblem(w, err, "booking")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		log.Error().Err(err).Msg("failed to write rate response")
	}
}

/********** tickets **********/

func ticketView(t domain.Ticket) domain.TicketView {
	v := domain.TicketView{ID: t.ID, Status: t.Status, Messages: make([]domain.MessageView, 0, len(t.Messages))}
	for _, m := range t.Messages {
		v.Messages = append(v.Messages, domain.MessageView{
			DateTime:  m.DateTime.Format(time.RFC3339),
			UserLevel: m.UserLevel,
			Text:      m.Text,
		})
	}
	return v
}

func (h *Handlers) listTickets(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ts, err := h.API.SenderTickets(r.Context(), userID)
	if err != nil {
		writeUpstreamProblem(w, err, "tickets")
		return
	}
	views := make([]domain.TicketView, 0, len(ts))
	for _, t := range ts {
		views = append(views, ticketView(t))
	}
	writeCacheableJSON(w, r, views)
}

func (h *Handlers) getTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.API.Ticket(r.Context(), id)
	if err != nil {
		writeUpstreamProblem(w, err, "ticket")
		return
	}
	writeCacheableJSON(w, r, ticketView(t))
}

func (h *Handlers) reply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		UserID    string `json:"userId"`
		UserLevel string `json:"userLevel"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected {userId, userLevel, message}")
		return
	}
	reply := domain.TicketReply{UserID: body.UserID, UserLevel: body.UserLevel, Message: body.Message}
	if err := h.API.ReplyTicket(r.Context(), id, reply); err != nil {
		writeUpstreamProblem(w, err, "ticket")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// watchTicket streams ticket updates over SSE. Opening the stream selects
// the ticket and starts its poll loop; the client going away stops it. An
// event is emitted for the initial snapshot and then only when the message
// count changes.
func (h *Handlers) watchTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fl, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "response writer cannot flush")
		return
	}

	updates := make(chan domain.Ticket, 8)
	watcher := app.NewTicketWatcher(h.API, h.PollInterval, func(t domain.Ticket) {
		select {
		case updates <- t:
		default: // slow client; it will catch up on the next change
		}
	})
	if err := watcher.Select(r.Context(), id); err != nil {
		writeUpstreamProblem(w, err, "ticket")
		return
	}
	defer watcher.Stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case t := <-updates:
			b, err := json.Marshal(ticketView(t))
			if err != nil {
				log.Error().Err(err).Msg("marshal ticket event failed")
				continue
			}
			fmt.Fprintf(w, "event: ticket\ndata: %s\n\n", b)
			fl.Flush()
		}
	}
}
