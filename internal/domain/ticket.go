package domain

import (
	"sort"
	"time"
)

type Message struct {
	DateTime  time.Time
	UserLevel string // guest|employee
	Text      string
}

type Ticket struct {
	ID       string
	Status   string
	Messages []Message
}

// SortMessagesAsc orders messages by dateTime ascending regardless of the
// order the API delivered them in. Stable so same-timestamp messages keep
// their arrival order.
func SortMessagesAsc(ms []Message) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].DateTime.Before(ms[j].DateTime) })
}

type TicketReply struct {
	UserID    string
	UserLevel string
	Message   string
}
