package domain

// Booking statuses as supplied by the Betcha backend. Case-sensitive.
const (
	StatusPendingPayment = "PendingPayment"
	StatusReserved       = "Reserved"
	StatusFullyPaid      = "FullyPaid"
	StatusCheckedIn      = "CheckedIn"
	StatusCheckedOut     = "CheckedOut"
	StatusCompleted      = "Completed"
	StatusCancel         = "Cancel"
)

type Booking struct {
	ID                string
	TransactionNumber string
	Status            string
	Rating            int // 0 = not yet rated
	PropertyID        string
	PropertyName      string
	CheckIn           string
	CheckOut          string
}

// Buckets is the total partition of a guest's bookings: every booking lands
// in exactly one of the three slices, in input order.
type Buckets struct {
	Pending   []Booking
	ToRate    []Booking
	Completed []Booking
}
