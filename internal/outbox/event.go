package outbox

// Event is the domain event envelope written to the outbox table in the
// same transaction as the state change it describes. The Kafka topic name
// equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventAppointmentCreated   = "booking.appointment.created.v1"
	EventAppointmentConfirmed = "booking.appointment.confirmed.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventAppointmentOutcome   = "booking.appointment.outcome.v1"
	EventReminderRequested    = "booking.reminder.requested.v1"
)
