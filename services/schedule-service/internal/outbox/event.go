package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Appointment event types published by the schedule service.
const (
	EventAppointmentCreated = "schedule.appointment.created.v1"
	EventAppointmentUpdated = "schedule.appointment.updated.v1"
	EventAppointmentDeleted = "schedule.appointment.deleted.v1"
)
