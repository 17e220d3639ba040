package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// EventStaffUpdated announces any roster change (create, edit, deactivate);
// consumers re-read the roster rather than patching their copy.
const EventStaffUpdated = "roster.staff.updated.v1"
