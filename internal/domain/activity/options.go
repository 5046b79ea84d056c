package activity

// ListOptions provides filtering options for listing audit events.
type ListOptions struct {
	ProjectID string
	Type      *EventType
	Limit     int
	Offset    int
}
