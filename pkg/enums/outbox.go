package enums

import "slices"

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateMedia   OutboxAggregateType = "media"
	AggregateProfile OutboxAggregateType = "profile"
)

// OutboxEventType is the event_type column of outbox_events.
type OutboxEventType string

const (
	EventMediaUploaded OutboxEventType = "media_uploaded"
	EventMediaDeleted  OutboxEventType = "media_deleted"
)

var (
	aggregateTypes = []OutboxAggregateType{AggregateMedia, AggregateProfile}
	eventTypes     = []OutboxEventType{EventMediaUploaded, EventMediaDeleted}
)

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

// OutboxEventTypes lists every event the outbox may carry.
func OutboxEventTypes() []OutboxEventType { return slices.Clone(eventTypes) }
