// Package events defines event types and structures for flow lifecycle
// notifications.
package events

import (
	"time"

	"github.com/chatforge/chatforge/pkg/models"
)

type EventType string

// Topic is the stream flow lifecycle events are published to.
const Topic = "chatforge.flows"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowCreatedEvent EventType = "flow.created"
	FlowUpdatedEvent EventType = "flow.updated"
	FlowDeletedEvent EventType = "flow.deleted"

	NodeCreatedEvent EventType = "flow.node.created"
	NodeUpdatedEvent EventType = "flow.node.updated"
	NodeDeletedEvent EventType = "flow.node.deleted"

	TransitionCreatedEvent EventType = "flow.transition.created"
	TransitionUpdatedEvent EventType = "flow.transition.updated"
	TransitionDeletedEvent EventType = "flow.transition.deleted"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id,omitempty"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type FlowCreated struct {
	BaseEvent

	Flow *models.Flow `json:"flow"`
}

func (e FlowCreated) GetType() EventType { return FlowCreatedEvent }

type FlowUpdated struct {
	BaseEvent

	Flow *models.Flow `json:"flow"`
}

func (e FlowUpdated) GetType() EventType { return FlowUpdatedEvent }

type FlowDeleted struct {
	BaseEvent
}

func (e FlowDeleted) GetType() EventType { return FlowDeletedEvent }

type NodeCreated struct {
	BaseEvent

	Node *models.FlowNode `json:"node"`
}

func (e NodeCreated) GetType() EventType { return NodeCreatedEvent }

type NodeUpdated struct {
	BaseEvent

	Node *models.FlowNode `json:"node"`
}

func (e NodeUpdated) GetType() EventType { return NodeUpdatedEvent }

// NodeDeleted also names the transitions removed by the cascade so
// downstream consumers can mirror referential integrity.
type NodeDeleted struct {
	BaseEvent

	NodeID                string   `json:"node_id"`
	CascadedTransitionIDs []string `json:"cascaded_transition_ids,omitempty"`
}

func (e NodeDeleted) GetType() EventType { return NodeDeletedEvent }

type TransitionCreated struct {
	BaseEvent

	Transition *models.FlowTransition `json:"transition"`
}

func (e TransitionCreated) GetType() EventType { return TransitionCreatedEvent }

type TransitionUpdated struct {
	BaseEvent

	Transition *models.FlowTransition `json:"transition"`
}

func (e TransitionUpdated) GetType() EventType { return TransitionUpdatedEvent }

type TransitionDeleted struct {
	BaseEvent

	TransitionID string `json:"transition_id"`
}

func (e TransitionDeleted) GetType() EventType { return TransitionDeletedEvent }
