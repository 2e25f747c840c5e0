// Package notify contains the public request, target and result models for
// the notification engine.
package notify

// Target describes how to find delivery endpoints for a notification.
// It is a closed set: TokenTarget, TopicTarget, CollectionTarget and
// DocumentTarget.
type Target interface {
	isTarget()
}

// TokenTarget delivers to an explicit set of device tokens.
type TokenTarget struct {
	Tokens TokenValue `json:"tokens"`
}

// TopicTarget delivers to every device subscribed to a provider topic.
type TopicTarget struct {
	Topic string `json:"topic" validate:"required"`
}

// CollectionTarget scans every document of a collection, keeps the ones that
// match Filters and reads delivery tokens from TokenField.
type CollectionTarget struct {
	Path       string      `json:"path" validate:"required"`
	Filters    []Condition `json:"filters,omitempty" validate:"dive"`
	TokenField string      `json:"tokenField" validate:"required"`
}

// DocumentTarget is CollectionTarget applied to a single document.
type DocumentTarget struct {
	Path       string      `json:"path" validate:"required"`
	Filters    []Condition `json:"filters,omitempty" validate:"dive"`
	TokenField string      `json:"tokenField" validate:"required"`
}

func (TokenTarget) isTarget()      {}
func (TopicTarget) isTarget()      {}
func (CollectionTarget) isTarget() {}
func (DocumentTarget) isTarget()   {}
