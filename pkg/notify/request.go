package notify

// MaxBatchSize is the provider's hard limit of tokens per multicast call.
const MaxBatchSize = 500

// DefaultPageSize is the number of documents requested per scan page.
const DefaultPageSize = 500

// LinkDataKey is the reserved data key a request link is copied into.
const LinkDataKey = "@link"

// Request is a single notification send. Exactly one of the target fields
// must be set.
type Request struct {
	Title      string            `json:"title" validate:"required"`
	Body       string            `json:"body" validate:"required"`
	Link       string            `json:"link,omitempty"`
	ChannelID  string            `json:"channelId,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	BadgeCount *int              `json:"badgeCount,omitempty" validate:"omitempty,min=0"`
	Sound      string            `json:"sound,omitempty"`

	TokenTarget      *TokenTarget      `json:"tokenTarget,omitempty"`
	TopicTarget      *TopicTarget      `json:"topicTarget,omitempty"`
	CollectionTarget *CollectionTarget `json:"collectionTarget,omitempty"`
	DocumentTarget   *DocumentTarget   `json:"documentTarget,omitempty"`

	DryRun            bool `json:"dryRun,omitempty"`
	ResponseTokenList bool `json:"responseTokenList,omitempty"`
	ShowLog           bool `json:"showLog,omitempty"`
}

// Target returns the single target carried by the request.
func (r *Request) Target() (Target, error) {
	var found []Target
	if r.TokenTarget != nil {
		found = append(found, *r.TokenTarget)
	}
	if r.TopicTarget != nil {
		found = append(found, *r.TopicTarget)
	}
	if r.CollectionTarget != nil {
		found = append(found, *r.CollectionTarget)
	}
	if r.DocumentTarget != nil {
		found = append(found, *r.DocumentTarget)
	}
	switch len(found) {
	case 0:
		return nil, NewValidationError("target", "one of tokenTarget, topicTarget, collectionTarget or documentTarget is required")
	case 1:
		return found[0], nil
	default:
		return nil, NewValidationError("target", "only one target may be set")
	}
}

// Payload builds the provider payload, copying Link into the data map.
func (r *Request) Payload() Payload {
	data := make(map[string]string, len(r.Data)+1)
	for k, v := range r.Data {
		data[k] = v
	}
	if r.Link != "" {
		data[LinkDataKey] = r.Link
	}
	return Payload{
		Title:      r.Title,
		Body:       r.Body,
		Data:       data,
		ChannelID:  r.ChannelID,
		BadgeCount: r.BadgeCount,
		Sound:      r.Sound,
	}
}

// Payload is the provider-neutral message content with platform hints.
type Payload struct {
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
	ChannelID  string            `json:"channelId,omitempty"`
	BadgeCount *int              `json:"badgeCount,omitempty"`
	Sound      string            `json:"sound,omitempty"`
}
