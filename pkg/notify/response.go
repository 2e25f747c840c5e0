package notify

// DispatchResult maps a batch index ("0", "1", ...) or a topic name to the
// provider's message identifier. Failed batches have no entry.
type DispatchResult map[string]string

// Failure records a batch or topic the provider rejected.
type Failure struct {
	Key   string `json:"key"`
	Size  int    `json:"size"`
	Error string `json:"error"`
}

// Response is returned for every accepted request. Success means the request
// was valid, not that every batch was delivered; check Failures for gaps.
type Response struct {
	Success  bool           `json:"success"`
	Results  DispatchResult `json:"results"`
	Failures []Failure      `json:"failures,omitempty"`

	// Populated only when the request asked for the token list.
	Tokens []string `json:"tokens,omitempty"`
	Topic  string   `json:"topic,omitempty"`
}
