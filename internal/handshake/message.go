package handshake

// MessageType enumerates the closed set of messages a provider storefront
// may deliver during a link exchange.
type MessageType string

const (
	MessageAuthSuccess  MessageType = "AUTH_SUCCESS"
	MessageAuthError    MessageType = "AUTH_ERROR"
	MessageAuthRequired MessageType = "AUTH_REQUIRED"
)

// IsValid reports whether the type is one of the known variants.
func (m MessageType) IsValid() bool {
	switch m {
	case MessageAuthSuccess, MessageAuthError, MessageAuthRequired:
		return true
	}
	return false
}

// Shop identifies the storefront on the provider side. ID is the provider's
// own identifier, opaque to us.
type Shop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is one delivery from the provider surface.
type Message struct {
	Type  MessageType `json:"type"`
	Shop  *Shop       `json:"shop,omitempty"`
	Token string      `json:"token,omitempty"`
	Error string      `json:"error,omitempty"`
}
