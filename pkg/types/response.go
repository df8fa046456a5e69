package types

// Envelope is the wire shape every JSON endpoint returns. Clients unwrap
// Data and must treat Success=false as an error even on HTTP 200.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}
