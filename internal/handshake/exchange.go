package handshake

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplink/bva-backend/pkg/enums"
)

// Status is the three-state lifecycle of one link attempt.
type Status string

const (
	StatusChecking         Status = "checking"
	StatusAuthenticated    Status = "authenticated"
	StatusNotAuthenticated Status = "not_authenticated"
)

// Exchange is one link attempt between a user and a provider storefront.
// It stays in checking until a provider message settles it or the deadline
// passes with no shop recorded.
type Exchange struct {
	ID         string         `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	Platform   enums.Platform `json:"platform"`
	Status     Status         `json:"status"`
	Shop       *Shop          `json:"shop,omitempty"`
	Token      string         `json:"token,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	DeadlineAt time.Time      `json:"deadline_at"`
}

// Settled reports whether the exchange left the checking state.
func (e *Exchange) Settled() bool {
	return e.Status != StatusChecking
}
