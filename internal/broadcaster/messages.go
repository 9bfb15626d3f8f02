package broadcaster

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

// MessageType identifies websocket message kinds
type MessageType string

const (
	MessageTypeOpportunity MessageType = "opportunity"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeHeartbeat   MessageType = "heartbeat"
	MessageTypeError       MessageType = "error"
)

// ServerMessage is sent from the hub to clients
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// ClientMessage is received from clients
type ClientMessage struct {
	Type    MessageType            `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ErrorMessage is the payload for error responses
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OpportunityFilter narrows which scored opportunities a client receives
type OpportunityFilter struct {
	Categories  []string `json:"categories,omitempty"`
	MarketTypes []string `json:"market_types,omitempty"`
	MaxRisk     float64  `json:"max_risk,omitempty"` // 0 means no risk limit
}

// Matches reports whether an opportunity passes the filter
func (f OpportunityFilter) Matches(opp models.ScoredOpportunity) bool {
	if len(f.Categories) > 0 && !contains(f.Categories, opp.Category) {
		return false
	}
	if len(f.MarketTypes) > 0 && !contains(f.MarketTypes, string(opp.MarketType)) {
		return false
	}
	if f.MaxRisk > 0 && opp.RiskScore > f.MaxRisk {
		return false
	}
	return true
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
