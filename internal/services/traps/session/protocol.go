package session

import (
	"encoding/json"
	"log"

	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

// Client to host frame types.
const (
	TypeTokenMove   = "token.move"
	TypeTokenSelect = "token.select"
	TypeTrapTrigger = "trap.trigger"
	TypeTrapPlace   = "trap.place"
	TypeTrapList    = "trap.list"
)

// Host to client frame types.
const (
	TypeWelcome     = "session.welcome"
	TypeChatMessage = "chat.message"
	TypeTrapResult  = "trap.result"
	TypeTrapEvent   = "trap.event"
	TypeTrapPlaced  = "trap.placed"
	TypeSceneEffect = "scene.effect"
	TypeSceneToken  = "scene.token"
	TypeError       = "error"
)

// Envelope is every websocket frame.
type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type MovePayload struct {
	TokenID string  `json:"tokenId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type SelectPayload struct {
	TokenIDs []string `json:"tokenIds"`
}

type TriggerPayload struct {
	TrapID  string `json:"trapId"`
	TokenID string `json:"tokenId,omitempty"`
}

type PlacePayload struct {
	Archetype string            `json:"archetype"`
	Options   archetype.Options `json:"options"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
}

type WelcomePayload struct {
	Participant Participant `json:"participant"`
}

type TrapListPayload struct {
	Traps []trap.Definition `json:"traps"`
}

type TrapPlacedPayload struct {
	Trap trap.Definition `json:"trap"`
}

type TokenPayload struct {
	Token scene.Token `json:"token"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func frame(kind, requestID string, payload any) Envelope {
	return Envelope{Type: kind, RequestID: requestID, Payload: mustJSON(payload)}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("session: marshal frame payload: %v", err)
		return nil
	}
	return b
}
