// Package session is the host's network channel: authenticated websocket
// participants, broadcast of chat, cues and scene changes, and the single
// queue every trigger runs on.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
	"github.com/louisbranch/trapmacros/internal/platform/timeouts"
	"github.com/louisbranch/trapmacros/internal/services/traps/chat"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/trap"
	"github.com/louisbranch/trapmacros/internal/services/traps/engine"
	"github.com/louisbranch/trapmacros/internal/services/traps/handlers"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
)

// Controller is what participants may ask the host to do.
type Controller interface {
	Token(ctx context.Context, tokenID string) (scene.Token, error)
	MoveToken(ctx context.Context, tokenID string, to scene.Point) (scene.Token, []trap.Result, error)
	TriggerTrap(ctx context.Context, req engine.Request) (trap.Result, error)
	PlaceTrap(ctx context.Context, tag string, opts archetype.Options, at scene.Point) (trap.Definition, error)
	ListTraps(ctx context.Context) []trap.Definition
}

// HubOptions configure a Hub.
type HubOptions struct {
	// OriginPatterns lists extra origins allowed to open the websocket.
	OriginPatterns []string
	// Locale selects the language of error messages.
	Locale string
}

// Hub tracks connected participants. It implements chat.Log, handlers.Cues
// and handlers.Handler so trap output reaches every participant allowed to
// see it.
type Hub struct {
	verifier Verifier
	opts     HubOptions

	mu    sync.RWMutex
	ctrl  Controller
	peers map[*peer]struct{}
}

// NewHub creates a hub authenticating with verifier.
func NewHub(verifier Verifier, opts HubOptions) *Hub {
	return &Hub{verifier: verifier, opts: opts, peers: make(map[*peer]struct{})}
}

// Bind sets the controller participant requests are sent to.
func (h *Hub) Bind(ctrl Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctrl = ctrl
}

func (h *Hub) controller() Controller {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctrl
}

// Peers returns the number of connected participants.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// ServeHTTP authenticates and upgrades a participant connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.verifier == nil {
		http.Error(w, "websocket auth is not configured", http.StatusServiceUnavailable)
		return
	}
	participant, err := h.verifier.Verify(TokenFromRequest(r))
	if err != nil {
		log.Printf("session: websocket unauthorized remote=%s: %v", r.RemoteAddr, err)
		http.Error(w, "authentication required", apperrors.CodeOf(err).HTTPStatus())
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.opts.OriginPatterns})
	if err != nil {
		log.Printf("session: accept websocket for %s: %v", participant.UserID, err)
		return
	}
	conn.SetReadLimit(maxFramePayloadBytes)

	p := &peer{conn: conn, participant: participant}
	h.join(p)
	defer h.leave(p)

	ctx := r.Context()
	_ = p.write(ctx, frame(TypeWelcome, "", WelcomePayload{Participant: participant}))
	h.serve(ctx, p)
}

func (h *Hub) join(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()
	log.Printf("session: %s (%s) joined", p.participant.UserID, p.participant.Role)
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	h.mu.Unlock()
	_ = p.conn.Close(websocket.StatusNormalClosure, "")
	log.Printf("session: %s left", p.participant.UserID)
}

func (h *Hub) serve(ctx context.Context, p *peer) {
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		_, data, err := p.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.Printf("session: read from %s: %v", p.participant.UserID, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			decodeErrors++
			_ = h.writeError(ctx, p, "", apperrors.New(apperrors.CodeUnknown, "invalid frame payload"))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = p.conn.Close(websocket.StatusPolicyViolation, "rate limit exceeded")
			return
		}

		if err := h.dispatch(ctx, p, env); err != nil {
			_ = h.writeError(ctx, p, env.RequestID, err)
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, p *peer, env Envelope) error {
	ctrl := h.controller()
	if ctrl == nil {
		return errors.New("host is not ready")
	}
	switch env.Type {
	case TypeTokenSelect:
		var payload SelectPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return invalidPayload(env.Type)
		}
		p.setSelected(payload.TokenIDs)
		return nil
	case TypeTokenMove:
		return h.handleMove(ctx, ctrl, p, env)
	case TypeTrapTrigger:
		return h.handleTrigger(ctx, ctrl, p, env)
	case TypeTrapPlace:
		return h.handlePlace(ctx, ctrl, p, env)
	case TypeTrapList:
		if !p.participant.IsGM() {
			return forbidden("only a game master can list traps")
		}
		return p.write(ctx, frame(TypeTrapList, env.RequestID, TrapListPayload{Traps: ctrl.ListTraps(ctx)}))
	default:
		return apperrors.New(apperrors.CodeUnknown, "unsupported frame type "+env.Type)
	}
}

func (h *Hub) handleMove(ctx context.Context, ctrl Controller, p *peer, env Envelope) error {
	var payload MovePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return invalidPayload(env.Type)
	}
	if err := h.authorizeToken(ctx, ctrl, p, payload.TokenID); err != nil {
		return err
	}
	_, results, err := ctrl.MoveToken(ctx, payload.TokenID, scene.Point{X: payload.X, Y: payload.Y})
	if err != nil {
		return err
	}
	for _, res := range results {
		if err := p.write(ctx, frame(TypeTrapResult, env.RequestID, res)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) handleTrigger(ctx context.Context, ctrl Controller, p *peer, env Envelope) error {
	var payload TriggerPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil || strings.TrimSpace(payload.TrapID) == "" {
		return invalidPayload(env.Type)
	}
	req := engine.Request{TrapID: payload.TrapID, TargetID: payload.TokenID, Selected: p.selected()}
	if !p.participant.IsGM() {
		if req.TargetID != "" {
			if err := h.authorizeToken(ctx, ctrl, p, req.TargetID); err != nil {
				return err
			}
		}
		req.Selected = h.ownedOnly(ctx, ctrl, p, req.Selected)
	}
	res, err := ctrl.TriggerTrap(ctx, req)
	if err != nil && !res.Success && res.Message == "" {
		return err
	}
	return p.write(ctx, frame(TypeTrapResult, env.RequestID, res))
}

func (h *Hub) handlePlace(ctx context.Context, ctrl Controller, p *peer, env Envelope) error {
	if !p.participant.IsGM() {
		return forbidden("only a game master can place traps")
	}
	var payload PlacePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return invalidPayload(env.Type)
	}
	def, err := ctrl.PlaceTrap(ctx, payload.Archetype, payload.Options, scene.Point{X: payload.X, Y: payload.Y})
	if err != nil {
		return err
	}
	return p.write(ctx, frame(TypeTrapPlaced, env.RequestID, TrapPlacedPayload{Trap: def}))
}

func (h *Hub) authorizeToken(ctx context.Context, ctrl Controller, p *peer, tokenID string) error {
	if p.participant.IsGM() {
		return nil
	}
	token, err := ctrl.Token(ctx, tokenID)
	if err != nil {
		return err
	}
	if !token.OwnedBy(p.participant.UserID) {
		return forbidden("token " + tokenID + " is not yours")
	}
	return nil
}

func (h *Hub) ownedOnly(ctx context.Context, ctrl Controller, p *peer, tokenIDs []string) []string {
	out := make([]string, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		if h.authorizeToken(ctx, ctrl, p, tokenID) == nil {
			out = append(out, tokenID)
		}
	}
	return out
}

// Post delivers msg to every participant allowed to read it.
func (h *Hub) Post(ctx context.Context, msg chat.Message) error {
	h.broadcast(ctx, frame(TypeChatMessage, "", msg), func(p Participant) bool {
		return canRead(p, msg)
	})
	return nil
}

// Cue broadcasts a scene effect.
func (h *Hub) Cue(ctx context.Context, cue handlers.Cue) error {
	h.broadcast(ctx, frame(TypeSceneEffect, "", cue), nil)
	return nil
}

// Handle broadcasts an archetype event.
func (h *Hub) Handle(ctx context.Context, ev handlers.Event) error {
	h.broadcast(ctx, frame(TypeTrapEvent, "", ev), nil)
	return nil
}

// TokenChanged broadcasts a token update. Hidden tokens only reach game
// masters.
func (h *Hub) TokenChanged(token scene.Token) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.SocketWrite)
	defer cancel()
	h.broadcast(ctx, frame(TypeSceneToken, "", TokenPayload{Token: token}), func(p Participant) bool {
		return !token.Hidden || p.IsGM()
	})
}

func (h *Hub) broadcast(ctx context.Context, env Envelope, allow func(Participant) bool) {
	ctx = context.WithoutCancel(ctx)
	h.mu.RLock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		if allow == nil || allow(p.participant) {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range targets {
		if err := p.write(ctx, env); err != nil {
			log.Printf("session: write %s to %s: %v", env.Type, p.participant.UserID, err)
		}
	}
}

func (h *Hub) writeError(ctx context.Context, p *peer, requestID string, err error) error {
	code := apperrors.CodeOf(err)
	message := err.Error()
	if appErr, ok := apperrors.As(err); ok && code != apperrors.CodeUnknown {
		message = appErr.LocalizedMessage(h.opts.Locale)
	}
	return p.write(ctx, frame(TypeError, requestID, ErrorPayload{Code: string(code), Message: message}))
}

// canRead applies whisper rules: public messages reach everyone; whispers
// reach listed users, and game masters when "gm" is listed.
func canRead(p Participant, msg chat.Message) bool {
	if !msg.Whispered() {
		return true
	}
	for _, target := range msg.Whisper {
		if target == p.UserID || (target == chat.WhisperGM && p.IsGM()) {
			return true
		}
	}
	return false
}

// TokenFromRequest reads a bearer token from the Authorization header or the
// token query parameter.
func TokenFromRequest(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func invalidPayload(kind string) error {
	return apperrors.New(apperrors.CodeUnknown, "invalid "+kind+" payload")
}

func forbidden(message string) error {
	return apperrors.New(apperrors.CodeParticipantForbidden, message)
}

type peer struct {
	conn        *websocket.Conn
	participant Participant

	writeMu sync.Mutex

	selMu sync.Mutex
	sel   []string
}

func (p *peer) write(ctx context.Context, env Envelope) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, timeouts.SocketWrite)
	defer cancel()
	return wsjson.Write(ctx, p.conn, env)
}

func (p *peer) setSelected(tokenIDs []string) {
	p.selMu.Lock()
	defer p.selMu.Unlock()
	p.sel = append([]string(nil), tokenIDs...)
}

func (p *peer) selected() []string {
	p.selMu.Lock()
	defer p.selMu.Unlock()
	return append([]string(nil), p.sel...)
}
