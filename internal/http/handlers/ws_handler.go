package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/events"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/session"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WSHub streams launch progress to connected dashboards. Connections are
// keyed by account so every member of the account sees the same feed, and
// events carrying an account_id only reach that account.
type WSHub struct {
	cfg         *config.Config
	sessions    *session.Manager
	userRepo    repositories.UserRepository
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
}

func NewWSHub(cfg *config.Config, sessions *session.Manager, userRepo repositories.UserRepository, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		sessions:    sessions,
		userRepo:    userRepo,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[uuid.UUID][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	_ = h.subscriber.Subscribe(ctx, events.StreamCampaign, func(event events.Event) {
		h.dispatch(event)
	})
}

func (h *WSHub) dispatch(event events.Event) {
	raw, ok := event.Payload["account_id"].(string)
	if !ok {
		return
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return
	}
	h.SendToAccount(accountID, event)
}

func (h *WSHub) SendToAccount(accountID uuid.UUID, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[accountID] {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	// The browser sends the session cookie on the upgrade request.
	token := conn.Cookies(h.cfg.SessionCookie)
	if token == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"authentication required"}`))
		conn.Close()
		return
	}

	ctx := context.Background()
	userID, err := h.sessions.Resolve(ctx, token)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"session expired"}`))
		conn.Close()
		return
	}
	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"session expired"}`))
		conn.Close()
		return
	}
	accountID := user.AccountID

	// Register
	h.mu.Lock()
	h.connections[accountID] = append(h.connections[accountID], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[accountID]
		for i, c := range conns {
			if c == conn {
				h.connections[accountID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[accountID]) == 0 {
			delete(h.connections, accountID)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
