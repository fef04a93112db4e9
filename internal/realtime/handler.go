package realtime

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler upgrades authenticated HTTP requests to WebSocket connections and
// bridges them into the Gateway.
type Handler struct {
	gateway  *Gateway
	upgrader websocket.Upgrader
}

// NewHandler creates the /ws handler.
func NewHandler(gateway *Gateway) *Handler {
	return &Handler{
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is enforced at the HTTP layer; the socket endpoint accepts
			// any origin the router let through.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Register wires the websocket endpoint.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve authenticates the bearer token, upgrades the connection and runs the
// read loop until the client disconnects.
func (h *Handler) Serve(c echo.Context) error {
	userID, err := authenticateSocket(c.Request())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // Upgrade already wrote the error response
	}

	client := NewClient(userID)
	go h.writePump(conn, client)
	h.readPump(conn, client)
	return nil
}

func (h *Handler) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		h.gateway.Disconnect(client)
		conn.Close()
	}()

	conn.SetReadLimit(8 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: read from %s: %v", client.UserID, err)
			}
			return
		}
		h.gateway.HandleFrame(client, raw)
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Outbox():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if payload == nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// authenticateSocket extracts and verifies the JWT from the Authorization
// header or the token query parameter (browser WebSocket clients cannot set
// headers).
func authenticateSocket(r *http.Request) (string, error) {
	tokenString := ""
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.Split(auth, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		return "", jwt.ErrTokenMalformed
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "supersecretjwtkey"
	}

	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.UserID, nil
}
