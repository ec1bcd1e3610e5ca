package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"schoolbus_tracker/internal/middleware"
	"schoolbus_tracker/internal/tracker"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// RunHub fans run events out to connected dispatcher consoles. A client
// subscribes to one route or, with an empty route filter, to all of them.
type RunHub struct {
	routeClients map[string]map[*websocket.Conn]bool
	broadcast    chan tracker.Event
	mu           sync.Mutex
}

// allRoutes is the subscription key for clients watching every route.
const allRoutes = "*"

// NewRunHub creates a hub and starts its broadcast goroutine.
func NewRunHub() *RunHub {
	hub := &RunHub{
		routeClients: make(map[string]map[*websocket.Conn]bool),
		broadcast:    make(chan tracker.Event, 100),
	}
	go hub.run()
	return hub
}

// Notify implements tracker.Notifier. The channel is buffered; when the hub
// falls behind, events are dropped rather than stalling a check-in.
func (h *RunHub) Notify(e tracker.Event) {
	select {
	case h.broadcast <- e:
	default:
		logrus.Warn("run event broadcast channel full, dropping message")
	}
}

func (h *RunHub) run() {
	for e := range h.broadcast {
		h.mu.Lock()
		for _, key := range []string{e.RouteID, allRoutes} {
			for conn := range h.routeClients[key] {
				go func(c *websocket.Conn, ev tracker.Event, routeKey string) {
					if err := c.WriteJSON(ev); err != nil {
						if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
							logrus.WithFields(logrus.Fields{
								"route_id": ev.RouteID,
								"conn_ptr": fmt.Sprintf("%p", c),
							}).Info("Client connection closed during broadcast, unregistering.")
							h.UnregisterClient(routeKey, c)
						} else {
							logrus.WithError(err).WithFields(logrus.Fields{
								"route_id": ev.RouteID,
								"conn_ptr": fmt.Sprintf("%p", c),
							}).Warn("Failed to send run event to client.")
						}
					}
				}(conn, e, key)
			}
		}
		h.mu.Unlock()
	}
}

// RegisterClient subscribes a dispatcher connection to a route key.
func (h *RunHub) RegisterClient(routeKey string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.routeClients[routeKey]; !ok {
		h.routeClients[routeKey] = make(map[*websocket.Conn]bool)
	}
	h.routeClients[routeKey][conn] = true
	logrus.WithFields(logrus.Fields{
		"route_key": routeKey,
		"conn_ptr":  fmt.Sprintf("%p", conn),
	}).Info("Client registered with RunHub.")
}

// UnregisterClient removes a disconnected dispatcher connection.
func (h *RunHub) UnregisterClient(routeKey string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.routeClients[routeKey]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.routeClients, routeKey)
		}
	}
	logrus.WithFields(logrus.Fields{
		"route_key": routeKey,
		"conn_ptr":  fmt.Sprintf("%p", conn),
	}).Info("Client unregistered from RunHub.")
}

var runHub *RunHub

// InitRunHub installs the hub the websocket handler serves from.
func InitRunHub(hub *RunHub) {
	runHub = hub
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// authenticateDispatchSocket validates the JWT passed as a query parameter
// (browsers cannot set Authorization headers on websocket upgrades) and
// requires a dispatch role.
func authenticateDispatchSocket(c *gin.Context) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		logrus.Warn("WebSocket connection attempt: Missing token query parameter.")
		return errors.New("missing authentication token")
	}

	logrus.WithField("token_snippet", tokenString[:min(len(tokenString), 30)]+"...").Debug("Received WebSocket connection request with token.")

	token, err := middleware.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		return fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid token claims")
	}
	role, _ := claims["role"].(string)
	if role != "dispatcher" && role != "admin" {
		return errors.New("unauthorized role for dispatch feed")
	}
	return nil
}

// HandleDispatchSocket upgrades a dispatcher console connection and streams
// run events for the requested route (or all routes) until the client
// disconnects.
func HandleDispatchSocket(c *gin.Context) {
	if err := authenticateDispatchSocket(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	routeKey := c.Query("route_id")
	if routeKey == "" {
		routeKey = allRoutes
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade dispatch websocket.")
		return
	}

	logrus.WithFields(logrus.Fields{
		"route_key": routeKey,
		"conn_ptr":  fmt.Sprintf("%p", conn),
	}).Info("Dispatch WebSocket connection established.")

	runHub.RegisterClient(routeKey, conn)
	defer func() {
		runHub.UnregisterClient(routeKey, conn)
		conn.Close()
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("route_key", routeKey).Info("Dispatch WebSocket closed normally or abnormally.")
			} else {
				logrus.WithError(err).Error("Error reading dispatch WebSocket message")
			}
			break
		}
		logrus.WithField("route_key", routeKey).Warn("Dispatch client sent unexpected message. Ignoring.")
	}
}
