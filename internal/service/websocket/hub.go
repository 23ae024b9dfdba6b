package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"visiondash/internal/dto"
	"visiondash/internal/logger"
)

// Client is the part of *websocket.Conn the hub writes to.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type subscription struct {
	session string
	client  Client
}

type message struct {
	session string
	data    []byte
}

// HubService fans run events out to the websocket clients of one session.
type HubService struct {
	clients    map[string]map[Client]bool
	broadcast  chan message
	register   chan subscription
	unregister chan subscription
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[string]map[Client]bool),
		broadcast:  make(chan message, 64),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			if h.clients[sub.session] == nil {
				h.clients[sub.session] = make(map[Client]bool)
			}
			h.clients[sub.session][sub.client] = true
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", h.GetClientCount())

		case sub := <-h.unregister:
			h.mutex.Lock()
			h.remove(sub.session, sub.client)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", h.GetClientCount())

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients[msg.session] {
				if err := client.WriteMessage(websocket.TextMessage, msg.data); err != nil {
					h.logger.Error("Error sending message: %v", err)
					h.remove(msg.session, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// remove must be called with the mutex held.
func (h *HubService) remove(session string, client Client) {
	clients, ok := h.clients[session]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.clients, session)
	}
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for session, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, session)
	}
}

func (h *HubService) Register(session string, client Client) {
	select {
	case h.register <- subscription{session: session, client: client}:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(session string, client Client) {
	select {
	case h.unregister <- subscription{session: session, client: client}:
	case <-h.done:
	}
}

// Publish queues event for the clients of session. Events are dropped when
// the queue is full; the page still shows the result on its next load.
func (h *HubService) Publish(session string, event dto.RunEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Error encoding event: %v", err)
		return
	}
	select {
	case h.broadcast <- message{session: session, data: data}:
	default:
		h.logger.Warning("Event queue full, dropping %s event for session %s", event.Type, session)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// SessionClientCount returns how many clients listen on session.
func (h *HubService) SessionClientCount(session string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[session])
}
