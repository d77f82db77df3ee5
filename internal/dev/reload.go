// Package dev provides the development-mode hot-reload transport and the
// client bootstrap scripts the stream rewriter injects.
package dev

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ReloadMessageType identifies a reload message.
type ReloadMessageType string

const (
	ReloadTypeFull  ReloadMessageType = "reload"
	ReloadTypeCSS   ReloadMessageType = "css"
	ReloadTypeError ReloadMessageType = "error"
	ReloadTypeClear ReloadMessageType = "clear"
)

// ReloadMessage is sent to browsers over the reload websocket.
type ReloadMessage struct {
	Type ReloadMessageType `json:"type"`
	// Specifier is the module id of a changed stylesheet for css reloads.
	Specifier string `json:"specifier,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ReloadServer fans reload messages out to connected browsers.
type ReloadServer struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

// NewReloadServer creates a reload server.
func NewReloadServer() *ReloadServer {
	return &ReloadServer{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dev only; any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and holds it until the client leaves.
func (s *ReloadServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// NotifyReload asks all clients for a full page reload.
func (s *ReloadServer) NotifyReload() {
	s.broadcast(ReloadMessage{Type: ReloadTypeFull})
}

// NotifyCSS asks all clients to re-fetch one stylesheet.
func (s *ReloadServer) NotifyCSS(specifier string) {
	s.broadcast(ReloadMessage{Type: ReloadTypeCSS, Specifier: specifier})
}

// NotifyError shows an error overlay on all clients.
func (s *ReloadServer) NotifyError(message string) {
	s.broadcast(ReloadMessage{Type: ReloadTypeError, Error: message})
}

// ClearError dismisses the error overlay on all clients.
func (s *ReloadServer) ClearError() {
	s.broadcast(ReloadMessage{Type: ReloadTypeClear})
}

// ClientCount returns the number of connected clients.
func (s *ReloadServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects all clients.
func (s *ReloadServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
}

func (s *ReloadServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}
	}
}
