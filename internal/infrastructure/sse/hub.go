package sse

import (
	"errors"
	"sync"

	"github.com/arena-ledger/arena-ledger/internal/domain/journal"
)

var (
	ErrClientNotFound = errors.New("sse client not found")
	ErrChannelFull    = errors.New("sse client channel full")
)

// Client is one connected settlement event subscriber. When Wallet is
// set, only entries touching that wallet are delivered.
type Client struct {
	ClientID    string
	Wallet      *string
	MessageChan chan *journal.Entry

	closeOnce sync.Once
}

func NewClient(clientID string, wallet *string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	return &Client{
		ClientID:    clientID,
		Wallet:      wallet,
		MessageChan: make(chan *journal.Entry, buffer),
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.MessageChan) })
}

// Hub fans settlement journal entries out to SSE clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers one journal entry to every matching client. Slow
// clients are skipped rather than blocking settlement.
func (h *Hub) Publish(entry *journal.Entry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.Wallet != nil && *c.Wallet != entry.Wallet {
			continue
		}
		trySend(c, entry)
	}
}

func (h *Hub) SendToClient(clientID string, entry *journal.Entry) error {
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c == nil {
		return ErrClientNotFound
	}
	if !trySend(c, entry) {
		return ErrChannelFull
	}
	return nil
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *Client, entry *journal.Entry) bool {
	select {
	case c.MessageChan <- entry:
		return true
	default:
		return false
	}
}
