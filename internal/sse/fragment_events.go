package sse

import (
	"context"
	"ms-groups/internal/models"
	"sync"
)

// FragmentEmitter fans appended fragments out to SSE clients watching a page.
type FragmentEmitter struct {
	// key: pageID, value: client channels
	clients map[string][]chan models.Fragment
	mu      sync.RWMutex
}

func NewFragmentEmitter() *FragmentEmitter {
	return &FragmentEmitter{
		clients: make(map[string][]chan models.Fragment),
	}
}

// Subscribe adds a client for pageID. The channel is closed when ctx is done
// or the page is disconnected.
func (e *FragmentEmitter) Subscribe(ctx context.Context, pageID string) <-chan models.Fragment {
	clientChan := make(chan models.Fragment, 16)

	e.mu.Lock()
	e.clients[pageID] = append(e.clients[pageID], clientChan)
	e.mu.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.removeClient(pageID, clientChan)
	}()

	return clientChan
}

// Emit broadcasts f to every client of pageID.
func (e *FragmentEmitter) Emit(pageID string, f models.Fragment) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[pageID] {
		// Non-blocking send to avoid slowing down the batch loop if a client is slow
		select {
		case clientChan <- f:
		default:
		}
	}
}

// Disconnect closes every client of pageID, ending their streams.
func (e *FragmentEmitter) Disconnect(pageID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.clients[pageID] {
		close(ch)
	}
	delete(e.clients, pageID)
}

func (e *FragmentEmitter) removeClient(pageID string, clientChan chan models.Fragment) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[pageID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[pageID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	// Clean up map entry if no more clients
	if len(e.clients[pageID]) == 0 {
		delete(e.clients, pageID)
	}
}

// ClientCount returns the number of clients currently watching pageID.
func (e *FragmentEmitter) ClientCount(pageID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[pageID])
}
