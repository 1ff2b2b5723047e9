package page

import (
	"context"
	"ms-groups/internal/models"
	"sync"
)

// Memory is an in-process container.
type Memory struct {
	selector  string
	mu        sync.Mutex
	fragments []models.Fragment
	closed    bool
}

func NewMemory(selector string) *Memory {
	if selector == "" {
		selector = GroupsSelector
	}
	return &Memory{selector: selector}
}

func (m *Memory) Selector() string {
	return m.selector
}

func (m *Memory) Append(_ context.Context, f models.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrContainerGone
	}
	m.fragments = append(m.fragments, f)
	return nil
}

func (m *Memory) Fragments(_ context.Context) ([]models.Fragment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrContainerGone
	}
	out := make([]models.Fragment, len(m.fragments))
	copy(out, m.fragments)
	return out, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fragments)
}

// Close tears the container down. Later appends fail with ErrContainerGone.
func (m *Memory) Close() {
	m.mu.Lock()
	m.closed = true
	m.fragments = nil
	m.mu.Unlock()
}

// MemoryPages keeps one Memory container per page ID.
type MemoryPages struct {
	selector string
	mu       sync.Mutex
	pages    map[string]*Memory
}

func NewMemoryPages(selector string) *MemoryPages {
	return &MemoryPages{
		selector: selector,
		pages:    make(map[string]*Memory),
	}
}

func (p *MemoryPages) Open(_ context.Context, pageID string) (Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.pages[pageID]; ok {
		return c, nil
	}
	c := NewMemory(p.selector)
	p.pages[pageID] = c
	return c, nil
}

func (p *MemoryPages) Lookup(_ context.Context, pageID string) (Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.pages[pageID]
	if !ok {
		return nil, ErrContainerGone
	}
	return c, nil
}

func (p *MemoryPages) Close(_ context.Context, pageID string) error {
	p.mu.Lock()
	c, ok := p.pages[pageID]
	delete(p.pages, pageID)
	p.mu.Unlock()
	if !ok {
		return ErrContainerGone
	}
	c.Close()
	return nil
}
