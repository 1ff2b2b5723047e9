package sse

import (
	"context"
	"ms-groups/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentEmitter_EmitToSubscribers(t *testing.T) {
	e := NewFragmentEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := e.Subscribe(ctx, "p1")
	b := e.Subscribe(ctx, "p1")
	other := e.Subscribe(ctx, "p2")
	assert.Equal(t, 2, e.ClientCount("p1"))

	e.Emit("p1", models.Fragment{HTML: "<li>1</li>"})

	for _, ch := range []<-chan models.Fragment{a, b} {
		select {
		case f := <-ch:
			assert.Equal(t, "<li>1</li>", f.HTML)
		case <-time.After(time.Second):
			t.Fatal("fragment not delivered")
		}
	}
	select {
	case f := <-other:
		t.Fatalf("unexpected fragment on other page: %v", f)
	default:
	}
}

func TestFragmentEmitter_ContextCancelRemovesClient(t *testing.T) {
	e := NewFragmentEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.Subscribe(ctx, "p1")
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Eventually(t, func() bool { return e.ClientCount("p1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestFragmentEmitter_DisconnectClosesStreams(t *testing.T) {
	e := NewFragmentEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.Subscribe(ctx, "p1")
	e.Disconnect("p1")

	_, ok := <-ch
	require.False(t, ok)
	assert.Equal(t, 0, e.ClientCount("p1"))

	// a later cancel must not close the channel twice
	cancel()
	time.Sleep(10 * time.Millisecond)
	e.Emit("p1", models.Fragment{HTML: "<li>late</li>"})
}

func TestFragmentEmitter_SlowClientDoesNotBlock(t *testing.T) {
	e := NewFragmentEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = e.Subscribe(ctx, "p1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			e.Emit("p1", models.Fragment{Seq: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full client")
	}
}
