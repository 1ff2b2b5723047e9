package page

import (
	"context"
	"ms-groups/internal/models"
)

// Emitter receives every fragment after it has been appended.
type Emitter interface {
	Emit(pageID string, f models.Fragment)
}

// Broadcasting forwards successful appends of a container to an Emitter.
type Broadcasting struct {
	Container
	PageID  string
	Emitter Emitter
}

func NewBroadcasting(c Container, pageID string, e Emitter) *Broadcasting {
	return &Broadcasting{Container: c, PageID: pageID, Emitter: e}
}

func (b *Broadcasting) Append(ctx context.Context, f models.Fragment) error {
	if err := b.Container.Append(ctx, f); err != nil {
		return err
	}
	if b.Emitter != nil {
		b.Emitter.Emit(b.PageID, f)
	}
	return nil
}
