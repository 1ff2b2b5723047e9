package page

import (
	"context"
	"errors"
	"ms-groups/internal/models"
)

// GroupsSelector is the container group fragments are appended to.
const GroupsSelector = "#groups"

// ErrContainerGone is returned when appending to or reading from a page that
// has been torn down.
var ErrContainerGone = errors.New("page: container no longer exists")

type Container interface {
	Selector() string
	Append(ctx context.Context, f models.Fragment) error
	Fragments(ctx context.Context) ([]models.Fragment, error)
}

// Pages opens, finds and tears down the container of a page.
type Pages interface {
	Open(ctx context.Context, pageID string) (Container, error)
	Lookup(ctx context.Context, pageID string) (Container, error)
	Close(ctx context.Context, pageID string) error
}
