package models

import (
	"fmt"
	"strings"
)

// DispatchMode selects where group requests go and what they carry.
type DispatchMode string

const (
	// ModeSharedURL posts every group to the context's group_url, with userid.
	ModeSharedURL DispatchMode = "shared"
	// ModePerRecordURL posts each group to its own nsid URL, without userid.
	ModePerRecordURL DispatchMode = "per_record"
)

func ParseDispatchMode(s string) (DispatchMode, error) {
	switch DispatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSharedURL, "":
		return ModeSharedURL, nil
	case ModePerRecordURL, "per-record":
		return ModePerRecordURL, nil
	default:
		return "", fmt.Errorf("unknown dispatch mode %q", s)
	}
}

// PageContext is the per-page input rendered by the server before dispatch.
type PageContext struct {
	Groups    []Group    `json:"groups"`
	GroupURL  string     `json:"group_url,omitempty"`
	UserID    FlexString `json:"userid,omitempty"`
	CSRFToken string     `json:"csrf_token"`
}
