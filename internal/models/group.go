package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString accepts a JSON string or number. Page contexts rendered by
// templates carry ids either way.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Group is one group record of a page context. ID, NSID and Name are the
// fields the dispatcher addresses by; every other field of the record (for a
// Flickr group listing: iconfarm, iconserver, admin, eighteenplus,
// invitation_only, members, pool_count) is kept in Extra and posted as-is.
type Group struct {
	ID    FlexString     `json:"id,omitempty"`
	NSID  string         `json:"nsid,omitempty"`
	Name  string         `json:"name,omitempty"`
	Extra map[string]any `json:"-"`
}

// Key identifies the group in logs, results and stored records.
func (g Group) Key() string {
	if g.ID != "" {
		return string(g.ID)
	}
	return g.NSID
}

func (g *Group) UnmarshalJSON(b []byte) error {
	type plain Group
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var all map[string]any
	if err := dec.Decode(&all); err != nil {
		return err
	}
	delete(all, "id")
	delete(all, "nsid")
	delete(all, "name")
	if len(all) > 0 {
		p.Extra = all
	}

	*g = Group(p)
	return nil
}

func (g Group) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(g.Extra)+3)
	for k, v := range g.Extra {
		out[k] = v
	}
	if g.ID != "" {
		out["id"] = g.ID
	}
	if g.NSID != "" {
		out["nsid"] = g.NSID
	}
	if g.Name != "" {
		out["name"] = g.Name
	}
	return json.Marshal(out)
}
