// Package reconcile keeps a client-side, ordered view of one owner's
// bookmarks consistent while snapshot loads, optimistic local mutations and
// realtime notifications arrive in any order.
package reconcile

import (
	"slices"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/model"
)

// State is the lifecycle of one bookmark as seen by this client.
type State int

const (
	StateAbsent State = iota
	// StatePending covers a create whose response has not arrived. Pending
	// creates have no id yet, so they are counted rather than listed.
	StatePending
	StatePresent
	// StateDeleting entries stay visible until the delete is confirmed.
	StateDeleting
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePresent:
		return "present"
	case StateDeleting:
		return "deleting"
	default:
		return "absent"
	}
}

// Entry is a visible bookmark and its state.
type Entry struct {
	model.Bookmark
	State State `json:"state"`
}

// View is an ordered collection keyed by bookmark id, newest first.
// A View is not safe for concurrent use; Reconciler serialises access to it.
type View struct {
	entries []Entry
}

// NewView returns an empty view.
func NewView() *View {
	return &View{}
}

// Load replaces the view with snapshot. Duplicate ids keep their first
// occurrence and entries already marked deleting stay deleting.
func (v *View) Load(snapshot []model.Bookmark) {
	deleting := make(map[uuid.UUID]struct{})
	for _, e := range v.entries {
		if e.State == StateDeleting {
			deleting[e.ID] = struct{}{}
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(snapshot))
	entries := make([]Entry, 0, len(snapshot))
	for _, b := range snapshot {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}

		state := StatePresent
		if _, ok := deleting[b.ID]; ok {
			state = StateDeleting
		}
		entries = append(entries, Entry{Bookmark: b, State: state})
	}

	// Snapshots arrive ordered by the store; the stable sort only repairs
	// out-of-order input and keeps ties in snapshot order.
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	v.entries = entries
}

// MergeInsert adds b unless an entry with the same id exists. The entry goes
// before the first entry that is not newer, so a later arrival wins a
// created_at tie. It reports whether the view changed.
func (v *View) MergeInsert(b model.Bookmark) bool {
	if v.index(b.ID) >= 0 {
		return false
	}

	pos := slices.IndexFunc(v.entries, func(e Entry) bool {
		return !e.CreatedAt.After(b.CreatedAt)
	})
	if pos < 0 {
		pos = len(v.entries)
	}
	v.entries = slices.Insert(v.entries, pos, Entry{Bookmark: b, State: StatePresent})
	return true
}

// MergeDelete removes the entry with id. Removing an absent id is a no-op.
func (v *View) MergeDelete(id uuid.UUID) bool {
	i := v.index(id)
	if i < 0 {
		return false
	}
	v.entries = slices.Delete(v.entries, i, i+1)
	return true
}

// MarkDeleting moves a present entry to StateDeleting.
func (v *View) MarkDeleting(id uuid.UUID) bool {
	return v.setState(id, StatePresent, StateDeleting)
}

// ClearDeleting returns a deleting entry to StatePresent.
func (v *View) ClearDeleting(id uuid.UUID) bool {
	return v.setState(id, StateDeleting, StatePresent)
}

// State reports the state of id, StateAbsent when it is not in the view.
func (v *View) State(id uuid.UUID) State {
	if i := v.index(id); i >= 0 {
		return v.entries[i].State
	}
	return StateAbsent
}

// Items returns a copy of the entries in display order.
func (v *View) Items() []Entry {
	return slices.Clone(v.entries)
}

func (v *View) Len() int {
	return len(v.entries)
}

func (v *View) Contains(id uuid.UUID) bool {
	return v.index(id) >= 0
}

func (v *View) setState(id uuid.UUID, from, to State) bool {
	i := v.index(id)
	if i < 0 || v.entries[i].State != from {
		return false
	}
	v.entries[i].State = to
	return true
}

func (v *View) index(id uuid.UUID) int {
	return slices.IndexFunc(v.entries, func(e Entry) bool { return e.ID == id })
}
