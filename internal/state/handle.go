package state

import (
	"fmt"
	"strconv"
	"strings"
)

// BranchHandle addresses a live BranchRecord. The zero value is the null
// handle. A handle goes stale when its branch is renamed, deleted or the
// snapshot is refilled; stale handles never resolve again, even if the slot
// is reused.
type BranchHandle struct {
	slot uint32
	gen  uint32
}

func (h BranchHandle) IsZero() bool { return h.gen == 0 }

// String renders the handle as "slot.generation".
func (h BranchHandle) String() string {
	return fmt.Sprintf("%d.%d", h.slot, h.gen)
}

func (h BranchHandle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *BranchHandle) UnmarshalText(b []byte) error {
	parsed, err := ParseBranchHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseBranchHandle is the inverse of BranchHandle.String.
func ParseBranchHandle(s string) (BranchHandle, error) {
	slotText, genText, ok := strings.Cut(s, ".")
	if !ok {
		return BranchHandle{}, fmt.Errorf("invalid branch handle %q", s)
	}
	slot, err := strconv.ParseUint(slotText, 10, 32)
	if err != nil {
		return BranchHandle{}, fmt.Errorf("invalid branch handle %q: %w", s, err)
	}
	gen, err := strconv.ParseUint(genText, 10, 32)
	if err != nil {
		return BranchHandle{}, fmt.Errorf("invalid branch handle %q: %w", s, err)
	}
	return BranchHandle{slot: uint32(slot), gen: uint32(gen)}, nil
}

type arenaSlot struct {
	gen uint32
	rec *BranchRecord
}

// branchArena owns every BranchRecord of a snapshot.
type branchArena struct {
	slots []arenaSlot
	free  []uint32
	live  int
}

func (a *branchArena) alloc(rec *BranchRecord) BranchHandle {
	var slot uint32
	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		slot = uint32(len(a.slots))
		a.slots = append(a.slots, arenaSlot{gen: 1})
	}
	a.slots[slot].rec = rec
	a.live++

	h := BranchHandle{slot: slot, gen: a.slots[slot].gen}
	rec.Handle = h
	return h
}

func (a *branchArena) get(h BranchHandle) (*BranchRecord, bool) {
	if h.IsZero() || int(h.slot) >= len(a.slots) {
		return nil, false
	}
	s := a.slots[h.slot]
	if s.gen != h.gen || s.rec == nil {
		return nil, false
	}
	return s.rec, true
}

// release retires h. It reports false for a handle that was not live, so a
// record can never be released twice.
func (a *branchArena) release(h BranchHandle) bool {
	if _, ok := a.get(h); !ok {
		return false
	}
	s := &a.slots[h.slot]
	s.rec = nil
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, h.slot)
	a.live--
	return true
}

// releaseAll retires every live handle but keeps the slots, so handles from
// before a refill stay stale.
func (a *branchArena) releaseAll() {
	for i := range a.slots {
		if a.slots[i].rec != nil {
			a.release(BranchHandle{slot: uint32(i), gen: a.slots[i].gen})
		}
	}
}

// each visits live records in slot order.
func (a *branchArena) each(fn func(*BranchRecord)) {
	for _, s := range a.slots {
		if s.rec != nil {
			fn(s.rec)
		}
	}
}

func (a *branchArena) len() int { return a.live }
