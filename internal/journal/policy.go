package journal

import (
	"fmt"

	"tableslate/server/internal/scene"
)

type ResyncReason struct {
	Kind string
	User scene.Id
}

type ResyncSignal struct {
	Rejections  uint64
	TotalEvents uint64
	Reasons     []ResyncReason
}

// Policy decides when rejection pressure is high enough that a client
// should be handed a fresh scene instead of more piecemeal corrections.
type Policy struct {
	totalEvents uint64
	rejections  uint64
	pending     bool
	reasons     []ResyncReason
}

const rejectionThresholdPerHundred = 5
const resyncReasonLimit = 8

func NewPolicy() *Policy {
	return &Policy{reasons: make([]ResyncReason, 0, resyncReasonLimit)}
}

func (p *Policy) NoteEvent() {
	if p == nil {
		return
	}
	if p.totalEvents == ^uint64(0) {
		p.totalEvents = p.totalEvents / 2
		p.rejections = p.rejections / 2
	}
	p.totalEvents++
}

func (p *Policy) NoteRejection(kind string, user scene.Id) {
	if p == nil {
		return
	}
	p.rejections++
	if len(p.reasons) < resyncReasonLimit {
		p.reasons = append(p.reasons, ResyncReason{Kind: kind, User: user})
	}
	p.evaluate()
}

func (p *Policy) evaluate() {
	if p == nil || p.pending || p.rejections == 0 {
		return
	}
	total := p.totalEvents
	if total == 0 {
		total = 1
	}
	if p.rejections*100 >= total*rejectionThresholdPerHundred {
		p.pending = true
	}
}

func (p *Policy) Consume() (ResyncSignal, bool) {
	if p == nil || !p.pending {
		return ResyncSignal{}, false
	}
	signal := ResyncSignal{
		Rejections:  p.rejections,
		TotalEvents: p.totalEvents,
		Reasons:     append([]ResyncReason(nil), p.reasons...),
	}
	p.pending = false
	p.totalEvents = 0
	p.rejections = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}

func (s ResyncSignal) Summary() string {
	if s.Rejections == 0 && s.TotalEvents == 0 {
		return ""
	}
	return fmt.Sprintf("rejections=%d total_events=%d reasons=%v", s.Rejections, s.TotalEvents, s.Reasons)
}
