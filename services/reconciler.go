package services

import (
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/models"
)

type Outcome int

const (
	// OutcomeIgnored: id tidak dikenal, atau entry sudah final dengan status lain
	OutcomeIgnored Outcome = iota
	OutcomeReplaced
	OutcomeAppended
	OutcomeTransitioned
	// OutcomeUnchanged: message atau status yang sama dikirim ulang
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReplaced:
		return "replaced"
	case OutcomeAppended:
		return "appended"
	case OutcomeTransitioned:
		return "transitioned"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return "ignored"
}

// Reconcile melipat satu event ke state meja dan mengembalikan state baru.
// Input tidak dimodifikasi. HasPending selalu dihitung ulang dari history.
func Reconcile(table models.Table, ev kds.Event) (models.Table, Outcome) {
	next := table
	outcome := OutcomeIgnored

	switch ev.Type {
	case kds.EventHistory:
		next.History = cloneEntries(ev.History, 0)
		next.Stale = false
		outcome = OutcomeReplaced

	case kds.EventMessage:
		// id yang sudah ada berarti frame dikirim ulang, bukan permintaan baru
		if indexOf(table.History, ev.Entry.ID) >= 0 {
			outcome = OutcomeUnchanged
			break
		}
		next.History = cloneEntries(table.History, 1)
		next.History = append(next.History, ev.Entry.Clone())
		outcome = OutcomeAppended

	case kds.EventConfirmation, kds.EventCancellation:
		// history dari backend bisa memuat id yang sama lebih dari sekali
		for i, e := range table.History {
			if e.ID != ev.Update.ID {
				continue
			}
			if e.Status == ev.Update.Status {
				if outcome == OutcomeIgnored {
					outcome = OutcomeUnchanged
				}
				continue
			}
			if e.Status.Terminal() {
				continue
			}
			if outcome != OutcomeTransitioned {
				next.History = cloneEntries(table.History, 0)
			}
			next.History[i].Status = ev.Update.Status
			next.History[i].Reason = cloneReason(ev.Update.Reason)
			outcome = OutcomeTransitioned
		}
	}

	next.HasPending = models.ComputePending(next.History)
	return next, outcome
}

func indexOf(history []models.Entry, id string) int {
	for i, e := range history {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func cloneEntries(src []models.Entry, extra int) []models.Entry {
	out := make([]models.Entry, len(src), len(src)+extra)
	for i, e := range src {
		out[i] = e.Clone()
	}
	return out
}

func cloneReason(r *string) *string {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
