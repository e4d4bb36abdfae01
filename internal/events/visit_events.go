package events

import (
	"taskly/internal/entities"
)

const VisitCheckedInEventName = "visit.checked_in"

// VisitCheckedInEvent публикуется после сохранения check-in.
type VisitCheckedInEvent struct {
	Visit            entities.Visit
	ClientName       string
	ImpossibleTravel bool
}

func (e VisitCheckedInEvent) Name() string {
	return VisitCheckedInEventName
}
