// Package classify maps free text onto small closed label sets. Every
// classifier is an ordered list of rules; the first rule that matches wins.
package classify

import (
	"regexp"
	"strings"
	"time"

	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

type Stage string

const (
	StageOpen Stage = "open"
	StageWon  Stage = "won"
	StageLost Stage = "lost"
)

type Subject string

const (
	SubjectCall    Subject = "call"
	SubjectVisit   Subject = "visit"
	SubjectMeeting Subject = "meeting"
	SubjectOther   Subject = "other"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusPending   Status = "pending"
)

// Rule pairs a predicate over normalized text with the label it yields.
type Rule[L ~string] struct {
	Label L
	Match func(norm string) bool
}

// Cascade evaluates rules in order and falls back to Default.
type Cascade[L ~string] struct {
	Rules   []Rule[L]
	Default L
}

func (c Cascade[L]) Classify(text string) L {
	n := textnorm.Normalize(text)
	for _, r := range c.Rules {
		if r.Match(n) {
			return r.Label
		}
	}
	return c.Default
}

func re(expr string) func(string) bool { return regexp.MustCompile(expr).MatchString }

var (
	wonRe    = re(`closed\s*won|ganad|cerrad[oa]\s+ganad`)
	lostRe   = re(`closed\s*lost|perdid|cerrad[oa]\s+perdid`)
	closedRe = re(`closed\s*won|closed\s*lost|ganad|perdid|cerrad[oa]`)
)

// StageRules: won antes que lost.
var StageRules = Cascade[Stage]{
	Rules: []Rule[Stage]{
		{Label: StageWon, Match: wonRe},
		{Label: StageLost, Match: lostRe},
	},
	Default: StageOpen,
}

// SubjectRules: llamada, luego reunión, luego visita.
var SubjectRules = Cascade[Subject]{
	Rules: []Rule[Subject]{
		{Label: SubjectCall, Match: re(`\bcall\b|\bcalls\b|llamad|telefon`)},
		{Label: SubjectMeeting, Match: re(`reunion|meeting`)},
		{Label: SubjectVisit, Match: re(`visita|visit`)},
	},
	Default: SubjectOther,
}

var completedRe = re(`\bcomplet|\bdone\b|realizad|finalizad|terminad`)

func ClassifyStage(stage string) Stage { return StageRules.Classify(stage) }

func ClassifySubject(subject string) Subject { return SubjectRules.Classify(subject) }

// ClassifyActivityStatus: completed wins regardless of dates; otherwise
// overdue only when today is strictly after due. A zero due date is pending.
func ClassifyActivityStatus(status string, due, today time.Time) Status {
	if completedRe(textnorm.Normalize(status)) {
		return StatusCompleted
	}
	if !due.IsZero() && today.After(due) {
		return StatusOverdue
	}
	return StatusPending
}

// IsClosedStage matches any terminal stage text, including a bare
// "cerrado"/"cerrada" without outcome.
func IsClosedStage(stage string) bool { return closedRe(textnorm.Normalize(stage)) }

// IsClosed: closed date present or terminal stage text.
func IsClosed(stage string, closedAt time.Time) bool {
	return !closedAt.IsZero() || IsClosedStage(stage)
}

// IsTotalLike reports whether a pivot column or row key stands for the
// pivot's own totals and must not be summed with real stages.
func IsTotalLike(key string) bool {
	n := textnorm.Normalize(key)
	if n == "total" || n == "total general" {
		return true
	}
	for _, f := range []string{"total", "recuento", "count", "registro"} {
		if strings.Contains(n, f) {
			return true
		}
	}
	return false
}

// DefaultPipelineStages are the open-stage fragments counted as pipeline.
var DefaultPipelineStages = []string{
	"qualification", "needs", "needs analysis", "proposal", "negotiation",
	"value proposition", "perception analysis", "id decision makers", "prospect",
	"calificacion", "propuesta", "negociacion", "prospeccion",
}

// IsPipelineStage reports whether label contains one of the open-stage fragments.
func IsPipelineStage(label string, fragments []string) bool {
	if len(fragments) == 0 {
		fragments = DefaultPipelineStages
	}
	if IsTotalLike(label) || ClassifyStage(label) != StageOpen {
		return false
	}
	return textnorm.ContainsAny(label, fragments)
}
