package session

import (
	"sort"
	"time"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/google/uuid"
)

// Phase is the session's position in its lifecycle.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSettingUp Phase = "setting_up"
	PhaseCountdown Phase = "countdown"
	PhaseActive    Phase = "active"
	PhasePaused    Phase = "paused"
	PhaseRest      Phase = "rest"
	PhaseCompleted Phase = "completed"
	PhaseErrored   Phase = "errored"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseErrored
}

// Setup checklist items.
const (
	CheckCameraPositioned = "camera_positioned"
	CheckBodyVisible      = "body_visible"
	CheckSpaceClear       = "space_clear"
)

// ChecklistItem is one pre-session check.
type ChecklistItem struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

func newChecklist() []ChecklistItem {
	return []ChecklistItem{
		{ID: CheckCameraPositioned, Label: "Camera positioned"},
		{ID: CheckBodyVisible, Label: "Whole body visible"},
		{ID: CheckSpaceClear, Label: "Space around you is clear"},
	}
}

// PendingConfirmations returns the unchecked setup items the person training
// has to confirm. Body visibility is detected from pose frames and is never
// among them.
func (s State) PendingConfirmations() []ChecklistItem {
	var pending []ChecklistItem
	for _, item := range s.SetupChecklist {
		if !item.Checked && item.ID != CheckBodyVisible {
			pending = append(pending, item)
		}
	}
	return pending
}

// IssueSummary counts the reps of a set in which an issue appeared.
type IssueSummary struct {
	analyzer.Issue
	Count int `json:"count"`
}

// SetData is the record of one finished set.
type SetData struct {
	SetNumber     int            `json:"set_number"`
	Reps          int            `json:"reps"`
	AverageScore  float64        `json:"average_score"`
	BestRepScore  *float64       `json:"best_rep_score,omitempty"`
	WorstRepScore *float64       `json:"worst_rep_score,omitempty"`
	Duration      time.Duration  `json:"duration"`
	Issues        []IssueSummary `json:"issues,omitempty"`
}

// State is a snapshot of a session. Snapshots share no memory with the
// session that produced them.
type State struct {
	Phase              Phase            `json:"phase"`
	PausedFrom         Phase            `json:"paused_from,omitempty"`
	Config             Config           `json:"config"`
	CurrentSet         int              `json:"current_set"`
	CurrentReps        int              `json:"current_reps"`
	CurrentScore       float64          `json:"current_score"`
	CurrentIssues      []analyzer.Issue `json:"current_issues,omitempty"`
	LastRepScore       *float64         `json:"last_rep_score,omitempty"`
	CompletedSets      []SetData        `json:"completed_sets"`
	SetupChecklist     []ChecklistItem  `json:"setup_checklist,omitempty"`
	CountdownRemaining int              `json:"countdown_remaining,omitempty"`
	RestTimeRemaining  int              `json:"rest_time_remaining,omitempty"`
	Error              string           `json:"error,omitempty"`
}

func (s State) clone() State {
	out := s
	out.CurrentIssues = append([]analyzer.Issue(nil), s.CurrentIssues...)
	out.SetupChecklist = append([]ChecklistItem(nil), s.SetupChecklist...)
	out.CompletedSets = make([]SetData, len(s.CompletedSets))
	for i, set := range s.CompletedSets {
		out.CompletedSets[i] = set.clone()
	}
	if s.LastRepScore != nil {
		v := *s.LastRepScore
		out.LastRepScore = &v
	}
	return out
}

func (d SetData) clone() SetData {
	out := d
	out.Issues = append([]IssueSummary(nil), d.Issues...)
	if d.BestRepScore != nil {
		v := *d.BestRepScore
		out.BestRepScore = &v
	}
	if d.WorstRepScore != nil {
		v := *d.WorstRepScore
		out.WorstRepScore = &v
	}
	return out
}

// Outcome is how a session ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeErrored   Outcome = "errored"
)

// Summary is the final record of a session, handed to persistence.
type Summary struct {
	ID            uuid.UUID `json:"id"`
	Config        Config    `json:"config"`
	CompletedSets []SetData `json:"completed_sets"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	Outcome       Outcome   `json:"outcome"`
	Error         string    `json:"error,omitempty"`
}

// TotalReps sums the reps of every completed set.
func (s Summary) TotalReps() int {
	n := 0
	for _, set := range s.CompletedSets {
		n += set.Reps
	}
	return n
}

// setTally accumulates one set's rep scores and issues.
type setTally struct {
	started     time.Time
	paused      time.Duration
	scores      []float64
	issueCounts map[analyzer.IssueType]*IssueSummary
	repIssues   map[analyzer.IssueType]analyzer.Issue
}

func newSetTally(now time.Time) *setTally {
	return &setTally{
		started:     now,
		issueCounts: make(map[analyzer.IssueType]*IssueSummary),
		repIssues:   make(map[analyzer.IssueType]analyzer.Issue),
	}
}

// observe records the issues of a frame belonging to the current rep.
func (t *setTally) observe(issues []analyzer.Issue) {
	for _, i := range issues {
		t.repIssues[i.Type] = i
	}
}

// closeRep folds the current rep into the set.
func (t *setTally) closeRep(score float64) {
	t.scores = append(t.scores, score)
	for typ, issue := range t.repIssues {
		s, ok := t.issueCounts[typ]
		if !ok {
			s = &IssueSummary{Issue: issue}
			t.issueCounts[typ] = s
		}
		s.Count++
	}
	clear(t.repIssues)
}

func (t *setTally) build(number, reps int, ended time.Time) SetData {
	d := SetData{
		SetNumber: number,
		Reps:      reps,
		Duration:  ended.Sub(t.started) - t.paused,
	}
	if d.Duration < 0 {
		d.Duration = 0
	}

	if len(t.scores) > 0 {
		best, worst, sum := t.scores[0], t.scores[0], 0.0
		for _, s := range t.scores {
			sum += s
			best = max(best, s)
			worst = min(worst, s)
		}
		d.AverageScore = sum / float64(len(t.scores))
		d.BestRepScore = &best
		d.WorstRepScore = &worst
	}

	for _, s := range t.issueCounts {
		d.Issues = append(d.Issues, *s)
	}
	sort.Slice(d.Issues, func(i, j int) bool {
		a, b := d.Issues[i], d.Issues[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Type < b.Type
	})
	return d
}
