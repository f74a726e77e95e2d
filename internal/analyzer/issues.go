package analyzer

import "sort"

// IssueType names a form fault.
type IssueType string

const (
	BackNotStraight   IssueType = "back_not_straight"
	KneeOverToe       IssueType = "knee_over_toe"
	InsufficientDepth IssueType = "insufficient_depth"
	UnevenKnees       IssueType = "uneven_knees"
	HipsSagging       IssueType = "hips_sagging"
	HipsPiked         IssueType = "hips_piked"
	UnevenArms        IssueType = "uneven_arms"
	BodySwinging      IssueType = "body_swinging"
	ElbowDrifting     IssueType = "elbow_drifting"
	IncompleteCurl    IssueType = "incomplete_curl"
	InsufficientRange IssueType = "insufficient_range"
	ArmsTooHigh       IssueType = "arms_too_high"
	ElbowsBent        IssueType = "elbows_bent"
	BackArching       IssueType = "back_arching"
	WristsNotStacked  IssueType = "wrists_not_stacked"
	IncompleteLockout IssueType = "incomplete_lockout"
)

type issueInfo struct {
	priority Priority
	message  string
}

var issueCatalog = map[IssueType]issueInfo{
	BackNotStraight:   {PriorityCritical, "Keep your back straight"},
	KneeOverToe:       {PriorityHigh, "Keep your knees behind your toes"},
	InsufficientDepth: {PriorityMedium, "Go deeper"},
	UnevenKnees:       {PriorityLow, "Bend both knees evenly"},
	HipsSagging:       {PriorityCritical, "Lift your hips in line with your body"},
	HipsPiked:         {PriorityHigh, "Lower your hips in line with your body"},
	UnevenArms:        {PriorityLow, "Move both arms evenly"},
	BodySwinging:      {PriorityHigh, "Keep your body still"},
	ElbowDrifting:     {PriorityMedium, "Keep your elbows by your sides"},
	IncompleteCurl:    {PriorityMedium, "Curl all the way up"},
	InsufficientRange: {PriorityMedium, "Raise your arms to shoulder height"},
	ArmsTooHigh:       {PriorityHigh, "Stop at shoulder height"},
	ElbowsBent:        {PriorityLow, "Keep your arms straight"},
	BackArching:       {PriorityCritical, "Don't arch your lower back"},
	WristsNotStacked:  {PriorityMedium, "Keep your wrists over your elbows"},
	IncompleteLockout: {PriorityMedium, "Press all the way up"},
}

// Known reports whether t is a catalogued issue.
func (t IssueType) Known() bool {
	_, ok := issueCatalog[t]
	return ok
}

// Priority returns the fixed priority of the issue.
func (t IssueType) Priority() Priority {
	return issueCatalog[t].priority
}

// NewIssue builds the catalogued Issue for t.
func NewIssue(t IssueType) Issue {
	info := issueCatalog[t]
	return Issue{Type: t, Message: info.message, Priority: info.priority}
}

// buildIssues deduplicates the detected issue types and orders them by
// priority, highest first.
func buildIssues(types []IssueType) []Issue {
	if len(types) == 0 {
		return nil
	}
	seen := make(map[IssueType]bool, len(types))
	issues := make([]Issue, 0, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		issues = append(issues, NewIssue(t))
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Priority > issues[j].Priority
	})
	return issues
}
