// Package workflow decides which publication transitions are legal for an
// article and what each transition requires before the backend is called.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/todaysafrica/newsroom/internal/models"
)

// Action is a workflow transition trigger.
type Action string

const (
	ActionSubmit    Action = "submit"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionPublish   Action = "publish"
	ActionArchive   Action = "archive"
	ActionRepublish Action = "republish"
	ActionDelete    Action = "delete"
)

var (
	ErrIllegalTransition    = errors.New("illegal workflow transition")
	ErrUnknownAction        = errors.New("unknown workflow action")
	ErrAuthorRequired       = errors.New("author id is required")
	ErrReasonRequired       = errors.New("rejection reason is required")
	ErrConfirmationRequired = errors.New("confirmation is required")
	ErrInvalidPublication   = errors.New("invalid publication settings")
)

type requirement uint8

const (
	needsAuthor requirement = 1 << iota
	needsReason
	needsConfirmation
)

// Transition is a legal edge of the workflow graph.
type Transition struct {
	From   models.Status `json:"from"`
	Action Action        `json:"action"`
	// To is empty for the terminal delete.
	To       models.Status `json:"to,omitempty"`
	Terminal bool          `json:"terminal,omitempty"`
	// Reviewer transitions are offered to administrators only.
	Reviewer bool `json:"reviewer"`

	requires requirement
}

var transitions = []Transition{
	{From: models.StatusDraft, Action: ActionSubmit, To: models.StatusPendingReview, requires: needsAuthor},
	{From: models.StatusRejected, Action: ActionSubmit, To: models.StatusPendingReview, requires: needsAuthor},
	{From: models.StatusPendingReview, Action: ActionApprove, To: models.StatusApproved, Reviewer: true},
	{From: models.StatusPendingReview, Action: ActionReject, To: models.StatusRejected, Reviewer: true, requires: needsReason},
	{From: models.StatusApproved, Action: ActionPublish, To: models.StatusPublished, Reviewer: true},
	{From: models.StatusPublished, Action: ActionArchive, To: models.StatusArchived, Reviewer: true, requires: needsConfirmation},
	{From: models.StatusArchived, Action: ActionRepublish, To: models.StatusPublished, Reviewer: true, requires: needsConfirmation},
	{From: models.StatusArchived, Action: ActionDelete, Terminal: true, Reviewer: true, requires: needsConfirmation},
}

// Input carries what a transition may require.
type Input struct {
	AuthorID    int64
	Reason      string
	Confirmed   bool
	Publication *models.PublicationConfig
}

// ParseAction parses an action name case-insensitively.
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range transitions {
		if t.Action == a {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// Editable reports whether authors may modify an article in status s.
// Articles under review are locked.
func Editable(s models.Status) bool {
	return s == models.StatusDraft || s == models.StatusRejected
}

// Actions lists the actions legal from status s.
func Actions(s models.Status) []Action {
	var out []Action
	for _, t := range transitions {
		if t.From == s {
			out = append(out, t.Action)
		}
	}
	return out
}

// Offered lists the actions a user with role may trigger from status s.
func Offered(s models.Status, role models.Role) []Action {
	var out []Action
	for _, t := range transitions {
		if t.From != s {
			continue
		}
		if t.Reviewer && role != models.RoleAdmin {
			continue
		}
		out = append(out, t.Action)
	}
	return out
}

// Lookup returns the transition for action from status s.
func Lookup(s models.Status, a Action) (Transition, error) {
	for _, t := range transitions {
		if t.From == s && t.Action == a {
			return t, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, a, s)
}

// Check validates that action may be taken from status from with in.
func Check(from models.Status, action Action, in Input) (Transition, error) {
	return check(from, action, in, time.Now())
}

func check(from models.Status, action Action, in Input, now time.Time) (Transition, error) {
	t, err := Lookup(from, action)
	if err != nil {
		return Transition{}, err
	}
	if t.requires&needsAuthor != 0 && in.AuthorID <= 0 {
		return Transition{}, ErrAuthorRequired
	}
	if t.requires&needsReason != 0 && strings.TrimSpace(in.Reason) == "" {
		return Transition{}, ErrReasonRequired
	}
	if t.requires&needsConfirmation != 0 && !in.Confirmed {
		return Transition{}, ErrConfirmationRequired
	}
	if action == ActionPublish && in.Publication != nil {
		if err := ValidatePublication(*in.Publication, now); err != nil {
			return Transition{}, err
		}
	}
	return t, nil
}

// ValidatePublication checks a publication config against now.
func ValidatePublication(p models.PublicationConfig, now time.Time) error {
	start := now
	if p.ScheduledAt != nil {
		if !p.ScheduledAt.After(now) {
			return fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidPublication)
		}
		start = *p.ScheduledAt
	}
	if p.PreviewOnly {
		if p.PreviewEndsAt == nil {
			return fmt.Errorf("%w: preview mode requires an end time", ErrInvalidPublication)
		}
		if !p.PreviewEndsAt.After(start) {
			return fmt.Errorf("%w: preview must end after publication starts", ErrInvalidPublication)
		}
	}
	seen := make(map[models.Region]struct{}, len(p.TargetRegions))
	for _, r := range p.TargetRegions {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown region %q", ErrInvalidPublication, r)
		}
		if _, dup := seen[r]; dup {
			return fmt.Errorf("%w: duplicate region %q", ErrInvalidPublication, r)
		}
		seen[r] = struct{}{}
	}
	return nil
}
