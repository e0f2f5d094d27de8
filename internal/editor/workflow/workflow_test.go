package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todaysafrica/newsroom/internal/models"
)

var allStatuses = []models.Status{
	models.StatusDraft, models.StatusPendingReview, models.StatusApproved,
	models.StatusPublished, models.StatusRejected, models.StatusArchived,
}

func TestCheck_Table(t *testing.T) {
	tests := []struct {
		from   models.Status
		action Action
		in     Input
		to     models.Status
		err    error
	}{
		{models.StatusDraft, ActionSubmit, Input{AuthorID: 1}, models.StatusPendingReview, nil},
		{models.StatusDraft, ActionSubmit, Input{}, "", ErrAuthorRequired},
		{models.StatusRejected, ActionSubmit, Input{AuthorID: 1}, models.StatusPendingReview, nil},
		{models.StatusPendingReview, ActionApprove, Input{}, models.StatusApproved, nil},
		{models.StatusPendingReview, ActionReject, Input{Reason: "sources manquantes"}, models.StatusRejected, nil},
		{models.StatusPendingReview, ActionReject, Input{Reason: "   "}, "", ErrReasonRequired},
		{models.StatusPendingReview, ActionReject, Input{}, "", ErrReasonRequired},
		{models.StatusApproved, ActionPublish, Input{}, models.StatusPublished, nil},
		{models.StatusPublished, ActionArchive, Input{Confirmed: true}, models.StatusArchived, nil},
		{models.StatusPublished, ActionArchive, Input{}, "", ErrConfirmationRequired},
		{models.StatusArchived, ActionRepublish, Input{Confirmed: true}, models.StatusPublished, nil},
		{models.StatusArchived, ActionDelete, Input{Confirmed: true}, "", nil},
		{models.StatusDraft, ActionApprove, Input{}, "", ErrIllegalTransition},
		{models.StatusPendingReview, ActionSubmit, Input{AuthorID: 1}, "", ErrIllegalTransition},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			tr, err := Check(tt.from, tt.action, tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, tr.To)
		})
	}
}

func TestCheck_PublishOnlyFromApproved(t *testing.T) {
	for _, s := range allStatuses {
		_, err := Check(s, ActionPublish, Input{})
		if s == models.StatusApproved {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrIllegalTransition, s)
		}
	}
}

func TestCheck_ArchiveOnlyFromPublished(t *testing.T) {
	for _, s := range allStatuses {
		_, err := Check(s, ActionArchive, Input{Confirmed: true})
		if s == models.StatusPublished {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrIllegalTransition, s)
		}
	}
}

func TestDeleteIsTerminal(t *testing.T) {
	tr, err := Check(models.StatusArchived, ActionDelete, Input{Confirmed: true})
	require.NoError(t, err)
	assert.True(t, tr.Terminal)
	assert.Empty(t, tr.To)
}

func TestEditable(t *testing.T) {
	for _, s := range allStatuses {
		want := s == models.StatusDraft || s == models.StatusRejected
		assert.Equal(t, want, Editable(s), s)
	}
}

func TestOffered(t *testing.T) {
	assert.Equal(t, []Action{ActionSubmit}, Offered(models.StatusDraft, models.RoleWriter))
	assert.Empty(t, Offered(models.StatusPendingReview, models.RoleWriter))
	assert.Equal(t, []Action{ActionApprove, ActionReject}, Offered(models.StatusPendingReview, models.RoleAdmin))
	assert.Equal(t, []Action{ActionRepublish, ActionDelete}, Offered(models.StatusArchived, models.RoleAdmin))
	assert.Equal(t, []Action{ActionRepublish, ActionDelete}, Actions(models.StatusArchived))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Publish ")
	require.NoError(t, err)
	assert.Equal(t, ActionPublish, a)

	_, err = ParseAction("unpublish")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestValidatePublication(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	soon := now.Add(time.Hour)
	later := now.Add(48 * time.Hour)

	tests := []struct {
		name string
		cfg  models.PublicationConfig
		ok   bool
	}{
		{"immediate", models.PublicationConfig{}, true},
		{"scheduled", models.PublicationConfig{ScheduledAt: &soon}, true},
		{"scheduled in past", models.PublicationConfig{ScheduledAt: &past}, false},
		{"preview without end", models.PublicationConfig{PreviewOnly: true}, false},
		{"preview", models.PublicationConfig{PreviewOnly: true, PreviewEndsAt: &later}, true},
		{"preview ends before schedule", models.PublicationConfig{ScheduledAt: &later, PreviewOnly: true, PreviewEndsAt: &soon}, false},
		{"regions", models.PublicationConfig{TargetRegions: []models.Region{models.RegionWest, models.RegionEast}}, true},
		{"unknown region", models.PublicationConfig{TargetRegions: []models.Region{"EUROPE"}}, false},
		{"duplicate region", models.PublicationConfig{TargetRegions: []models.Region{models.RegionWest, models.RegionWest}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePublication(tt.cfg, now)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPublication)
			}
		})
	}

	_, err := check(models.StatusApproved, ActionPublish, Input{Publication: &models.PublicationConfig{PreviewOnly: true}}, now)
	assert.ErrorIs(t, err, ErrInvalidPublication)
}
