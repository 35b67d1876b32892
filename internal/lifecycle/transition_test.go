package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/model"
)

var (
	t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t1.Add(time.Hour)
	t3 = t2.Add(time.Hour)
)

func lostItem(reportedBy string) *model.Item {
	return &model.Item{
		ID:           "item-1",
		Name:         "Black umbrella",
		Description:  "Folding umbrella with a wooden handle",
		Category:     "Accessories",
		Location:     "Library, 2nd floor",
		Status:       model.ItemStatusLost,
		ReportedBy:   reportedBy,
		ReportedDate: t0,
	}
}

var (
	owner    = &Actor{ID: "u1", Email: "owner@example.com", Role: model.RoleUser}
	stranger = &Actor{ID: "u2", Email: "other@example.com", Role: model.RoleUser}
	admin    = &Actor{ID: "u3", Email: "admin@example.com", Role: model.RoleAdmin}
)

func TestCanMutate(t *testing.T) {
	item := lostItem("u1")

	tests := []struct {
		name  string
		actor *Actor
		want  bool
	}{
		{"reporter", owner, true},
		{"other user", stranger, false},
		{"admin", admin, true},
		{"nil actor", nil, false},
		{"empty id", &Actor{Role: model.RoleUser}, false},
		{"unknown role", &Actor{ID: "u9", Role: "superuser"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanMutate(item, tt.actor))
		})
	}
}

func TestCanMutateIgnoresTokenEmail(t *testing.T) {
	item := lostItem("u1")
	impostor := &Actor{ID: "u2", Email: owner.Email, Role: model.RoleUser}
	assert.False(t, CanMutate(item, impostor))
}

func TestApplyRejectsNonOwnerForEveryStatus(t *testing.T) {
	for _, status := range []string{"lost", "found", "claimed", "returned", "bogus"} {
		t.Run(status, func(t *testing.T) {
			_, err := Apply(lostItem("u1"), status, stranger, t1)
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestApplyWithoutActor(t *testing.T) {
	_, err := Apply(lostItem("u1"), model.ItemStatusFound, nil, t1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestApplyInvalidStatus(t *testing.T) {
	_, err := Apply(lostItem("u1"), "misplaced", owner, t1)
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	item := lostItem("u1")
	updated, err := Apply(item, model.ItemStatusFound, owner, t1)
	require.NoError(t, err)

	assert.Equal(t, model.ItemStatusLost, item.Status)
	assert.Nil(t, item.FoundDate)
	assert.Equal(t, model.ItemStatusFound, updated.Status)
}

func TestApplyFullLifecycle(t *testing.T) {
	item := lostItem("u1")

	item, err := Apply(item, model.ItemStatusFound, owner, t1)
	require.NoError(t, err)
	require.NotNil(t, item.FoundDate)
	assert.Equal(t, t1, *item.FoundDate)

	item, err = Apply(item, model.ItemStatusClaimed, admin, t2)
	require.NoError(t, err)
	assert.Equal(t, "u3", item.ClaimedBy)
	assert.Equal(t, t2, *item.ClaimedDate)
	assert.Equal(t, t1, *item.FoundDate)

	item, err = Apply(item, model.ItemStatusReturned, owner, t3)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusReturned, item.Status)
	assert.Equal(t, t3, *item.ReturnedDate)
	assert.Equal(t, t1, *item.FoundDate)
	assert.Equal(t, t2, *item.ClaimedDate)
	assert.Equal(t, "u3", item.ClaimedBy)
}

func TestApplyDatesAreAppendOnly(t *testing.T) {
	item := lostItem("u1")
	steps := []struct {
		status string
		at     time.Time
	}{
		{model.ItemStatusFound, t1},
		{model.ItemStatusLost, t2},
		{model.ItemStatusFound, t3},
	}

	var err error
	for _, s := range steps {
		item, err = Apply(item, s.status, owner, s.at)
		require.NoError(t, err)
	}
	assert.Equal(t, model.ItemStatusFound, item.Status)
	assert.Equal(t, t1, *item.FoundDate)
}

func TestApplyReopenKeepsClaimant(t *testing.T) {
	item := lostItem("u1")
	var err error
	for _, status := range []string{model.ItemStatusFound, model.ItemStatusClaimed, model.ItemStatusFound} {
		item, err = Apply(item, status, owner, t1)
		require.NoError(t, err)
	}
	assert.Equal(t, model.ItemStatusFound, item.Status)
	assert.Equal(t, "u1", item.ClaimedBy)
	assert.NotNil(t, item.ClaimedDate)
}

func TestApplyReclaimRecordsLatestClaimant(t *testing.T) {
	item := lostItem("u1")
	item.Status = model.ItemStatusFound
	item.FoundDate = &t0

	item, err := Apply(item, model.ItemStatusClaimed, owner, t1)
	require.NoError(t, err)
	item, err = Apply(item, model.ItemStatusFound, owner, t2)
	require.NoError(t, err)
	item, err = Apply(item, model.ItemStatusClaimed, admin, t3)
	require.NoError(t, err)

	assert.Equal(t, "u3", item.ClaimedBy)
	assert.Equal(t, t1, *item.ClaimedDate)
}

func TestApplySkipTransitionStampsEnteredState(t *testing.T) {
	item, err := Apply(lostItem("u1"), model.ItemStatusReturned, owner, t1)
	require.NoError(t, err)

	assert.Equal(t, model.ItemStatusReturned, item.Status)
	assert.Equal(t, t1, *item.ReturnedDate)
	assert.Nil(t, item.FoundDate)
	assert.Nil(t, item.ClaimedDate)
	assert.Empty(t, item.ClaimedBy)
}

func TestApplySameStatusIsNoop(t *testing.T) {
	item := lostItem("u1")
	item.Status = model.ItemStatusFound

	updated, err := Apply(item, model.ItemStatusFound, owner, t1)
	require.NoError(t, err)
	assert.Equal(t, item, updated)
	assert.Nil(t, updated.FoundDate)
}

func TestApplyLeavesDetailsAlone(t *testing.T) {
	item := lostItem("u1")
	updated, err := Apply(item, model.ItemStatusFound, owner, t1)
	require.NoError(t, err)
	assert.Equal(t, item.Details(), updated.Details())
	assert.Equal(t, item.ReportedBy, updated.ReportedBy)
	assert.Equal(t, item.ReportedDate, updated.ReportedDate)
}

func TestPlanVariants(t *testing.T) {
	item := lostItem("u1")
	tests := []struct {
		status string
		want   Transition
	}{
		{model.ItemStatusLost, Unchanged{Status: model.ItemStatusLost}},
		{model.ItemStatusFound, MarkFound{At: t1}},
		{model.ItemStatusClaimed, MarkClaimed{By: "u1", At: t1}},
		{model.ItemStatusReturned, MarkReturned{At: t1}},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got, err := Plan(item, tt.status, owner, t1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.status, got.Target())
		})
	}

	item.Status = model.ItemStatusFound
	got, err := Plan(item, model.ItemStatusLost, owner, t1)
	require.NoError(t, err)
	assert.Equal(t, Reopen{}, got)
}

func TestTransitionPatchesTouchOnlyTheirFields(t *testing.T) {
	p := MarkFound{At: t1}.patch()
	assert.Nil(t, p.ClaimedDate)
	assert.Nil(t, p.ReturnedDate)
	assert.Empty(t, p.ClaimedBy)
	assert.Nil(t, p.Details)

	p = Reopen{}.patch()
	assert.Equal(t, model.ItemStatusLost, p.Status)
	assert.Nil(t, p.FoundDate)
	assert.Nil(t, p.ClaimedDate)
	assert.Nil(t, p.ReturnedDate)

	p = MarkReturned{At: t1}.patch()
	assert.Nil(t, p.FoundDate)
	assert.Nil(t, p.ClaimedDate)
	assert.Empty(t, p.ClaimedBy)
}

func TestOffered(t *testing.T) {
	assert.Equal(t, []string{"found"}, Offered(model.ItemStatusLost))
	assert.Equal(t, []string{"claimed", "lost"}, Offered(model.ItemStatusFound))
	assert.Equal(t, []string{"returned", "found"}, Offered(model.ItemStatusClaimed))
	assert.Empty(t, Offered(model.ItemStatusReturned))
	assert.Empty(t, Offered("unknown"))
}

func TestValidationErrorDetails(t *testing.T) {
	err := newValidationError(map[string]string{
		"name":     "Item name is required",
		"category": "Category is required",
	})
	assert.Equal(t, []string{"Category is required", "Item name is required"}, err.Details())
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Item name is required")
}
