package lifecycle

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, *sql.DB, *testClock) {
	t.Helper()
	database := db.NewTestDB(t)
	clock := &testClock{now: t0}
	svc := NewService(store.ItemGateway{DB: database})
	svc.Now = clock.Now
	return svc, database, clock
}

func addActor(t *testing.T, database *sql.DB, email, role string) *Actor {
	t.Helper()
	u, err := store.CreateUser(context.Background(), database, email, "Test "+email, "hash", role)
	require.NoError(t, err)
	return &Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

func umbrella() ItemInput {
	return ItemInput{ItemDetails: model.ItemDetails{
		Name:        "  Black umbrella ",
		Description: "Folding umbrella with a wooden handle",
		Category:    "Accessories",
		Location:    "Library, 2nd floor",
	}}
}

func sameTime(t *testing.T, want time.Time, got *time.Time) {
	t.Helper()
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %s, got %s", want, *got)
}

func TestCreateDefaults(t *testing.T) {
	svc, database, _ := newTestService(t)
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	item, err := svc.Create(context.Background(), umbrella(), u1)
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Black umbrella", item.Name)
	assert.Equal(t, model.ItemStatusLost, item.Status)
	assert.Equal(t, u1.ID, item.ReportedBy)
	assert.True(t, t0.Equal(item.ReportedDate))
	assert.Nil(t, item.FoundDate)
	assert.Empty(t, item.ClaimedBy)
}

func TestCreateFoundStampsFoundDate(t *testing.T) {
	svc, database, _ := newTestService(t)
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	in := umbrella()
	in.Status = model.ItemStatusFound
	reported := time.Date(2024, 2, 20, 14, 30, 0, 0, time.UTC)
	in.ReportedDate = &reported

	item, err := svc.Create(context.Background(), in, u1)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusFound, item.Status)
	assert.True(t, reported.Equal(item.ReportedDate))
	sameTime(t, reported, item.FoundDate)
}

func TestCreateValidation(t *testing.T) {
	svc, database, _ := newTestService(t)
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	in := ItemInput{ItemDetails: model.ItemDetails{
		Name:     strings.Repeat("n", model.MaxItemNameLen+1),
		Category: "Pets",
		Location: "Gym",
	}, Status: model.ItemStatusClaimed}

	_, err := svc.Create(context.Background(), in, u1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "description")
	assert.Contains(t, verr.Fields, "category")
	assert.Contains(t, verr.Fields, "status")
	assert.NotContains(t, verr.Fields, "location")

	page, err := svc.List(context.Background(), store.ItemFilter{}, u1)
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)
}

func TestCreateRequiresActor(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), umbrella(), nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTransitionByNonOwnerIsForbidden(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)
	u2 := addActor(t, database, "u2@example.com", model.RoleUser)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)

	_, err = svc.ApplyTransition(ctx, item.ID, model.ItemStatusFound, u2)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Get(ctx, item.ID, u2)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusLost, got.Status)
	assert.Nil(t, got.FoundDate)
}

func TestTransitionLifecycle(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)
	u3 := addActor(t, database, "u3@example.com", model.RoleAdmin)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)

	clock.now = t1
	item, err = svc.ApplyTransition(ctx, item.ID, model.ItemStatusFound, u1)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusFound, item.Status)
	sameTime(t, t1, item.FoundDate)

	clock.now = t2
	item, err = svc.ApplyTransition(ctx, item.ID, model.ItemStatusClaimed, u3)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusClaimed, item.Status)
	assert.Equal(t, u3.ID, item.ClaimedBy)
	assert.Equal(t, "Test u3@example.com", item.ClaimantName)
	sameTime(t, t2, item.ClaimedDate)
	sameTime(t, t1, item.FoundDate)

	clock.now = t3
	item, err = svc.ApplyTransition(ctx, item.ID, model.ItemStatusReturned, u1)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusReturned, item.Status)
	sameTime(t, t3, item.ReturnedDate)
	sameTime(t, t2, item.ClaimedDate)
	sameTime(t, t1, item.FoundDate)
	assert.Equal(t, u1.ID, item.ReportedBy)
}

func TestTransitionKeepsFirstFoundDate(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)

	for i, status := range []string{model.ItemStatusFound, model.ItemStatusLost, model.ItemStatusFound} {
		clock.now = t1.Add(time.Duration(i) * time.Hour)
		item, err = svc.ApplyTransition(ctx, item.ID, status, u1)
		require.NoError(t, err)
	}
	assert.Equal(t, model.ItemStatusFound, item.Status)
	sameTime(t, t1, item.FoundDate)
}

func TestTransitionBackToFoundKeepsClaimant(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)
	for _, status := range []string{model.ItemStatusFound, model.ItemStatusClaimed, model.ItemStatusFound} {
		item, err = svc.ApplyTransition(ctx, item.ID, status, u1)
		require.NoError(t, err)
	}
	assert.Equal(t, model.ItemStatusFound, item.Status)
	assert.Equal(t, u1.ID, item.ClaimedBy)
	assert.NotNil(t, item.ClaimedDate)
}

func TestTransitionSameStatusChangesNothing(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)

	clock.now = t2
	got, err := svc.ApplyTransition(ctx, item.ID, model.ItemStatusLost, u1)
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestTransitionInvalidStatus(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)

	_, err = svc.ApplyTransition(ctx, item.ID, "stolen", u1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionMissingItem(t *testing.T) {
	svc, database, _ := newTestService(t)
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	_, err := svc.ApplyTransition(context.Background(), "does-not-exist", model.ItemStatusFound, u1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ApplyTransition(context.Background(), "does-not-exist", model.ItemStatusFound, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUpdateDetailsAndStatus(t *testing.T) {
	svc, database, clock := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)
	u2 := addActor(t, database, "u2@example.com", model.RoleUser)
	admin := addActor(t, database, "admin@example.com", model.RoleAdmin)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)

	in := umbrella()
	in.Name = "Blue umbrella"
	in.ContactInfo = "front desk"

	_, err = svc.Update(ctx, item.ID, in, u2)
	assert.ErrorIs(t, err, ErrForbidden)

	clock.now = t1
	in.Status = model.ItemStatusFound
	updated, err := svc.Update(ctx, item.ID, in, admin)
	require.NoError(t, err)
	assert.Equal(t, "Blue umbrella", updated.Name)
	assert.Equal(t, "front desk", updated.ContactInfo)
	assert.Equal(t, model.ItemStatusFound, updated.Status)
	assert.Equal(t, u1.ID, updated.ReportedBy)
	sameTime(t, t1, updated.FoundDate)

	in.Description = ""
	in.Status = "gone"
	_, err = svc.Update(ctx, item.ID, in, u1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "description")
	assert.Contains(t, verr.Fields, "status")
}

func TestDeleteTwice(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)
	u2 := addActor(t, database, "u2@example.com", model.RoleUser)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, item.ID, u2), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, item.ID, u1))
	assert.ErrorIs(t, svc.Delete(ctx, item.ID, u1), ErrNotFound)

	_, err = svc.Get(ctx, item.ID, u1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPagination(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, umbrella(), u1)
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, store.ItemFilter{Page: 2, Limit: 2}, u1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, Pagination{Page: 2, Limit: 2, Total: 5, Pages: 3}, page.Pagination)

	page, err = svc.List(ctx, store.ItemFilter{Status: model.ItemStatusFound}, u1)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Pagination.Pages)

	_, err = svc.List(ctx, store.ItemFilter{Status: "gone"}, u1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.List(ctx, store.ItemFilter{}, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSetAndGetImage(t *testing.T) {
	svc, database, _ := newTestService(t)
	ctx := context.Background()
	u1 := addActor(t, database, "u1@example.com", model.RoleUser)
	u2 := addActor(t, database, "u2@example.com", model.RoleUser)

	item, err := svc.Create(ctx, umbrella(), u1)
	require.NoError(t, err)

	_, _, err = svc.Image(ctx, item.ID, u2)
	assert.ErrorIs(t, err, ErrNotFound)

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	err = svc.SetImage(ctx, item.ID, bytes.NewReader(buf.Bytes()), u2)
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.SetImage(ctx, item.ID, strings.NewReader("not an image"), u1)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.SetImage(ctx, item.ID, bytes.NewReader(buf.Bytes()), u1))

	data, mime, err := svc.Image(ctx, item.ID, u2)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.NotEmpty(t, data)

	got, err := svc.Get(ctx, item.ID, u2)
	require.NoError(t, err)
	assert.True(t, got.HasImage)
}

// flakyStore fails every call and can simulate an item that disappears
// between the read and the write.
type flakyStore struct {
	Store
	item    *model.Item
	readErr error
	gone    bool
}

var errDisk = errors.New("disk I/O error")

func (f *flakyStore) FindByID(ctx context.Context, id string) (*model.Item, error) {
	return f.item, f.readErr
}

func (f *flakyStore) UpdateByID(ctx context.Context, id string, p store.ItemPatch) (*model.Item, error) {
	if f.gone {
		return nil, nil
	}
	return nil, errDisk
}

func (f *flakyStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	if f.gone {
		return false, nil
	}
	return false, errDisk
}

func (f *flakyStore) Insert(ctx context.Context, n store.NewItem) (*model.Item, error) {
	return nil, errDisk
}

func TestPersistenceErrors(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&flakyStore{readErr: errDisk})
	_, err := svc.Get(ctx, "item-1", owner)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errDisk)

	svc = NewService(&flakyStore{item: lostItem("u1")})
	_, err = svc.ApplyTransition(ctx, "item-1", model.ItemStatusFound, owner)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, svc.Delete(ctx, "item-1", owner), ErrPersistence)

	_, err = svc.Create(ctx, umbrella(), owner)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestItemRemovedBetweenReadAndWrite(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&flakyStore{item: lostItem("u1"), gone: true})

	_, err := svc.ApplyTransition(ctx, "item-1", model.ItemStatusFound, owner)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "item-1", owner), ErrNotFound)
}

func TestForbiddenDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{item: lostItem("u1")}
	svc := NewService(st)

	// Writes on flakyStore fail, so reaching them would surface ErrPersistence.
	_, err := svc.ApplyTransition(ctx, "item-1", model.ItemStatusFound, stranger)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "item-1", stranger), ErrForbidden)
}
