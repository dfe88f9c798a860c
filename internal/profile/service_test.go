package profile_test

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/profilemedia-backend/internal/categories"
	"github.com/angelmondragon/profilemedia-backend/internal/media"
	"github.com/angelmondragon/profilemedia-backend/internal/ordering"
	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	"github.com/angelmondragon/profilemedia-backend/internal/uploads"
	dbpkg "github.com/angelmondragon/profilemedia-backend/pkg/db"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/dbtest"
	"github.com/angelmondragon/profilemedia-backend/pkg/db/models"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/profilemedia-backend/pkg/errors"
	"github.com/angelmondragon/profilemedia-backend/pkg/metrics"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
)

type stubIngestor struct {
	mu        sync.Mutex
	fixedKey  string
	err       error
	discarded []string
}

func (s *stubIngestor) Ingest(_ context.Context, ownerID uuid.UUID, fileName string, _ io.Reader) (*uploads.Upload, error) {
	if s.err != nil {
		return nil, s.err
	}
	kind := enums.MediaKindImage
	switch strings.ToLower(path.Ext(fileName)) {
	case ".mp3":
		kind = enums.MediaKindAudio
	case ".mp4":
		kind = enums.MediaKindVideo
	}
	key := s.fixedKey
	if key == "" {
		key = "profiles/" + ownerID.String() + "/" + uuid.NewString() + "/" + fileName
	}
	return &uploads.Upload{
		Kind:          kind,
		FileName:      fileName,
		MimeType:      "application/octet-stream",
		SizeBytes:     3,
		StorageKey:    key,
		SuggestedName: media.DeriveDisplayName(fileName),
	}, nil
}

func (s *stubIngestor) Discard(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append(s.discarded, key)
}

type harness struct {
	conn   *gorm.DB
	svc    profile.Service
	store  *media.Store
	ingest *stubIngestor
	outbox *outbox.Repository
	owner  uuid.UUID
	caller profile.Caller
	ctx    context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	ledger := categories.NewLedger(nil)
	store, err := media.NewStore(media.NewRepository(conn), media.NewIndexRepository(conn), ledger)
	require.NoError(t, err)
	orderSvc, err := ordering.NewService(store)
	require.NoError(t, err)
	outboxRepo := outbox.NewRepository(conn)
	ingest := &stubIngestor{}

	svc, err := profile.NewService(profile.ServiceParams{
		DB:         dbpkg.Wrap(conn),
		Store:      store,
		Ledger:     ledger,
		Ordering:   orderSvc,
		Uploads:    ingest,
		References: media.NewReferenceRepository(conn),
		Outbox:     outbox.NewEmitter(outboxRepo, nil),
		Metrics:    metrics.NewProfileMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	owner := uuid.New()
	return &harness{
		conn:   conn,
		svc:    svc,
		store:  store,
		ingest: ingest,
		outbox: outboxRepo,
		owner:  owner,
		caller: profile.Caller{UserID: owner},
		ctx:    context.Background(),
	}
}

func (h *harness) upload(t *testing.T, name string) *models.MediaItem {
	t.Helper()
	item, err := h.svc.Upload(h.ctx, h.caller, h.owner, name, strings.NewReader("abc"))
	require.NoError(t, err)
	return item
}

func (h *harness) events(t *testing.T, eventType enums.OutboxEventType) int {
	t.Helper()
	rows, err := h.outbox.FetchUnpublished(h.ctx, 100, 0)
	require.NoError(t, err)
	n := 0
	for _, row := range rows {
		if row.EventType == eventType {
			n++
		}
	}
	return n
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := profile.NewService(profile.ServiceParams{})
	assert.Error(t, err)
}

func TestOwnershipIsEnforcedBeforeMutation(t *testing.T) {
	h := newHarness(t)
	item := h.upload(t, "pic.png")
	stranger := profile.Caller{UserID: uuid.New()}

	_, err := h.svc.SetCategory(h.ctx, stranger, h.owner, item.ID, enums.CategoryGallery)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
	_, err = h.svc.Delete(h.ctx, stranger, h.owner, item.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
	_, err = h.svc.Upload(h.ctx, stranger, h.owner, "x.png", strings.NewReader("abc"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
	_, err = h.svc.GetCounts(h.ctx, profile.Caller{}, h.owner)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	_, err = h.svc.SetCategory(h.ctx, stranger, stranger.UserID, item.ID, enums.CategoryGallery)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "an item under another owner is rejected, got %v", err)

	got, err := h.store.Get(h.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CategoryNone, got.Category)

	admin := profile.Caller{UserID: uuid.New(), Admin: true}
	res, err := h.svc.SetCategory(h.ctx, admin, h.owner, item.ID, enums.CategoryGallery)
	require.NoError(t, err)
	assert.Equal(t, enums.CategoryGallery, res.Category)
}

func TestUploadCreatesItemAndQueuesEvent(t *testing.T) {
	h := newHarness(t)
	first := h.upload(t, "First Song.mp3")
	second := h.upload(t, "clip.mp4")

	assert.Equal(t, enums.MediaKindAudio, first.Kind)
	assert.Equal(t, "First Song", first.DisplayName)
	assert.Equal(t, enums.CategoryNone, first.Category)
	assert.Equal(t, 1, first.SortPosition)
	assert.Equal(t, 2, second.SortPosition)
	assert.Equal(t, 2, h.events(t, enums.EventMediaUploaded))
}

func TestUploadDiscardsBlobWhenRecordFails(t *testing.T) {
	h := newHarness(t)
	h.ingest.fixedKey = "profiles/shared/key.png"
	h.upload(t, "a.png")

	_, err := h.svc.Upload(h.ctx, h.caller, h.owner, "b.png", strings.NewReader("abc"))
	require.Error(t, err)
	assert.Equal(t, []string{"profiles/shared/key.png"}, h.ingest.discarded)

	items, err := h.svc.List(h.ctx, h.caller, h.owner, nil)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestUploadIngestFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.ingest.err = pkgerrors.New(pkgerrors.CodeUnsupportedMedia, "nope")
	_, err := h.svc.Upload(h.ctx, h.caller, h.owner, "a.txt", strings.NewReader("abc"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnsupportedMedia))
	assert.Zero(t, h.events(t, enums.EventMediaUploaded))
}

func TestGalleryCapacityScenario(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 6; i++ {
		item := h.upload(t, "g.png")
		_, err := h.svc.SetCategory(h.ctx, h.caller, h.owner, item.ID, enums.CategoryGallery)
		require.NoError(t, err)
	}
	seventh := h.upload(t, "g7.png")

	_, err := h.svc.SetCategory(h.ctx, h.caller, h.owner, seventh.ID, enums.CategoryGallery)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCapacityExceeded), "got %v", err)

	counts, err := h.svc.GetCounts(h.ctx, h.caller, h.owner)
	require.NoError(t, err)
	assert.Equal(t, 6, counts.Counts[enums.CategoryGallery])
	assert.Equal(t, 1, counts.Counts[enums.CategoryNone])
	assert.Equal(t, 6, counts.Limits[enums.CategoryGallery])

	got, err := h.store.Get(h.ctx, seventh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CategoryNone, got.Category)
}

func TestSetCategoryTransitionsAndIdempotence(t *testing.T) {
	h := newHarness(t)
	item := h.upload(t, "pic.png")

	res, err := h.svc.SetCategory(h.ctx, h.caller, h.owner, item.ID, enums.CategoryFeatured)
	require.NoError(t, err)
	assert.Equal(t, profile.TransitionCategorized, res.Transition)
	assert.Equal(t, 1, res.Counts[enums.CategoryFeatured])

	res, err = h.svc.SetCategory(h.ctx, h.caller, h.owner, item.ID, enums.CategoryFeatured)
	require.NoError(t, err)
	assert.Equal(t, profile.TransitionNone, res.Transition)
	assert.Equal(t, 1, res.Counts[enums.CategoryFeatured])

	res, err = h.svc.SetCategory(h.ctx, h.caller, h.owner, item.ID, enums.CategoryHands)
	require.NoError(t, err)
	assert.Equal(t, profile.TransitionRecategorized, res.Transition)
	assert.Equal(t, 0, res.Counts[enums.CategoryFeatured])
}

func TestReorderThroughFacade(t *testing.T) {
	h := newHarness(t)
	a := h.upload(t, "a.png")
	b := h.upload(t, "b.png")
	foreign := uuid.New()

	res, err := h.svc.Reorder(h.ctx, h.caller, h.owner, ordering.Input{IDs: []uuid.UUID{b.ID, foreign, a.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedCount)
	assert.Equal(t, []uuid.UUID{foreign}, res.Skipped)

	view, err := h.svc.Profile(h.ctx, h.caller, h.owner)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, view.OrderIndex)
	require.Len(t, view.Items, 2)
	assert.Equal(t, b.ID, view.Items[0].ID)
}

func TestReorderCapacityFailureLeavesBatchUnapplied(t *testing.T) {
	h := newHarness(t)
	a := h.upload(t, "a.png")
	b := h.upload(t, "b.png")

	_, err := h.svc.Reorder(h.ctx, h.caller, h.owner, ordering.Input{
		IDs: []uuid.UUID{b.ID, a.ID},
		Categories: map[uuid.UUID]enums.MediaCategory{
			b.ID: enums.CategoryFeatured,
			a.ID: enums.CategoryFeatured,
		},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCapacityExceeded), "got %v", err)

	view, err := h.svc.Profile(h.ctx, h.caller, h.owner)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, view.OrderIndex)
	assert.Equal(t, string(enums.CategoryNone), view.CategoryIndex[b.ID.String()])

	counts, err := h.svc.GetCounts(h.ctx, h.caller, h.owner)
	require.NoError(t, err)
	assert.Zero(t, counts.Counts[enums.CategoryFeatured])
}

func TestRenameAndRenameMany(t *testing.T) {
	h := newHarness(t)
	img := h.upload(t, "a.png")
	song := h.upload(t, "b.mp3")

	renamed, err := h.svc.Rename(h.ctx, h.caller, h.owner, img.ID, "Foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo", renamed.DisplayName)

	res, err := h.svc.RenameMany(h.ctx, h.caller, h.owner, map[uuid.UUID]string{
		img.ID:     "Gallery shot",
		song.ID:    "Theme",
		uuid.New(): "missing",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 1, res.Breakdown[enums.MediaKindImage])
	assert.Equal(t, 1, res.Breakdown[enums.MediaKindAudio])
	require.Len(t, res.Failed, 1)

	res, err = h.svc.RenameMany(h.ctx, h.caller, h.owner, map[uuid.UUID]string{img.ID: "   "})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Len(t, res.Failed, 1)

	_, err = h.svc.RenameMany(h.ctx, h.caller, h.owner, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteClearsPointersAndKeepsReferences(t *testing.T) {
	h := newHarness(t)
	song := h.upload(t, "theme.mp3")
	_, err := h.svc.SelectAudio(h.ctx, h.caller, h.owner, &song.ID)
	require.NoError(t, err)
	_, err = h.svc.RecordUsage(h.ctx, h.caller, h.owner, song.ID, profile.UsageInput{EntityType: enums.ReferenceEntityPost, EntityID: "42"})
	require.NoError(t, err)

	res, err := h.svc.Delete(h.ctx, h.caller, h.owner, song.ID)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, 1, h.events(t, enums.EventMediaDeleted))

	_, err = h.store.Get(h.ctx, song.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err := h.svc.Profile(h.ctx, h.caller, h.owner)
	require.NoError(t, err)
	assert.Nil(t, view.SelectedAudioID)
	assert.Empty(t, view.OrderIndex)
	assert.Empty(t, view.CategoryIndex)

	var refs int64
	require.NoError(t, h.conn.Model(&models.MediaReference{}).Where("media_id = ?", song.ID).Count(&refs).Error)
	assert.Equal(t, int64(1), refs)

	_, err = h.svc.Delete(h.ctx, h.caller, h.owner, song.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestPointersRequireMatchingKind(t *testing.T) {
	h := newHarness(t)
	img := h.upload(t, "me.png")
	song := h.upload(t, "theme.mp3")

	_, err := h.svc.SelectAudio(h.ctx, h.caller, h.owner, &img.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	_, err = h.svc.SetProfilePicture(h.ctx, h.caller, h.owner, &song.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	view, err := h.svc.SetProfilePicture(h.ctx, h.caller, h.owner, &img.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ProfilePictureID)
	assert.Equal(t, img.ID, *view.ProfilePictureID)

	view, err = h.svc.SetProfilePicture(h.ctx, h.caller, h.owner, nil)
	require.NoError(t, err)
	assert.Nil(t, view.ProfilePictureID)
}

func TestUsageReplacement(t *testing.T) {
	h := newHarness(t)
	oldImg := h.upload(t, "old.png")
	newImg := h.upload(t, "new.png")
	song := h.upload(t, "theme.mp3")

	for _, entity := range []string{"1", "2"} {
		_, err := h.svc.RecordUsage(h.ctx, h.caller, h.owner, oldImg.ID, profile.UsageInput{EntityType: enums.ReferenceEntityPost, EntityID: entity})
		require.NoError(t, err)
	}
	_, err := h.svc.RecordUsage(h.ctx, h.caller, h.owner, newImg.ID, profile.UsageInput{EntityType: enums.ReferenceEntityPost, EntityID: "2"})
	require.NoError(t, err)

	_, err = h.svc.RecordUsage(h.ctx, h.caller, h.owner, oldImg.ID, profile.UsageInput{EntityType: enums.ReferenceEntityPost, EntityID: "1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = h.svc.ReplaceUsage(h.ctx, h.caller, h.owner, oldImg.ID, song.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	_, err = h.svc.ReplaceUsage(h.ctx, h.caller, h.owner, oldImg.ID, oldImg.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	res, err := h.svc.ReplaceUsage(h.ctx, h.caller, h.owner, oldImg.ID, newImg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Replaced)

	oldRefs, err := h.svc.Usage(h.ctx, h.caller, h.owner, oldImg.ID)
	require.NoError(t, err)
	assert.Empty(t, oldRefs)
	newRefs, err := h.svc.Usage(h.ctx, h.caller, h.owner, newImg.ID)
	require.NoError(t, err)
	assert.Len(t, newRefs, 2)
}

func TestConcurrentCategoryChangesRespectCapacity(t *testing.T) {
	h := newHarness(t)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, h.upload(t, "p.png").ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = h.svc.SetCategory(h.ctx, h.caller, h.owner, id, enums.CategoryFeatured)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCapacityExceeded), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	counts, err := h.svc.GetCounts(h.ctx, h.caller, h.owner)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Counts[enums.CategoryFeatured])
}

func TestListRejectsUnknownCategory(t *testing.T) {
	h := newHarness(t)
	bad := enums.MediaCategory("selfies")
	_, err := h.svc.List(h.ctx, h.caller, h.owner, &bad)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	gallery := enums.CategoryGallery
	item := h.upload(t, "g.png")
	_, err = h.svc.SetCategory(h.ctx, h.caller, h.owner, item.ID, gallery)
	require.NoError(t, err)
	items, err := h.svc.List(h.ctx, h.caller, h.owner, &gallery)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestProfileReadDoesNotCreateProfileRow(t *testing.T) {
	h := newHarness(t)
	admin := profile.Caller{UserID: uuid.New(), Admin: true}
	unknown := uuid.New()

	view, err := h.svc.Profile(h.ctx, admin, unknown)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Empty(t, view.OrderIndex)
	assert.Nil(t, view.SelectedAudioID)

	_, err = h.svc.Profile(h.ctx, h.caller, h.owner)
	require.NoError(t, err)

	var rows int64
	require.NoError(t, h.conn.Model(&models.Profile{}).Count(&rows).Error)
	assert.Zero(t, rows, "reads must not seed profile rows")

	item := h.upload(t, "pic.png")
	view, err = h.svc.Profile(h.ctx, h.caller, h.owner)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{item.ID}, view.OrderIndex)
}
