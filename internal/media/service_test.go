package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contactalia/contactalia-backend/internal/auth"
	"github.com/contactalia/contactalia-backend/internal/entitlements"
	"github.com/contactalia/contactalia-backend/pkg/db"
	"github.com/contactalia/contactalia-backend/pkg/db/dbtest"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: map[string][]byte{}}
}

func (m *memoryBlobs) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryBlobs) PublicURL(key string) string { return "https://cdn.test/" + key }

func (m *memoryBlobs) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

func (m *memoryBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type profileStore struct{ db *gorm.DB }

func (p profileStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p profileStore) FindByIDForUpdateWithTx(tx *gorm.DB, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := tx.Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

type fixture struct {
	svc     Service
	repo    *Repository
	blobs   *memoryBlobs
	db      *gorm.DB
	owner   auth.Session
	profile *models.Profile
}

func newFixture(t *testing.T, tier enums.PlanTier) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	blobs := newMemoryBlobs()
	svc, err := NewService(ServiceParams{
		Repo:              repo,
		Profiles:          profileStore{db: conn},
		Blobs:             blobs,
		TransactionRunner: db.Wrap(conn),
		Normalize:         NormalizeOptions{MaxWidth: 64, MaxHeight: 64, Quality: 80},
	})
	require.NoError(t, err)

	ownerID := uuid.New()
	profile := &models.Profile{UserID: ownerID, Name: "Lucía", City: "Madrid", Status: enums.ProfileStatusApproved}
	require.NoError(t, conn.Create(profile).Error)

	return &fixture{
		svc:     svc,
		repo:    repo,
		blobs:   blobs,
		db:      conn,
		owner:   auth.Session{AccountID: ownerID, Authenticated: true, Tier: tier, EffectiveTier: tier},
		profile: profile,
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (f *fixture) seed(t *testing.T, mediaType enums.MediaType, v enums.MediaVisibility) *models.ProfileMedia {
	t.Helper()
	item := &models.ProfileMedia{
		ProfileID:   f.profile.ID,
		MediaType:   mediaType,
		Visibility:  v,
		StoragePath: f.profile.UserID.String() + "/" + uuid.NewString(),
		MimeType:    "image/webp",
	}
	require.NoError(t, f.db.Create(item).Error)
	f.blobs.objects[item.StoragePath] = []byte("x")
	return item
}

func TestUploadNormalizesToWebP(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)

	dto, err := f.svc.Upload(context.Background(), f.owner, UploadInput{FileName: "Foto Playa.PNG", Data: pngBytes(t, 200, 100)})
	require.NoError(t, err)
	assert.Equal(t, enums.MediaTypeImage, dto.MediaType)
	assert.Equal(t, enums.MediaVisibilityPublic, dto.Visibility)
	assert.Equal(t, "image/webp", dto.MimeType)
	assert.Equal(t, 1, dto.Position)
	assert.Contains(t, dto.StoragePath, f.owner.AccountID.String()+"/"+f.profile.ID.String()+"/image/")
	assert.Contains(t, dto.StoragePath, "-foto-playa.webp")
	assert.Equal(t, 1, f.blobs.count())
}

func TestFreeAdvertiserSecondPublicPhotoRejected(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, f.owner, UploadInput{FileName: "a.png", Data: pngBytes(t, 8, 8)})
	require.NoError(t, err)

	_, err = f.svc.Upload(ctx, f.owner, UploadInput{FileName: "b.png", Data: pngBytes(t, 8, 8)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEntitlement), "got %v", err)
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, string(entitlements.ReasonQuotaExceeded), details["reason"])
	assert.Equal(t, 1, details["limit"])

	counts, err := f.repo.Counts(ctx, f.profile.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(enums.MediaTypeImage, entitlements.BucketPublic))
	assert.Equal(t, 1, f.blobs.count())
}

func TestUploadPrivateVisibilityRequiresUpgrade(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)
	_, err := f.svc.Upload(context.Background(), f.owner, UploadInput{FileName: "a.png", Data: pngBytes(t, 8, 8), Visibility: "vip"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEntitlement))
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, string(entitlements.ReasonUpgradeRequired), details["reason"])
	assert.Equal(t, "vip", details["required_tier"])
	assert.Zero(t, f.blobs.count())
}

func TestUploadRejectsUnsupportedContent(t *testing.T) {
	f := newFixture(t, enums.PlanTierPremium)
	_, err := f.svc.Upload(context.Background(), f.owner, UploadInput{FileName: "a.txt", Data: []byte("hello there")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestConcurrentUploadsOnFreePlanYieldOneSuccess(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)
	data := pngBytes(t, 8, 8)

	const workers = 2
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		denials   int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Upload(context.Background(), f.owner, UploadInput{FileName: "a.png", Data: data})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case pkgerrors.IsCode(err, pkgerrors.CodeEntitlement):
				denials++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, denials)

	var rows int64
	require.NoError(t, f.db.Model(&models.ProfileMedia{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
	assert.Equal(t, 1, f.blobs.count(), "denied uploads must not leave blobs behind")
}

func TestChangeVisibilityUpgradeRequiredLeavesItemUnchanged(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)
	item := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)

	_, err := f.svc.ChangeVisibility(context.Background(), f.owner, item.ID, "registered")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEntitlement))

	reloaded, err := f.repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.MediaVisibilityPublic, reloaded.Visibility)
}

func TestChangeVisibilityWithinSharedBucketAtCap(t *testing.T) {
	f := newFixture(t, enums.PlanTierPremium)
	var last *models.ProfileMedia
	for i := 0; i < 10; i++ {
		last = f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPaid)
	}

	dto, err := f.svc.ChangeVisibility(context.Background(), f.owner, last.ID, "vip")
	require.NoError(t, err)
	assert.Equal(t, enums.MediaVisibilityVip, dto.Visibility)

	extra := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)
	_, err = f.svc.ChangeVisibility(context.Background(), f.owner, extra.ID, "paid")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEntitlement))
}

func TestChangeVisibilityOfForeignMediaIsNotFound(t *testing.T) {
	f := newFixture(t, enums.PlanTierVip)
	item := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)
	stranger := auth.Session{AccountID: uuid.New(), Authenticated: true, EffectiveTier: enums.PlanTierVip}
	other := &models.Profile{UserID: stranger.AccountID, Name: "Otra", City: "Sevilla", Status: enums.ProfileStatusApproved}
	require.NoError(t, f.db.Create(other).Error)

	_, err := f.svc.ChangeVisibility(context.Background(), stranger, item.ID, "registered")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteRemovesBlobThenRow(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)
	item := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)

	require.NoError(t, f.svc.Delete(context.Background(), f.owner, item.ID))
	assert.Zero(t, f.blobs.count())
	_, err := f.repo.FindByID(context.Background(), item.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteKeepsRowWhenBlobDeleteFails(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)
	item := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)
	f.blobs.deleteErr = errors.New("storage down")

	err := f.svc.Delete(context.Background(), f.owner, item.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = f.repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
}

func TestDeleteAsStaffRequiresRole(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)
	item := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)

	err := f.svc.DeleteAsStaff(context.Background(), f.owner, item.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	mod := auth.Session{AccountID: uuid.New(), Authenticated: true, Roles: []enums.AppRole{enums.AppRoleModerator}}
	require.NoError(t, f.svc.DeleteAsStaff(context.Background(), mod, item.ID))
}

func TestReorder(t *testing.T) {
	f := newFixture(t, enums.PlanTierVip)
	a := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)
	b := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)

	require.NoError(t, f.svc.Reorder(context.Background(), f.owner, []uuid.UUID{b.ID, a.ID}))
	rows, err := f.repo.ListByProfile(context.Background(), f.profile.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, b.ID, rows[0].ID)

	err = f.svc.Reorder(context.Background(), f.owner, []uuid.UUID{a.ID, a.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	err = f.svc.Reorder(context.Background(), f.owner, []uuid.UUID{uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGalleryForFreeVisitor(t *testing.T) {
	f := newFixture(t, enums.PlanTierVip)
	f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)
	f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityRegistered)
	vip := f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityVip)
	f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityVip)

	visitor := auth.Session{AccountID: uuid.New(), Authenticated: true, EffectiveTier: enums.PlanTierFree}
	gallery, err := f.svc.Gallery(context.Background(), f.profile.ID, visitor.Viewer())
	require.NoError(t, err)
	require.Len(t, gallery.Items, 2)
	assert.Equal(t, 2, gallery.Hidden.Total)
	assert.Equal(t, 2, gallery.Hidden.ByVisibility[enums.MediaVisibilityVip])
	for _, item := range gallery.Items {
		assert.NotEqual(t, vip.ID, item.ID)
		assert.Empty(t, item.StoragePath)
	}

	anon, err := f.svc.Gallery(context.Background(), f.profile.ID, auth.Anonymous().Viewer())
	require.NoError(t, err)
	require.Len(t, anon.Items, 1)
	assert.Equal(t, 3, anon.Hidden.Total)

	vipViewer := auth.Session{AccountID: uuid.New(), Authenticated: true, EffectiveTier: enums.PlanTierVip}
	full, err := f.svc.Gallery(context.Background(), f.profile.ID, vipViewer.Viewer())
	require.NoError(t, err)
	require.Len(t, full.Items, 4)
	signed := 0
	for _, item := range full.Items {
		if strings.HasPrefix(item.URL, "https://signed.test/") {
			signed++
		}
	}
	assert.Equal(t, 3, signed)
}

func TestListOwnReportsCountsAndLimits(t *testing.T) {
	f := newFixture(t, enums.PlanTierPremium)
	f.owner.Plan = "premium_anunciante"
	f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPublic)
	f.seed(t, enums.MediaTypeImage, enums.MediaVisibilityPaid)

	out, err := f.svc.ListOwn(context.Background(), f.owner)
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, 1, out.Counts.Get(enums.MediaTypeImage, entitlements.BucketPrivate))
	assert.Equal(t, 10, out.Limits[enums.MediaTypeImage][entitlements.BucketPublic])
	assert.Equal(t, "premium_anunciante", out.Plan)
}

func TestUploadWithoutProfile(t *testing.T) {
	f := newFixture(t, enums.PlanTierFree)
	nobody := auth.Session{AccountID: uuid.New(), Authenticated: true}
	_, err := f.svc.Upload(context.Background(), nobody, UploadInput{FileName: "a.png", Data: pngBytes(t, 4, 4)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Upload(context.Background(), auth.Anonymous(), UploadInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
