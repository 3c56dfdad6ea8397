package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homework-board/internal/dto"
	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/internal/staging"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/storage"
)

const teacherID = "teacher-1"

func newDraftFixture(t *testing.T, records ...models.Homework) (*DraftService, *stubHomeworkRepo, *stubUploader) {
	t.Helper()
	repo := newStubHomeworkRepo(records...)
	up := &stubUploader{}
	homeworks := newHomeworkService(repo, up, nil)
	signer := storage.NewPreviewSigner("secret", time.Hour)
	svc := NewDraftService(homeworks, signer, nil, nil, DraftConfig{TTL: time.Hour, PreviewPath: "/api/v1/teacher/drafts/preview/"})
	return svc, repo, up
}

func strPtr(s string) *string { return &s }

func TestDraftOpenNewDefaults(t *testing.T) {
	svc, _, _ := newDraftFixture(t)
	svc.now = func() time.Time { return time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC) }

	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", view.Date)
	assert.Equal(t, "Math", view.Subject)
	assert.Equal(t, "bg-orange-400", view.Color)
	assert.Empty(t, view.Images)
	assert.Empty(t, view.HomeworkID)
}

func TestDraftOpenExistingSeedsImages(t *testing.T) {
	svc, _, _ := newDraftFixture(t, models.Homework{
		ID: "h1", Date: "2024-05-01", Subject: "Unknown", Description: "Read", Images: []string{"A", "B"},
	})

	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{HomeworkID: "h1"})
	require.NoError(t, err)
	assert.Equal(t, "h1", view.HomeworkID)
	assert.Equal(t, "Math", view.Subject, "unknown subjects fall back to the first one")
	require.Len(t, view.Images, 2)
	assert.Equal(t, "existing", view.Images[0].Kind)
	assert.Equal(t, "B", view.Images[1].URL)

	_, err = svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{HomeworkID: "missing"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDraftEditingOperations(t *testing.T) {
	svc, _, _ := newDraftFixture(t, models.Homework{ID: "h1", Description: "x", Images: []string{"A", "B"}})
	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{HomeworkID: "h1"})
	require.NoError(t, err)
	id := view.ID

	view, err = svc.AddImages(teacherID, id, pending("C", "D"))
	require.NoError(t, err)
	require.Len(t, view.Images, 4)
	assert.Equal(t, "pending", view.Images[2].Kind)
	assert.NotEmpty(t, view.Images[2].PreviewURL)

	view, err = svc.MoveImage(teacherID, id, dto.MoveImageRequest{From: 1, To: 2})
	require.NoError(t, err)
	assert.Equal(t, "B", view.Images[1].URL, "existing and pending images do not swap")
	assert.Equal(t, "C", view.Images[2].Name)

	view, err = svc.MoveImage(teacherID, id, dto.MoveImageRequest{From: 3, To: 2})
	require.NoError(t, err)
	assert.Equal(t, "D", view.Images[2].Name)
	assert.Equal(t, "C", view.Images[3].Name)

	view, err = svc.MoveImage(teacherID, id, dto.MoveImageRequest{From: 3, To: 4})
	require.NoError(t, err)
	assert.Equal(t, "C", view.Images[3].Name)

	view, err = svc.RemoveExistingImage(teacherID, id, "A")
	require.NoError(t, err)
	assert.Len(t, view.Images, 3)

	view, err = svc.RemovePendingImage(teacherID, id, 1)
	require.NoError(t, err)
	require.Len(t, view.Images, 2)
	assert.Equal(t, "B", view.Images[0].URL)
	assert.Equal(t, "D", view.Images[1].Name)

	_, err = svc.RemovePendingImage(teacherID, id, 5)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	view, err = svc.Update(teacherID, id, dto.UpdateDraftRequest{Subject: strPtr("English"), Description: strPtr("New text")})
	require.NoError(t, err)
	assert.Equal(t, "bg-blue-400", view.Color)
	assert.Equal(t, "New text", view.Description)

	_, err = svc.Update(teacherID, id, dto.UpdateDraftRequest{Date: strPtr("03/06/2024")})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDraftIsScopedToOwner(t *testing.T) {
	svc, _, _ := newDraftFixture(t)
	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{})
	require.NoError(t, err)

	_, err = svc.Get("someone-else", view.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDraftSubmitCreateClearsForm(t *testing.T) {
	svc, repo, up := newDraftFixture(t)
	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{})
	require.NoError(t, err)
	id := view.ID

	_, err = svc.Update(teacherID, id, dto.UpdateDraftRequest{Date: strPtr("2024-06-10"), Subject: strPtr("Art"), Description: strPtr("Paint")})
	require.NoError(t, err)
	_, err = svc.AddImages(teacherID, id, pending("p1"))
	require.NoError(t, err)

	res, report, err := svc.Submit(context.Background(), teacherID, id)
	require.NoError(t, err)
	assert.Len(t, up.calls, 1)
	assert.Len(t, report.Uploaded, 1)
	assert.Len(t, repo.created, 1)
	assert.Empty(t, res.Redirect)
	require.NotNil(t, res.Draft)
	assert.Equal(t, "2024-06-10", res.Draft.Date)
	assert.Equal(t, "Art", res.Draft.Subject)
	assert.Empty(t, res.Draft.Description)
	assert.Empty(t, res.Draft.Images)
}

func TestDraftSubmitEditDiscardsAndRedirects(t *testing.T) {
	svc, repo, _ := newDraftFixture(t, models.Homework{ID: "h1", Description: "x"})
	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{HomeworkID: "h1"})
	require.NoError(t, err)

	res, _, err := svc.Submit(context.Background(), teacherID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, DashboardPath, res.Redirect)
	assert.Len(t, repo.updated, 1)

	_, err = svc.Get(teacherID, view.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDraftSubmitSavesPresentedOrder(t *testing.T) {
	svc, repo, _ := newDraftFixture(t, models.Homework{ID: "h1", Description: "x", Images: []string{"A", "B"}})
	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{HomeworkID: "h1"})
	require.NoError(t, err)
	id := view.ID

	_, err = svc.AddImages(teacherID, id, pending("P", "Q"))
	require.NoError(t, err)
	_, err = svc.MoveImage(teacherID, id, dto.MoveImageRequest{From: 2, To: 1})
	require.NoError(t, err)
	_, err = svc.MoveImage(teacherID, id, dto.MoveImageRequest{From: 1, To: 0})
	require.NoError(t, err)
	view, err = svc.MoveImage(teacherID, id, dto.MoveImageRequest{From: 3, To: 2})
	require.NoError(t, err)

	presented := make([]string, 0, len(view.Images))
	for _, img := range view.Images {
		if img.Kind == "existing" {
			presented = append(presented, img.URL)
		} else {
			presented = append(presented, "https://cdn.test/"+img.Name)
		}
	}

	_, _, err = svc.Submit(context.Background(), teacherID, id)
	require.NoError(t, err)
	require.Len(t, repo.updated, 1)
	assert.Equal(t, []string{"B", "A", "https://cdn.test/Q", "https://cdn.test/P"}, presented)
	assert.Equal(t, presented, []string(repo.updated[0].Images))
}

func TestDraftSubmitFailureKeepsState(t *testing.T) {
	svc, repo, up := newDraftFixture(t)
	up.failAt = 1
	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{})
	require.NoError(t, err)
	_, err = svc.Update(teacherID, view.ID, dto.UpdateDraftRequest{Description: strPtr("Keep me")})
	require.NoError(t, err)
	_, err = svc.AddImages(teacherID, view.ID, pending("p1", "p2"))
	require.NoError(t, err)

	_, report, err := svc.Submit(context.Background(), teacherID, view.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpload))
	assert.Equal(t, 0, report.FailedIndex)
	assert.Zero(t, repo.writes())

	after, err := svc.Get(teacherID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep me", after.Description)
	assert.Len(t, after.Images, 2)
}

func TestDraftPreviewResolvesPendingFile(t *testing.T) {
	svc, _, _ := newDraftFixture(t)
	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{})
	require.NoError(t, err)
	view, err = svc.AddImages(teacherID, view.ID, []staging.File{{Name: "a.png", ContentType: "image/png", Data: []byte("png")}})
	require.NoError(t, err)

	url := view.Images[0].PreviewURL
	require.Contains(t, url, "/api/v1/teacher/drafts/preview/")
	token := url[len("/api/v1/teacher/drafts/preview/"):]

	file, err := svc.Preview(token)
	require.NoError(t, err)
	assert.Equal(t, "a.png", file.Name)

	_, err = svc.Preview("bogus.token.value.sig")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Discard(teacherID, view.ID))
	_, err = svc.Preview(token)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDraftExpiry(t *testing.T) {
	svc, _, _ := newDraftFixture(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	view, err := svc.Open(context.Background(), teacherID, dto.OpenDraftRequest{})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, svc.Sweep())
	_, err = svc.Get(teacherID, view.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
