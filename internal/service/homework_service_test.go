package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/internal/staging"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
	"github.com/noah-isme/homework-board/pkg/storage"
)

type stubHomeworkRepo struct {
	records   map[string]*models.Homework
	created   []*models.Homework
	updated   []*models.Homework
	deleted   []string
	listCalls int
	writeErr  error
}

func newStubHomeworkRepo(records ...models.Homework) *stubHomeworkRepo {
	r := &stubHomeworkRepo{records: map[string]*models.Homework{}}
	for i := range records {
		rec := records[i]
		r.records[rec.ID] = &rec
	}
	return r
}

func (r *stubHomeworkRepo) List(context.Context) ([]models.Homework, error) {
	r.listCalls++
	out := make([]models.Homework, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (r *stubHomeworkRepo) FindByID(_ context.Context, id string) (*models.Homework, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *rec
	return &cp, nil
}

func (r *stubHomeworkRepo) Create(_ context.Context, h *models.Homework) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	if h.ID == "" {
		h.ID = fmt.Sprintf("hw-%d", len(r.created)+1)
	}
	h.CreatedAt = time.Now()
	r.created = append(r.created, h)
	r.records[h.ID] = h
	return nil
}

func (r *stubHomeworkRepo) Update(_ context.Context, h *models.Homework) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	if _, ok := r.records[h.ID]; !ok {
		return sql.ErrNoRows
	}
	r.updated = append(r.updated, h)
	r.records[h.ID] = h
	return nil
}

func (r *stubHomeworkRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.records, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubHomeworkRepo) writes() int { return len(r.created) + len(r.updated) }

type stubUploader struct {
	calls  []storage.Object
	failAt int
}

func (u *stubUploader) Put(_ context.Context, obj storage.Object) (string, error) {
	u.calls = append(u.calls, obj)
	if u.failAt > 0 && len(u.calls) == u.failAt {
		return "", errors.New("upload endpoint unavailable")
	}
	return "https://cdn.test/" + obj.Name, nil
}

type countingPublisher struct{ n int }

func (p *countingPublisher) Publish(context.Context) error {
	p.n++
	return nil
}

func newHomeworkService(repo *stubHomeworkRepo, up *stubUploader, pub *countingPublisher) *HomeworkService {
	var publisher ChangePublisher
	if pub != nil {
		publisher = pub
	}
	return NewHomeworkService(repo, up, publisher, nil, nil, time.Minute, nil)
}

func pending(names ...string) []staging.File {
	out := make([]staging.File, 0, len(names))
	for _, n := range names {
		out = append(out, staging.File{Name: n, ContentType: "image/jpeg", Data: []byte(n)})
	}
	return out
}

func TestSubmitRejectsBlankDescriptionWithoutNetwork(t *testing.T) {
	for _, desc := range []string{"", "   ", "\n\t "} {
		repo := newStubHomeworkRepo()
		up := &stubUploader{}
		svc := newHomeworkService(repo, up, &countingPublisher{})

		images := staging.New()
		images.Append(pending("c.jpg")...)
		_, report, err := svc.Submit(context.Background(), SubmitInput{Description: desc, Images: images})

		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrValidation))
		assert.Empty(t, up.calls)
		assert.Zero(t, repo.writes())
		assert.Empty(t, report.Uploaded)
	}
}

func TestSubmitMergesExistingBeforeUploaded(t *testing.T) {
	repo := newStubHomeworkRepo(models.Homework{ID: "h1", Date: "2024-05-01", CreatedAt: time.Now()})
	up := &stubUploader{}
	pub := &countingPublisher{}
	svc := newHomeworkService(repo, up, pub)

	images := staging.New("A", "B")
	images.Append(pending("C", "D")...)

	hw, report, err := svc.Submit(context.Background(), SubmitInput{
		ID: "h1", Subject: "Art", Description: " Paint ", Images: images,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "https://cdn.test/C", "https://cdn.test/D"}, []string(hw.Images))
	assert.Equal(t, []string{"https://cdn.test/C", "https://cdn.test/D"}, report.Uploaded)
	assert.False(t, report.Failed())
	assert.Equal(t, "Paint", hw.Description)
	assert.Equal(t, "2024-05-01", hw.Date)
	assert.Equal(t, "bg-green-400", hw.Color)
	assert.Len(t, repo.updated, 1)
	assert.Equal(t, 1, pub.n)
}

func TestSubmitUploadsSequentiallyInListOrder(t *testing.T) {
	repo := newStubHomeworkRepo()
	up := &stubUploader{}
	svc := newHomeworkService(repo, up, nil)

	images := staging.New()
	images.Append(pending("first", "second", "third")...)
	require.True(t, images.Move(2, 1))

	_, _, err := svc.Submit(context.Background(), SubmitInput{Description: "x", Images: images})
	require.NoError(t, err)
	require.Len(t, up.calls, 3)
	assert.Equal(t, "first", up.calls[0].Name)
	assert.Equal(t, "third", up.calls[1].Name)
	assert.Equal(t, "second", up.calls[2].Name)
}

func TestSubmitAbortsOnSecondUploadFailure(t *testing.T) {
	repo := newStubHomeworkRepo()
	up := &stubUploader{failAt: 2}
	pub := &countingPublisher{}
	svc := newHomeworkService(repo, up, pub)

	images := staging.New()
	images.Append(pending("one", "two", "three")...)

	hw, report, err := svc.Submit(context.Background(), SubmitInput{Description: "x", Images: images})
	require.Error(t, err)
	assert.Nil(t, hw)
	assert.True(t, errors.Is(err, appErrors.ErrUpload))
	assert.Len(t, up.calls, 2, "remaining uploads are skipped")
	assert.Equal(t, []string{"https://cdn.test/one"}, report.Uploaded)
	assert.True(t, report.Failed())
	assert.Equal(t, 1, report.FailedIndex)
	assert.Equal(t, "two", report.FailedName)
	assert.Zero(t, repo.writes())
	assert.Zero(t, pub.n)
	assert.Equal(t, 3, images.Len(), "staged images are left intact")
}

func TestSubmitCreateDefaultsDateAndSubject(t *testing.T) {
	repo := newStubHomeworkRepo()
	svc := newHomeworkService(repo, &stubUploader{}, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) }

	hw, _, err := svc.Submit(context.Background(), SubmitInput{Subject: "History", Description: "Read"})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", hw.Date)
	assert.Equal(t, "Math", hw.Subject)
	assert.Equal(t, "bg-orange-400", hw.Color)
	assert.NotNil(t, hw.Images)
	assert.Len(t, repo.created, 1)
}

func TestSubmitUpdateMissingRecord(t *testing.T) {
	repo := newStubHomeworkRepo()
	up := &stubUploader{}
	svc := newHomeworkService(repo, up, nil)

	images := staging.New()
	images.Append(pending("a")...)
	_, _, err := svc.Submit(context.Background(), SubmitInput{ID: "missing", Description: "x", Images: images})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, up.calls)
}

func TestSubmitWriteFailure(t *testing.T) {
	repo := newStubHomeworkRepo()
	repo.writeErr = errors.New("connection reset")
	pub := &countingPublisher{}
	svc := newHomeworkService(repo, &stubUploader{}, pub)

	_, _, err := svc.Submit(context.Background(), SubmitInput{Description: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrWrite))
	assert.Zero(t, pub.n)
}

func TestGetAndDelete(t *testing.T) {
	repo := newStubHomeworkRepo(models.Homework{ID: "h1"})
	pub := &countingPublisher{}
	svc := newHomeworkService(repo, &stubUploader{}, pub)

	hw, err := svc.Get(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "h1", hw.ID)

	_, err = svc.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.Delete(context.Background(), "h1"))
	assert.Equal(t, 1, pub.n)
	assert.True(t, errors.Is(svc.Delete(context.Background(), "h1"), appErrors.ErrNotFound))
}

type memoryCacheRepo struct {
	data    map[string][]models.Homework
	deleted []string
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]models.Homework)) = v
	return nil
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.data[key] = value.([]models.Homework)
	return nil
}

func (m *memoryCacheRepo) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func TestListUsesCacheAndInvalidatesOnWrite(t *testing.T) {
	repo := newStubHomeworkRepo(models.Homework{ID: "h1"})
	cacheRepo := &memoryCacheRepo{data: map[string][]models.Homework{}}
	cache := NewCacheService(cacheRepo, NewMetricsService(), time.Minute, nil, true)
	svc := NewHomeworkService(repo, &stubUploader{}, nil, cache, nil, time.Minute, nil)

	_, err := svc.List(context.Background())
	require.NoError(t, err)
	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	_, _, err = svc.Submit(context.Background(), SubmitInput{Description: "new"})
	require.NoError(t, err)
	assert.Equal(t, []string{FeedCacheKey}, cacheRepo.deleted)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, repo.listCalls)
}
