package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Fronut/Picture-management-website/internal/domain"
	"github.com/Fronut/Picture-management-website/internal/messaging/payloads"
	"github.com/Fronut/Picture-management-website/internal/search"
)

// --- общие помощники ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pngBytes кодирует картинку заданного размера с заливкой цветом seed,
// чтобы разные seed давали разные байты и разные отпечатки
func pngBytes(t *testing.T, width, height int, seed uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = seed
		img.Pix[i+1] = 100
		img.Pix[i+2] = 200
		img.Pix[i+3] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	return buf.Bytes()
}

// --- фейковое хранилище изображений ---

type fakeImageStorage struct {
	images       map[uuid.UUID]*domain.Image
	saveBatchErr error
	searchPage   *search.PageResult
	searchCalls  int
	lastQuery    *search.Query
}

func newFakeImageStorage() *fakeImageStorage {
	return &fakeImageStorage{images: map[uuid.UUID]*domain.Image{}}
}

func (s *fakeImageStorage) SaveImage(_ context.Context, img *domain.Image) error {
	cp := *img
	s.images[img.ID] = &cp
	return nil
}

func (s *fakeImageStorage) SaveImages(_ context.Context, imgs []*domain.Image) error {
	if s.saveBatchErr != nil {
		return s.saveBatchErr
	}
	for _, img := range imgs {
		cp := *img
		s.images[img.ID] = &cp
	}
	return nil
}

func (s *fakeImageStorage) GetImageByID(_ context.Context, id uuid.UUID) (*domain.Image, error) {
	img, ok := s.images[id]
	if !ok {
		return nil, nil
	}
	cp := *img
	return &cp, nil
}

func (s *fakeImageStorage) ExistsByOwnerAndHash(_ context.Context, ownerID uuid.UUID, contentHash string) (bool, error) {
	for _, img := range s.images {
		if img.UserID == ownerID && img.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeImageStorage) UpdateAfterEdit(_ context.Context, img *domain.Image, newThumbnails []domain.Thumbnail) error {
	stored, ok := s.images[img.ID]
	if !ok {
		return errors.New("image not found")
	}
	stored.Width = img.Width
	stored.Height = img.Height
	stored.FileSize = img.FileSize
	stored.MimeType = img.MimeType
	stored.ContentHash = img.ContentHash
	stored.Thumbnails = newThumbnails
	img.Thumbnails = newThumbnails
	return nil
}

func (s *fakeImageStorage) DeleteImage(_ context.Context, img *domain.Image) error {
	delete(s.images, img.ID)
	return nil
}

func (s *fakeImageStorage) SearchImages(_ context.Context, query *search.Query, page, perPage int) (*search.PageResult, error) {
	s.searchCalls++
	s.lastQuery = query
	if s.searchPage != nil {
		return s.searchPage, nil
	}
	return &search.PageResult{Items: []domain.Image{}, Page: page, PerPage: perPage}, nil
}

func (s *fakeImageStorage) ListRecentByOwner(_ context.Context, ownerID uuid.UUID, limit int) ([]domain.Image, error) {
	var own []domain.Image
	for _, img := range s.images {
		if img.UserID == ownerID {
			own = append(own, *img)
		}
	}
	sort.Slice(own, func(i, j int) bool { return own[i].UploadTime.After(own[j].UploadTime) })
	if len(own) > limit {
		own = own[:limit]
	}
	return own, nil
}

// --- фейковое хранилище тегов ---

type fakeTagStorage struct {
	tags         map[uuid.UUID]*domain.Tag
	assocs       map[uuid.UUID][]domain.ImageTag
	popularLimit int
}

func newFakeTagStorage() *fakeTagStorage {
	return &fakeTagStorage{
		tags:   map[uuid.UUID]*domain.Tag{},
		assocs: map[uuid.UUID][]domain.ImageTag{},
	}
}

func (s *fakeTagStorage) FindTagByName(_ context.Context, name string) (*domain.Tag, error) {
	for _, tag := range s.tags {
		if strings.EqualFold(tag.TagName, name) {
			cp := *tag
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeTagStorage) CreateTag(_ context.Context, tag *domain.Tag) error {
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	tag.CreatedTime = time.Now()
	cp := *tag
	s.tags[tag.ID] = &cp
	return nil
}

func (s *fakeTagStorage) ListAssociations(_ context.Context, imageID uuid.UUID) ([]domain.ImageTag, error) {
	return append([]domain.ImageTag(nil), s.assocs[imageID]...), nil
}

func (s *fakeTagStorage) AssociationExists(_ context.Context, imageID, tagID uuid.UUID) (bool, error) {
	for _, assoc := range s.assocs[imageID] {
		if assoc.TagID == tagID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeTagStorage) CreateAssociation(_ context.Context, assoc *domain.ImageTag) error {
	assoc.CreatedTime = time.Now()
	s.assocs[assoc.ImageID] = append(s.assocs[assoc.ImageID], *assoc)
	if tag, ok := s.tags[assoc.TagID]; ok {
		tag.UsageCount++
	}
	return nil
}

func (s *fakeTagStorage) DeleteAssociation(_ context.Context, imageID, tagID uuid.UUID) error {
	assocs := s.assocs[imageID]
	for i, assoc := range assocs {
		if assoc.TagID == tagID {
			s.assocs[imageID] = append(assocs[:i], assocs[i+1:]...)
			if tag, ok := s.tags[tagID]; ok && tag.UsageCount > 0 {
				tag.UsageCount--
			}
			return nil
		}
	}
	return &domain.NotFoundError{Resource: "тег изображения"}
}

func (s *fakeTagStorage) ListPopularTags(_ context.Context, limit int) ([]domain.Tag, error) {
	s.popularLimit = limit
	all := make([]domain.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		all = append(all, *tag)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].UsageCount != all[j].UsageCount {
			return all[i].UsageCount > all[j].UsageCount
		}
		return all[i].CreatedTime.After(all[j].CreatedTime)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *fakeTagStorage) tagByName(name string) *domain.Tag {
	for _, tag := range s.tags {
		if strings.EqualFold(tag.TagName, name) {
			return tag
		}
	}
	return nil
}

// --- фейковое хранилище пользователей ---

type fakeUserStorage struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserStorage(ids ...uuid.UUID) *fakeUserStorage {
	s := &fakeUserStorage{users: map[uuid.UUID]*domain.User{}}
	for _, id := range ids {
		s.users[id] = &domain.User{ID: id, Username: "user-" + id.String()[:8]}
	}
	return s
}

func (s *fakeUserStorage) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (s *fakeUserStorage) GetOrCreateUser(_ context.Context, username string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	user := &domain.User{ID: uuid.New(), Username: username}
	s.users[user.ID] = user
	return user, nil
}

// --- фейковое файловое хранилище ---

type fakeFileStorage struct {
	objects     map[string][]byte
	failUploads map[string]bool
}

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{
		objects:     map[string][]byte{},
		failUploads: map[string]bool{},
	}
}

func (f *fakeFileStorage) UploadFile(_ context.Context, key string, reader io.Reader, _ string) (string, error) {
	if f.failUploads[key] {
		return "", fmt.Errorf("upload of %s failed", key)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return "http://storage/" + key, nil
}

func (f *fakeFileStorage) GetFile(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStorage) DeleteFile(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

// --- фейковый экстрактор метаданных ---

type fakeMetadataExtractor struct {
	meta *domain.ExifData
}

func (f *fakeMetadataExtractor) Extract(_ []byte) *domain.ExifData {
	if f.meta == nil {
		return nil
	}
	cp := *f.meta
	return &cp
}

// --- фейковый кэш поиска ---

type fakeSearchCache struct {
	pages     map[string]*search.PageResult
	evictions int
	sets      int
}

func newFakeSearchCache() *fakeSearchCache {
	return &fakeSearchCache{pages: map[string]*search.PageResult{}}
}

func (c *fakeSearchCache) key(requester *uuid.UUID, criteria search.Criteria) string {
	who := "anon"
	if requester != nil {
		who = requester.String()
	}
	return fmt.Sprintf("%s|%+v", who, criteria)
}

func (c *fakeSearchCache) GetSearchPage(_ context.Context, requester *uuid.UUID, criteria search.Criteria) (*search.PageResult, bool) {
	page, ok := c.pages[c.key(requester, criteria)]
	return page, ok
}

func (c *fakeSearchCache) SetSearchPage(_ context.Context, requester *uuid.UUID, criteria search.Criteria, page *search.PageResult) {
	c.sets++
	c.pages[c.key(requester, criteria)] = page
}

func (c *fakeSearchCache) EvictAll(_ context.Context) {
	c.evictions++
	c.pages = map[string]*search.PageResult{}
}

// --- фейковый издатель событий ---

type fakeEventPublisher struct {
	events []payloads.ImageEventPayload
}

func (p *fakeEventPublisher) PublishImageEvent(_ context.Context, payload payloads.ImageEventPayload) error {
	p.events = append(p.events, payload)
	return nil
}
