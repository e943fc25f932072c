package assets

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videotube/internal/model"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjectStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = body
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectStore) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, *in.Key)
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "upload.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestUpload_AvatarIsSquareJPEG(t *testing.T) {
	store := newFakeObjectStore()
	host := NewR2HostWithClient(store, "bucket", "https://cdn.example.com/")

	url, err := host.Upload(context.Background(), writePNG(t, 400, 300), KindAvatar)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://cdn.example.com/avatars/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	key := strings.TrimPrefix(url, "https://cdn.example.com/")
	assert.Equal(t, "image/jpeg", store.types[key])

	img, err := imaging.Decode(strings.NewReader(string(store.objects[key])))
	require.NoError(t, err)
	assert.Equal(t, AvatarSize, img.Bounds().Dx())
	assert.Equal(t, AvatarSize, img.Bounds().Dy())
}

func TestUpload_CoverKeepsSmallWidth(t *testing.T) {
	store := newFakeObjectStore()
	host := NewR2HostWithClient(store, "bucket", "https://cdn.example.com")

	url, err := host.Upload(context.Background(), writePNG(t, 320, 100), KindCover)
	require.NoError(t, err)

	key := strings.TrimPrefix(url, "https://cdn.example.com/")
	img, err := imaging.Decode(strings.NewReader(string(store.objects[key])))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestUpload_RejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some text"), 0o600))

	host := NewR2HostWithClient(newFakeObjectStore(), "bucket", "https://cdn.example.com")
	_, err := host.Upload(context.Background(), path, KindAvatar)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestUpload_StorageFailureIsInternal(t *testing.T) {
	store := newFakeObjectStore()
	store.putErr = errors.New("connection reset")
	host := NewR2HostWithClient(store, "bucket", "https://cdn.example.com")

	_, err := host.Upload(context.Background(), writePNG(t, 10, 10), KindAvatar)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrValidation)
}

func TestDelete_IgnoresForeignURLs(t *testing.T) {
	store := newFakeObjectStore()
	host := NewR2HostWithClient(store, "bucket", "https://cdn.example.com")

	require.NoError(t, host.Delete(context.Background(), "https://elsewhere.example.com/default.png"))
	require.NoError(t, host.Delete(context.Background(), "https://cdn.example.com/avatars/a.jpg"))

	assert.Equal(t, []string{"avatars/a.jpg"}, store.deleted)
}
