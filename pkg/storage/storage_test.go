package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestLocalStorageLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir(), "https://cdn.test/media/")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}

	key := "profiles/owner/item/clip.mp3"
	if err := store.Save(ctx, key, bytes.NewBufferString("ID3 audio")); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := store.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected object to exist, got %v %v", ok, err)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "ID3 audio" {
		t.Fatalf("unexpected body %q", body)
	}
	if url := store.URL(key); url != "https://cdn.test/media/profiles/owner/item/clip.mp3" {
		t.Fatalf("unexpected url %s", url)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}

	if _, err = store.Open(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	if err := store.Save(context.Background(), "profiles/../../etc/passwd", bytes.NewBufferString("x")); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
	if url := store.URL("a/b"); url != "" {
		t.Fatalf("expected no url without a base, got %s", url)
	}
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = body
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorageMapsErrorsAndOptions(t *testing.T) {
	ctx := context.Background()
	api := &fakeS3{objects: map[string][]byte{}}
	store := &S3Storage{client: api, bucket: "media", region: "us-west-2"}

	err := store.Save(ctx, "/profiles/a.png", bytes.NewBufferString("png"),
		WithContentType("image/png"), WithContentLength(3))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(api.puts) != 1 {
		t.Fatalf("expected one put, got %d", len(api.puts))
	}
	put := api.puts[0]
	if aws.ToString(put.Key) != "profiles/a.png" {
		t.Fatalf("expected leading slash to be trimmed, got %s", aws.ToString(put.Key))
	}
	if aws.ToString(put.ContentType) != "image/png" || aws.ToInt64(put.ContentLength) != 3 {
		t.Fatalf("put options not applied: %s %d", aws.ToString(put.ContentType), aws.ToInt64(put.ContentLength))
	}

	ok, err := store.Exists(ctx, "profiles/missing.png")
	if err != nil || ok {
		t.Fatalf("expected missing object, got %v %v", ok, err)
	}

	if _, err = store.Open(ctx, "profiles/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if url := store.URL("profiles/a.png"); url != "https://media.s3.us-west-2.amazonaws.com/profiles/a.png" {
		t.Fatalf("unexpected url %s", url)
	}

	if err := store.Delete(ctx, "profiles/a.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ = store.Exists(ctx, "profiles/a.png"); ok {
		t.Fatal("expected object to be deleted")
	}
}
