package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retraction-check/config"
)

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	modified  map[string]time.Time
	failOn    string
	deleted   []string
	listCalls int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, modified: map[string]time.Time{}}
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.modified[aws.ToString(in.Key)] = time.Now()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if !strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key), LastModified: aws.Time(f.modified[key])})
	}
	return out, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	if key == f.failOn {
		return nil, errors.New("access denied")
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return &s3.DeleteObjectOutput{}, nil
}

func testConfig(keep int) *config.Config {
	return &config.Config{
		ExportS3URL:    "https://s3.example.test/",
		ExportS3Bucket: "archive",
		ExportS3Prefix: "exports/",
		ExportKeep:     keep,
	}
}

func seed(f *fakeObjects, n int) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		key := fmt.Sprintf("exports/run-%02d.csv", i)
		f.objects[key] = []byte("x")
		f.modified[key] = base.Add(time.Duration(i) * time.Hour)
	}
	f.objects["other/keep.csv"] = []byte("x")
	f.modified["other/keep.csv"] = base
}

func TestUpload(t *testing.T) {
	f := newFakeObjects()
	a := NewExportArchive(f, testConfig(5), nil)

	link, err := a.Upload(context.Background(), "run.csv", []byte("match_type\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.test/archive/exports/run.csv", link)
	assert.Equal(t, []byte("match_type\n"), f.objects["exports/run.csv"])
}

func TestRotateKeepsNewest(t *testing.T) {
	f := newFakeObjects()
	seed(f, 5)
	a := NewExportArchive(f, testConfig(2), nil)

	deleted, err := a.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.ElementsMatch(t, []string{"exports/run-00.csv", "exports/run-01.csv", "exports/run-02.csv"}, f.deleted)
	assert.Contains(t, f.objects, "exports/run-04.csv")
	assert.Contains(t, f.objects, "exports/run-03.csv")
	assert.Contains(t, f.objects, "other/keep.csv", "objects outside the prefix are left alone")
}

func TestRotateNothingToDo(t *testing.T) {
	f := newFakeObjects()
	seed(f, 2)

	deleted, err := NewExportArchive(f, testConfig(2), nil).Rotate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = NewExportArchive(f, testConfig(0), nil).Rotate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Equal(t, 1, f.listCalls, "rotation disabled does not list")
}

func TestRotateContinuesAfterDeleteFailure(t *testing.T) {
	f := newFakeObjects()
	seed(f, 4)
	f.failOn = "exports/run-00.csv"

	deleted, err := NewExportArchive(f, testConfig(1), nil).Rotate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-00.csv")
	assert.Equal(t, 2, deleted)
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 5, 1, 14, 30, 5, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "20240501T123005Z_run-1.csv", ObjectName("run-1", at))
}

func TestOpenExportArchive(t *testing.T) {
	_, err := OpenExportArchive(context.Background(), &config.Config{ExportS3URL: "https://s3.example.test"}, nil)
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	cfg := testConfig(3)
	cfg.ExportS3Region = "eu-central-1"
	cfg.ExportS3Key = "key"
	cfg.ExportS3Secret = "secret"
	a, err := OpenExportArchive(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.test", a.baseURL)
	assert.Equal(t, "archive", a.bucket)
	assert.Equal(t, 3, a.keep)
}
