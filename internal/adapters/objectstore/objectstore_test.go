package objectstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/okian/liftprogress/internal/adapters/objectstore"
	. "github.com/smartystreets/goconvey/convey"
)

func behavesLikeStore(ctx context.Context, s objectstore.Store) {
	Convey("When putting an object", func() {
		So(s.Put(ctx, "raw/openpowerlifting-latest.parquet", []byte("v1")), ShouldBeNil)

		Convey("Then it can be read back", func() {
			b, err := s.Get(ctx, "raw/openpowerlifting-latest.parquet")
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "v1")
		})

		Convey("Then a second put replaces it", func() {
			So(s.Put(ctx, "raw/openpowerlifting-latest.parquet", []byte("v2")), ShouldBeNil)
			b, err := s.Get(ctx, "raw/openpowerlifting-latest.parquet")
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "v2")
		})
	})

	Convey("When getting a missing object", func() {
		_, err := s.Get(ctx, "base/missing.parquet")

		Convey("Then ErrNotFound is returned", func() {
			So(err, ShouldEqual, objectstore.ErrNotFound)
		})
	})

	Convey("When a key escapes the store", func() {
		err := s.Put(ctx, "../outside", []byte("x"))

		Convey("Then ErrInvalidKey is returned", func() {
			So(err, ShouldEqual, objectstore.ErrInvalidKey)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		s := objectstore.NewMemoryStore()
		behavesLikeStore(context.Background(), s)

		Convey("When listing keys", func() {
			So(s.Put(context.Background(), "/base/b.parquet", nil), ShouldBeNil)
			So(s.Put(context.Background(), "base/a.parquet", nil), ShouldBeNil)

			Convey("Then keys are cleaned and sorted", func() {
				So(s.Keys(), ShouldResemble, []string{"base/a.parquet", "base/b.parquet"})
			})
		})
	})
}

func TestFileStore(t *testing.T) {
	Convey("Given a file store", t, func() {
		behavesLikeStore(context.Background(), objectstore.NewFileStore(t.TempDir()))
	})
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	acl     map[string]string
	runID   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[key] = b
		f.acl[key] = r.Header.Get("x-amz-acl")
		f.runID[key] = r.Header.Get("x-amz-meta-run-id")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		b, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		_, _ = w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store(t *testing.T) {
	Convey("Given an S3 store against an S3-compatible endpoint", t, func() {
		fake := &fakeS3{objects: map[string][]byte{}, acl: map[string]string{}, runID: map[string]string{}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		client := s3.New(s3.Options{
			Region:                     "ap-southeast-2",
			BaseEndpoint:               aws.String(srv.URL),
			UsePathStyle:               true,
			Credentials:                aws.AnonymousCredentials{},
			RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
			ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
			RetryMaxAttempts:           1,
		})
		s := objectstore.NewS3StoreWithClient(client, "powerlifting", objectstore.WithPublicRead(true))
		ctx := objectstore.WithRunID(context.Background(), "run-1")

		behavesLikeStore(ctx, s)

		Convey("When uploading", func() {
			So(s.Put(ctx, "base/describe_quality.parquet", []byte("q")), ShouldBeNil)

			Convey("Then the object is public and tagged with the run id", func() {
				So(fake.acl["powerlifting/base/describe_quality.parquet"], ShouldEqual, "public-read")
				So(fake.runID["powerlifting/base/describe_quality.parquet"], ShouldEqual, "run-1")
			})
		})
	})
}
