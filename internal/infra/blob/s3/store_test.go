package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"fibretrace/internal/infra/blob/core"
)

// fakeBackend implements the minimal S3 REST subset the adapter touches, so
// tests run without network access.
type fakeBackend struct {
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func (f *fakeBackend) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		return f.listResponse(req), nil
	}
	switch req.Method {
	case http.MethodHead:
		obj, ok := f.objects[key]
		if !ok {
			return response(404, nil, http.Header{}), nil
		}
		return response(200, nil, http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"ETag":           {`"etag123"`},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := unchunk(body); ok {
			body = dec
		}
		if _, exists := f.objects[key]; !exists {
			f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		}
		return response(200, nil, http.Header{"ETag": {`"etag123"`}}), nil
	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return response(404, nil, http.Header{}), nil
		}
		return response(200, obj.body, http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"ETag":           {`"etag123"`},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return response(204, nil, http.Header{}), nil
	}
	return response(501, nil, http.Header{}), nil
}

// listResponse pages one key at a time to exercise continuation tokens.
func (f *fakeBackend) listResponse(req *http.Request) *http.Response {
	prefix := req.URL.Query().Get("prefix")
	cont := req.URL.Query().Get("continuation-token")
	var keys []string
	for k := range f.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
	switch {
	case cont == "" && len(keys) > 1:
		b.WriteString("<IsTruncated>true</IsTruncated><NextContinuationToken>next</NextContinuationToken>")
		writeContents(&b, keys[0], len(f.objects[keys[0]].body))
	default:
		b.WriteString("<IsTruncated>false</IsTruncated>")
		start := 0
		if cont != "" && len(keys) > 1 {
			start = 1
		}
		for _, k := range keys[start:] {
			writeContents(&b, k, len(f.objects[k].body))
		}
	}
	b.WriteString("</ListBucketResult>")
	return response(200, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func writeContents(b *strings.Builder, key string, size int) {
	fmt.Fprintf(b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", key, size)
}

func response(status int, body []byte, header http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header}
}

// unchunk strips aws-chunked request bodies written by the SDK signer.
func unchunk(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeStore(t *testing.T) (*Store, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{objects: make(map[string]fakeObject)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.BaseEndpoint = aws.String("https://fake.s3.local")
		o.HTTPClient = &http.Client{Transport: backend}
		o.UsePathStyle = true
	})
	store := &Store{client: client, bucket: "test-bucket", presign: awsS3.NewPresignClient(client)}
	return store, backend
}

func TestS3RoundTrip(t *testing.T) {
	store, _ := newFakeStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "reports/manifest.json", bytes.NewReader([]byte(`{"rows":[]}`)), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "reports/manifest.json" || info.ContentType != "application/json" {
		t.Fatalf("unexpected info %+v", info)
	}

	if _, err := store.Put(ctx, "reports/manifest.json", bytes.NewReader([]byte("other")), core.PutOptions{}); err == nil {
		t.Fatalf("put must be create only")
	}

	_, rc, err := store.Get(ctx, "reports/manifest.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"rows":[]}` {
		t.Fatalf("body = %q", body)
	}

	if url, err := store.PresignURL(ctx, "reports/manifest.json", core.SignedURLOptions{}); err != nil || url == "" {
		t.Fatalf("presign: %v %q", err, url)
	}
	if deleted, err := store.Delete(ctx, "reports/manifest.json"); err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
}

func TestS3ListPaginates(t *testing.T) {
	store, _ := newFakeStore(t)
	ctx := context.Background()
	for _, key := range []string{"reports/a.json", "reports/b.json"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("{}")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "reports/a.json" || infos[1].Key != "reports/b.json" {
		t.Fatalf("unexpected listing %+v", infos)
	}
	if empty, err := store.List(ctx, "no-such-prefix/"); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v %+v", err, empty)
	}
}

func TestS3ErrorPaths(t *testing.T) {
	store, _ := newFakeStore(t)
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); err == nil {
		t.Fatalf("head must fail for missing key")
	}
	if _, _, err := store.Get(ctx, "missing"); err == nil {
		t.Fatalf("get must fail for missing key")
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatalf("presign is GET only")
	}
}

func TestS3ConfigValidation(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("bucket is required")
	}
	t.Setenv("FIBRETRACE_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("OpenFromEnv must require a bucket")
	}
}

func TestS3OpenFromEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	t.Setenv("FIBRETRACE_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("FIBRETRACE_BLOB_S3_REGION", "us-east-1")
	store, err := OpenFromEnv(context.Background())
	if err != nil {
		t.Fatalf("OpenFromEnv: %v", err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("driver = %s", store.Driver())
	}
}

func TestFromHeadDefaults(t *testing.T) {
	store, _ := newFakeStore(t)
	info := store.fromHead("k", 10, nil, aws.String(`"etagval"`), map[string]string{"x": "y"}, nil)
	if info.ETag != "etagval" || info.ContentType != "" || info.Size != 10 || info.Metadata["x"] != "y" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestUnchunkHelper(t *testing.T) {
	if _, ok := unchunk([]byte("plain body")); ok {
		t.Fatalf("plain body must not decode")
	}
	if got, ok := unchunk([]byte("5\r\nhello\r\n0\r\n")); !ok || string(got) != "hello" {
		t.Fatalf("chunked body not decoded: %q %v", got, ok)
	}
}
