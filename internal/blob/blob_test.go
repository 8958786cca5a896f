package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birthapp/birthapp-go/internal/apperr"
	"github.com/birthapp/birthapp-go/internal/kv"
	"github.com/birthapp/birthapp-go/internal/model"
)

var sample = []model.Record{
	{ID: "a", FirstName: "Ada", LastName: "Lovelace", Day: 10, Month: 12, Year: 1915},
	{ID: "b", FirstName: "Alan", LastName: "Turing", Day: 23, Month: 6, Year: 1912},
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, sample))

	got, found, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sample, got)

	require.NoError(t, s.Set(ctx, nil))
	got, found, err = s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory(nil))
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory(sample)

	got, _, err := m.Get(context.Background())
	require.NoError(t, err)
	got[0].FirstName = "changed"

	again, _, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", again[0].FirstName)
}

func TestMemoryFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is empty", func(t *testing.T) {
		m, err := NewMemoryFromFile(filepath.Join(dir, "nope.json"))
		require.NoError(t, err)
		got, found, err := m.Get(context.Background())
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, got)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "seed.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"first_name":"Ada","last_name":"Lovelace","day":"10","month":12,"year":1915}]`), 0o600))

		m, err := NewMemoryFromFile(path)
		require.NoError(t, err)
		got, _, err := m.Get(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 10, got[0].Day)
	})

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "seed.csv")
		require.NoError(t, os.WriteFile(path, []byte("first_name,last_name,day,month,year\nAlan,Turing,23,6,1912\n"), 0o600))

		m, err := NewMemoryFromFile(path)
		require.NoError(t, err)
		got, _, err := m.Get(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Turing", got[0].LastName)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"oops":true}`), 0o600))

		_, err := NewMemoryFromFile(path)
		assert.Error(t, err)
	})
}

func TestKVStore(t *testing.T) {
	mem := kv.NewMemory()
	s := NewKV(mem)
	assert.Equal(t, "kv:memory", s.Kind())

	_, found, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, found)

	exerciseStore(t, s)

	raw, ok, err := mem.Get(context.Background(), RecordsKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", raw)
}

func TestKVStoreCorruptDocument(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(context.Background(), RecordsKey, "not json"))

	_, _, err := NewKV(mem).Get(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

type fakeVercel struct {
	mu      sync.Mutex
	token   string
	doc     []byte
	headers http.Header
	status  int
}

func (f *fakeVercel) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, `{"error":"boom"}`)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/birthdays.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		switch r.Method {
		case http.MethodGet:
			if f.doc == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write(f.doc)
		case http.MethodPut:
			f.headers = r.Header.Clone()
			body, _ := io.ReadAll(r.Body)
			f.doc = body
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"pathname":"birthdays.json"}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newVercelStore(t *testing.T, f *fakeVercel) *Vercel {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	v, err := NewVercel(VercelConfig{BaseURL: srv.URL + "/", APIURL: srv.URL, Token: f.token, Key: "birthdays.json"})
	require.NoError(t, err)
	return v
}

func TestVercelStore(t *testing.T) {
	f := &fakeVercel{token: "rw-token"}
	v := newVercelStore(t, f)

	_, found, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, found)

	exerciseStore(t, v)

	assert.Equal(t, "0", f.headers.Get("x-add-random-suffix"))
	assert.Equal(t, "1", f.headers.Get("x-allow-overwrite"))
	assert.Equal(t, "application/json", f.headers.Get("x-content-type"))
}

func TestVercelUpstreamFailure(t *testing.T) {
	f := &fakeVercel{token: "rw-token", status: http.StatusForbidden}
	v := newVercelStore(t, f)

	_, _, err := v.Get(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	err = v.Set(context.Background(), sample)
	var up *apperr.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, http.StatusForbidden, up.Status)
}

func TestVercelNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v, err := NewVercel(VercelConfig{BaseURL: url, APIURL: url, Token: "t", Key: "birthdays.json"})
	require.NoError(t, err)

	_, _, err = v.Get(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

func TestVercelNotConfigured(t *testing.T) {
	_, err := NewVercel(VercelConfig{Token: "t", Key: "k"})
	assert.ErrorIs(t, err, apperr.ErrNotConfigured)
}

type fakeS3 struct {
	objects map[string][]byte
	failGet error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	f := &fakeS3{objects: map[string][]byte{}}
	s := newS3WithClient(f, "bucket", "birthdays.json")

	_, found, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, found)

	exerciseStore(t, s)
	assert.Contains(t, f.objects, "bucket/birthdays.json")
}

func TestS3ErrorClassification(t *testing.T) {
	t.Run("not found code", func(t *testing.T) {
		f := &fakeS3{failGet: &smithy.GenericAPIError{Code: "NotFound", Message: "gone"}}
		_, found, err := newS3WithClient(f, "b", "k").Get(context.Background())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("access denied", func(t *testing.T) {
		f := &fakeS3{failGet: &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}}
		_, _, err := newS3WithClient(f, "b", "k").Get(context.Background())
		assert.ErrorIs(t, err, apperr.ErrUpstream)
	})

	t.Run("transport", func(t *testing.T) {
		f := &fakeS3{failGet: errors.New("dial tcp: connection refused")}
		_, _, err := newS3WithClient(f, "b", "k").Get(context.Background())
		assert.ErrorIs(t, err, apperr.ErrNetwork)
	})
}

func TestNewS3NotConfigured(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{Bucket: "b"})
	assert.ErrorIs(t, err, apperr.ErrNotConfigured)
}
