package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrUnexpectedStatus is returned when the HTTP server answers with a status the store cannot use.
var ErrUnexpectedStatus = errors.New("unexpected http status")

// HTTPStore implements Store on top of a static file server.
// Reads are issued as HTTP Range requests, so only the requested bytes travel.
type HTTPStore struct {
	baseURL *url.URL
	client  *http.Client
}

// HTTPOption defines a functional option for configuring an HTTPStore.
type HTTPOption func(*HTTPStore) error

// WithHTTPClient sets the client used for all requests. The default is http.DefaultClient.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPStore) error {
		if client == nil {
			return errors.New("nil http client")
		}
		s.client = client

		return nil
	}
}

// NewHTTPStore creates a new HTTPStore. Blob names are resolved relative to baseURL.
func NewHTTPStore(baseURL string, options ...HTTPOption) (*HTTPStore, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	s := &HTTPStore{baseURL: u, client: http.DefaultClient}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Open resolves the size of the named blob with a HEAD request.
func (s *HTTPStore) Open(ctx context.Context, name string) (Blob, error) {
	target := s.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(name, "/")}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()

	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	size := resp.ContentLength
	if size < 0 {
		if size, err = s.probeSize(ctx, target); err != nil {
			return nil, err
		}
	}

	return &httpBlob{client: s.client, url: target, size: size}, nil
}

// probeSize asks for the first byte and reads the total length from Content-Range.
// Used when HEAD responses carry no Content-Length.
func (s *HTTPStore) probeSize(ctx context.Context, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, http.StatusPartialContent); err != nil {
		return 0, err
	}

	contentRange := resp.Header.Get("Content-Range")
	slash := strings.LastIndexByte(contentRange, '/')
	if slash < 0 {
		return 0, fmt.Errorf("%w: missing Content-Range total in %q", ErrUnexpectedStatus, contentRange)
	}

	return strconv.ParseInt(contentRange[slash+1:], 10, 64)
}

type httpBlob struct {
	client *http.Client
	url    string
	size   int64
}

func (b *httpBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if off >= b.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// the server ignored the Range header and sends the whole file
		if _, err := io.CopyN(io.Discard, resp.Body, off); err != nil {
			return 0, err
		}
	default:
		return 0, checkStatus(resp, http.StatusPartialContent)
	}

	want := int(end - off + 1)

	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, err
	}

	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

func (b *httpBlob) Size() int64 {
	return b.size
}

func (b *httpBlob) Close() error {
	return nil
}

func checkStatus(resp *http.Response, want int) error {
	switch {
	case resp.StatusCode == want:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %s %s", ErrUnexpectedStatus, resp.Request.URL, resp.Status)
	}
}
