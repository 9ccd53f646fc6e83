// Package httpx is the plain HTTP transport: file sets are uploaded with a
// multipart POST and fetched back with a GET.
//
// Upload order is preserved as multipart part order, and a fetched
// multipart response is read back in part order. A non-multipart response
// is treated as a single file named after the URL path.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/amplius/ampl/fileset"
)

// Sentinel errors for the HTTP transport.
var (
	// ErrInvalidURI is returned for URIs this transport cannot parse.
	ErrInvalidURI = errors.New("httpx: invalid uri")

	// ErrRemoteStatus is returned when the remote answers with a
	// non-2xx status.
	ErrRemoteStatus = errors.New("httpx: unexpected status")
)

// fieldName is the multipart form field files are uploaded under.
const fieldName = "file"

// Transport distributes file sets to a fixed upload endpoint.
type Transport struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(t *Transport) {
		t.client = client
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates an HTTP transport posting to the given endpoint URL.
func New(endpoint string, opts ...Option) *Transport {
	t := &Transport{
		endpoint: endpoint,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	return t
}

// log returns the logger, falling back to a discard logger if nil.
func (t *Transport) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.logger
}

// Name implements transfer.Transport.
func (t *Transport) Name() string { return "http" }

// Handles implements transfer.Transport. The git transport's git+https
// URIs do not reach here; they carry the git+ prefix.
func (t *Transport) Handles(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// Distribute uploads all files in one multipart POST. When the endpoint
// answers with a body containing a URL, that URL is the location the files
// can be fetched from; otherwise the endpoint itself is.
func (t *Transport) Distribute(ctx context.Context, files fileset.FileSet) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := writer.CreateFormFile(fieldName, f.Name)
		if err != nil {
			return "", fmt.Errorf("httpx: build request: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return "", fmt.Errorf("httpx: build request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("httpx: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("httpx: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("httpx: post %s: %w", t.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s from %s", ErrRemoteStatus, resp.Status, t.endpoint)
	}

	location := t.endpoint
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		if loc := strings.TrimSpace(string(respBody)); isHTTPURL(loc) {
			location = loc
		}
	}
	t.log().Debug("uploaded file set", "location", location, "files", len(files))
	return location, nil
}

// Fetch retrieves files from an HTTP URL. A multipart response yields one
// file per part in part order; anything else is a single file named after
// the final URL path element.
func (t *Transport) Fetch(ctx context.Context, uri string) (fileset.FileSet, error) {
	parsed, err := url.Parse(uri)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpx: get %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s from %s", ErrRemoteStatus, resp.Status, uri)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		return readMultipart(resp.Body, params["boundary"])
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpx: read body: %w", err)
	}
	name := path.Base(parsed.Path)
	if name == "/" || name == "." || name == "" {
		name = "download"
	}
	return fileset.New(fileset.File{Name: name, Data: data}), nil
}

// readMultipart reads every part of a multipart body into a file set.
func readMultipart(r io.Reader, boundary string) (fileset.FileSet, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart response without boundary", ErrRemoteStatus)
	}
	reader := multipart.NewReader(r, boundary)
	var files fileset.FileSet
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return nil, fmt.Errorf("httpx: read part: %w", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("httpx: read part: %w", err)
		}
		name := part.FileName()
		if name == "" {
			name = part.FormName()
		}
		files = append(files, fileset.File{Name: name, Data: data})
	}
}

// isHTTPURL reports whether s parses as an absolute http(s) URL.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
