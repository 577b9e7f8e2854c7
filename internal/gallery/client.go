package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	models "github.com/fathima-sithara/mycloud/internal/media"
	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx answer from the media service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("media service error (%d)", e.Status)
	}
	return fmt.Sprintf("media service error (%d): %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	File    *models.Media   `json:"file"`
	Files   []*models.Media `json:"files"`
	URL     string          `json:"url"`
}

// Client talks to the media service HTTP API. Requests are never retried.
type Client struct {
	baseURL string
	http    *resty.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", "mycloud-gallery/1.0").
		SetTimeout(60 * time.Second)
	return &Client{baseURL: baseURL, http: rc}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if tok := c.Token(); tok != "" {
		r.SetAuthToken(tok)
	}
	return r
}

func (c *Client) call(r *resty.Request, method, path string) (*envelope, error) {
	var env envelope
	resp, err := r.SetResult(&env).SetError(&env).Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() || !env.Success {
		return nil, &APIError{Status: resp.StatusCode(), Message: env.Message}
	}
	return &env, nil
}

func (c *Client) list(r *resty.Request, path string) ([]*models.Media, error) {
	env, err := c.call(r, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	if env.Files == nil {
		return []*models.Media{}, nil
	}
	return env.Files, nil
}

// UserMedia lists the caller's own media.
func (c *Client) UserMedia(ctx context.Context) ([]*models.Media, error) {
	return c.list(c.request(ctx), "/get-user-media")
}

// All lists every record. vis may be empty.
func (c *Client) All(ctx context.Context, vis models.Visibility) ([]*models.Media, error) {
	r := c.request(ctx)
	if vis != "" {
		r.SetQueryParam("visibility", string(vis))
	}
	return c.list(r, "/get-all")
}

func (c *Client) Search(ctx context.Context, keyword string) ([]*models.Media, error) {
	return c.list(c.request(ctx).SetPathParam("keyword", keyword), "/search/{keyword}")
}

func (c *Client) Page(ctx context.Context, page int) ([]*models.Media, error) {
	return c.list(c.request(ctx).SetPathParam("page", strconv.Itoa(page)), "/more-files/{page}")
}

func (c *Client) Get(ctx context.Context, filename string) (*models.Media, error) {
	env, err := c.call(c.request(ctx).SetPathParam("filename", filename), http.MethodGet, "/get/{filename}")
	if err != nil {
		return nil, err
	}
	return env.File, nil
}

// Upload sends one file. An empty contentType is sniffed from the bytes;
// keywords and visibility are optional.
func (c *Client) Upload(ctx context.Context, filename, contentType string, body io.Reader, keywords string, vis models.Visibility) (*models.Media, error) {
	form := map[string]string{}
	if keywords != "" {
		form["keywords"] = keywords
	}
	if vis != "" {
		form["visibility"] = string(vis)
	}
	r := c.request(ctx).SetFormData(form)
	if contentType != "" {
		r.SetMultipartField("file", filename, contentType, body)
	} else {
		r.SetFileReader("file", filename, body)
	}
	env, err := c.call(r, http.MethodPost, "/upload")
	if err != nil {
		return nil, err
	}
	return env.File, nil
}

func (c *Client) Edit(ctx context.Context, id string, p models.Patch) (*models.Media, error) {
	r := c.request(ctx).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(p)
	env, err := c.call(r, http.MethodPut, "/edit/{id}")
	if err != nil {
		return nil, err
	}
	return env.File, nil
}

// Delete removes the record and returns the server's confirmation message.
func (c *Client) Delete(ctx context.Context, id string) (string, error) {
	env, err := c.call(c.request(ctx).SetPathParam("id", id), http.MethodDelete, "/delete/{id}")
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) ShareURL(ctx context.Context, id string) (string, error) {
	env, err := c.call(c.request(ctx).SetPathParam("id", id), http.MethodGet, "/media/{id}/url")
	if err != nil {
		return "", err
	}
	return env.URL, nil
}

// PreviewURL links a small rendition of the item: the thumbnail of an image,
// or the item itself when there is none.
func (c *Client) PreviewURL(ctx context.Context, id string) (string, error) {
	env, err := c.call(c.request(ctx).SetPathParam("id", id), http.MethodGet, "/media/{id}/preview")
	if err != nil {
		return "", err
	}
	return env.URL, nil
}

// Download copies the bytes of the oldest record named filename that the
// caller can see into w.
func (c *Client) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	return c.stream(c.request(ctx).SetPathParam("filename", filename), "/download/{filename}", w)
}

// DownloadItem copies the bytes of the record with id into w.
func (c *Client) DownloadItem(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.stream(c.request(ctx).SetPathParam("id", id), "/media/{id}/download", w)
}

func (c *Client) stream(r *resty.Request, path string, w io.Writer) (int64, error) {
	resp, err := r.SetDoNotParseResponse(true).Get(path)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", path, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		var env envelope
		b, _ := io.ReadAll(io.LimitReader(body, 64<<10))
		_ = c.http.JSONUnmarshal(b, &env)
		return 0, &APIError{Status: resp.StatusCode(), Message: env.Message}
	}
	return io.Copy(w, body)
}
