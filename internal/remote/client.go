// Package remote talks to the content API that owns the real blog and project records.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/routes"
)

var remoteLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	remoteLogger = l
}

// APIError is a non-2xx answer from the content API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("content API returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg config.RemoteConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// File fields go over the wire as metadata. The binaries take the SPA's upload flow.
type blogPayload struct {
	Title        string           `json:"title"`
	Slug         string           `json:"slug"`
	Category     string           `json:"category"`
	Excerpt      string           `json:"excerpt"`
	Content      string           `json:"content"`
	Tags         []string         `json:"tags"`
	CoverPhoto   *model.FileMeta  `json:"cover_photo,omitempty"`
	InlineImages []model.FileMeta `json:"inline_images,omitempty"`
}

type projectPayload struct {
	Title           string           `json:"title"`
	Slug            string           `json:"slug"`
	Description     string           `json:"description"`
	ContentOverview string           `json:"content_overview"`
	ContentDetails  string           `json:"content_details"`
	Tags            []string         `json:"tags"`
	Cover           *model.FileMeta  `json:"cover,omitempty"`
	Gallery         []model.FileMeta `json:"gallery,omitempty"`
}

func metaOf(u *model.Upload) *model.FileMeta {
	if u == nil {
		return nil
	}
	m := u.Meta()
	return &m
}

func metasOf(us []model.Upload) []model.FileMeta {
	var out []model.FileMeta
	for _, u := range us {
		out = append(out, u.Meta())
	}
	return out
}

func (c *Client) CreateBlog(ctx context.Context, f model.BlogFields) error {
	return c.post(ctx, routes.RemoteBlogs, blogPayload{
		Title:        f.Title,
		Slug:         f.Slug,
		Category:     f.Category,
		Excerpt:      f.Excerpt,
		Content:      f.Content,
		Tags:         f.Tags,
		CoverPhoto:   metaOf(f.CoverPhoto),
		InlineImages: metasOf(f.InlineImages),
	})
}

func (c *Client) CreateProject(ctx context.Context, f model.ProjectFields) error {
	return c.post(ctx, routes.RemoteProjects, projectPayload{
		Title:           f.Title,
		Slug:            f.Slug,
		Description:     f.Description,
		ContentOverview: f.ContentOverview,
		ContentDetails:  f.ContentDetails,
		Tags:            f.Tags,
		Cover:           metaOf(f.Cover),
		Gallery:         metasOf(f.Gallery),
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set(config.HCType, config.CTypeJSON)
	if c.token != "" {
		req.Header.Set(config.HAuthorization, "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("content API request failed: %w", err)
	}
	defer resp.Body.Close()

	remoteLogger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Content API call")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
}

// errorMessage reads {"message": "..."} or {"error": "..."} bodies and falls back to raw text.
func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}
