package github

import (
	"context"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/yungbote/repodoc-backend/internal/pkg/httpx"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

// User is the authenticated GitHub account behind a token.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repository carries the fields the pipeline needs from the repos API.
type Repository struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Permissions   struct {
		Push  bool `json:"push"`
		Admin bool `json:"admin"`
	} `json:"permissions"`
}

// PullRequest is the created PR as returned by GitHub.
type PullRequest struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// PullRequestInput describes the PR to open.
type PullRequestInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
}

// Client talks to the GitHub REST API. Tokens are passed per call and
// never retained on the struct.
type Client interface {
	AuthenticatedUser(ctx context.Context, token string) (*User, error)
	Repository(ctx context.Context, token, owner, repo string) (*Repository, error)
	CreatePullRequest(ctx context.Context, token, owner, repo string, in PullRequestInput) (*PullRequest, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimSpace(os.Getenv("GITHUB_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &client{
		log:        log.With("service", "GithubClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
	}, nil
}

type githubHTTPError struct {
	StatusCode int
	Body       string
}

func (e *githubHTTPError) Error() string {
	return fmt.Sprintf("github http %d: %s", e.StatusCode, e.Body)
}

func (e *githubHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, token, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &githubHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, token, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, token, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("github decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 15*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("GitHub request retrying",
			"path", path,
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (c *client) AuthenticatedUser(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, fmt.Errorf("token required")
	}
	var user User
	if err := c.do(ctx, token, "GET", "/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *client) Repository(ctx context.Context, token, owner, repo string) (*Repository, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo required")
	}
	var out Repository
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, token, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) CreatePullRequest(ctx context.Context, token, owner, repo string, in PullRequestInput) (*PullRequest, error) {
	if token == "" {
		return nil, fmt.Errorf("token required")
	}
	if in.Title == "" || in.Head == "" || in.Base == "" {
		return nil, fmt.Errorf("title, head and base required")
	}
	var out PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.do(ctx, token, "POST", path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
