// Package github publishes dataset artifacts as files in a GitHub repository.
// Reads go through the unauthenticated raw content host; the precondition
// token is the file's blob SHA from the contents API.
package github

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/pokecompanion/namesync/internal/transport"
	"github.com/pokecompanion/namesync/pkg/constants"
	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/logging"
	"github.com/pokecompanion/namesync/pkg/sources"
)

const serviceName = "github"

// Config configures a Client.
type Config struct {
	Owner      string
	Repo       string
	Branch     string
	Token      string
	APIURL     string
	RawURL     string
	PublishRPS float64
	HTTPClient *http.Client
}

// Client is a GitHub ArtifactFetcher and ArtifactPublisher.
type Client struct {
	owner  string
	repo   string
	branch string
	apiURL string
	rawURL string
	api    *transport.Client
	raw    *transport.Client
}

// New creates a client. Empty fields fall back to the production defaults.
func New(cfg Config) *Client {
	if cfg.Owner == "" {
		cfg.Owner = constants.DefaultOwner
	}
	if cfg.Repo == "" {
		cfg.Repo = constants.DefaultRepo
	}
	if cfg.Branch == "" {
		cfg.Branch = constants.DefaultBranch
	}
	if cfg.APIURL == "" {
		cfg.APIURL = constants.GitHubAPIURL
	}
	if cfg.RawURL == "" {
		cfg.RawURL = constants.GitHubRawURL
	}

	return &Client{
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		branch: cfg.Branch,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		rawURL: strings.TrimRight(cfg.RawURL, "/"),
		api: transport.New(serviceName,
			transport.WithHTTPClient(cfg.HTTPClient),
			transport.WithAuth(&transport.BearerAuth{}, cfg.Token),
			transport.WithRateLimit(cfg.PublishRPS, constants.DefaultPublishBurst),
			transport.WithHeader("Accept", "application/vnd.github+json"),
			transport.WithHeader("X-GitHub-Api-Version", "2022-11-28"),
		),
		raw: transport.New(serviceName, transport.WithHTTPClient(cfg.HTTPClient)),
	}
}

// ID returns the backend id.
func (c *Client) ID() sources.ID {
	return sources.GitHubID
}

// FetchArtifact reads and decodes the file at ref.
func (c *Client) FetchArtifact(ctx context.Context, ref sources.Ref) ([]dataset.Record, error) {
	endpoint := strings.Join([]string{c.rawURL, c.owner, c.repo, url.PathEscape(c.branchOf(ref)), escapePath(ref.Path)}, "/")

	resp, err := c.raw.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var records []dataset.Record
	if err := transport.DecodeResponse(resp, serviceName, &records); err != nil {
		return nil, err
	}
	return records, nil
}

type contentResponse struct {
	SHA  string `json:"sha"`
	Type string `json:"type"`
}

// Token returns the blob SHA of the file at ref, or "" when the file does
// not exist on that branch yet.
func (c *Client) Token(ctx context.Context, ref sources.Ref) (string, error) {
	path := ref.Path
	endpoint := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.branchOf(ref))

	var resp contentResponse
	if err := c.api.DoJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		if errors.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if resp.Type != "" && resp.Type != "file" {
		return "", errors.NewValidationError("path", path, "not a file but a "+resp.Type)
	}
	return resp.SHA, nil
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
}

// Replace commits new content at path. GitHub rejects a stale SHA with 409,
// or 422 when the SHA is missing; both surface as a precondition error.
func (c *Client) Replace(ctx context.Context, req sources.ReplaceRequest) (*sources.Commit, error) {
	branch := c.branchOf(req.Ref())

	body := putRequest{
		Message: req.Message,
		Content: base64.StdEncoding.EncodeToString(req.Content),
		SHA:     req.Token,
		Branch:  branch,
	}

	var resp putResponse
	if err := c.api.DoJSON(ctx, http.MethodPut, c.contentsURL(req.Path), body, &resp); err != nil {
		if isStaleSHA(err) {
			return nil, errors.NewPublishPreconditionError(req.Path, req.Token, err)
		}
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Str("path", req.Path).
		Str("branch", branch).
		Str("commit", resp.Commit.SHA).
		Msg("Committed artifact")

	return &sources.Commit{
		SHA:   resp.Commit.SHA,
		Token: resp.Content.SHA,
		URL:   resp.Commit.HTMLURL,
	}, nil
}

func (c *Client) branchOf(ref sources.Ref) string {
	if ref.Branch != "" {
		return ref.Branch
	}
	return c.branch
}

func (c *Client) contentsURL(path string) string {
	return strings.Join([]string{c.apiURL, "repos", c.owner, c.repo, "contents", escapePath(path)}, "/")
}

func isStaleSHA(err error) bool {
	if errors.IsPreconditionFailed(err) {
		return true
	}
	var apiErr *errors.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
		return strings.Contains(strings.ToLower(apiErr.Message), "sha")
	}
	return false
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
