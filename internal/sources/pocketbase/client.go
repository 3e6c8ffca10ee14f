// Package pocketbase reads authoritative dataset records from a PocketBase
// collection using admin credentials.
package pocketbase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pokecompanion/namesync/internal/transport"
	"github.com/pokecompanion/namesync/pkg/constants"
	"github.com/pokecompanion/namesync/pkg/dataset"
	"github.com/pokecompanion/namesync/pkg/errors"
	"github.com/pokecompanion/namesync/pkg/logging"
	"github.com/pokecompanion/namesync/pkg/sources"
)

const serviceName = "pocketbase"

// Auth endpoints, tried in order. Releases before v0.23 authenticate admins
// on the first; later releases moved admins to the _superusers collection.
var authPaths = []string{
	"/api/admins/auth-with-password",
	"/api/collections/_superusers/auth-with-password",
}

// Client is a PocketBase StoreReader.
type Client struct {
	baseURL  string
	email    string
	password string
	pageSize int
	http     *transport.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	pageSize   int
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithPageSize sets the number of records requested per page.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// New creates a client for the PocketBase instance at baseURL.
func New(baseURL, email, password string, opts ...Option) *Client {
	o := &options{pageSize: constants.StorePageSize}
	for _, opt := range opts {
		opt(o)
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		password: password,
		pageSize: o.pageSize,
		http:     transport.New(serviceName, transport.WithHTTPClient(o.httpClient), transport.WithAuth(&transport.HeaderAuth{}, "")),
	}
}

// ID returns the backend id.
func (c *Client) ID() sources.ID {
	return sources.PocketBaseID
}

type authRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges the admin credentials for a token.
func (c *Client) Authenticate(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	var lastErr error
	for _, path := range authPaths {
		var resp authResponse
		err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+path, authRequest{Identity: c.email, Password: c.password}, &resp)
		if err == nil {
			if resp.Token == "" {
				return errors.NewAPIError(serviceName, http.StatusOK, "auth response carried no token")
			}
			c.http.SetToken(resp.Token)
			logger.Debug().Str("endpoint", path).Msg("Authenticated with PocketBase")
			return nil
		}
		lastErr = err
		if !errors.IsNotFound(err) {
			break
		}
	}
	return lastErr
}

type listResponse struct {
	Page       int              `json:"page"`
	PerPage    int              `json:"perPage"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
	Items      []dataset.Record `json:"items"`
}

// ReadRecords returns every record of collection sorted by sortKey,
// following pagination until the last page.
func (c *Client) ReadRecords(ctx context.Context, collection, sortKey string) ([]dataset.Record, error) {
	if c.http.Token() == "" {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	endpoint := fmt.Sprintf("%s/api/collections/%s/records", c.baseURL, url.PathEscape(collection))
	var records []dataset.Record
	for page := 1; page <= constants.MaxStorePages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("perPage", strconv.Itoa(c.pageSize))
		query.Set("sort", sortKey)

		var resp listResponse
		if err := c.http.DoJSON(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		records = append(records, resp.Items...)

		if page >= resp.TotalPages || len(resp.Items) == 0 {
			logging.FromContext(ctx).Debug().
				Str("collection", collection).
				Int("pages", page).
				Int("records", len(records)).
				Msg("Read PocketBase collection")
			return records, nil
		}
	}
	return nil, errors.NewValidationError("collection", collection, fmt.Sprintf("more than %d pages", constants.MaxStorePages))
}
