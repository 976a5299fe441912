// Package godaddy provides a registrar.Client implementation backed by the
// GoDaddy domains REST API.
package godaddy

import (
	"context"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/registrar"
	"domainwatch/pkg/serrors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the production domains endpoint.
	DefaultAPIURL = "https://api.godaddy.com/v1/domains"
	// DefaultPageSize is the listing page size used when the account has none.
	DefaultPageSize = 100
	// DefaultListTimeout bounds the listing request.
	DefaultListTimeout = 30 * time.Second
	// TimeLayout is the timestamp format of the expires and createdAt fields.
	TimeLayout = "2006-01-02T15:04:05.999999Z"
	// RegistrarName is reported as the registrar of every record.
	RegistrarName = "GoDaddy"

	listedStatuses = "ACTIVE,AWAITING_DOCUMENT_UPLOAD"
)

// Admitter blocks until the account may issue one more request.
type Admitter interface {
	Admit(ctx context.Context, account domain.Account) error
}

// Client talks to the GoDaddy API and fulfills the registrar.Client
// interface. Each request is admitted by the limiter before it is sent.
type Client struct {
	httpClient  *http.Client // httpClient performs the HTTP requests
	limiter     Admitter     // limiter gates every request per account
	listTimeout time.Duration
	now         func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithListTimeout overrides DefaultListTimeout.
func WithListTimeout(d time.Duration) Option {
	return func(c *Client) { c.listTimeout = d }
}

// WithClock replaces time.Now when deriving days until expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Ensure Client conforms to the registrar.Client interface at compile time.
var _ registrar.Client = (*Client)(nil)

// New constructs a Client using the provided http.Client and limiter.
func New(httpClient *http.Client, limiter Admitter, opts ...Option) *Client {
	c := &Client{
		httpClient:  httpClient,
		limiter:     limiter,
		listTimeout: DefaultListTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func baseURL(account domain.Account) string {
	if account.APIURL == "" {
		return DefaultAPIURL
	}

	return strings.TrimRight(account.APIURL, "/")
}

// get admits, sends and reads one GET request. The response body is returned
// together with the status code; transport errors are returned as errors.
func (c *Client) get(ctx context.Context, account domain.Account, target string) (int, []byte, error) {
	if err := c.limiter.Admit(ctx, account); err != nil {
		return 0, nil, fmt.Errorf("could not admit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "sso-key "+account.APIKey+":"+account.APISecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("could not read response body: %w", err)
	}

	return resp.StatusCode, b, nil
}

// success reports whether code is one of the API's success codes.
func success(code int) bool {
	return code == http.StatusOK || code == http.StatusNonAuthoritativeInfo
}

// statusError maps a non-success status code to a semantic error.
func statusError(code int, body []byte, msgFmt string, args ...any) error {
	msg := fmt.Sprintf(msgFmt, args...)
	text := strings.TrimSpace(string(body))
	switch {
	case code == http.StatusUnauthorized:
		return serrors.With(serrors.ErrUnauthorized, "%s: unauthorized", msg)
	case code == http.StatusForbidden:
		return serrors.With(serrors.ErrForbidden, "%s: access denied", msg)
	case code == http.StatusNotFound:
		return serrors.With(serrors.ErrNotFound, "%s: not found", msg)
	case code == http.StatusTooManyRequests:
		return serrors.With(serrors.ErrRateLimited, "%s: rate limited", msg)
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return serrors.With(serrors.ErrBadRequest, "%s: rejected: %s", msg, text)
	case code >= http.StatusInternalServerError:
		return serrors.With(serrors.ErrInternal, "%s: upstream status %d: %s", msg, code, text)
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", msg, code, text)
	}
}

// ListDomains fetches one page of the account's ACTIVE and
// AWAITING_DOCUMENT_UPLOAD domains.
func (c *Client) ListDomains(ctx context.Context, account domain.Account) ([]registrar.DomainRef, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	u, err := url.Parse(baseURL(account))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrConfig, err, "invalid api url for account %s", account.Name)
	}
	pageSize := account.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("statuses", listedStatuses)
	u.RawQuery = q.Encode()

	code, body, err := c.get(ctx, account, u.String())
	if err != nil {
		return nil, fmt.Errorf("could not list domains of %s: %w", account.Name, err)
	}
	if !success(code) {
		return nil, statusError(code, body, "list domains of %s", account.Name)
	}

	var listing []struct {
		Domain string `json:"domain"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "could not decode domain listing")
	}

	refs := make([]registrar.DomainRef, 0, len(listing))
	for _, l := range listing {
		if l.Domain == "" {
			continue
		}
		refs = append(refs, registrar.DomainRef{Name: l.Domain})
	}

	return refs, nil
}

// detail is the subset of the domain detail document we use.
type detail struct {
	Expires     string   `json:"expires"`
	CreatedAt   string   `json:"createdAt"`
	Status      string   `json:"status"`
	NameServers []string `json:"nameServers"`
	Privacy     bool     `json:"privacy"`
}

// FetchDetail fetches and converts the detail document of name.
func (c *Client) FetchDetail(ctx context.Context, account domain.Account, name string) (*domain.Record, error) {
	code, body, err := c.get(ctx, account, baseURL(account)+"/"+url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s: %w", name, err)
	}
	if !success(code) {
		return nil, statusError(code, body, "fetch %s", name)
	}

	var d detail
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "could not decode detail of %s", name)
	}

	return c.toRecord(account, name, d)
}

func (c *Client) toRecord(account domain.Account, name string, d detail) (*domain.Record, error) {
	expires, err := time.Parse(TimeLayout, d.Expires)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "invalid expiry of %s", name)
	}

	var created time.Time
	if d.CreatedAt != "" {
		if created, err = time.Parse(TimeLayout, d.CreatedAt); err != nil {
			return nil, serrors.Wrap(serrors.ErrMalformed, err, "invalid creation date of %s", name)
		}
	}

	status := domain.Status(d.Status)
	if status == "" {
		status = "UNKNOWN"
	}
	days := domain.DaysUntil(expires, c.now())
	nameServers := d.NameServers
	if nameServers == nil {
		nameServers = []string{}
	}
	privacy := d.Privacy

	return &domain.Record{
		Name:            name,
		Account:         account.Name,
		ExpiresAt:       expires,
		DaysUntilExpiry: days,
		Registrar:       RegistrarName,
		Status:          status,
		StatusDisplay:   domain.StatusDisplay(status, days),
		CreatedAt:       created,
		NameServers:     nameServers,
		Privacy:         &privacy,
	}, nil
}
