package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

type CaseClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     ports.TokenSource
}

// CaseClient answers whether a subject has an active case period right now.
type CaseClient struct {
	baseURL string
	client  *http.Client
	tokens  ports.TokenSource
}

func NewCaseClient(cfg CaseClientConfig) *CaseClient {
	return &CaseClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  defaultHTTPClient(cfg.HTTPClient),
		tokens:  cfg.Tokens,
	}
}

func (c *CaseClient) HasActiveCasePeriod(ctx context.Context, subjectID string) (bool, error) {
	var resp struct {
		Active bool `json:"active"`
	}
	endpoint := c.baseURL + "/v1/subjects/" + url.PathEscape(subjectID) + "/case-period"
	err := doJSON(ctx, c.client, c.tokens, http.MethodGet, endpoint, nil, &resp)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Active, nil
}

var _ ports.CaseClient = (*CaseClient)(nil)
