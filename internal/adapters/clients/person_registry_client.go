package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/caseflow/followup-service/internal/domain"
	"github.com/caseflow/followup-service/internal/ports"
)

type PersonRegistryClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     ports.TokenSource
}

// PersonRegistryClient resolves a subject's mail channel classification.
type PersonRegistryClient struct {
	baseURL string
	client  *http.Client
	tokens  ports.TokenSource
}

func NewPersonRegistryClient(cfg PersonRegistryClientConfig) *PersonRegistryClient {
	return &PersonRegistryClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  defaultHTTPClient(cfg.HTTPClient),
		tokens:  cfg.Tokens,
	}
}

func (c *PersonRegistryClient) ChannelClassification(ctx context.Context, subjectID string) (domain.ChannelClassification, error) {
	var resp struct {
		Channel string `json:"channel_classification"`
	}
	endpoint := c.baseURL + "/v1/persons/" + url.PathEscape(subjectID) + "/channel"
	if err := doJSON(ctx, c.client, c.tokens, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	switch domain.ChannelClassification(resp.Channel) {
	case domain.ChannelDigital, domain.ChannelPaper:
		return domain.ChannelClassification(resp.Channel), nil
	default:
		return "", fmt.Errorf("%w: person registry returned unknown channel %q",
			domain.ErrDependencyUnavailable, resp.Channel)
	}
}

var _ ports.PersonRegistryClient = (*PersonRegistryClient)(nil)
