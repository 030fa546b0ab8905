package dsrdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
	"github.com/manjain15/propwealth-scraper/internal/config"
)

const statsPath = "/api/dsr/stats"

// SessionSource supplies and invalidates cached sessions. Implemented by
// session.Manager.
type SessionSource interface {
	Acquire(ctx context.Context) (*schemas.Session, error)
	Invalidate()
}

// Client calls the provider's lightweight JSON endpoint with a harvested
// session. If the provider rejects the session it re-authenticates and
// retries the request exactly once.
type Client struct {
	http     *http.Client
	sessions SessionSource
	baseURL  string
	logger   *zap.Logger
}

// NewClient builds the stats client.
func NewClient(httpClient *http.Client, sessions SessionSource, cfg config.DSRDataConfig, logger *zap.Logger) *Client {
	return &Client{
		http:     httpClient,
		sessions: sessions,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logger:   logger.Named("dsrdata_client"),
	}
}

// FetchStats retrieves and normalizes the market snapshot for a location.
func (c *Client) FetchStats(ctx context.Context, loc schemas.Location) (schemas.MarketStats, error) {
	s, err := c.sessions.Acquire(ctx)
	if err != nil {
		return schemas.MarketStats{}, err
	}

	status, body, err := c.do(ctx, s, loc)
	if err != nil {
		return schemas.MarketStats{}, schemas.NewFailure(schemas.KindUpstream, ProviderName, "stats request failed", err)
	}

	if authDenied(status) {
		c.logger.Warn("Session rejected by provider, re-authenticating once", zap.Int("status", status))
		c.sessions.Invalidate()

		s, err = c.sessions.Acquire(ctx)
		if err != nil {
			return schemas.MarketStats{}, err
		}
		status, body, err = c.do(ctx, s, loc)
		if err != nil {
			return schemas.MarketStats{}, schemas.NewFailure(schemas.KindUpstream, ProviderName, "stats retry failed", err)
		}
		if authDenied(status) {
			return schemas.MarketStats{}, schemas.NewFailure(schemas.KindSessionExpired, ProviderName,
				"session rejected twice in a row", nil)
		}
	}

	if status < 200 || status > 299 {
		return schemas.MarketStats{}, schemas.NewFailure(schemas.KindUpstream, ProviderName,
			fmt.Sprintf("unexpected status %d", status), nil)
	}

	var envelope statsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return schemas.MarketStats{}, schemas.NewFailure(schemas.KindUpstream, ProviderName, "malformed payload", err)
	}
	if envelope.Response == nil || envelope.Response.AllMktStats == nil {
		return schemas.MarketStats{}, schemas.NewFailure(schemas.KindUpstream, ProviderName,
			"payload missing all_mkt_stats", nil)
	}

	stats := Normalize(envelope.Response.AllMktStats)
	stats.Suburb = loc.Suburb
	stats.State = strings.ToUpper(loc.State)
	stats.Postcode = loc.Postcode
	stats.Month = envelope.Response.Month.String()
	stats.Year = envelope.Response.Year.String()
	return stats, nil
}

func (c *Client) do(ctx context.Context, s *schemas.Session, loc schemas.Location) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statsURL(s.Token, loc), nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Cookie", s.CookieHeader())
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// statsURL is deterministic for a given token and location.
func (c *Client) statsURL(token string, loc schemas.Location) string {
	q := url.Values{}
	q.Set("access_token", token)
	q.Set("state", strings.ToUpper(loc.State))
	q.Set("postCode", loc.Postcode)
	q.Set("locality", strings.ToUpper(loc.Suburb))
	q.Set("propTypeCode", "H")
	q.Set("requestType", "DSR")
	q.Set("captchaResponse", "")
	q.Set("status", "noRecap")
	return c.baseURL + statsPath + "?" + q.Encode()
}

func authDenied(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// statsEnvelope mirrors the provider's response shape.
type statsEnvelope struct {
	Response *statsResponse `json:"response"`
}

type statsResponse struct {
	Month       flexValue `json:"month"`
	Year        flexValue `json:"year"`
	AllMktStats *RawStats `json:"all_mkt_stats"`
}

// RawStats are the provider-defined market indicators, consumed opaquely.
// The provider is inconsistent about types, sending some fields as strings
// and others as numbers depending on the suburb.
type RawStats struct {
	ACR      flexValue `json:"ACR"`
	DSR      flexValue `json:"DSR"`
	TV       flexValue `json:"TV"`
	Renters  flexValue `json:"RENTERS"`
	DOM      flexValue `json:"DOM"`
	OSI      flexValue `json:"OSI"`
	Yield    flexValue `json:"YIELD"`
	SOMPerc  flexValue `json:"SOM_PERC"`
	Vacancy  flexValue `json:"VACANCY"`
	Median12 flexValue `json:"MEDIAN_12"`
	SR       flexValue `json:"SR"`
	Discount flexValue `json:"DISCOUNT"`
}
