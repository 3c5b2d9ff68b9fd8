package rolimons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
	"RapWatch/pkg/cache"
	xhttp "RapWatch/pkg/http"
	"RapWatch/pkg/logger"
)

const itemDetailsPath = "/items/v1/itemdetails"

// Catalogue maps item id to its details.
type Catalogue map[string]models.Item

// Client reads the Rolimons item-details feed. The feed lists every limited
// item at once, so the whole catalogue is cached and single lookups are
// served from it.
type Client struct {
	baseURL string
	http    *xhttp.Client
	cache   cache.Service
	ttl     time.Duration
	log     *logger.Logger
	now     func() time.Time
}

func NewClient(baseURL string, httpClient *xhttp.Client, c cache.Service, ttl time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		cache:   c,
		ttl:     ttl,
		log:     logger.Nop(),
		now:     time.Now,
	}
}

var _ domrepo.ItemSource = (*Client)(nil)

func (c *Client) SetLogger(l *logger.Logger) {
	if l != nil {
		c.log = l
	}
}

// Item returns the catalogue entry for itemID or repository.ErrItemNotFound.
func (c *Client) Item(ctx context.Context, itemID string) (*models.Item, error) {
	cat, err := c.Catalogue(ctx)
	if err != nil {
		return nil, err
	}
	item, ok := cat[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrItemNotFound, itemID)
	}
	return &item, nil
}

// Catalogue returns the full item list, from cache when fresh.
func (c *Client) Catalogue(ctx context.Context) (Catalogue, error) {
	cat, hit, err := cache.Remember(ctx, c.cache, cache.Key("rolimons", "itemdetails"), c.ttl, c.fetch)
	if err != nil {
		return nil, err
	}
	if !hit {
		c.log.Debug("rolimons.catalogue refreshed", logger.Int("items", len(cat)))
	}
	return cat, nil
}

type itemDetailsResponse struct {
	Success   bool             `json:"success"`
	ItemCount int              `json:"item_count"`
	Items     map[string][]any `json:"items"`
}

func (c *Client) fetch(ctx context.Context) (Catalogue, error) {
	var resp itemDetailsResponse
	if err := c.http.GetJSON(ctx, c.baseURL+itemDetailsPath, nil, &resp); err != nil {
		c.log.Warn("rolimons.fetch failed", logger.Error(err))
		return nil, fmt.Errorf("rolimons itemdetails: %w", err)
	}
	if !resp.Success {
		return nil, errors.New("rolimons itemdetails: success=false")
	}

	now := c.now().UTC()
	cat := make(Catalogue, len(resp.Items))
	for id, fields := range resp.Items {
		item, ok := parseItem(id, fields)
		if !ok {
			continue
		}
		item.LastUpdated = now
		cat[id] = item
	}
	return cat, nil
}

// parseItem decodes the positional array
// [name, acronym, rap, value, default_value, demand, trend, projected, hyped, rare].
// Rolimons uses -1 for "not set".
func parseItem(id string, f []any) (models.Item, bool) {
	if len(f) < 7 {
		return models.Item{}, false
	}
	name, _ := f[0].(string)
	if name == "" {
		return models.Item{}, false
	}
	acronym, _ := f[1].(string)
	item := models.Item{
		AssetID:      id,
		Name:         name,
		Acronym:      acronym,
		RAP:          number(f[2]),
		Value:        number(f[3]),
		DefaultValue: number(f[4]),
		Demand:       int(number(f[5])),
		Trend:        int(number(f[6])),
	}
	if len(f) > 9 {
		item.Rare = number(f[9]) == 1
	}
	return item, true
}

func number(v any) float64 {
	if n, ok := v.(float64); ok {
		return n
	}
	return -1
}
