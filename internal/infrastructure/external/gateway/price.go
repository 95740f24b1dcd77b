package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/application/port"
)

const priceComparisonPath = "/priceComparison"

// PriceComparisonClient implements port.PriceComparator
type PriceComparisonClient struct {
	*client
	sites []string
}

// NewPriceComparisonClient creates a client rooted at cfg.OpsBaseURL. Its
// timeout is cfg.PriceComparisonTimeout (15 minutes when unset).
func NewPriceComparisonClient(cfg Config, logger *zap.Logger) *PriceComparisonClient {
	timeout := cfg.PriceComparisonTimeout
	if timeout <= 0 {
		timeout = 900 * time.Second
	}
	return &PriceComparisonClient{
		client: newClient(cfg.OpsBaseURL, timeout, logger),
		sites:  cfg.PriceComparisonSites,
	}
}

type comparisonHotel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

type comparisonOccupancy struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Rooms    int `json:"rooms"`
}

type comparisonBody struct {
	Hotel     comparisonHotel     `json:"hotel"`
	CheckIn   string              `json:"check_in"`
	CheckOut  string              `json:"check_out"`
	Occupancy comparisonOccupancy `json:"occupancy"`
	Rooms     []string            `json:"rooms"`
	Sites     []string            `json:"sites"`
}

type comparisonResponse struct {
	Results []struct {
		Site           string `json:"site"`
		Success        bool   `json:"success"`
		PriceBreakdown struct {
			TotalWithTax float64 `json:"total_with_tax"`
		} `json:"price_breakdown"`
	} `json:"results"`
}

// Compare asks the comparison service for competitor prices. Sites default to
// the configured list.
func (c *PriceComparisonClient) Compare(ctx context.Context, req port.PriceComparisonRequest) (*port.PriceComparisonResult, error) {
	sites := req.Sites
	if len(sites) == 0 {
		sites = c.sites
	}
	rooms := req.RoomNames
	if rooms == nil {
		rooms = []string{}
	}

	var resp comparisonResponse
	err := c.postJSON(ctx, priceComparisonPath, nil, comparisonBody{
		Hotel:     comparisonHotel{ID: req.HotelID, Name: req.HotelName, City: req.City, Country: req.Country},
		CheckIn:   req.CheckIn,
		CheckOut:  req.CheckOut,
		Occupancy: comparisonOccupancy{Adults: req.Adults, Children: req.Children, Rooms: req.Rooms},
		Rooms:     rooms,
		Sites:     sites,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := &port.PriceComparisonResult{Results: make([]port.SitePrice, 0, len(resp.Results))}
	for _, r := range resp.Results {
		result.Results = append(result.Results, port.SitePrice{
			Site:         r.Site,
			Success:      r.Success,
			TotalWithTax: r.PriceBreakdown.TotalWithTax,
		})
	}
	return result, nil
}

var _ port.PriceComparator = (*PriceComparisonClient)(nil)
