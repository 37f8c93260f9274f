package api

import (
	"context"
	"errors"

	"carbonaware/internal/models"
)

const (
	locationsPath = "/locations"
	opLocations   = "get_locations"
)

// Locations lists the named locations the service knows, keyed by name.
func (c *Client) Locations(ctx context.Context) (map[string]models.Location, error) {
	var locations map[string]models.Location
	if _, err := c.get(ctx, opLocations, locationsPath, nil, &locations); err != nil {
		if errors.Is(err, errNoContent) {
			return map[string]models.Location{}, nil
		}
		return nil, err
	}
	if locations == nil {
		locations = map[string]models.Location{}
	}
	return locations, nil
}
