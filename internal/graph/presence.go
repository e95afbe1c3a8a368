package graph

import (
	"context"
	"fmt"

	"presence-sync-service/internal/domain"
)

// PresenceObservation is one user's presence as reported by Graph. The
// availability and activity fields are never empty; values missing from the
// raw response are normalized to PresenceUnknown.
type PresenceObservation struct {
	ID           string
	Availability string
	Activity     string
}

type presenceRequest struct {
	IDs []string `json:"ids"`
}

type presencePage struct {
	Value []struct {
		ID           string `json:"id"`
		Availability string `json:"availability"`
		Activity     string `json:"activity"`
	} `json:"value"`
}

// FetchPresence retrieves presence for the given user ids. Ids are
// partitioned into contiguous chunks of at most the configured batch size
// (the getPresencesByUserId limit is 100) and one POST is issued per chunk,
// with the per-chunk results concatenated in request order.
func (c *Client) FetchPresence(ctx context.Context, ids []string, token string) ([]PresenceObservation, error) {
	observations := make([]PresenceObservation, 0, len(ids))
	requestURL := c.baseURL + "/communications/getPresencesByUserId"

	for start := 0; start < len(ids); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		var page presencePage
		if err := c.PostJSON(ctx, requestURL, token, presenceRequest{IDs: ids[start:end]}, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch presence batch: %w", err)
		}

		for _, item := range page.Value {
			availability := item.Availability
			if availability == "" {
				availability = domain.PresenceUnknown
			}
			activity := item.Activity
			if activity == "" {
				activity = domain.PresenceUnknown
			}
			observations = append(observations, PresenceObservation{
				ID:           item.ID,
				Availability: availability,
				Activity:     activity,
			})
		}
	}

	return observations, nil
}
