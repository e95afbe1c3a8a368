package graph

import (
	"context"
	"fmt"
	"net/url"
)

// MemberRecord is one addressable user from the group membership listing
type MemberRecord struct {
	ID          string
	DisplayName string
	Email       *string
}

type memberPage struct {
	Value []struct {
		ID          string  `json:"id"`
		DisplayName string  `json:"displayName"`
		Mail        *string `json:"mail"`
	} `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// MemberPager lazily walks a group's membership, following @odata.nextLink
// until the listing is exhausted. It is finite and not restartable; call
// IterMembers again for a fresh walk.
type MemberPager struct {
	client  *Client
	token   string
	nextURL string
	params  url.Values
	buf     []MemberRecord
	done    bool
}

// IterMembers starts a paged walk over the members of a group. Directory
// objects without an id (service principals and the like) are skipped.
func (c *Client) IterMembers(groupID, token string) *MemberPager {
	return &MemberPager{
		client:  c,
		token:   token,
		nextURL: fmt.Sprintf("%s/groups/%s/members", c.baseURL, groupID),
		params:  url.Values{"$select": {"id,displayName,mail"}},
	}
}

// Next returns the next member record, fetching further pages as needed.
// It returns (nil, nil) once the listing is exhausted.
func (p *MemberPager) Next(ctx context.Context) (*MemberRecord, error) {
	for len(p.buf) == 0 {
		if p.done {
			return nil, nil
		}

		var page memberPage
		if err := p.client.Get(ctx, p.nextURL, p.token, p.params, &page); err != nil {
			return nil, fmt.Errorf("failed to list group members: %w", err)
		}

		for _, item := range page.Value {
			if item.ID == "" {
				continue
			}
			p.buf = append(p.buf, MemberRecord{
				ID:          item.ID,
				DisplayName: item.DisplayName,
				Email:       item.Mail,
			})
		}

		if page.NextLink == "" {
			p.done = true
		} else {
			// nextLink already embeds all parameters for the next call
			p.nextURL = page.NextLink
			p.params = nil
		}
	}

	record := p.buf[0]
	p.buf = p.buf[1:]
	return &record, nil
}
