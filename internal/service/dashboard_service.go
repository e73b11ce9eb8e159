package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"storyteller-admin/internal/upstream"
)

type DashboardSummary struct {
	Users         json.RawMessage `json:"users"`
	Stories       json.RawMessage `json:"stories"`
	Subscriptions json.RawMessage `json:"subscriptions"`
	Issues        json.RawMessage `json:"issues"`
}

type DashboardService struct {
	client *upstream.Client
}

func NewDashboardService(client *upstream.Client) *DashboardService {
	return &DashboardService{client: client}
}

// Summary loads the owner dashboard collections concurrently. The first
// failure cancels the remaining calls.
func (s *DashboardService) Summary(ctx context.Context, token string) (DashboardSummary, error) {
	var summary DashboardSummary

	g, ctx := errgroup.WithContext(ctx)
	for path, dst := range map[string]*json.RawMessage{
		"/User":         &summary.Users,
		"/Story":        &summary.Stories,
		"/Subscription": &summary.Subscriptions,
		"/IssueReport":  &summary.Issues,
	} {
		g.Go(func() error {
			resp, err := s.client.Do(ctx, upstream.Request{Method: http.MethodGet, Path: path, Token: token})
			if err != nil {
				return err
			}

			raw, err := resp.Raw()
			if err != nil {
				return fmt.Errorf("dashboard %s: %w", path, err)
			}
			*dst = raw
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}

	return summary, nil
}
