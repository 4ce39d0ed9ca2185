package salesforce

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentOpportunities(t *testing.T) {
	since := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	t.Run("builds soql and returns records", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, soql string, out any) error {
				assert.Contains(t, soql, "FROM Opportunity")
				assert.Contains(t, soql, "CreatedDate >= 2025-03-01T15:00:00Z")
				assert.Contains(t, soql, "LeadSource = 'Helpdesk'")
				assert.Contains(t, soql, "ORDER BY CreatedDate DESC LIMIT 10")

				opps := out.(*[]Opportunity)
				*opps = []Opportunity{{ID: "006a", Name: "Frota"}}
				return nil
			},
		}

		opps, err := RecentOpportunities(context.Background(), mock, "Helpdesk", since, 10)
		require.NoError(t, err)
		require.Len(t, opps, 1)
		assert.Equal(t, "006a", opps[0].ID)
	})

	t.Run("defaults limit and skips empty lead source", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, soql string, _ any) error {
				assert.NotContains(t, soql, "LeadSource =")
				assert.Contains(t, soql, "LIMIT 50")
				return nil
			},
		}

		opps, err := RecentOpportunities(context.Background(), mock, "", since, 0)
		require.NoError(t, err)
		assert.Empty(t, opps)
	})

	t.Run("escapes quotes", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, soql string, _ any) error {
				assert.Contains(t, soql, `LeadSource = 'O\'Brien'`)
				return nil
			},
		}

		_, err := RecentOpportunities(context.Background(), mock, "O'Brien", since, 5)
		require.NoError(t, err)
	})

	t.Run("wraps query failure", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, _ string, _ any) error {
				return errors.New("connection refused")
			},
		}

		_, err := RecentOpportunities(context.Background(), mock, "x", since, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "recent opportunities")
	})
}
