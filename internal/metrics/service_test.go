package metrics

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/KPI_GO/internal/config"
	"github.com/AngelCh415/KPI_GO/internal/goals"
	"github.com/AngelCh415/KPI_GO/internal/models"
	"github.com/AngelCh415/KPI_GO/internal/store"
)

type goalStub struct{ years []int }

func (g *goalStub) ForYear(_ context.Context, year int) goals.Set {
	g.years = append(g.years, year)
	return goals.NewSet(year, []models.GoalRecord{{Salesperson: "karen carrillo", AnnualTarget: 1000, MonthlyOfferTarget: 2}})
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *goalStub) {
	t.Helper()
	h := config.DefaultHeuristics()
	require.NoError(t, h.Validate())
	st := store.NewMemoryStore()
	g := &goalStub{}
	svc := NewService(st, g, &h)
	svc.Now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
	return svc, st, g
}

func TestQueryNeedsData(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Query(context.Background(), "winrate", url.Values{})
	assert.True(t, errors.Is(err, ErrNoData))

	_, err = svc.Query(context.Background(), "nope", url.Values{})
	assert.True(t, errors.Is(err, ErrUnknownKPI))
}

func TestQueryWinRateSource(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.Put(models.Dataset{Kind: "detail", Opportunities: []models.OpportunityRow{
		{Salesperson: "KAREN CARRILLO", Stage: "Closed Won", Amount: 10},
		{Salesperson: "KAREN CARRILLO", Stage: "Closed Lost", Amount: 10},
	}})

	out, err := svc.Query(context.Background(), "winrate", url.Values{})
	require.NoError(t, err)
	rep := out.(models.WinRateReport)
	assert.Equal(t, "detail", rep.Source)
	assert.Len(t, rep.Rows, 7)
	assert.Equal(t, 50.0, rep.Total.RateCount)

	st.Put(models.Dataset{Kind: "pivot", Pivot: &models.PivotModel{Rows: []models.PivotRow{
		{Salesperson: "KAREN CARRILLO", Values: map[string]models.StageAgg{"Closed Won": {Sum: 5, Count: 1}}},
	}}})
	out, err = svc.Query(context.Background(), "WinRate", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, "pivot", out.(models.WinRateReport).Source)

	out, err = svc.Query(context.Background(), "winrate", url.Values{"source": {"detail"}, "salesperson": {"Karen Carrillo"}})
	require.NoError(t, err)
	rep = out.(models.WinRateReport)
	assert.Equal(t, "detail", rep.Source)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "KAREN CARRILLO", rep.Rows[0].Salesperson)
}

func TestQueryAttainmentUsesGoals(t *testing.T) {
	svc, st, g := newTestService(t)
	st.Put(models.Dataset{Kind: "detail", Opportunities: []models.OpportunityRow{
		{Salesperson: "KAREN CARRILLO", Stage: "Closed Won", Amount: 250, ClosedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}})

	out, err := svc.Query(context.Background(), "attainment", url.Values{})
	require.NoError(t, err)
	rep := out.(models.AttainmentReport)
	assert.Equal(t, 2025, rep.Year)
	var karen models.AttainmentRow
	for _, r := range rep.Rows {
		if r.Salesperson == "KAREN CARRILLO" {
			karen = r
		}
	}
	assert.Equal(t, 25.0, karen.Pct)
	assert.Equal(t, []int{2025}, g.years)

	out, err = svc.Query(context.Background(), "attainment", url.Values{"year": {"2024"}})
	require.NoError(t, err)
	assert.Equal(t, 2024, out.(models.AttainmentReport).Year)
	assert.Zero(t, out.(models.AttainmentReport).Total.Won)
}

func TestQueryOffersGoalYearFollowsPeriod(t *testing.T) {
	svc, st, g := newTestService(t)
	st.Put(models.Dataset{Kind: "detail", Opportunities: []models.OpportunityRow{
		{Salesperson: "KAREN CARRILLO", CreatedAt: time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC)},
	}})
	out, err := svc.Query(context.Background(), "offers", url.Values{"period": {"2023-04"}, "salesperson": {"KAREN CARRILLO"}})
	require.NoError(t, err)
	rep := out.(models.PeriodReport)
	assert.Equal(t, []int{2023}, g.years)
	assert.Equal(t, 50.0, rep.Rows[0].Pct)
}

func TestQueryForecastAndCycle(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.Put(models.Dataset{Kind: "detail", Opportunities: []models.OpportunityRow{
		{Salesperson: "KAREN CARRILLO", Stage: "Proposal", Amount: 4000, CreatedAt: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
	}})

	out, err := svc.Query(context.Background(), "forecast", url.Values{"win_rate": {"50"}, "salesperson": {"KAREN CARRILLO"}})
	require.NoError(t, err)
	f := out.(models.ForecastReport).Rows[0]
	assert.Equal(t, 2000.0, f.NeededQuote)
	assert.Equal(t, 200.0, f.Coverage)

	out, err = svc.Query(context.Background(), "cycle", url.Values{"mode": {"all"}})
	require.NoError(t, err)
	c := out.(models.CycleReport)
	assert.Equal(t, CycleAll, c.Mode)
	assert.Equal(t, 10.0, c.Total.AvgDays)
}
