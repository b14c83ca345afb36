package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

type fakeSource struct {
	counts   [7]int
	top      *model.Client
	err      error
	gotNow   time.Time
	gotStart time.Time
	gotEnd   time.Time
	gotLoc   *time.Location
}

func (f *fakeSource) OccupancyByWeekday(_ context.Context, loc *time.Location) ([7]int, error) {
	f.gotLoc = loc
	return f.counts, f.err
}

func (f *fakeSource) TopClient(context.Context) (*model.Client, error) { return f.top, f.err }

func (f *fakeSource) DashboardStats(_ context.Context, now, start, end time.Time) (repository.Stats, error) {
	f.gotNow, f.gotStart, f.gotEnd = now, start, end
	return repository.Stats{TotalClients: 2}, f.err
}

func TestOccupancyByDay(t *testing.T) {
	src := &fakeSource{counts: [7]int{0, 5, 0, 0, 0, 0, 3}}
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	svc := New(src, madrid, nil)

	out, err := svc.OccupancyByDay(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 7)
	assert.Equal(t, DayOccupancy{Day: "Sunday", People: 0}, out[0])
	assert.Equal(t, DayOccupancy{Day: "Monday", People: 5}, out[1])
	assert.Equal(t, DayOccupancy{Day: "Saturday", People: 3}, out[6])
	assert.Equal(t, madrid, src.gotLoc)
}

func TestDashboard_UsesLocalDay(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	// 23:30 UTC on Jan 1 is already Jan 2 in Madrid.
	now := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	src := &fakeSource{}
	svc := New(src, madrid, func() time.Time { return now })

	st, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalClients)
	assert.True(t, src.gotStart.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, madrid)))
	assert.True(t, src.gotEnd.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, madrid)))
	assert.True(t, src.gotNow.Equal(now))
}

func TestErrorsAreInternal(t *testing.T) {
	svc := New(&fakeSource{err: errors.New("db down")}, nil, nil)
	ctx := context.Background()

	_, err := svc.OccupancyByDay(ctx)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	_, err = svc.TopClient(ctx)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	_, err = svc.Dashboard(ctx)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}
