package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GovPulse/internal/domain/models"
	"GovPulse/internal/usecase"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/server"
	"GovPulse/pkg/stream"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	called     bool
	lastSymbol string
	lastFrom   time.Time
	lastLimit  int
}

func (f *fakeLedger) Init(context.Context) error                              { return nil }
func (f *fakeLedger) StoreTicks(context.Context, []*models.Tick) error        { return nil }
func (f *fakeLedger) StoreProposals(context.Context, []*models.Proposal) error { return nil }
func (f *fakeLedger) StoreActions(context.Context, []*models.Action) error    { return nil }
func (f *fakeLedger) StoreAuditEvents(context.Context, []*models.AuditEvent) error {
	return nil
}
func (f *fakeLedger) StoreVotes(context.Context, []*models.Vote) error { return nil }
func (f *fakeLedger) QueryTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error) {
	f.called = true
	f.lastSymbol = symbol
	f.lastFrom = from
	f.lastLimit = limit
	return []*models.Tick{}, nil
}
func (f *fakeLedger) Health(context.Context) error { return nil }
func (f *fakeLedger) Close() error                 { return nil }

type fakeReputation struct{}

func (fakeReputation) Adjust(context.Context, string, float64, bool) error { return nil }
func (fakeReputation) Leaderboard(context.Context, int) ([]*models.Reputation, error) {
	return []*models.Reputation{}, nil
}

func newTestHandler(t *testing.T, ledger *fakeLedger) *PulseEchoHandler {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	rm := usecase.NewReadModel(stream.NewMemoryLog(), ledger, fakeReputation{}, nil, l)
	return NewPulseEchoHandler(l, rm, models.DefaultTopics(), server.Version)
}

func doRequest(t *testing.T, target string, handle echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handle(e.NewContext(req, rec)))
	return rec
}

func TestStatusReportsServiceVersion(t *testing.T) {
	h := newTestHandler(t, &fakeLedger{})
	rec := doRequest(t, "/", h.Status)
	assert.Contains(t, rec.Body.String(), server.Version)
	assert.Contains(t, rec.Body.String(), models.TopicTicks)
}

func TestTicksSinceAcceptsRFC3339(t *testing.T) {
	ledger := &fakeLedger{}
	h := newTestHandler(t, ledger)

	doRequest(t, "/api/ticks?symbol=BTCUSDT&since=2026-01-02T15:04:05Z", h.Ticks)

	require.True(t, ledger.called)
	want, _ := time.Parse(time.RFC3339, "2026-01-02T15:04:05Z")
	assert.True(t, ledger.lastFrom.Equal(want), "from = %v", ledger.lastFrom)
	assert.Equal(t, "BTCUSDT", ledger.lastSymbol)
	assert.Equal(t, 100, ledger.lastLimit) // default limit
}

func TestTicksSinceAcceptsUnixSeconds(t *testing.T) {
	ledger := &fakeLedger{}
	h := newTestHandler(t, ledger)

	doRequest(t, "/api/ticks?since=1700000000", h.Ticks)

	require.True(t, ledger.called)
	assert.Equal(t, int64(1700000000), ledger.lastFrom.Unix())
}

func TestTicksRejectsUnparseableSince(t *testing.T) {
	ledger := &fakeLedger{}
	h := newTestHandler(t, ledger)

	rec := doRequest(t, "/api/ticks?since=yesterday", h.Ticks)

	assert.False(t, ledger.called, "ledger must not be queried on bad input")
	assert.Contains(t, rec.Body.String(), "ERR_TIME")
}
