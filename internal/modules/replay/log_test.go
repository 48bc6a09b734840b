package replay

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeduel/match-core/internal/config"
	"github.com/codeduel/match-core/internal/metrics"
	"github.com/codeduel/match-core/internal/storage/postgres/models"
)

type fakeReplayEventRepo struct {
	appended [][]*models.ReplayEvent
	failNext bool
}

func (f *fakeReplayEventRepo) AppendBatch(ctx context.Context, events []*models.ReplayEvent) error {
	if f.failNext {
		f.failNext = false
		return assertError{}
	}
	f.appended = append(f.appended, events)
	return nil
}

func (f *fakeReplayEventRepo) GetByMatch(ctx context.Context, matchID uuid.UUID) ([]*models.ReplayEvent, error) {
	return nil, nil
}

type assertError struct{}

func (assertError) Error() string { return "simulated flush failure" }

var testMetrics = metrics.New()

func newTestLog(repo *fakeReplayEventRepo) *replayLog {
	cfg := &config.Config{ReplayFlushSize: 10, ReplayFlushInterval: time.Hour}
	return &replayLog{
		repo:    repo,
		cfg:     cfg,
		logger:  logrus.New(),
		metrics: testMetrics,
		seqs:    make(map[uuid.UUID]int64),
	}
}

func TestAppendAssignsIncreasingSeqPerMatch(t *testing.T) {
	repo := &fakeReplayEventRepo{}
	l := newTestLog(repo)

	matchID := uuid.New()
	require.NoError(t, l.Append(matchID, nil, time.Now(), models.ReplayEventCodeUpdate, map[string]string{"code": "a"}))
	require.NoError(t, l.Append(matchID, nil, time.Now(), models.ReplayEventCodeUpdate, map[string]string{"code": "b"}))

	assert.Equal(t, int64(2), l.seqs[matchID])
	assert.Len(t, l.buffer, 2)
	assert.Equal(t, int64(1), l.buffer[0].Seq)
	assert.Equal(t, int64(2), l.buffer[1].Seq)
}

func TestAppendComputesTimestampRelativeToMatchStart(t *testing.T) {
	repo := &fakeReplayEventRepo{}
	l := newTestLog(repo)

	matchID := uuid.New()
	startedAt := time.Now().Add(-3 * time.Second)
	require.NoError(t, l.Append(matchID, nil, startedAt, models.ReplayEventCodeUpdate, map[string]string{"code": "a"}))

	require.Len(t, l.buffer, 1)
	assert.InDelta(t, 3000, l.buffer[0].TimestampMs, 500)
}

func TestAppendClampsTimestampToZeroWhenBeforeMatchStart(t *testing.T) {
	repo := &fakeReplayEventRepo{}
	l := newTestLog(repo)

	matchID := uuid.New()
	startedAt := time.Now().Add(time.Hour)
	require.NoError(t, l.Append(matchID, nil, startedAt, models.ReplayEventCodeUpdate, map[string]string{"code": "a"}))

	require.Len(t, l.buffer, 1)
	assert.Equal(t, int64(0), l.buffer[0].TimestampMs)
}

func TestFlushRequeuesOnFailure(t *testing.T) {
	repo := &fakeReplayEventRepo{failNext: true}
	l := newTestLog(repo)

	matchID := uuid.New()
	require.NoError(t, l.Append(matchID, nil, time.Now(), models.ReplayEventSubmission, map[string]string{}))

	err := l.Flush(context.Background())
	assert.Error(t, err)
	assert.Len(t, l.buffer, 1, "event must be re-queued after a failed flush")
}

func TestFlushClearsBufferOnSuccess(t *testing.T) {
	repo := &fakeReplayEventRepo{}
	l := newTestLog(repo)

	matchID := uuid.New()
	require.NoError(t, l.Append(matchID, nil, time.Now(), models.ReplayEventSubmission, map[string]string{}))

	require.NoError(t, l.Flush(context.Background()))
	assert.Empty(t, l.buffer)
	assert.Len(t, repo.appended, 1)
}
