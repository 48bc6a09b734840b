package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeduel/match-core/internal/auth"
	"github.com/codeduel/match-core/internal/storage/postgres/models"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
)

// fakePlayerRepository is an in-memory stand-in for repository.PlayerRepository.
type fakePlayerRepository struct {
	byID map[uuid.UUID]*models.Player
}

func newFakePlayerRepository() *fakePlayerRepository {
	return &fakePlayerRepository{byID: make(map[uuid.UUID]*models.Player)}
}

func (f *fakePlayerRepository) Create(ctx context.Context, player *models.Player) error {
	f.byID[player.ID] = player
	return nil
}

func (f *fakePlayerRepository) GetByID(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	p, ok := f.byID[playerID]
	if !ok {
		return nil, assert.AnError
	}
	return p, nil
}

func (f *fakePlayerRepository) UpdateRating(ctx context.Context, tx *sqlx.Tx, delta models.RatingDelta) error {
	return nil
}

func (f *fakePlayerRepository) GetLeaderboard(ctx context.Context, limit int) ([]*models.Player, error) {
	var out []*models.Player
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

var _ repository.PlayerRepository = (*fakePlayerRepository)(nil)

func newTestService() (*fakePlayerRepository, Service) {
	players := newFakePlayerRepository()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	jwt := auth.NewJWTManager("test-secret", "match-core-test")
	return players, NewService(players, jwt, logger)
}

func TestRegisterIssuesTokenPairForNewPlayer(t *testing.T) {
	_, svc := newTestService()

	result, err := svc.Register(context.Background(), "ferris")
	require.NoError(t, err)

	assert.Equal(t, "ferris", result.Player.DisplayName)
	assert.Equal(t, 1000, result.Player.Rating)
	assert.NotEmpty(t, result.AppToken)
	assert.NotEmpty(t, result.CentrifugoToken)
	assert.NotEqual(t, result.AppToken, result.CentrifugoToken)
	assert.Equal(t, int64(tokenDuration.Seconds()), result.ExpiresIn)
}

func TestReissueRoundTripsThroughAppToken(t *testing.T) {
	players, svc := newTestService()

	registered, err := svc.Register(context.Background(), "gopher")
	require.NoError(t, err)

	reissued, err := svc.Reissue(context.Background(), registered.AppToken)
	require.NoError(t, err)

	assert.Equal(t, registered.Player.ID, reissued.Player.ID)
	assert.NotEmpty(t, reissued.AppToken)
	_ = players
}

func TestReissueRejectsGarbageToken(t *testing.T) {
	_, svc := newTestService()

	_, err := svc.Reissue(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}

func TestReissueRejectsCentrifugoTokenAsAppToken(t *testing.T) {
	_, svc := newTestService()

	result, err := svc.Register(context.Background(), "wrongtype")
	require.NoError(t, err)

	_, err = svc.Reissue(context.Background(), result.CentrifugoToken)
	assert.Error(t, err)
}
