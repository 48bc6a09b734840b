package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/codeduel/match-core/internal/storage/postgres/models"
)

type PlayerRepositorySuite struct {
	suite.Suite
	helper *TestDBHelper
	repo   PlayerRepository
}

func TestPlayerRepositorySuite(t *testing.T) {
	suite.Run(t, new(PlayerRepositorySuite))
}

func (s *PlayerRepositorySuite) SetupSuite() {
	s.helper = NewTestDBHelper(s.T())
	s.helper.SetupDatabase()
	s.repo = NewPlayerRepository(s.helper.DB)
}

func (s *PlayerRepositorySuite) TearDownSuite() {
	s.helper.TeardownDatabase()
}

func (s *PlayerRepositorySuite) SetupTest() {
	s.helper.CleanupTables("players")
}

func (s *PlayerRepositorySuite) TestCreateAndGetByID() {
	ctx := context.Background()
	player := &models.Player{
		ID:          uuid.New(),
		DisplayName: "spacebar_slinger",
		Rating:      1200,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	err := s.repo.Create(ctx, player)
	require.NoError(s.T(), err)

	fetched, err := s.repo.GetByID(ctx, player.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), fetched)
	s.Equal(player.DisplayName, fetched.DisplayName)
	s.Equal(1200, fetched.Rating)
}

func (s *PlayerRepositorySuite) TestGetByIDNotFound() {
	fetched, err := s.repo.GetByID(context.Background(), uuid.New())
	require.NoError(s.T(), err)
	s.Nil(fetched)
}

func (s *PlayerRepositorySuite) TestUpdateRatingWithinTransaction() {
	ctx := context.Background()
	player := &models.Player{
		ID:          uuid.New(),
		DisplayName: "null_pointer",
		Rating:      1000,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(s.T(), s.repo.Create(ctx, player))

	tx, err := s.helper.DB.BeginTxx(ctx, nil)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.UpdateRating(ctx, tx, models.RatingDelta{
		PlayerID:  player.ID,
		NewRating: 1016,
		Won:       true,
	}))
	require.NoError(s.T(), tx.Commit())

	fetched, err := s.repo.GetByID(ctx, player.ID)
	require.NoError(s.T(), err)
	s.Equal(1016, fetched.Rating)
	s.Equal(1, fetched.MatchesWon)
	s.Equal(0, fetched.MatchesLost)
}

func (s *PlayerRepositorySuite) TestLeaderboardOrdersByRatingDescending() {
	ctx := context.Background()
	low := &models.Player{ID: uuid.New(), DisplayName: "low", Rating: 900, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	high := &models.Player{ID: uuid.New(), DisplayName: "high", Rating: 1800, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(s.T(), s.repo.Create(ctx, low))
	require.NoError(s.T(), s.repo.Create(ctx, high))

	board, err := s.repo.GetLeaderboard(ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), board, 2)
	s.Equal("high", board[0].DisplayName)
	s.Equal("low", board[1].DisplayName)
}
