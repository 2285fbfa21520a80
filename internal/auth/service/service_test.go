package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/accountcontext"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/auth/repository"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (authdomain.Service, *clock.FakeClock) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&authdomain.Account{}, &authdomain.Session{}))

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	return New(Params{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       clk,
	}), clk
}

func TestRegisterValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, authdomain.RegisterRequest{Email: "nope", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)

	_, err = svc.Register(ctx, authdomain.RegisterRequest{Email: "alice@example.com", Password: "short"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidPassword)

	account, err := svc.Register(ctx, authdomain.RegisterRequest{Email: "Alice@Example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", account.Email)
	assert.Equal(t, "alice", account.Name)
	assert.NotContains(t, account.PasswordHash, "long-enough")

	_, err = svc.Register(ctx, authdomain.RegisterRequest{Email: "alice@example.com", Password: "another-one"})
	assert.ErrorIs(t, err, authdomain.ErrAccountExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), authdomain.RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	svc, clk := newTestService(t)
	account, err := svc.Register(context.Background(), authdomain.RegisterRequest{
		Name:     "Alice Studio",
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:     "alice@example.com",
		Password:  "correct-password",
		IPAddress: "203.0.113.9",
	})
	require.NoError(t, err)
	assert.Len(t, result.RawToken, 43)
	assert.Equal(t, clk.Now().Add(SessionTTL), result.ExpiresAt)

	session, err := svc.Authenticate(context.Background(), result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.AccountID)

	ctx := accountcontext.WithAccountID(context.Background(), session.AccountID)
	current, err := svc.CurrentAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice Studio", current.Name)

	_, err = svc.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)

	require.NoError(t, svc.Logout(context.Background(), result.RawToken))
	_, err = svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
	assert.ErrorIs(t, svc.Logout(context.Background(), result.RawToken), authdomain.ErrInvalidSession)
}

func TestSessionExpires(t *testing.T) {
	svc, clk := newTestService(t)
	_, err := svc.Register(context.Background(), authdomain.RegisterRequest{Email: "bob@example.com", Password: "correct-password"})
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), authdomain.LoginRequest{Email: "bob@example.com", Password: "correct-password"})
	require.NoError(t, err)

	clk.Advance(SessionTTL)
	_, err = svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}
