package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *gorm.DB, *snowflake.Node) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&paymentdomain.Payment{}, &authdomain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	sched, err := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(now),
		Config: cfg,
	})
	require.NoError(t, err)
	return sched, conn, node
}

func seedAttempt(t *testing.T, conn *gorm.DB, node *snowflake.Node, status paymentdomain.AttemptStatus, age time.Duration) snowflake.ID {
	t.Helper()
	id := node.Generate()
	created := now.Add(-age)
	require.NoError(t, conn.Create(&paymentdomain.Payment{
		ID:        id,
		Reference: id.String(),
		InvoiceID: 1,
		Gateway:   "simulator",
		Method:    invoicedomain.PaymentMethodPaypal,
		Amount:    decimal.NewFromInt(10),
		Currency:  "usd",
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}).Error)
	return id
}

func attemptStatus(t *testing.T, conn *gorm.DB, id snowflake.ID) paymentdomain.Payment {
	t.Helper()
	var row paymentdomain.Payment
	require.NoError(t, conn.First(&row, "id = ?", id).Error)
	return row
}

func TestCloseStaleAttemptsJob(t *testing.T) {
	sched, conn, node := newTestScheduler(t, Config{BatchSize: 2})

	stale := []snowflake.ID{
		seedAttempt(t, conn, node, paymentdomain.AttemptPending, time.Hour),
		seedAttempt(t, conn, node, paymentdomain.AttemptPending, 30*time.Minute),
		seedAttempt(t, conn, node, paymentdomain.AttemptPending, 11*time.Minute),
	}
	fresh := seedAttempt(t, conn, node, paymentdomain.AttemptPending, time.Minute)
	done := seedAttempt(t, conn, node, paymentdomain.AttemptCompleted, time.Hour)

	ctx, run := sched.startJobRun(context.Background(), JobStaleAttempts)
	require.NoError(t, sched.CloseStaleAttemptsJob(ctx))
	assert.Equal(t, 3, run.processedCount)

	for _, id := range stale {
		row := attemptStatus(t, conn, id)
		assert.Equal(t, paymentdomain.AttemptError, row.Status)
		assert.Equal(t, abandonedMessage, row.Message)
	}
	assert.Equal(t, paymentdomain.AttemptPending, attemptStatus(t, conn, fresh).Status)
	assert.Equal(t, paymentdomain.AttemptCompleted, attemptStatus(t, conn, done).Status)
}

func TestPurgeSessionsJob(t *testing.T) {
	sched, conn, node := newTestScheduler(t, Config{})

	revokedAt := now.Add(-48 * time.Hour)
	recentRevoke := now.Add(-time.Hour)
	sessions := []authdomain.Session{
		{ID: node.Generate(), AccountID: 1, SessionTokenHash: "a", ExpiresAt: now.Add(-72 * time.Hour), CreatedAt: now, LastSeenAt: now},
		{ID: node.Generate(), AccountID: 1, SessionTokenHash: "b", ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt, CreatedAt: now, LastSeenAt: now},
		{ID: node.Generate(), AccountID: 1, SessionTokenHash: "c", ExpiresAt: now.Add(time.Hour), RevokedAt: &recentRevoke, CreatedAt: now, LastSeenAt: now},
		{ID: node.Generate(), AccountID: 1, SessionTokenHash: "d", ExpiresAt: now.Add(-time.Hour), CreatedAt: now, LastSeenAt: now},
	}
	require.NoError(t, conn.Create(&sessions).Error)

	ctx, run := sched.startJobRun(context.Background(), JobExpiredSessions)
	require.NoError(t, sched.PurgeSessionsJob(ctx))
	assert.Equal(t, 2, run.processedCount)

	var left []string
	require.NoError(t, conn.Model(&authdomain.Session{}).Order("session_token_hash").Pluck("session_token_hash", &left).Error)
	assert.Equal(t, []string{"c", "d"}, left)
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	sched, conn, node := newTestScheduler(t, Config{EnabledJobs: []string{JobExpiredSessions}})
	id := seedAttempt(t, conn, node, paymentdomain.AttemptPending, time.Hour)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, paymentdomain.AttemptPending, attemptStatus(t, conn, id).Status)

	sched.cfg.EnabledJobs = nil
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, paymentdomain.AttemptError, attemptStatus(t, conn, id).Status)
}

func TestRunJobTreatsTimeoutAsSoft(t *testing.T) {
	sched, _, _ := newTestScheduler(t, Config{})

	err := sched.runJob(context.Background(), "slow", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, err)

	boom := errors.New("boom")
	err = sched.runJob(context.Background(), "broken", time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, DefaultConfig(), Config{}.withDefaults())
}
