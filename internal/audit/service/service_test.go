package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/accountcontext"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/audit/repository"
	"github.com/smallbiznis/invoicer/internal/clock"
	obscontext "github.com/smallbiznis/invoicer/internal/observability/context"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
	})
}

func TestRecordMasksAndScopes(t *testing.T) {
	svc := newTestService(t)
	ctx := accountcontext.WithAccountID(context.Background(), snowflake.ID(9))
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = obscontext.WithActor(ctx, "user", "u-1")

	err := svc.Record(ctx, auditdomain.Entry{
		Action:     "invoice.create",
		TargetType: "invoice",
		TargetID:   "100",
		Metadata:   map[string]any{"client_email": "jane@example.com", "total": "97.65"},
	})
	require.NoError(t, err)

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 10}})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	row := resp.AuditLogs[0]
	assert.Equal(t, "invoice.create", row.Action)
	assert.Equal(t, "user", row.ActorType)
	require.NotNil(t, row.ActorID)
	assert.Equal(t, "u-1", *row.ActorID)
	assert.Equal(t, "97.65", row.Metadata["total"])
	assert.NotEqual(t, "jane@example.com", row.Metadata["client_email"])
	assert.Equal(t, "req-1", row.Metadata["request_id"])

	other := accountcontext.WithAccountID(context.Background(), snowflake.ID(10))
	resp, err = svc.List(other, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.AuditLogs)
}

func TestRecordRequiresAction(t *testing.T) {
	svc := newTestService(t)
	err := svc.Record(context.Background(), auditdomain.Entry{Action: " "})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}
