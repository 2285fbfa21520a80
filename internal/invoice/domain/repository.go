package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertItems(ctx context.Context, db *gorm.DB, items []InvoiceItem) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*Invoice, error)
	// FindByIDUnscoped is used by system paths that act on behalf of a
	// payment and carry no account.
	FindByIDUnscoped(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceItem, error)
	CountNumbersWithPrefix(ctx context.Context, db *gorm.DB, accountID snowflake.ID, prefix string) (int64, error)
	// TransitionStatus applies the transition only while the stored status is
	// one of t.From. It reports whether a row was updated.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, t Transition, now time.Time) (bool, error)
	UpdatePaymentLink(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, url string, now time.Time) error
	Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (bool, error)
}
