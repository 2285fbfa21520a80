package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*Client, error)
	List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter ListClientFilter, page pagination.Pagination) ([]*Client, error)
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (bool, error)
	Count(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error)
}
