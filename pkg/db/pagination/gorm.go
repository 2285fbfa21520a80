package pagination

import (
	"gorm.io/gorm"
)

// ApplyCursor orders stmt newest first and, when a page token is present,
// restricts it to rows after the cursor. It fetches one extra row so
// BuildCursorPageInfo can detect another page.
func ApplyCursor(stmt *gorm.DB, page Pagination, table string) (*gorm.DB, error) {
	createdAt := "created_at"
	id := "id"
	if table != "" {
		createdAt = table + ".created_at"
		id = table + ".id"
	}

	if page.PageToken != "" {
		cursor, err := DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		at, err := cursor.Time()
		if err != nil {
			return nil, ErrInvalidPageToken
		}
		stmt = stmt.Where("("+createdAt+" < ? OR ("+createdAt+" = ? AND "+id+" < ?))", at, at, cursor.ID)
	}

	return stmt.Order(createdAt + " desc, " + id + " desc").Limit(page.Size() + 1), nil
}
