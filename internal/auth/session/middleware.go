package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicer/internal/accountcontext"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	obscontext "github.com/smallbiznis/invoicer/internal/observability/context"
)

const accountIDKey = "account_id"

// RequireAccount authenticates the session and puts its account into the
// request context. Requests without a live session get 401.
func RequireAccount(authsvc authdomain.Service, sessions *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessions.ReadToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authdomain.ErrInvalidSession.Error()})
			return
		}

		sess, err := authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authdomain.ErrInvalidSession.Error()})
			return
		}

		accountID := sess.AccountID.String()
		ctx := accountcontext.WithAccountID(c.Request.Context(), sess.AccountID)
		ctx = obscontext.WithAccountID(ctx, accountID)
		ctx = obscontext.WithActor(ctx, "user", accountID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(accountIDKey, accountID)
		c.Next()
	}
}
