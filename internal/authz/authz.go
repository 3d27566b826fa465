package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Errors returned by an Authorizer.
var (
	ErrNoToken = errors.New("authz: missing bearer token")
	ErrDenied  = errors.New("authz: access denied")
)

// Authorizer decides whether a caller identity may read a site's analytics.
// Authentication itself is delegated to an external provider; this service
// only consumes the verdict.
type Authorizer interface {
	CheckAccess(ctx context.Context, token, siteID string) error
}

// AllowAll grants every request. For development and tests only.
type AllowAll struct{}

func (AllowAll) CheckAccess(context.Context, string, string) error { return nil }

// HTTPAuthorizer asks an external verifier over HTTP. Any non-200 response
// is treated as a denial.
type HTTPAuthorizer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAuthorizer builds an authorizer against the external verifier.
func NewHTTPAuthorizer(baseURL string) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (a *HTTPAuthorizer) CheckAccess(ctx context.Context, token, siteID string) error {
	if token == "" {
		return ErrNoToken
	}
	endpoint := fmt.Sprintf("%s/v1/verify?site_id=%s", a.baseURL, url.QueryEscape(siteID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ErrDenied
	}
	return nil
}

// RequireSiteAccess guards the query and live routes: 401 without a token,
// 403 when the verifier denies the site.
func RequireSiteAccess(auth Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if err := auth.CheckAccess(c.Request.Context(), token, c.Param("site_id")); err != nil {
			if errors.Is(err, ErrNoToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
