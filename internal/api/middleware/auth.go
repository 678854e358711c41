package middleware

import (
	"context"

	"job-portal-go/internal/logger"
	"job-portal-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// PrincipalKey 请求上下文中主体信息的键
const PrincipalKey = "principal"

// Principal 已认证的请求主体
type Principal struct {
	UserID string
	Name   string
	Role   string
}

// Auth 创建Bearer token认证中间件，token换取用户主体
func Auth(mysql *storage.MySQL) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, token string) (bool, error) {
			user, err := mysql.FindUserByAPIToken(ctx, token)
			if err != nil {
				logger.Error().Err(err).Msg("按token查询用户失败")
				return false, err
			}
			if user == nil {
				return false, nil
			}
			c.Set(PrincipalKey, &Principal{
				UserID: user.UserID,
				Name:   user.Name,
				Role:   user.Role,
			})
			return true, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "未认证或令牌无效"})
			c.Abort()
		}),
	)
}

// CurrentPrincipal 取出当前请求的主体，未认证时为nil
func CurrentPrincipal(c *app.RequestContext) *Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return nil
}

// RequireRole 角色门禁，主体角色不在名单内时返回403
func RequireRole(roles ...string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		p := CurrentPrincipal(c)
		if p == nil {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "未认证或令牌无效"})
			c.Abort()
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next(ctx)
				return
			}
		}
		c.JSON(consts.StatusForbidden, utils.H{"error": "权限不足"})
		c.Abort()
	}
}
