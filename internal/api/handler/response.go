package handler

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
)

func respondError(c *app.RequestContext, status int, msg string) {
	c.JSON(status, utils.H{"error": msg})
}
