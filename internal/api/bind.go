package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"portfolioSaaS/internal/errcode"
)

// bindJSON 解析并校验请求体，失败时返回带字段明细的 Validation 错误。
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return invalidPayload(err)
	}
	return nil
}

func invalidPayload(err error) error {
	e := errcode.New(errcode.Validation, "Invalid payload")
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		e.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			e.Details[fieldPath(fe.Namespace())] = fe.Tag()
		}
	}
	return e
}

// fieldPath 去掉顶层结构体名：saveRequest.Data.Contact.Email -> Data.Contact.Email。
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
