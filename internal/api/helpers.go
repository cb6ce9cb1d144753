package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"reflect"  // Custom validator type funcs
	"strconv"  // String conversion

	"canteen_system/internal/apperr"     // Typed errors
	"canteen_system/internal/middleware" // Context keys

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/gin-gonic/gin/binding"       // Gin request binding
	"github.com/go-playground/validator/v10" // Struct validation
	"github.com/shopspring/decimal"          // Money
	"github.com/sirupsen/logrus"             // Logging library
)

func init() {
	// decimal.Decimal validates as a number so tags like gt=0 work on money fields
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	}
}

// bindJSON binds and validates the body. It writes the 400 response itself
// and returns false when the request is invalid.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "fields": fields})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	return false
}

// respondError maps a service error to its status and message
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err.Error(),
		}).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

// currentUserID returns the authenticated user's id, 0 if none
func currentUserID(c *gin.Context) uint {
	id, _ := c.Get(middleware.UserIDKey)
	uid, _ := id.(uint)
	return uid
}

func currentRole(c *gin.Context) string {
	return c.GetString(middleware.RoleKey)
}

// parseID reads a positive numeric path parameter, answering 400 otherwise
func parseID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// pageParams reads page and page_size; out-of-range values fall back to defaults later
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return page, pageSize
}
