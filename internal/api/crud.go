package api

import (
	"net/http"

	"canteen_system/internal/store"

	"github.com/gin-gonic/gin"
)

// RegisterCRUD mounts list, get, create, update and delete routes for one
// repository-backed resource on g.
func RegisterCRUD[T any, PT store.Validatable[T]](g *gin.RouterGroup, path string, repo *store.Repository[T, PT]) {
	r := g.Group(path)

	r.GET("", func(c *gin.Context) {
		page, pageSize := pageParams(c)
		result, err := repo.List(c.Request.Context(), page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		e, err := repo.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	})

	r.POST("", func(c *gin.Context) {
		e := PT(new(T))
		if !bindJSON(c, e) {
			return
		}
		if err := repo.Create(c.Request.Context(), e); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	})

	r.PUT("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		e := PT(new(T))
		if !bindJSON(c, e) {
			return
		}
		if err := repo.Update(c.Request.Context(), id, e); err != nil {
			respondError(c, err)
			return
		}
		updated, err := repo.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	r.DELETE("/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := repo.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
