package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"canteen_system/internal/service" // Business operations
	"canteen_system/internal/upload"  // Image storage

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListProductsHandler returns the catalog. The public route lists active
// products only; the admin route includes inactive ones.
func ListProductsHandler(svc *service.Service, includeInactive bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, cached, err := svc.ListProducts(c.Request.Context(), includeInactive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products, "cached": cached})
	}
}

func GetProductHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		p, err := svc.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func CreateProductHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.ProductInput
		if !bindJSON(c, &req) {
			return
		}
		p, err := svc.CreateProduct(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func UpdateProductHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req service.ProductInput
		if !bindJSON(c, &req) {
			return
		}
		p, err := svc.UpdateProduct(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// DeleteProductHandler deactivates a product; purchase history keeps referencing it
func DeleteProductHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := svc.DeleteProduct(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deactivated"})
	}
}

// RestockRequest adjusts stock; negative deltas write off damaged goods
type RestockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func RestockHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req RestockRequest
		if !bindJSON(c, &req) {
			return
		}
		p, err := svc.Restock(c.Request.Context(), id, req.Delta)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

const multipartOverhead = 64 << 10

// UploadProductImageHandler stores the multipart "image" field as the product photo
func UploadProductImageHandler(svc *service.Service, images *upload.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if _, err := svc.GetProduct(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		// Room for the multipart envelope on top of the image itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, images.MaxBytes+multipartOverhead)
		file, err := c.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		src, err := file.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer src.Close()

		path, err := images.SaveProductImage(src)
		if err != nil {
			respondError(c, err)
			return
		}
		p, err := svc.SetProductImage(c.Request.Context(), id, path)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
