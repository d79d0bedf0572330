package handlers

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"katalog/internal/catalog"
	"katalog/internal/models"
	"katalog/internal/services"
	"katalog/pkg/imagehost"
)

// StatusClientClosedRequest is returned when the caller abandoned the request.
const StatusClientClosedRequest = 499

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	log     *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/catalog", h.HandleCatalog)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleListProducts returns every product, newest first.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Could not retrieve products")
	}
	return c.JSON(models.ToResponses(products))
}

// CatalogResponse is one page of the filtered catalog.
type CatalogResponse struct {
	Items      []models.ProductResponse `json:"items"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"pageSize"`
	TotalPages int                      `json:"totalPages"`
	TotalItems int                      `json:"totalItems"`
}

// HandleCatalog filters the listing by the search, minPrice and maxPrice
// query parameters and returns the requested page.
func (h *ProductHandler) HandleCatalog(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Could not retrieve products")
	}

	state := catalog.State{
		SearchTerm:  c.Query("search"),
		MinPrice:    c.Query("minPrice"),
		MaxPrice:    c.Query("maxPrice"),
		CurrentPage: c.QueryInt("page", 1),
	}
	page := catalog.Compute(products, state)

	return c.JSON(CatalogResponse{
		Items:      models.ToResponses(page.Items),
		Page:       page.Number,
		PageSize:   catalog.PageSize,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
	})
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return badID(c, err)
	}

	product, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "Could not retrieve product")
	}
	return c.JSON(product.ToResponse())
}

// HandleCreateProduct creates a product from a multipart or urlencoded form.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	input, err := parseProductForm(c)
	if err != nil {
		return badForm(c, err)
	}

	product, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return h.fail(c, err, "Could not create product")
	}

	c.Location(fmt.Sprintf("%s/%d", strings.TrimRight(c.Path(), "/"), product.ID))
	return c.Status(fiber.StatusCreated).JSON(product.ToResponse())
}

// HandleUpdateProduct overwrites an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return badID(c, err)
	}

	input, err := parseProductForm(c)
	if err != nil {
		return badForm(c, err)
	}

	product, err := h.service.Update(c.UserContext(), id, input)
	if err != nil {
		return h.fail(c, err, "Could not update product")
	}
	return c.JSON(product.ToResponse())
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return badID(c, err)
	}

	deleted, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "Could not delete product")
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %d not found", id),
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// fail maps service errors to HTTP responses.
func (h *ProductHandler) fail(c *fiber.Ctx, err error, message string) error {
	var (
		validationErr *services.ValidationError
		uploadErr     *imagehost.UploadError
	)
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErr.Fields,
		})
	case errors.Is(err, services.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", c.Params("id")),
		})
	case errors.Is(err, services.ErrCancelled):
		h.log.Info("Request cancelled", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(StatusClientClosedRequest).JSON(fiber.Map{
			"message": "Request cancelled",
		})
	case errors.As(err, &uploadErr):
		h.log.Error("Image upload failed", zap.String("host", uploadErr.Host), zap.Error(uploadErr.Err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Image upload failed",
			"error":   err.Error(),
		})
	default:
		h.log.Error(message, zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	}
}

func badForm(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

func productID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("product ID must be a positive integer, got %q", c.Params("id"))
	}
	return uint(id), nil
}

func badID(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid product ID",
		"error":   err.Error(),
	})
}

// parseProductForm reads name, description, price and the optional image
// file from the request form.
func parseProductForm(c *fiber.Ctx) (services.ProductInput, error) {
	input := services.ProductInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       c.FormValue("price"),
	}

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, fasthttp.ErrMissingFile), errors.Is(err, fasthttp.ErrNoMultipartForm):
		return input, nil
	case err != nil:
		return input, err
	case fh.Size == 0:
		// Browsers send an empty part when no file was picked.
		return input, nil
	}

	f, err := fh.Open()
	if err != nil {
		return input, fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return input, fmt.Errorf("failed to read uploaded image: %w", err)
	}
	input.Image = &imagehost.Blob{Filename: fh.Filename, Data: data}
	return input, nil
}
