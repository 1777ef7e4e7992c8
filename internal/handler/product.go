package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/storage"
)

// ProductHandler serves the catalog. Uploader may be nil, in which case
// multipart image uploads are rejected.
type ProductHandler struct {
	Catalog  *service.CatalogService
	Uploader storage.Uploader
}

func NewProductHandler(catalog *service.CatalogService, uploader storage.Uploader) *ProductHandler {
	if catalog == nil {
		panic("nil CatalogService passed to NewProductHandler")
	}
	return &ProductHandler{Catalog: catalog, Uploader: uploader}
}

type createProductReq struct {
	Name        string          `json:"name"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

// updateProductReq lists the only fields an update may touch; anything
// else in the body is ignored.
type updateProductReq struct {
	Name        *string          `json:"name"`
	ImageURL    *string          `json:"image_url"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	IsDeleted   *bool            `json:"is_deleted"`
}

// List returns the live catalog.
func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	ps, err := h.Catalog.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ps)
}

// Get returns one product, soft-deleted or not.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Create accepts JSON, or multipart/form-data with an optional image file
// whose public URL becomes image_url.
func (h *ProductHandler) Create(c echo.Context) error {
	var (
		in  service.ProductInput
		err error
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		in, err = h.fromForm(c)
	} else {
		var req createProductReq
		err = bind(c, &req)
		in = service.ProductInput{Name: req.Name, ImageURL: req.ImageURL, Price: req.Price, Description: req.Description}
	}
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.Create(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) fromForm(c echo.Context) (service.ProductInput, error) {
	in := service.ProductInput{
		Name:        c.FormValue("name"),
		ImageURL:    c.FormValue("image_url"),
		Description: c.FormValue("description"),
	}
	if raw := strings.TrimSpace(c.FormValue("price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return in, apperr.New(apperr.KindValidation, "price must be a number")
		}
		in.Price = price
	}

	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return in, apperr.Wrap(apperr.KindValidation, "invalid image upload", err)
	}
	if h.Uploader == nil {
		return in, apperr.New(apperr.KindValidation, "image uploads are not enabled")
	}
	if fh.Size > storage.MaxUploadBytes {
		return in, apperr.New(apperr.KindValidation, storage.ErrTooLarge.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return in, apperr.Internal(err)
	}
	defer f.Close()

	url, err := h.Uploader.Upload(c.Request().Context(), fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
	switch {
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupported):
		return in, apperr.New(apperr.KindValidation, err.Error())
	case err != nil:
		return in, apperr.Internal(err)
	}
	in.ImageURL = url
	return in, nil
}

// Update applies a partial update.
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateProductReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.Update(ctx, id, service.ProductPatch{
		Name:        req.Name,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Description: req.Description,
		IsDeleted:   req.IsDeleted,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Delete soft-deletes the product and reports how many orders were updated.
func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Catalog.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ack("product deleted", res))
}
