package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/service"
)

// multipartMemory is the part of a multipart form kept in memory; the rest spills to disk.
const multipartMemory = 8 << 20

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	paidOnly, err := boolQuery(r, "paid")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	featuredOnly, err := boolQuery(r, "featured")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := a.catalog.ListProducts(r.Context(), service.ListProductsInput{
		Search:       q.Get("search"),
		Category:     q.Get("category"),
		PaidOnly:     paidOnly,
		FeaturedOnly: featuredOnly,
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListBody(result))
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	product, err := a.catalog.GetProduct(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type createProductRequest struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Tags             string          `json:"tags"`
	IsPaid           bool            `json:"is_paid"`
	Price            decimal.Decimal `json:"price"`
	IsFeatured       bool            `json:"is_featured"`
	ExternalURL      string          `json:"external_url"`
	ExternalImageURL string          `json:"external_image_url"`
}

func (req createProductRequest) input() service.CreateProductInput {
	return service.CreateProductInput{
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Tags:             req.Tags,
		IsPaid:           req.IsPaid,
		Price:            req.Price,
		IsFeatured:       req.IsFeatured,
		ExternalURL:      req.ExternalURL,
		ExternalImageURL: req.ExternalImageURL,
	}
}

// handleCreateProduct accepts either a JSON body or a multipart form with
// optional "file" and "image" parts.
func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if err := principal.RequireAdmin(); err != nil {
		a.fail(w, r, err)
		return
	}

	var input service.CreateProductInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		form, err := a.parseProductForm(w, r)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		defer form.RemoveAll()

		input, err = productFormInput(form)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		for field, dst := range map[string]**service.Upload{"file": &input.File, "image": &input.Image} {
			up, closeFn, err := formUpload(form, field)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			if closeFn != nil {
				defer closeFn()
			}
			*dst = up
		}
	} else {
		var req createProductRequest
		if err := decodeJSON(r, &req); err != nil {
			a.fail(w, r, err)
			return
		}
		input = req.input()
	}

	product, err := a.catalog.CreateProduct(r.Context(), principal, input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *API) parseProductForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	if a.maxUpload > 0 {
		// Room for two uploads plus the text fields.
		r.Body = http.MaxBytesReader(w, r.Body, 2*a.maxUpload+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.NewValidationError("body", "is too large")
		}
		return nil, domain.NewValidationError("body", "is not a valid multipart form")
	}
	return r.MultipartForm, nil
}

func productFormInput(form *multipart.Form) (service.CreateProductInput, error) {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	flag := func(key string) (bool, error) {
		v := value(key)
		if v == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, domain.NewValidationError(key, "must be a boolean")
		}
		return b, nil
	}

	isPaid, err := flag("is_paid")
	if err != nil {
		return service.CreateProductInput{}, err
	}
	isFeatured, err := flag("is_featured")
	if err != nil {
		return service.CreateProductInput{}, err
	}

	price := decimal.Zero
	if v := strings.TrimSpace(value("price")); v != "" {
		price, err = decimal.NewFromString(v)
		if err != nil {
			return service.CreateProductInput{}, domain.NewValidationError("price", "must be a decimal number")
		}
	}

	return service.CreateProductInput{
		Name:             value("name"),
		Description:      value("description"),
		Category:         value("category"),
		Tags:             value("tags"),
		IsPaid:           isPaid,
		Price:            price,
		IsFeatured:       isFeatured,
		ExternalURL:      value("external_url"),
		ExternalImageURL: value("external_image_url"),
	}, nil
}

func formUpload(form *multipart.Form, field string) (*service.Upload, func(), error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, nil, domain.NewValidationError(field, "could not be read")
	}
	return &service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, func() { f.Close() }, nil
}

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	ref, err := a.acquisition.Download(r.Context(), auth.GetPrincipal(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

type createTicketRequest struct {
	Description   string `json:"description"`
	PaymentMethod string `json:"payment_method"`
}

func (a *API) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req createTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	ticket, err := a.acquisition.CreateTicket(r.Context(), auth.GetPrincipal(r.Context()), service.CreateTicketInput{
		ProductID:     id,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (a *API) handleListTickets(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	result, err := a.acquisition.ListTickets(r.Context(), auth.GetPrincipal(r.Context()), service.ListTicketsInput{
		Status: domain.TicketStatus(r.URL.Query().Get("status")),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListBody(result))
}
