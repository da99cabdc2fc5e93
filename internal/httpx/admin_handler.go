package httpx

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/apperr"
	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type Admin interface {
	ListCollections(ctx context.Context) ([]storefront.Collection, error)
	CreateProduct(ctx context.Context, jwt string, in storefront.ProductRequest) (storefront.Product, error)
	UpdateProduct(ctx context.Context, jwt, id string, in storefront.ProductRequest) (storefront.Product, error)
	Upload(ctx context.Context, jwt string, f backend.File) (string, error)
	UploadMultiple(ctx context.Context, jwt string, files []backend.File) ([]string, error)
}

const maxUploadBytes = 32 << 20

// AdminHandler validates product forms and relays uploads.
type AdminHandler struct {
	Auth      *Auth
	Admin     Admin
	Validator *storefront.Validator
	Log       *zap.Logger
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Require)
		r.Post("/bff/admin/products", h.create)
		r.Put("/bff/admin/products/{id}", h.update)
		r.Post("/bff/files/upload", h.upload)
		r.Post("/bff/files/upload-multiple", h.uploadMultiple)
	})
}

func (h *AdminHandler) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *AdminHandler) update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *AdminHandler) save(w http.ResponseWriter, r *http.Request, productID string) {
	var in storefront.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		apperr.Write(w, apperr.BadRequest("invalid json"))
		return
	}

	var collections []storefront.Collection
	if len(in.CollectionIDs) > 0 {
		cs, err := h.Admin.ListCollections(r.Context())
		if err != nil {
			h.Log.Warn("collections lookup", zap.Error(err))
		}
		collections = cs
	}

	req, err := h.Validator.Build(in, productID, collections)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	sess, _ := SessionFrom(r.Context())
	var p storefront.Product
	if productID == "" {
		p, err = h.Admin.CreateProduct(r.Context(), sess.JWT, req)
	} else {
		p, err = h.Admin.UpdateProduct(r.Context(), sess.JWT, productID, req)
	}
	if err != nil {
		h.Auth.Fail(w, r, err)
		return
	}
	code := http.StatusOK
	if productID == "" {
		code = http.StatusCreated
	}
	writeJSON(w, code, p)
}

func (h *AdminHandler) upload(w http.ResponseWriter, r *http.Request) {
	files, cleanup, err := formFiles(w, r, "file")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	defer cleanup()

	sess, _ := SessionFrom(r.Context())
	u, err := h.Admin.Upload(r.Context(), sess.JWT, files[0])
	if err != nil {
		h.Auth.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fileUrl": u})
}

func (h *AdminHandler) uploadMultiple(w http.ResponseWriter, r *http.Request) {
	files, cleanup, err := formFiles(w, r, "files")
	if err != nil {
		apperr.Write(w, err)
		return
	}
	defer cleanup()

	sess, _ := SessionFrom(r.Context())
	us, err := h.Admin.UploadMultiple(r.Context(), sess.JWT, files)
	if err != nil {
		h.Auth.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"fileUrls": us})
}

// formFiles opens every part named field. cleanup closes them and removes temp files.
func formFiles(w http.ResponseWriter, r *http.Request, field string) ([]backend.File, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, apperr.BadRequest("invalid multipart form")
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		_ = r.MultipartForm.RemoveAll()
		return nil, nil, apperr.BadRequest("missing " + field)
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}
	files := make([]backend.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, nil, apperr.BadRequest("unreadable file " + fh.Filename)
		}
		opened = append(opened, f)
		files = append(files, backend.File{Name: fh.Filename, Body: f})
	}
	return files, cleanup, nil
}
