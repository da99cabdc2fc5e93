package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// File is one upload part.
type File struct {
	Name string
	Body io.Reader
}

// Upload sends a single file as multipart field "file" and returns its public URL.
func (c *Client) Upload(ctx context.Context, jwt string, f File) (string, error) {
	body, ct, err := multipartBody("file", []File{f})
	if err != nil {
		return "", err
	}
	var out struct {
		FileURL string `json:"fileUrl"`
	}
	err = c.do(ctx, request{method: http.MethodPost, path: "/files/upload", jwt: jwt, body: body, contentType: ct}, &out)
	return out.FileURL, err
}

// UploadMultiple sends files as repeated multipart field "files".
func (c *Client) UploadMultiple(ctx context.Context, jwt string, files []File) ([]string, error) {
	body, ct, err := multipartBody("files", files)
	if err != nil {
		return nil, err
	}
	var out struct {
		FileURLs []string `json:"fileUrls"`
	}
	err = c.do(ctx, request{method: http.MethodPost, path: "/files/upload-multiple", jwt: jwt, body: body, contentType: ct}, &out)
	return out.FileURLs, err
}

func multipartBody(field string, files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
