package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// File is one file part of a multipart form.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Form is a multipart body: plain fields plus file parts, in that order.
type Form struct {
	Fields map[string]string
	Files  []File
}

func (c *Client) PostMultipart(ctx context.Context, path string, form Form, out any) error {
	return c.sendMultipart(ctx, http.MethodPost, path, form, out)
}

func (c *Client) PutMultipart(ctx context.Context, path string, form Form, out any) error {
	return c.sendMultipart(ctx, http.MethodPut, path, form, out)
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, form Form, out any) error {
	body, contentType, err := encodeForm(form)
	if err != nil {
		return fmt.Errorf("[apiclient] encode %s %s: %w", method, path, err)
	}
	resp, err := c.Do(ctx, &Envelope{Method: method, Path: path, Body: body, ContentType: contentType})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// encodeForm buffers the whole form; the bytes are needed again if the request is replayed.
func encodeForm(form Form) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range form.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	for _, f := range form.Files {
		if f.Field == "" || f.Content == nil {
			return nil, "", fmt.Errorf("file part needs a field name and content")
		}
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
