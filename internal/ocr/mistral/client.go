package mistral

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

var ErrUnsupported = errors.New("unsupported file type")

// Client calls the Mistral OCR endpoint with the whole document inlined as a
// data URL.
type Client struct {
	client *http.Client

	url   string
	token string

	model string
}

func New(options ...Option) (*Client, error) {
	c := &Client{
		client: http.DefaultClient,

		url: "https://api.mistral.ai/v1/",

		model: "mistral-ocr-latest",
	}

	for _, option := range options {
		option(c)
	}

	if c.token == "" {
		return nil, errors.New("mistral: token is required")
	}

	return c, nil
}

// Document is the recognized text, one entry per page in page order.
type Document struct {
	Model string
	Pages []string
}

// Text joins the non-empty pages.
func (d *Document) Text() string {
	var b strings.Builder
	for _, p := range d.Pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
	}
	return strings.TrimSpace(b.String())
}

// ExtractFile reads path and sends it for recognition.
func (c *Client) ExtractFile(ctx context.Context, name string) (*Document, error) {
	contentType, ok := contentTypeFor(name)
	if !ok {
		return nil, ErrUnsupported
	}
	data, err := os.ReadFile(filepath.Clean(name))
	if err != nil {
		return nil, err
	}
	return c.Extract(ctx, filepath.Base(name), contentType, data)
}

func (c *Client) Extract(ctx context.Context, name, contentType string, content []byte) (*Document, error) {
	dataurl := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(content)

	document := map[string]any{
		"type":          "document_url",
		"document_name": name,
		"document_url":  dataurl,
	}
	if strings.HasPrefix(contentType, "image/") {
		document = map[string]any{
			"type":      "image_url",
			"image_url": dataurl,
		}
	}

	body := map[string]any{
		"model":    c.model,
		"document": document,
	}

	data, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(c.url, "/")+"/ocr", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, convertError(resp)
	}

	var response Response

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	return convertResult(&response), nil
}

func convertResult(response *Response) *Document {
	pages := slices.Clone(response.Pages)
	slices.SortStableFunc(pages, func(a, b Page) int { return a.Index - b.Index })

	doc := &Document{Model: response.Model}
	for _, p := range pages {
		doc.Pages = append(doc.Pages, p.Markdown)
	}
	return doc
}

func contentTypeFor(name string) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	ct, ok := SupportedExtensions[ext]
	return ct, ok
}

func convertError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	if len(data) == 0 {
		return fmt.Errorf("mistral: %s", http.StatusText(resp.StatusCode))
	}

	return fmt.Errorf("mistral: %s: %s", http.StatusText(resp.StatusCode), strings.TrimSpace(string(data)))
}
