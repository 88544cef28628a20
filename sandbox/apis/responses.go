package apis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// ClientWithResponses builds on ClientInterface to offer response payloads
type ClientWithResponses struct {
	ClientInterface
}

// NewClientWithResponses creates a new ClientWithResponses, which wraps
// Client with return type handling
func NewClientWithResponses(server string, opts ...ClientOption) (*ClientWithResponses, error) {
	client, err := NewClient(server, opts...)
	if err != nil {
		return nil, err
	}
	return &ClientWithResponses{client}, nil
}

// WithBaseURL overrides the baseURL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) error {
		c.Server = baseURL
		return nil
	}
}

// ClientWithResponsesInterface is the interface specification for the client with responses above.
type ClientWithResponsesInterface interface {
	// ListTemplatesWithResponse request
	ListTemplatesWithResponse(ctx context.Context, params *ListTemplatesParams, reqEditors ...RequestEditorFn) (*ListTemplatesResponse, error)

	// CreateTemplateWithBodyWithResponse request with any body
	CreateTemplateWithBodyWithResponse(ctx context.Context, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*CreateTemplateResponse, error)

	CreateTemplateWithResponse(ctx context.Context, body CreateTemplateJSONRequestBody, reqEditors ...RequestEditorFn) (*CreateTemplateResponse, error)

	// DeleteTemplateWithResponse request
	DeleteTemplateWithResponse(ctx context.Context, templateID TemplateID, reqEditors ...RequestEditorFn) (*DeleteTemplateResponse, error)

	// RebuildTemplateWithBodyWithResponse request with any body
	RebuildTemplateWithBodyWithResponse(ctx context.Context, templateID TemplateID, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*RebuildTemplateResponse, error)

	RebuildTemplateWithResponse(ctx context.Context, templateID TemplateID, body RebuildTemplateJSONRequestBody, reqEditors ...RequestEditorFn) (*RebuildTemplateResponse, error)

	// StartTemplateBuildWithResponse request
	StartTemplateBuildWithResponse(ctx context.Context, templateID TemplateID, buildID BuildID, reqEditors ...RequestEditorFn) (*StartTemplateBuildResponse, error)

	// GetTemplateBuildStatusWithResponse request
	GetTemplateBuildStatusWithResponse(ctx context.Context, templateID TemplateID, buildID BuildID, params *GetTemplateBuildStatusParams, reqEditors ...RequestEditorFn) (*GetTemplateBuildStatusResponse, error)

	// UploadTemplateBuildWithBodyWithResponse request with any body
	UploadTemplateBuildWithBodyWithResponse(ctx context.Context, templateID TemplateID, buildID BuildID, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*UploadTemplateBuildResponse, error)

	// GetTemplateBuildStatusV2WithResponse request
	GetTemplateBuildStatusV2WithResponse(ctx context.Context, templateID TemplateID, buildID BuildID, params *GetTemplateBuildStatusV2Params, reqEditors ...RequestEditorFn) (*GetTemplateBuildStatusV2Response, error)
}

type ListTemplatesResponse struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON200      *[]Template
}

// Status returns HTTPResponse.Status
func (r ListTemplatesResponse) Status() string {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.Status
	}
	return http.StatusText(0)
}

// StatusCode returns HTTPResponse.StatusCode
func (r ListTemplatesResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type CreateTemplateResponse struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON202      *Template
}

// Status returns HTTPResponse.Status
func (r CreateTemplateResponse) Status() string {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.Status
	}
	return http.StatusText(0)
}

// StatusCode returns HTTPResponse.StatusCode
func (r CreateTemplateResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type DeleteTemplateResponse struct {
	Body         []byte
	HTTPResponse *http.Response
}

// Status returns HTTPResponse.Status
func (r DeleteTemplateResponse) Status() string {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.Status
	}
	return http.StatusText(0)
}

// StatusCode returns HTTPResponse.StatusCode
func (r DeleteTemplateResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type RebuildTemplateResponse struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON202      *Template
}

// Status returns HTTPResponse.Status
func (r RebuildTemplateResponse) Status() string {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.Status
	}
	return http.StatusText(0)
}

// StatusCode returns HTTPResponse.StatusCode
func (r RebuildTemplateResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type StartTemplateBuildResponse struct {
	Body         []byte
	HTTPResponse *http.Response
}

// Status returns HTTPResponse.Status
func (r StartTemplateBuildResponse) Status() string {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.Status
	}
	return http.StatusText(0)
}

// StatusCode returns HTTPResponse.StatusCode
func (r StartTemplateBuildResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type GetTemplateBuildStatusResponse struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON200      *TemplateBuild
}

// Status returns HTTPResponse.Status
func (r GetTemplateBuildStatusResponse) Status() string {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.Status
	}
	return http.StatusText(0)
}

// StatusCode returns HTTPResponse.StatusCode
func (r GetTemplateBuildStatusResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type UploadTemplateBuildResponse struct {
	Body         []byte
	HTTPResponse *http.Response
}

// Status returns HTTPResponse.Status
func (r UploadTemplateBuildResponse) Status() string {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.Status
	}
	return http.StatusText(0)
}

// StatusCode returns HTTPResponse.StatusCode
func (r UploadTemplateBuildResponse) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

type GetTemplateBuildStatusV2Response struct {
	Body         []byte
	HTTPResponse *http.Response
	JSON200      *TemplateBuildInfoV2
}

// Status returns HTTPResponse.Status
func (r GetTemplateBuildStatusV2Response) Status() string {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.Status
	}
	return http.StatusText(0)
}

// StatusCode returns HTTPResponse.StatusCode
func (r GetTemplateBuildStatusV2Response) StatusCode() int {
	if r.HTTPResponse != nil {
		return r.HTTPResponse.StatusCode
	}
	return 0
}

// ListTemplatesWithResponse request returning *ListTemplatesResponse
func (c *ClientWithResponses) ListTemplatesWithResponse(ctx context.Context, params *ListTemplatesParams, reqEditors ...RequestEditorFn) (*ListTemplatesResponse, error) {
	rsp, err := c.ListTemplates(ctx, params, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseListTemplatesResponse(rsp)
}

// CreateTemplateWithBodyWithResponse request with arbitrary body returning *CreateTemplateResponse
func (c *ClientWithResponses) CreateTemplateWithBodyWithResponse(ctx context.Context, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*CreateTemplateResponse, error) {
	rsp, err := c.CreateTemplateWithBody(ctx, contentType, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseCreateTemplateResponse(rsp)
}

func (c *ClientWithResponses) CreateTemplateWithResponse(ctx context.Context, body CreateTemplateJSONRequestBody, reqEditors ...RequestEditorFn) (*CreateTemplateResponse, error) {
	rsp, err := c.CreateTemplate(ctx, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseCreateTemplateResponse(rsp)
}

// DeleteTemplateWithResponse request returning *DeleteTemplateResponse
func (c *ClientWithResponses) DeleteTemplateWithResponse(ctx context.Context, templateID TemplateID, reqEditors ...RequestEditorFn) (*DeleteTemplateResponse, error) {
	rsp, err := c.DeleteTemplate(ctx, templateID, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseDeleteTemplateResponse(rsp)
}

// RebuildTemplateWithBodyWithResponse request with arbitrary body returning *RebuildTemplateResponse
func (c *ClientWithResponses) RebuildTemplateWithBodyWithResponse(ctx context.Context, templateID TemplateID, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*RebuildTemplateResponse, error) {
	rsp, err := c.RebuildTemplateWithBody(ctx, templateID, contentType, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseRebuildTemplateResponse(rsp)
}

func (c *ClientWithResponses) RebuildTemplateWithResponse(ctx context.Context, templateID TemplateID, body RebuildTemplateJSONRequestBody, reqEditors ...RequestEditorFn) (*RebuildTemplateResponse, error) {
	rsp, err := c.RebuildTemplate(ctx, templateID, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseRebuildTemplateResponse(rsp)
}

// StartTemplateBuildWithResponse request returning *StartTemplateBuildResponse
func (c *ClientWithResponses) StartTemplateBuildWithResponse(ctx context.Context, templateID TemplateID, buildID BuildID, reqEditors ...RequestEditorFn) (*StartTemplateBuildResponse, error) {
	rsp, err := c.StartTemplateBuild(ctx, templateID, buildID, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseStartTemplateBuildResponse(rsp)
}

// GetTemplateBuildStatusWithResponse request returning *GetTemplateBuildStatusResponse
func (c *ClientWithResponses) GetTemplateBuildStatusWithResponse(ctx context.Context, templateID TemplateID, buildID BuildID, params *GetTemplateBuildStatusParams, reqEditors ...RequestEditorFn) (*GetTemplateBuildStatusResponse, error) {
	rsp, err := c.GetTemplateBuildStatus(ctx, templateID, buildID, params, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseGetTemplateBuildStatusResponse(rsp)
}

// UploadTemplateBuildWithBodyWithResponse request with arbitrary body returning *UploadTemplateBuildResponse
func (c *ClientWithResponses) UploadTemplateBuildWithBodyWithResponse(ctx context.Context, templateID TemplateID, buildID BuildID, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*UploadTemplateBuildResponse, error) {
	rsp, err := c.UploadTemplateBuildWithBody(ctx, templateID, buildID, contentType, body, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseUploadTemplateBuildResponse(rsp)
}

// GetTemplateBuildStatusV2WithResponse request returning *GetTemplateBuildStatusV2Response
func (c *ClientWithResponses) GetTemplateBuildStatusV2WithResponse(ctx context.Context, templateID TemplateID, buildID BuildID, params *GetTemplateBuildStatusV2Params, reqEditors ...RequestEditorFn) (*GetTemplateBuildStatusV2Response, error) {
	rsp, err := c.GetTemplateBuildStatusV2(ctx, templateID, buildID, params, reqEditors...)
	if err != nil {
		return nil, err
	}
	return ParseGetTemplateBuildStatusV2Response(rsp)
}

// ParseListTemplatesResponse parses an HTTP response from a ListTemplatesWithResponse call
func ParseListTemplatesResponse(rsp *http.Response) (*ListTemplatesResponse, error) {
	bodyBytes, err := readBody(rsp)
	if err != nil {
		return nil, err
	}

	response := &ListTemplatesResponse{
		Body:         bodyBytes,
		HTTPResponse: rsp,
	}

	if isJSON(rsp) && rsp.StatusCode == 200 {
		var dest []Template
		if err := json.Unmarshal(bodyBytes, &dest); err != nil {
			return nil, err
		}
		response.JSON200 = &dest
	}

	return response, nil
}

// ParseCreateTemplateResponse parses an HTTP response from a CreateTemplateWithResponse call
func ParseCreateTemplateResponse(rsp *http.Response) (*CreateTemplateResponse, error) {
	bodyBytes, err := readBody(rsp)
	if err != nil {
		return nil, err
	}

	response := &CreateTemplateResponse{
		Body:         bodyBytes,
		HTTPResponse: rsp,
	}

	if isJSON(rsp) && rsp.StatusCode == 202 {
		var dest Template
		if err := json.Unmarshal(bodyBytes, &dest); err != nil {
			return nil, err
		}
		response.JSON202 = &dest
	}

	return response, nil
}

// ParseDeleteTemplateResponse parses an HTTP response from a DeleteTemplateWithResponse call
func ParseDeleteTemplateResponse(rsp *http.Response) (*DeleteTemplateResponse, error) {
	bodyBytes, err := readBody(rsp)
	if err != nil {
		return nil, err
	}

	return &DeleteTemplateResponse{
		Body:         bodyBytes,
		HTTPResponse: rsp,
	}, nil
}

// ParseRebuildTemplateResponse parses an HTTP response from a RebuildTemplateWithResponse call
func ParseRebuildTemplateResponse(rsp *http.Response) (*RebuildTemplateResponse, error) {
	bodyBytes, err := readBody(rsp)
	if err != nil {
		return nil, err
	}

	response := &RebuildTemplateResponse{
		Body:         bodyBytes,
		HTTPResponse: rsp,
	}

	if isJSON(rsp) && rsp.StatusCode == 202 {
		var dest Template
		if err := json.Unmarshal(bodyBytes, &dest); err != nil {
			return nil, err
		}
		response.JSON202 = &dest
	}

	return response, nil
}

// ParseStartTemplateBuildResponse parses an HTTP response from a StartTemplateBuildWithResponse call
func ParseStartTemplateBuildResponse(rsp *http.Response) (*StartTemplateBuildResponse, error) {
	bodyBytes, err := readBody(rsp)
	if err != nil {
		return nil, err
	}

	return &StartTemplateBuildResponse{
		Body:         bodyBytes,
		HTTPResponse: rsp,
	}, nil
}

// ParseGetTemplateBuildStatusResponse parses an HTTP response from a GetTemplateBuildStatusWithResponse call
func ParseGetTemplateBuildStatusResponse(rsp *http.Response) (*GetTemplateBuildStatusResponse, error) {
	bodyBytes, err := readBody(rsp)
	if err != nil {
		return nil, err
	}

	response := &GetTemplateBuildStatusResponse{
		Body:         bodyBytes,
		HTTPResponse: rsp,
	}

	if isJSON(rsp) && rsp.StatusCode == 200 {
		var dest TemplateBuild
		if err := json.Unmarshal(bodyBytes, &dest); err != nil {
			return nil, err
		}
		response.JSON200 = &dest
	}

	return response, nil
}

// ParseUploadTemplateBuildResponse parses an HTTP response from a UploadTemplateBuildWithResponse call
func ParseUploadTemplateBuildResponse(rsp *http.Response) (*UploadTemplateBuildResponse, error) {
	bodyBytes, err := readBody(rsp)
	if err != nil {
		return nil, err
	}

	return &UploadTemplateBuildResponse{
		Body:         bodyBytes,
		HTTPResponse: rsp,
	}, nil
}

// ParseGetTemplateBuildStatusV2Response parses an HTTP response from a GetTemplateBuildStatusV2WithResponse call
func ParseGetTemplateBuildStatusV2Response(rsp *http.Response) (*GetTemplateBuildStatusV2Response, error) {
	bodyBytes, err := readBody(rsp)
	if err != nil {
		return nil, err
	}

	response := &GetTemplateBuildStatusV2Response{
		Body:         bodyBytes,
		HTTPResponse: rsp,
	}

	if isJSON(rsp) && rsp.StatusCode == 200 {
		var dest TemplateBuildInfoV2
		if err := json.Unmarshal(bodyBytes, &dest); err != nil {
			return nil, err
		}
		response.JSON200 = &dest
	}

	return response, nil
}

func readBody(rsp *http.Response) ([]byte, error) {
	bodyBytes, err := io.ReadAll(rsp.Body)
	defer func() { _ = rsp.Body.Close() }()
	return bodyBytes, err
}

func isJSON(rsp *http.Response) bool {
	return strings.Contains(rsp.Header.Get("Content-Type"), "json")
}
