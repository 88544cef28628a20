package apis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
)

// RequestEditorFn  is the function signature for the RequestEditor callback function
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// Doer performs HTTP requests.
//
// The standard http.Client implements this interface.
type HttpRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client which conforms to the OpenAPI3 specification for this service.
type Client struct {
	// The endpoint of the server conforming to this interface, with scheme,
	// https://api.deepmap.com for example. This can contain a path relative
	// to the server, such as https://api.deepmap.com/dev-test, and all the
	// paths in the swagger spec will be appended to the server.
	Server string

	// Doer for performing requests, typically a *http.Client with any
	// customized settings, such as certificate chains.
	Client HttpRequestDoer

	// A list of callbacks for modifying requests which are generated before sending over
	// the network.
	RequestEditors []RequestEditorFn
}

// ClientOption allows setting custom parameters during construction
type ClientOption func(*Client) error

// Creates a new Client, with reasonable defaults
func NewClient(server string, opts ...ClientOption) (*Client, error) {
	client := Client{
		Server: server,
	}
	for _, o := range opts {
		if err := o(&client); err != nil {
			return nil, err
		}
	}
	// ensure the server URL always has a trailing slash
	if !strings.HasSuffix(client.Server, "/") {
		client.Server += "/"
	}
	if client.Client == nil {
		client.Client = &http.Client{}
	}
	return &client, nil
}

// WithHTTPClient allows overriding the default Doer, which is
// automatically created using http.Client. This is useful for tests.
func WithHTTPClient(doer HttpRequestDoer) ClientOption {
	return func(c *Client) error {
		c.Client = doer
		return nil
	}
}

// WithRequestEditorFn allows setting up a callback function, which will be
// called right before sending the request. This can be used to mutate the request.
func WithRequestEditorFn(fn RequestEditorFn) ClientOption {
	return func(c *Client) error {
		c.RequestEditors = append(c.RequestEditors, fn)
		return nil
	}
}

// The interface specification for the client above.
type ClientInterface interface {
	// ListTemplates request
	ListTemplates(ctx context.Context, params *ListTemplatesParams, reqEditors ...RequestEditorFn) (*http.Response, error)

	// CreateTemplateWithBody request with any body
	CreateTemplateWithBody(ctx context.Context, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*http.Response, error)

	CreateTemplate(ctx context.Context, body CreateTemplateJSONRequestBody, reqEditors ...RequestEditorFn) (*http.Response, error)

	// DeleteTemplate request
	DeleteTemplate(ctx context.Context, templateID TemplateID, reqEditors ...RequestEditorFn) (*http.Response, error)

	// RebuildTemplateWithBody request with any body
	RebuildTemplateWithBody(ctx context.Context, templateID TemplateID, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*http.Response, error)

	RebuildTemplate(ctx context.Context, templateID TemplateID, body RebuildTemplateJSONRequestBody, reqEditors ...RequestEditorFn) (*http.Response, error)

	// StartTemplateBuild request
	StartTemplateBuild(ctx context.Context, templateID TemplateID, buildID BuildID, reqEditors ...RequestEditorFn) (*http.Response, error)

	// GetTemplateBuildStatus request
	GetTemplateBuildStatus(ctx context.Context, templateID TemplateID, buildID BuildID, params *GetTemplateBuildStatusParams, reqEditors ...RequestEditorFn) (*http.Response, error)

	// UploadTemplateBuildWithBody request with any body
	UploadTemplateBuildWithBody(ctx context.Context, templateID TemplateID, buildID BuildID, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*http.Response, error)

	// GetTemplateBuildStatusV2 request
	GetTemplateBuildStatusV2(ctx context.Context, templateID TemplateID, buildID BuildID, params *GetTemplateBuildStatusV2Params, reqEditors ...RequestEditorFn) (*http.Response, error)
}

func (c *Client) ListTemplates(ctx context.Context, params *ListTemplatesParams, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewListTemplatesRequest(c.Server, params)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) CreateTemplateWithBody(ctx context.Context, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewCreateTemplateRequestWithBody(c.Server, contentType, body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) CreateTemplate(ctx context.Context, body CreateTemplateJSONRequestBody, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewCreateTemplateRequest(c.Server, body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) DeleteTemplate(ctx context.Context, templateID TemplateID, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewDeleteTemplateRequest(c.Server, templateID)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) RebuildTemplateWithBody(ctx context.Context, templateID TemplateID, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewRebuildTemplateRequestWithBody(c.Server, templateID, contentType, body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) RebuildTemplate(ctx context.Context, templateID TemplateID, body RebuildTemplateJSONRequestBody, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewRebuildTemplateRequest(c.Server, templateID, body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) StartTemplateBuild(ctx context.Context, templateID TemplateID, buildID BuildID, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewStartTemplateBuildRequest(c.Server, templateID, buildID)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) GetTemplateBuildStatus(ctx context.Context, templateID TemplateID, buildID BuildID, params *GetTemplateBuildStatusParams, reqEditors ...RequestEditorFn) (*http.Response, error) {
	var offset *int32
	if params != nil {
		offset = params.LogsOffset
	}
	req, err := newBuildStatusRequest(c.Server, "templates/%s/builds/%s/status", templateID, buildID, offset)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) UploadTemplateBuildWithBody(ctx context.Context, templateID TemplateID, buildID BuildID, contentType string, body io.Reader, reqEditors ...RequestEditorFn) (*http.Response, error) {
	req, err := NewUploadTemplateBuildRequestWithBody(c.Server, templateID, buildID, contentType, body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) GetTemplateBuildStatusV2(ctx context.Context, templateID TemplateID, buildID BuildID, params *GetTemplateBuildStatusV2Params, reqEditors ...RequestEditorFn) (*http.Response, error) {
	var offset *int32
	if params != nil {
		offset = params.LogsOffset
	}
	req, err := newBuildStatusRequest(c.Server, "v2/templates/%s/builds/%s/status", templateID, buildID, offset)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, reqEditors)
}

func (c *Client) do(ctx context.Context, req *http.Request, reqEditors []RequestEditorFn) (*http.Response, error) {
	req = req.WithContext(ctx)
	if err := c.applyEditors(ctx, req, reqEditors); err != nil {
		return nil, err
	}
	return c.Client.Do(req)
}

// NewListTemplatesRequest generates requests for ListTemplates
func NewListTemplatesRequest(server string, params *ListTemplatesParams) (*http.Request, error) {
	queryURL, err := operationURL(server, "templates")
	if err != nil {
		return nil, err
	}

	if params != nil {
		queryValues := queryURL.Query()
		if params.TeamID != nil {
			if err := addQueryParam(queryValues, "teamID", *params.TeamID); err != nil {
				return nil, err
			}
		}
		queryURL.RawQuery = queryValues.Encode()
	}

	return http.NewRequest("GET", queryURL.String(), nil)
}

// NewCreateTemplateRequest calls the generic CreateTemplate builder with application/json body
func NewCreateTemplateRequest(server string, body CreateTemplateJSONRequestBody) (*http.Request, error) {
	var bodyReader io.Reader
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	bodyReader = bytes.NewReader(buf)
	return NewCreateTemplateRequestWithBody(server, "application/json", bodyReader)
}

// NewCreateTemplateRequestWithBody generates requests for CreateTemplate with any type of body
func NewCreateTemplateRequestWithBody(server string, contentType string, body io.Reader) (*http.Request, error) {
	queryURL, err := operationURL(server, "templates")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", queryURL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", contentType)
	return req, nil
}

// NewDeleteTemplateRequest generates requests for DeleteTemplate
func NewDeleteTemplateRequest(server string, templateID TemplateID) (*http.Request, error) {
	pathParam0, err := runtime.StyleParamWithLocation("simple", false, "templateID", runtime.ParamLocationPath, templateID)
	if err != nil {
		return nil, err
	}

	queryURL, err := operationURL(server, fmt.Sprintf("templates/%s", pathParam0))
	if err != nil {
		return nil, err
	}

	return http.NewRequest("DELETE", queryURL.String(), nil)
}

// NewRebuildTemplateRequest calls the generic RebuildTemplate builder with application/json body
func NewRebuildTemplateRequest(server string, templateID TemplateID, body RebuildTemplateJSONRequestBody) (*http.Request, error) {
	var bodyReader io.Reader
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	bodyReader = bytes.NewReader(buf)
	return NewRebuildTemplateRequestWithBody(server, templateID, "application/json", bodyReader)
}

// NewRebuildTemplateRequestWithBody generates requests for RebuildTemplate with any type of body
func NewRebuildTemplateRequestWithBody(server string, templateID TemplateID, contentType string, body io.Reader) (*http.Request, error) {
	pathParam0, err := runtime.StyleParamWithLocation("simple", false, "templateID", runtime.ParamLocationPath, templateID)
	if err != nil {
		return nil, err
	}

	queryURL, err := operationURL(server, fmt.Sprintf("templates/%s", pathParam0))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", queryURL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", contentType)
	return req, nil
}

// NewStartTemplateBuildRequest generates requests for StartTemplateBuild
func NewStartTemplateBuildRequest(server string, templateID TemplateID, buildID BuildID) (*http.Request, error) {
	queryURL, err := buildOperationURL(server, "templates/%s/builds/%s", templateID, buildID)
	if err != nil {
		return nil, err
	}
	return http.NewRequest("POST", queryURL.String(), nil)
}

// NewUploadTemplateBuildRequestWithBody generates requests for UploadTemplateBuild with any type of body.
// A body that is neither a bytes nor a strings reader is sent with chunked transfer encoding.
func NewUploadTemplateBuildRequestWithBody(server string, templateID TemplateID, buildID BuildID, contentType string, body io.Reader) (*http.Request, error) {
	queryURL, err := buildOperationURL(server, "templates/%s/builds/%s/upload", templateID, buildID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", queryURL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", contentType)
	return req, nil
}

func newBuildStatusRequest(server, pathFormat string, templateID TemplateID, buildID BuildID, logsOffset *int32) (*http.Request, error) {
	queryURL, err := buildOperationURL(server, pathFormat, templateID, buildID)
	if err != nil {
		return nil, err
	}

	if logsOffset != nil {
		queryValues := queryURL.Query()
		if err := addQueryParam(queryValues, "logsOffset", *logsOffset); err != nil {
			return nil, err
		}
		queryURL.RawQuery = queryValues.Encode()
	}

	return http.NewRequest("GET", queryURL.String(), nil)
}

func buildOperationURL(server, pathFormat string, templateID TemplateID, buildID BuildID) (*url.URL, error) {
	pathParam0, err := runtime.StyleParamWithLocation("simple", false, "templateID", runtime.ParamLocationPath, templateID)
	if err != nil {
		return nil, err
	}
	pathParam1, err := runtime.StyleParamWithLocation("simple", false, "buildID", runtime.ParamLocationPath, buildID)
	if err != nil {
		return nil, err
	}
	return operationURL(server, fmt.Sprintf(pathFormat, pathParam0, pathParam1))
}

func operationURL(server, operationPath string) (*url.URL, error) {
	serverURL, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	if operationPath[0] == '/' {
		operationPath = "." + operationPath
	}
	return serverURL.Parse(operationPath)
}

func addQueryParam(queryValues url.Values, name string, value interface{}) error {
	queryFrag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return err
	}
	parsed, err := url.ParseQuery(queryFrag)
	if err != nil {
		return err
	}
	for k, v := range parsed {
		for _, v2 := range v {
			queryValues.Add(k, v2)
		}
	}
	return nil
}

func (c *Client) applyEditors(ctx context.Context, req *http.Request, additionalEditors []RequestEditorFn) error {
	for _, r := range c.RequestEditors {
		if err := r(ctx, req); err != nil {
			return err
		}
	}
	for _, r := range additionalEditors {
		if err := r(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
