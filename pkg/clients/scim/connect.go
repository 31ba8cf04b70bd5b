package scim

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/scimbridge/scimbridge/pkg/utils/errs"
	"github.com/scimbridge/scimbridge/pkg/utils/httpclient"
)

const (
	ApplicationSCIMJson = "application/scim+json"

	BasePathGroups = "/Groups"
	BasePathUsers  = "/Users"
	BasePathBulk   = "/Bulk"
	PostSearchPath = ".search"

	HeaderAuthorization = "Authorization"
)

var (
	ErrNoClientID         = errors.New("client ID is required")
	ErrNoCredentials      = errors.New("must provide client secret or TLS config")
	ErrAuthNotImplemented = errors.New("API Auth not implemented")
	ErrLoadHost           = errors.New("failed to load the host")
	ErrLoadClientID       = errors.New("failed to load the client id")
	ErrLoadClientSecret   = errors.New("failed to load the client secret")
	ErrTLSCreation        = errors.New("failed to load client TLS configuration")

	ErrGetUser    = errors.New("error getting SCIM user")
	ErrListUsers  = errors.New("error listing SCIM users")
	ErrCreateUser = errors.New("error creating SCIM user")
	ErrGetGroup   = errors.New("error getting SCIM group")
	ErrListGroups = errors.New("error listing SCIM groups")
	ErrBulk       = errors.New("error submitting SCIM bulk request")
)

// Common holds the parameters shared by both client constructors.
type Common struct {
	Host         string
	ClientID     string
	ClientSecret string
}

// Params configures a client from an already-built TLS config.
type Params struct {
	Common

	TLS    *tls.Config
	Logger hclog.Logger
}

// APIParams configures a client from unresolved source references, as they
// arrive from configuration. Credential material is loaded when the client
// is built, never kept as a reference.
type APIParams struct {
	Host   commoncfg.SourceRef
	Auth   commoncfg.SecretRef
	Logger hclog.Logger
}

type Client struct {
	logger     hclog.Logger
	httpClient *http.Client
	host       string

	basicAuth *basicAuth
}

type basicAuth struct {
	clientID     string
	clientSecret string
}

// NewClient creates a SCIM client. Authentication is basic (client secret)
// when a secret is given, otherwise certificate-based via the TLS config.
func NewClient(params Params) (*Client, error) {
	logger := params.Logger
	if logger == nil {
		logger = hclog.Default()
	}

	if params.ClientSecret != "" {
		if params.ClientID == "" {
			return nil, ErrNoClientID
		}

		return &Client{
			logger:     logger,
			httpClient: &http.Client{},
			host:       params.Host,
			basicAuth: &basicAuth{
				clientID:     params.ClientID,
				clientSecret: params.ClientSecret,
			},
		}, nil
	}

	if params.TLS == nil {
		return nil, ErrNoCredentials
	}

	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: params.TLS,
			},
		},
		host: params.Host,
	}, nil
}

// NewClientFromAPI creates a SCIM client from configuration references,
// resolving the host and the credential material of the named auth type.
func NewClientFromAPI(params APIParams) (*Client, error) {
	host, err := commoncfg.LoadValueFromSourceRef(params.Host)
	if err != nil {
		return nil, errs.Wrap(ErrLoadHost, err)
	}

	switch params.Auth.Type {
	case commoncfg.BasicSecretType:
		clientID, err := commoncfg.LoadValueFromSourceRef(params.Auth.Basic.Username)
		if err != nil {
			return nil, errs.Wrap(ErrLoadClientID, err)
		}

		clientSecret, err := commoncfg.LoadValueFromSourceRef(params.Auth.Basic.Password)
		if err != nil {
			return nil, errs.Wrap(ErrLoadClientSecret, err)
		}

		return NewClient(Params{
			Common: Common{
				Host:         string(host),
				ClientID:     string(clientID),
				ClientSecret: string(clientSecret),
			},
			Logger: params.Logger,
		})
	case commoncfg.MTLSSecretType:
		clientTLS, err := commoncfg.LoadMTLSConfig(&params.Auth.MTLS)
		if err != nil {
			return nil, errs.Wrap(ErrTLSCreation, err)
		}

		return NewClient(Params{
			Common: Common{Host: string(host)},
			TLS:    clientTLS,
			Logger: params.Logger,
		})
	default:
		return nil, ErrAuthNotImplemented
	}
}

// GetUser retrieves a SCIM user by its ID.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	resp, err := c.baseCreateAndExecuteHTTPRequest(ctx, http.MethodGet, BasePathUsers+"/"+id, nil, nil)

	if resp != nil {
		defer c.closeBody("GetUser", resp)
	}

	if err != nil {
		return nil, errs.Wrap(ErrGetUser, err)
	}

	user, err := httpclient.DecodeResponse[User](ctx, "SCIM", resp, http.StatusOK)
	if err != nil {
		return nil, errs.Wrap(ErrGetUser, err)
	}

	return user, nil
}

// ListUsers retrieves a list of SCIM users. It supports filtering,
// pagination (cursor and count), and attribute projection. GET places the
// parameters in the query string; POST uses the /.search body.
func (c *Client) ListUsers(
	ctx context.Context,
	method string,
	filter FilterExpression,
	cursor *string,
	count *int,
	attributes []string,
) (*UserList, error) {
	resp, err := c.createAndExecuteHTTPRequest(ctx, method, BasePathUsers, filter, cursor, count, attributes)

	if resp != nil {
		defer c.closeBody("ListUsers", resp)
	}

	if err != nil {
		return nil, errs.Wrap(ErrListUsers, err)
	}

	users, err := httpclient.DecodeResponse[UserList](ctx, "SCIM", resp, http.StatusOK)
	if err != nil {
		return nil, errs.Wrap(ErrListUsers, err)
	}

	return users, nil
}

// CreateUser provisions one user from an already-built payload.
func (c *Client) CreateUser(ctx context.Context, payload UserResource) (*User, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(ErrCreateUser, err)
	}

	resp, err := c.baseCreateAndExecuteHTTPRequest(ctx, http.MethodPost, BasePathUsers, nil, bytes.NewReader(body))

	if resp != nil {
		defer c.closeBody("CreateUser", resp)
	}

	if err != nil {
		return nil, errs.Wrap(ErrCreateUser, err)
	}

	user, err := httpclient.DecodeResponse[User](ctx, "SCIM", resp, http.StatusCreated)
	if err != nil {
		return nil, errs.Wrap(ErrCreateUser, err)
	}

	return user, nil
}

// GetGroup retrieves a SCIM group by its ID.
func (c *Client) GetGroup(ctx context.Context, id string) (*Group, error) {
	resp, err := c.baseCreateAndExecuteHTTPRequest(ctx, http.MethodGet, BasePathGroups+"/"+id, nil, nil)

	if resp != nil {
		defer c.closeBody("GetGroup", resp)
	}

	if err != nil {
		return nil, errs.Wrap(ErrGetGroup, err)
	}

	group, err := httpclient.DecodeResponse[Group](ctx, "SCIM", resp, http.StatusOK)
	if err != nil {
		return nil, errs.Wrap(ErrGetGroup, err)
	}

	return group, nil
}

// ListGroups retrieves a list of SCIM groups with the same parameter
// handling as ListUsers.
func (c *Client) ListGroups(
	ctx context.Context,
	method string,
	filter FilterExpression,
	cursor *string,
	count *int,
	attributes []string,
) (*GroupList, error) {
	resp, err := c.createAndExecuteHTTPRequest(ctx, method, BasePathGroups, filter, cursor, count, attributes)

	if resp != nil {
		defer c.closeBody("ListGroups", resp)
	}

	if err != nil {
		return nil, errs.Wrap(ErrListGroups, err)
	}

	groups, err := httpclient.DecodeResponse[GroupList](ctx, "SCIM", resp, http.StatusOK)
	if err != nil {
		return nil, errs.Wrap(ErrListGroups, err)
	}

	return groups, nil
}

// SubmitBulk posts one BulkRequest to the /Bulk endpoint. The request is a
// single atomic unit; it is submitted exactly once and never retried here.
func (c *Client) SubmitBulk(ctx context.Context, request BulkRequest) (*BulkResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, errs.Wrap(ErrBulk, err)
	}

	c.logger.Debug("submitting SCIM bulk request", "operations", len(request.Operations))

	resp, err := c.baseCreateAndExecuteHTTPRequest(ctx, http.MethodPost, BasePathBulk, nil, bytes.NewReader(body))

	if resp != nil {
		defer c.closeBody("SubmitBulk", resp)
	}

	if err != nil {
		return nil, errs.Wrap(ErrBulk, err)
	}

	result, err := httpclient.DecodeResponse[BulkResponse](ctx, "SCIM", resp, http.StatusOK)
	if err != nil {
		return nil, errs.Wrap(ErrBulk, err)
	}

	return result, nil
}

func (c *Client) closeBody(operation string, resp *http.Response) {
	err := resp.Body.Close()
	if err != nil {
		c.logger.Error("failed to close response body", "operation", operation, "error", err)
	}
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", ApplicationSCIMJson)
	}

	req.Header.Set("Accept", ApplicationSCIMJson)

	if c.basicAuth != nil {
		basicCreds := []byte(c.basicAuth.clientID + ":" + c.basicAuth.clientSecret)
		req.Header.Set(HeaderAuthorization, "Basic "+base64.RawStdEncoding.EncodeToString(basicCreds))
	}

	return c.httpClient.Do(req)
}

func (c *Client) baseCreateAndExecuteHTTPRequest(
	ctx context.Context,
	method string,
	resourcePath string,
	queryString *string,
	body io.Reader,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.host+resourcePath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if queryString != nil {
		req.URL.RawQuery = *queryString
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	return resp, nil
}

// createAndExecuteHTTPRequest creates a request to list SCIM resources
// (users or groups). For GET, parameters go into the query string; for POST
// they are carried in the /.search request body.
func (c *Client) createAndExecuteHTTPRequest(
	ctx context.Context,
	method string,
	basePath string,
	filter FilterExpression,
	cursor *string,
	count *int,
	attributes []string,
) (*http.Response, error) {
	resourcePath := basePath + "/"

	var (
		body        io.Reader
		queryString string
	)

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		resourcePath += PostSearchPath

		var err error

		body, err = buildBodyFromParams(filter, count, cursor, attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
	} else {
		queryString = buildQueryStringFromParams(filter, cursor, count, attributes)
	}

	return c.baseCreateAndExecuteHTTPRequest(ctx, method, resourcePath, &queryString, body)
}
