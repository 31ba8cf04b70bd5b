package scim

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/openkcm/common-sdk/pkg/pointers"

	"github.com/scimbridge/scimbridge/pkg/utils/errs"
)

var (
	ErrNoFilter     = errors.New("filter not provided")
	ErrMarshallFail = errors.New("failed to marshal search request")
)

func buildBodyFromParams(filter FilterExpression, count *int, cursor *string, attributes []string) (io.Reader, error) {
	searchRequest := SearchRequest{
		Schemas:    []string{SearchRequestSchema},
		Attributes: attributes,
		Count:      count,
		Cursor:     cursor,
	}

	if filter == nil || (filter == NullFilterExpression{}) {
		return nil, ErrNoFilter
	}

	searchRequest.Filter = pointers.To(filter.ToString())

	jsonBody, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, errs.Wrap(ErrMarshallFail, err)
	}

	return bytes.NewReader(jsonBody), nil
}

func buildQueryStringFromParams(filter FilterExpression, cursor *string, count *int, attributes []string) string {
	query := url.Values{}
	if cursor != nil {
		query.Add("cursor", *cursor)
	}

	if count != nil {
		query.Add("count", strconv.Itoa(*count))
	}

	if len(attributes) > 0 {
		query.Add("attributes", strings.Join(attributes, ","))
	}

	if (filter != nil) && (filter != NullFilterExpression{}) {
		query.Add("filter", filter.ToString())
	}

	return query.Encode()
}
