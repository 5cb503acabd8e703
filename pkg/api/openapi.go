// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
)

// openapi returns the OpenAPI document describing the routes of the api
func (a *api) openapi() (*openapi3.T, error) {
	traceSchema, err := openapi3gen.NewSchemaRefForValue(Trace{}, nil)
	if err != nil {
		return nil, &ErrCreateOpenapiSchema{name: "trace", err: err}
	}
	tracesSchema, err := openapi3gen.NewSchemaRefForValue([]Trace{}, nil)
	if err != nil {
		return nil, &ErrCreateOpenapiSchema{name: "traces", err: err}
	}

	results := &openapi3.PathItem{
		Get: &openapi3.Operation{
			Summary:     "All traces",
			Description: "Returns the trace of every destination ordered by destination",
			OperationID: "getTraces",
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("The traces").WithJSONSchemaRef(tracesSchema),
				}),
			),
		},
	}
	result := &openapi3.PathItem{
		Get: &openapi3.Operation{
			Summary:     "Trace of a destination",
			Description: "Returns the hops of a destination from the highest TTL down to 1",
			OperationID: "getTrace",
			Parameters: openapi3.Parameters{
				{Value: openapi3.NewPathParameter("destination").
					WithDescription("IPv4 address of the destination").
					WithSchema(openapi3.NewStringSchema().WithFormat("ipv4"))},
			},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("The trace").WithJSONSchemaRef(traceSchema),
				}),
				openapi3.WithStatus(http.StatusBadRequest, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("The destination is not an IPv4 address"),
				}),
				openapi3.WithStatus(http.StatusNotFound, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("The destination is not traced"),
				}),
			),
		},
	}

	return &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "hoptrace",
			Description: "Hop tables of the traced destinations",
			Version:     a.version,
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/v1/results", results),
			openapi3.WithPath("/v1/results/{destination}", result),
		),
	}, nil
}
