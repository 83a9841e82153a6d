// Package transport issues requests to the ERP backend.
//
// A Transport never returns a Go error: every outcome, including network
// failures and undecodable bodies, is a Response whose OK flag tells success
// from failure. Operations turn a failed Response into a model.Failure.
package transport

import (
	"context"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/roach88/erpsync/internal/model"
)

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Response is the outcome of a Request.
type Response struct {
	OK      bool
	Status  int
	Body    []byte
	Message string // set on failure
	Code    string // set on failure when the server supplied one
}

// Failure returns the failure carried by a non-OK response, nil otherwise.
func (r Response) Failure() *model.Failure {
	if r.OK {
		return nil
	}
	return &model.Failure{Message: r.Message, Code: r.Code, Status: r.Status}
}

// ServerMessage returns the "message" field of a JSON object body, if any.
func (r Response) ServerMessage() string {
	return messageOf(r.Body)
}

// Transport performs requests.
type Transport interface {
	Do(ctx context.Context, req Request) Response
}

// TokenSource supplies the session token attached to requests.
// An empty token means no session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req Request) Response

// Do calls f.
func (f Func) Do(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

type serverError struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

// parseError reads the message and code of a JSON error body. Some
// endpoints send the code as a number.
func parseError(body []byte) (message, code string) {
	if len(body) == 0 {
		return "", ""
	}
	var se serverError
	if err := json.Unmarshal(body, &se); err != nil {
		return "", ""
	}
	switch c := se.Code.(type) {
	case string:
		code = c
	case float64:
		code = strconv.FormatFloat(c, 'f', -1, 64)
	}
	return se.Message, code
}

func messageOf(body []byte) string {
	msg, _ := parseError(body)
	return msg
}
