package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/roach88/erpsync/internal/transport"
)

// Reply is one scripted backend answer.
type Reply struct {
	Method string
	Path   string

	Status  int // defaults to 200
	Body    any // encoded as JSON unless it is a string or []byte
	Message string

	// Hold, when set, delays the reply until it is closed. Used to force a
	// particular arrival order between concurrent invocations.
	Hold <-chan struct{}
}

// ScriptedTransport answers requests from a script. Each reply is used at
// most once, matched by method and path; replies for the same request are
// used in script order.
//
// Thread-safety: safe for concurrent use.
type ScriptedTransport struct {
	mu       sync.Mutex
	replies  []Reply
	used     []bool
	requests []transport.Request
}

// NewScriptedTransport creates a transport answering with replies.
func NewScriptedTransport(replies ...Reply) *ScriptedTransport {
	s := &ScriptedTransport{}
	s.Add(replies...)
	return s
}

// Add appends replies to the script.
func (s *ScriptedTransport) Add(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
	s.used = append(s.used, make([]bool, len(replies))...)
}

// Do answers req with the first unused matching reply. Requests without a
// reply fail with status 404.
func (s *ScriptedTransport) Do(ctx context.Context, req transport.Request) transport.Response {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	var (
		reply Reply
		found bool
	)
	for i, r := range s.replies {
		if !s.used[i] && r.Method == req.Method && r.Path == req.Path {
			s.used[i] = true
			reply, found = r, true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return transport.Response{
			Status:  404,
			Message: fmt.Sprintf("no scripted reply for %s %s", req.Method, req.Path),
		}
	}

	if reply.Hold != nil {
		select {
		case <-reply.Hold:
		case <-ctx.Done():
			return transport.Response{Message: ctx.Err().Error()}
		}
	}
	return reply.response()
}

// Requests returns every request received so far.
func (s *ScriptedTransport) Requests() []transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Request(nil), s.requests...)
}

// Pending returns the number of replies not used yet.
func (s *ScriptedTransport) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.used {
		if !u {
			n++
		}
	}
	return n
}

func (r Reply) response() transport.Response {
	status := r.Status
	if status == 0 {
		status = 200
	}

	var body []byte
	switch b := r.Body.(type) {
	case nil:
	case []byte:
		body = b
	case string:
		body = []byte(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return transport.Response{Status: 500, Message: fmt.Sprintf("encoding scripted body: %v", err)}
		}
		body = encoded
	}

	if status < 200 || status > 299 {
		msg := r.Message
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status code %d", status)
		}
		return transport.Response{Status: status, Body: body, Message: msg}
	}
	return transport.Response{OK: true, Status: status, Body: body}
}
