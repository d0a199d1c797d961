package request

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"tutoring-service/pkg/response"
)

// ActorHeader names the caller when the body has no actor_id.
const ActorHeader = "X-Actor-Id"

// DecodeJSON reads the body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	err := render.DecodeJSON(r.Body, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", response.ErrBadRequest, err)
	}
	return nil
}

func ActorID(r *http.Request, fromBody string) string {
	if actor := strings.TrimSpace(fromBody); actor != "" {
		return actor
	}
	return strings.TrimSpace(r.Header.Get(ActorHeader))
}
