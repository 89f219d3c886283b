package reliability

import (
	"errors"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// FromOpenAI converts status errors from the OpenAI client into
// UpstreamError. Transport errors and timeouts are wrapped unchanged.
func FromOpenAI(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return NewUpstreamError("openai", op, apiErr.HTTPStatusCode, []byte(apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return NewUpstreamError("openai", op, reqErr.HTTPStatusCode, reqErr.Body)
	}
	return fmt.Errorf("openai %s: %w", op, err)
}
