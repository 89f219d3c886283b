package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

func TestFromOpenAI(t *testing.T) {
	apiErr := fmt.Errorf("failed to create chat completion: %w", &openai.APIError{
		Message:        "Incorrect API key provided",
		HTTPStatusCode: 401,
	})
	var ue *UpstreamError
	if err := FromOpenAI("chat", apiErr); !errors.As(err, &ue) || ue.Status != 401 || ue.Retryable {
		t.Fatalf("FromOpenAI(api 401) = %v, want non-retryable UpstreamError", err)
	}
	if ue.Detail != "Incorrect API key provided" {
		t.Fatalf("Detail = %q", ue.Detail)
	}

	reqErr := &openai.RequestError{HTTPStatusCode: 502, Body: []byte("bad gateway")}
	if err := FromOpenAI("speech", reqErr); !errors.As(err, &ue) || ue.Status != 502 || !ue.Retryable {
		t.Fatalf("FromOpenAI(request 502) = %v, want retryable UpstreamError", err)
	}

	timeout := fmt.Errorf("post: %w", context.DeadlineExceeded)
	err := FromOpenAI("chat", timeout)
	if errors.As(err, &ue) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("FromOpenAI(timeout) = %v, want wrapped deadline", err)
	}

	if FromOpenAI("chat", nil) != nil {
		t.Fatalf("FromOpenAI(nil) should be nil")
	}
}
