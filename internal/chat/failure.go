package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies why a completion could not be produced. The mapping
// to user-facing replies below is the main operator-visible signal for
// provider health, so each kind keeps a distinct sentence.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureRateLimited
	FailureAuth
	FailureBadRequest
	FailureUnavailable
	FailureTimeout
)

func (k FailureKind) String() string {
	switch k {
	case FailureRateLimited:
		return "rate_limited"
	case FailureAuth:
		return "auth_failed"
	case FailureBadRequest:
		return "bad_request"
	case FailureUnavailable:
		return "unavailable"
	case FailureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ProviderError carries the classified outcome of a failed provider call.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s provider %s (status %d)", e.Provider, e.Kind, e.Status)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func classifyStatus(status int) FailureKind {
	switch status {
	case http.StatusTooManyRequests:
		return FailureRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureAuth
	case http.StatusBadRequest:
		return FailureBadRequest
	case http.StatusServiceUnavailable:
		return FailureUnavailable
	default:
		return FailureUnknown
	}
}

func classifyTransportError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureUnknown
}

// Fixed replies shown to the user when no provider could answer. Raw provider
// error bodies never reach the user.
var failureReplies = map[FailureKind]string{
	FailureRateLimited: "Hệ thống đang quá tải, bạn vui lòng thử lại sau ít phút nhé! 🙏",
	FailureAuth:        "Trợ lý đang gặp sự cố kết nối với hệ thống AI, bạn vui lòng quay lại sau nhé!",
	FailureBadRequest:  "Xin lỗi, mình chưa hiểu được câu hỏi này, bạn diễn đạt lại giúp mình nhé!",
	FailureUnavailable: "Dịch vụ trợ lý đang tạm gián đoạn, bạn vui lòng thử lại sau ít phút nhé!",
	FailureTimeout:     "Mình phản hồi hơi chậm, bạn vui lòng gửi lại câu hỏi giúp mình nhé!",
	FailureUnknown:     "Xin lỗi, đã có lỗi xảy ra. Bạn vui lòng thử lại sau nhé!",
}

// FailureReply maps a failure kind to its fixed user-facing sentence.
func FailureReply(kind FailureKind) string {
	if reply, ok := failureReplies[kind]; ok {
		return reply
	}
	return failureReplies[FailureUnknown]
}

// IsDegradedReply reports whether text is one of the apology sentences above.
// Such text must never be written to the answer cache.
func IsDegradedReply(text string) bool {
	for _, reply := range failureReplies {
		if text == reply {
			return true
		}
	}
	return false
}
