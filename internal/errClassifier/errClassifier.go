package errClassifier

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/KotFed0t/networth_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
)

const maxMessageLen = 200

// retryable HTTP statuses are treated as transient connectivity problems
var retryableStatuses = map[int]struct{}{
	http.StatusRequestTimeout:  {},
	http.StatusTooManyRequests: {},
}

var offlinePhrases = []string{
	"network",
	"connection",
	"connect:",
	"fetch",
	"timeout",
	"timed out",
	"abort",
	"unreachable",
	"broken pipe",
	"no such host",
	"client disconnected",
}

var apiErrorPhrases = []string{
	"not found",
	"parse",
	"unmarshal",
	"invalid",
	"malformed",
	"bad request",
	"unknown symbol",
	"unsupported",
}

// Classify maps a raw failure onto OFFLINE, API_ERROR or UNKNOWN. Rules are
// applied in order: known network failures, HTTP status, message heuristics.
func Classify(err error) model.ErrorCategory {
	if err == nil {
		return model.ErrCategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.ErrCategoryOffline
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return model.ErrCategoryOffline
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return model.ErrCategoryOffline
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return model.ErrCategoryOffline
	}

	var statusErr *externalApi.StatusError
	if errors.As(err, &statusErr) {
		if _, ok := retryableStatuses[statusErr.StatusCode]; ok || statusErr.StatusCode >= 500 {
			return model.ErrCategoryOffline
		}
		if statusErr.StatusCode >= 400 {
			return model.ErrCategoryAPIError
		}
	}

	if errors.Is(err, externalApi.ErrNotFound) {
		return model.ErrCategoryAPIError
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range offlinePhrases {
		if strings.Contains(msg, phrase) {
			return model.ErrCategoryOffline
		}
	}
	for _, phrase := range apiErrorPhrases {
		if strings.Contains(msg, phrase) {
			return model.ErrCategoryAPIError
		}
	}

	return model.ErrCategoryUnknown
}

// NewPortfolioError builds the structured, displayable form of a raw failure.
func NewPortfolioError(err error, symbol string) model.PortfolioError {
	category := Classify(err)

	msg := defaultMessage(category)
	if err != nil && err.Error() != "" {
		msg = truncate(err.Error(), maxMessageLen)
	}

	return model.PortfolioError{
		Category:  category,
		Message:   msg,
		Symbol:    symbol,
		Timestamp: time.Now(),
	}
}

func IsOffline(err error) bool {
	return Classify(err) == model.ErrCategoryOffline
}

func IsRetryable(err error) bool {
	return IsOffline(err)
}

func defaultMessage(category model.ErrorCategory) string {
	switch category {
	case model.ErrCategoryOffline:
		return "No network connection, showing the latest cached values."
	case model.ErrCategoryAPIError:
		return "The market data provider rejected the request."
	default:
		return "Something went wrong while fetching market data."
	}
}

// truncate cuts on a rune boundary so a multi-byte character is never split.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
