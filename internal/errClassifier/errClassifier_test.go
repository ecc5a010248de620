package errClassifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
	"unicode/utf8"

	"github.com/KotFed0t/networth_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ErrorCategory
	}{
		{"nil", nil, model.ErrCategoryUnknown},
		{"deadline exceeded", context.DeadlineExceeded, model.ErrCategoryOffline},
		{"canceled", context.Canceled, model.ErrCategoryOffline},
		{"wrapped ECONNREFUSED", fmt.Errorf("do request: %w", syscall.ECONNREFUSED), model.ErrCategoryOffline},
		{"dns error", &net.DNSError{Err: "no such host", Name: "api.example.com"}, model.ErrCategoryOffline},
		{"status 503", &externalApi.StatusError{StatusCode: 503, Status: "503 Service Unavailable"}, model.ErrCategoryOffline},
		{"status 429", &externalApi.StatusError{StatusCode: 429, Status: "429 Too Many Requests"}, model.ErrCategoryOffline},
		{"status 408", &externalApi.StatusError{StatusCode: 408, Status: "408 Request Timeout"}, model.ErrCategoryOffline},
		{"status 404", &externalApi.StatusError{StatusCode: 404, Status: "404 Not Found"}, model.ErrCategoryAPIError},
		{"status 400", &externalApi.StatusError{StatusCode: 400, Status: "400 Bad Request"}, model.ErrCategoryAPIError},
		{"wrapped ErrNotFound", fmt.Errorf("get quote: %w", externalApi.ErrNotFound), model.ErrCategoryAPIError},
		{"connection phrase", errors.New("dial tcp 127.0.0.1:443: connection refused"), model.ErrCategoryOffline},
		{"timeout phrase", errors.New("request timed out"), model.ErrCategoryOffline},
		{"unknown symbol phrase", errors.New("unknown symbol ZZZZ"), model.ErrCategoryAPIError},
		{"parse phrase", errors.New("can't parse response body"), model.ErrCategoryAPIError},
		{"opaque", errors.New("boom"), model.ErrCategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestNewPortfolioError(t *testing.T) {
	err := fmt.Errorf("fetch price for VOO: %w", syscall.ECONNRESET)

	pe := NewPortfolioError(err, "VOO")

	assert.Equal(t, model.ErrCategoryOffline, pe.Category)
	assert.Equal(t, "VOO", pe.Symbol)
	assert.Equal(t, err.Error(), pe.Message)
	assert.False(t, pe.Timestamp.IsZero())
}

func TestNewPortfolioError_TruncatesLongMessages(t *testing.T) {
	err := errors.New(strings.Repeat("x", 500))

	pe := NewPortfolioError(err, "AAPL")

	assert.Len(t, pe.Message, 200)
}

func TestNewPortfolioError_TruncatesOnRuneBoundary(t *testing.T) {
	// the two-byte rune straddles the 200-byte cut
	err := errors.New(strings.Repeat("x", 199) + "ю" + strings.Repeat("x", 50))

	pe := NewPortfolioError(err, "AAPL")

	assert.True(t, utf8.ValidString(pe.Message))
	assert.LessOrEqual(t, len(pe.Message), 200)
	assert.Equal(t, strings.Repeat("x", 199), pe.Message)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&externalApi.StatusError{StatusCode: 429, Status: "429"}))
	assert.False(t, IsRetryable(&externalApi.StatusError{StatusCode: 404, Status: "404"}))
}
