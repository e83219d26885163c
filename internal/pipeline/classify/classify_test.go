package classify

import (
	"errors"
	"fmt"
	"testing"

	"boltride/internal/pipeline/domain"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.Category
	}{
		{
			name: "decode failure is schema error",
			err:  &domain.DecodeError{Cause: errors.New("unexpected end of JSON input")},
			want: domain.CategorySchema,
		},
		{
			name: "wrapped decode failure is schema error",
			err:  fmt.Errorf("record 3: %w", &domain.DecodeError{Cause: errors.New("bad json")}),
			want: domain.CategorySchema,
		},
		{
			name: "validation failure",
			err:  &domain.ValidationFailure{Outcome: domain.ValidationOutcome{}},
			want: domain.CategoryValidation,
		},
		{
			name: "throughput exceeded is transient",
			err:  errors.New("ProvisionedThroughputExceededException: rate limit"),
			want: domain.CategoryTransient,
		},
		{
			name: "throttling is transient",
			err:  errors.New("request throttled by store"),
			want: domain.CategoryTransient,
		},
		{
			name: "failed precondition is business rule",
			err:  errors.New("ConditionalCheckFailedException: condition not met"),
			want: domain.CategoryBusinessRule,
		},
		{
			name: "malformed content is poison pill",
			err:  errors.New("malformed payload body"),
			want: domain.CategoryPoisonPill,
		},
		{
			name: "corrupt content is poison pill",
			err:  errors.New("corrupt frame detected"),
			want: domain.CategoryPoisonPill,
		},
		{
			name: "timeout is transient",
			err:  errors.New("i/o timeout"),
			want: domain.CategoryTransient,
		},
		{
			name: "connection failure is transient",
			err:  errors.New("connection refused"),
			want: domain.CategoryTransient,
		},
		{
			name: "unknown failure is system error",
			err:  errors.New("something unexpected happened"),
			want: domain.CategorySystem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

// Порядок правил имеет значение: "throttl" проверяется раньше
// сетевых ключевых слов, так что сообщение с обоими дает TRANSIENT
// по throttling-ветке, а не по сетевой.
func TestClassifyFirstMatchWins(t *testing.T) {
	err := errors.New("ConditionalCheckFailedException after connection retry")
	assert.Equal(t, domain.CategoryBusinessRule, Classify(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(domain.CategoryTransient))
	assert.True(t, Retryable(domain.CategorySystem))
	assert.False(t, Retryable(domain.CategoryPoisonPill))
	assert.False(t, Retryable(domain.CategoryValidation))
	assert.False(t, Retryable(domain.CategorySchema))
	assert.False(t, Retryable(domain.CategoryBusinessRule))
}
