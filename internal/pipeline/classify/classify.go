package classify

import (
	"errors"
	"strings"

	"boltride/internal/pipeline/domain"
)

// Classify отображает сбой на категорию таксономии.
// Правила проверяются по порядку, первое совпадение выигрывает.
// Категория — советующие метаданные для маршрутизации, не control flow.
func Classify(err error) domain.Category {
	var decodeErr *domain.DecodeError
	if errors.As(err, &decodeErr) {
		return domain.CategorySchema
	}

	var validationErr *domain.ValidationFailure
	if errors.As(err, &validationErr) {
		return domain.CategoryValidation
	}

	msg := strings.ToLower(err.Error())

	// throttling / capacity exhaustion на стороне store
	if strings.Contains(msg, "throttl") || strings.Contains(msg, "provisionedthroughputexceeded") {
		return domain.CategoryTransient
	}

	// проваленное optimistic-concurrency precondition
	if strings.Contains(msg, "conditionalcheckfailed") {
		return domain.CategoryBusinessRule
	}

	// контент, который не переживет повтор
	if strings.Contains(msg, "malformed") || strings.Contains(msg, "corrupt") {
		return domain.CategoryPoisonPill
	}

	// сетевые сбои
	for _, keyword := range []string{"timeout", "connection", "network", "endpoint"} {
		if strings.Contains(msg, keyword) {
			return domain.CategoryTransient
		}
	}

	return domain.CategorySystem
}

// Retryable reports whether the dead-letter consumer should retry the record.
func Retryable(cat domain.Category) bool {
	return cat == domain.CategoryTransient || cat == domain.CategorySystem
}
