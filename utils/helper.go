package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
	"github.com/bsm/redislock"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "US"

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

func NilIfEmpty[T comparable](ptr T) *T {
	var defaultZero T
	if ptr == defaultZero {
		return nil
	}
	return &ptr
}

// returns slice removing duplicate elements
func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

// FormatPhoneNumber renders a raw number in international format. The API
// usually supplies number_formatted already; this covers contacts where only
// the raw digits came back.
func FormatPhoneNumber(raw string, country string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("empty phone number")
	}
	if strings.TrimSpace(country) == "" {
		country = CountryCode
	}
	p, err := libphonenumber.Parse(raw, country)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.INTERNATIONAL), nil
}

// RunLock guards a named batch run so two exporters cannot race the same
// output file. Returns a release func; callers must defer it.
func RunLock(ctx context.Context, runName string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// No redis configured: single-process deployments run unlocked.
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("runlock:%s", runName)
	lock, err := locker.Obtain(ctx, lockKey, 10*time.Minute, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain run lock", runName, err)
		return nil, errors.New("another export run is already in progress")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining run lock", runName, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}
