// Package fingerprint derives stable identifiers for criteria snapshots so
// that equal descriptions share cache entries and log correlation.
package fingerprint

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/architeacher/criteria/pkg/criteria"
	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"
)

const (
	KeyLength = 16
	KeyPrefix = "criteria"
)

var (
	ErrKeyInvalid    = errors.New("fingerprint key must be 16 lowercase hex characters")
	ErrUnencodable   = errors.New("snapshot holds a value that cannot be encoded")
	validKeyPattern  = regexp.MustCompile(`^[0-9a-f]{16}$`)
	canonicalEncoder = jsoniter.Config{SortMapKeys: true, EscapeHTML: false}.Froze()
)

// Of hashes the canonical encoding of the snapshot. Map keys are sorted, so
// only the order of values within one pair or group affects the result.
// Every value is encoded together with its dynamic type, so 1 and "1" never
// share a sum. Values that cannot be told apart by their exported state, such
// as structs with unexported fields, fail with ErrUnencodable unless they
// implement driver.Valuer.
func Of(snap criteria.Snapshot) (uint64, error) {
	tree, err := canonical(snap)
	if err != nil {
		return 0, err
	}

	data, err := canonicalEncoder.Marshal(tree)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}

	return xxhash.Sum64(data), nil
}

// Key is the fixed-width hex form of Of.
func Key(snap criteria.Snapshot) (string, error) {
	sum, err := Of(snap)
	if err != nil {
		return "", err
	}

	return format(sum), nil
}

// CacheKey prefixes Key with the given namespace, or KeyPrefix when empty.
func CacheKey(prefix string, snap criteria.Snapshot) (string, error) {
	key, err := Key(snap)
	if err != nil {
		return "", err
	}

	if prefix == "" {
		prefix = KeyPrefix
	}

	return fmt.Sprintf("%s:%s", prefix, key), nil
}

// Validate checks a key received from outside, e.g. a header or log query.
func Validate(key string) error {
	if !validKeyPattern.MatchString(key) {
		return ErrKeyInvalid
	}

	return nil
}

// Parse is the inverse of Key.
func Parse(key string) (uint64, error) {
	if err := Validate(key); err != nil {
		return 0, err
	}

	sum, err := strconv.ParseUint(key, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrKeyInvalid, err)
	}

	return sum, nil
}

func format(sum uint64) string {
	return fmt.Sprintf("%0*x", KeyLength, sum)
}
