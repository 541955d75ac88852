package domain

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIdentifierRange indicates an index or history length outside [0,255].
	ErrIdentifierRange = errors.New("index and history length must be between 0 and 255")
	// ErrIdentifierFormat indicates a voucher identifier that cannot be decoded.
	ErrIdentifierFormat = errors.New("invalid voucher identifier format")
)

// EncodeIdentifier packs a voucher index and history length into a short
// base32 token scoped to an epoch, suitable for use as the local part of a
// return-channel email address.
func EncodeIdentifier(index, historyLength int, epoch string) (string, error) {
	if index < 0 || index > 255 || historyLength < 0 || historyLength > 255 {
		return "", ErrIdentifierRange
	}
	payload := []byte{byte(index), byte(historyLength)}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(payload)
	return strings.ToLower(epoch) + "-" + strings.ToLower(encoded), nil
}

// DecodeIdentifier is the inverse of EncodeIdentifier. Tokens are matched
// case-insensitively and stripped padding is restored before decoding.
func DecodeIdentifier(token string) (epoch string, index, historyLength int, err error) {
	token = strings.ToUpper(strings.TrimSpace(token))

	if strings.Count(token, "-") != 1 {
		return "", 0, 0, fmt.Errorf("%w: expected two parts separated by a single hyphen", ErrIdentifierFormat)
	}
	separator := strings.LastIndex(token, "-")
	epoch, encoded := token[:separator], token[separator+1:]

	if missing := len(encoded) % 8; missing != 0 {
		encoded += strings.Repeat("=", 8-missing)
	}
	payload, decodeErr := base32.StdEncoding.DecodeString(encoded)
	if decodeErr != nil {
		return "", 0, 0, fmt.Errorf("%w: %v", ErrIdentifierFormat, decodeErr)
	}
	if len(payload) != 2 {
		return "", 0, 0, fmt.Errorf("%w: expected a two byte payload, got %d", ErrIdentifierFormat, len(payload))
	}
	return epoch, int(payload[0]), int(payload[1]), nil
}
