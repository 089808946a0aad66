package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stable numeric identities for marketplace failures. Callers dispatch on
// these codes, so the values never change meaning between releases.
const (
	CodeUnauthorizedOwner   = 100
	CodeNotFound            = 101
	CodeAlreadyListed       = 102
	CodeInsufficientBalance = 103
	CodeUnauthorizedAccess  = 104
	CodeInvalidPrice        = 105
	CodeInvalidInput        = 106
)

const (
	MarketErrorUnauthorizedOwner   = "MARKET_UNAUTHORIZED_OWNER"
	MarketErrorNotFound            = "MARKET_NOT_FOUND"
	MarketErrorAlreadyListed       = "MARKET_ALREADY_LISTED"
	MarketErrorInsufficientBalance = "MARKET_INSUFFICIENT_BALANCE"
	MarketErrorUnauthorizedAccess  = "MARKET_UNAUTHORIZED_ACCESS"
	MarketErrorInvalidPrice        = "MARKET_INVALID_PRICE"
	MarketErrorInvalidInput        = "MARKET_INVALID_INPUT"
	MarketErrorInternal            = "MARKET_INTERNAL_ERROR"
)

// MarketErrorCode extracts the stable marketplace failure code from an
// error. The second return is false for errors outside the marketplace
// taxonomy (internal faults, wiring errors, plain errors).
func MarketErrorCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return 0, false
	}
	if richErr.Code < CodeUnauthorizedOwner || richErr.Code > CodeInvalidInput {
		return 0, false
	}
	return richErr.Code, true
}

func marketErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureMarketErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "insufficient"):
		return errInsufficientBalance(err.Error())
	case strings.Contains(msg, "not found"), strings.Contains(msg, "unknown asset"):
		return errNotFound(err.Error())
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "too long"), strings.Contains(msg, "empty"):
		return errInvalidInput(err.Error())
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureMarketErrorEnvelope(mapped)
}

func errUnauthorizedOwner(message string) *goerrors.Error {
	return newMarketError(message, goerrors.CategoryAuthz, MarketErrorUnauthorizedOwner, CodeUnauthorizedOwner)
}

func errNotFound(message string) *goerrors.Error {
	return newMarketError(message, goerrors.CategoryNotFound, MarketErrorNotFound, CodeNotFound)
}

func errAlreadyListed(message string) *goerrors.Error {
	return newMarketError(message, goerrors.CategoryConflict, MarketErrorAlreadyListed, CodeAlreadyListed)
}

func errInsufficientBalance(message string) *goerrors.Error {
	return newMarketError(message, goerrors.CategoryExternal, MarketErrorInsufficientBalance, CodeInsufficientBalance)
}

func errUnauthorizedAccess(message string) *goerrors.Error {
	return newMarketError(message, goerrors.CategoryAuthz, MarketErrorUnauthorizedAccess, CodeUnauthorizedAccess)
}

func errInvalidPrice(message string) *goerrors.Error {
	return newMarketError(message, goerrors.CategoryValidation, MarketErrorInvalidPrice, CodeInvalidPrice)
}

func errInvalidInput(message string) *goerrors.Error {
	return newMarketError(message, goerrors.CategoryBadInput, MarketErrorInvalidInput, CodeInvalidInput)
}

func newMarketError(message string, category goerrors.Category, textCode string, code int) *goerrors.Error {
	return goerrors.New(message, category).
		WithTextCode(textCode).
		WithCode(code)
}

func ensureMarketErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultMarketTextCode(err.Category)
	}
	if err.Code == 0 {
		err.Code = marketCodeForTextCode(err.TextCode)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultMarketTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return MarketErrorInvalidInput
	case goerrors.CategoryValidation:
		return MarketErrorInvalidPrice
	case goerrors.CategoryNotFound:
		return MarketErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return MarketErrorUnauthorizedAccess
	case goerrors.CategoryConflict:
		return MarketErrorAlreadyListed
	case goerrors.CategoryExternal:
		return MarketErrorInsufficientBalance
	default:
		return MarketErrorInternal
	}
}

func marketCodeForTextCode(textCode string) int {
	switch strings.TrimSpace(textCode) {
	case MarketErrorUnauthorizedOwner:
		return CodeUnauthorizedOwner
	case MarketErrorNotFound:
		return CodeNotFound
	case MarketErrorAlreadyListed:
		return CodeAlreadyListed
	case MarketErrorInsufficientBalance:
		return CodeInsufficientBalance
	case MarketErrorUnauthorizedAccess:
		return CodeUnauthorizedAccess
	case MarketErrorInvalidPrice:
		return CodeInvalidPrice
	case MarketErrorInvalidInput:
		return CodeInvalidInput
	default:
		return http.StatusInternalServerError
	}
}

// MarketErrorHTTPStatus maps a marketplace error to the HTTP status a
// transport layer should answer with.
func MarketErrorHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if code, ok := MarketErrorCode(err); ok {
		switch code {
		case CodeUnauthorizedOwner, CodeUnauthorizedAccess:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeAlreadyListed:
			return http.StatusConflict
		case CodeInsufficientBalance:
			return http.StatusPaymentRequired
		case CodeInvalidPrice, CodeInvalidInput:
			return http.StatusBadRequest
		}
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return http.StatusBadRequest
		case goerrors.CategoryNotFound:
			return http.StatusNotFound
		case goerrors.CategoryAuth:
			return http.StatusUnauthorized
		case goerrors.CategoryAuthz:
			return http.StatusForbidden
		case goerrors.CategoryConflict:
			return http.StatusConflict
		case goerrors.CategoryRateLimit:
			return http.StatusTooManyRequests
		}
	}
	return http.StatusInternalServerError
}
