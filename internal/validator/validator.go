package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxUserNameLength           = 30
	MaxProductNameLength        = 20
	MaxProductDescriptionLength = 200
	MaxEventTypeNameLength      = 30
	MaxPrice                    = 1_000_000
	MaxQuantity                 = 1_000_000
)

var (
	ErrInvalidCode         = errors.New("code must be 4 digits")
	ErrInvalidUserName     = errors.New("invalid user name")
	ErrInvalidProductName  = errors.New("invalid product name")
	ErrInvalidDescription  = errors.New("product description too long")
	ErrInvalidEventType    = errors.New("invalid event type name")
	ErrInvalidWeight       = errors.New("weight must be at least 1")
	ErrInvalidAvailability = errors.New("availability must not be negative")
	ErrInvalidPrice        = errors.New("price out of range")
	ErrInvalidQuantity     = errors.New("quantity out of range")
)

var codeRegex = regexp.MustCompile(`^[0-9]{1,4}$`)

// NormalizeCode validates a numeric code and zero-pads it to four digits.
func NormalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !codeRegex.MatchString(code) {
		return "", ErrInvalidCode
	}
	return strings.Repeat("0", 4-len(code)) + code, nil
}

func ValidateCode(code string) error {
	if len(code) != 4 || !codeRegex.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}

func ValidateUserName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxUserNameLength {
		return ErrInvalidUserName
	}
	return nil
}

func ValidateProduct(name, description string, price int64) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxProductNameLength {
		return ErrInvalidProductName
	}
	if utf8.RuneCountInString(description) > MaxProductDescriptionLength {
		return ErrInvalidDescription
	}
	if price < 0 || price > MaxPrice {
		return ErrInvalidPrice
	}
	return nil
}

func ValidateEventType(name string, weight, availability int64) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxEventTypeNameLength {
		return ErrInvalidEventType
	}
	if weight < 1 {
		return ErrInvalidWeight
	}
	if availability < 0 {
		return ErrInvalidAvailability
	}
	return nil
}

// ValidateQuantity checks an ordered quantity.
func ValidateQuantity(quantity int64) error {
	if quantity <= 0 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// ValidateStock checks the quantity a product is listed with. Zero is allowed.
func ValidateStock(quantity int64) error {
	if quantity < 0 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}
