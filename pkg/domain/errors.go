package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies database errors so callers can react without string
// matching.
type ErrorCode int

const (
	CodeInvalidArgument ErrorCode = iota + 1
	CodeInvalidDataType
	CodeInvalidUpdateField
	CodeNotFound
	CodeDuplicateKey
	CodeIndexExists
	CodeCollectionNotFound
)

func (c ErrorCode) String() string {
	switch c {
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeInvalidDataType:
		return "invalid data type"
	case CodeInvalidUpdateField:
		return "invalid update field"
	case CodeNotFound:
		return "not found"
	case CodeDuplicateKey:
		return "duplicate key"
	case CodeIndexExists:
		return "index exists"
	case CodeCollectionNotFound:
		return "collection not found"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// DatabaseError is the typed error reported for data and argument violations.
type DatabaseError struct {
	Code    ErrorCode
	Field   string
	Message string
}

func (e *DatabaseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidArgument reports a caller mistake detected before any side effect.
func NewInvalidArgument(msg string) *DatabaseError {
	return &DatabaseError{Code: CodeInvalidArgument, Message: msg}
}

// NewInvalidDataType reports a document value that violates a type rule.
func NewInvalidDataType(field, msg string) *DatabaseError {
	return &DatabaseError{Code: CodeInvalidDataType, Field: field, Message: msg}
}

// NewInvalidUpdateField reports an attempt to change a protected field.
func NewInvalidUpdateField(field string) *DatabaseError {
	return &DatabaseError{Code: CodeInvalidUpdateField, Field: field, Message: "field cannot be changed by an update"}
}

// NewNotFound reports a missing document or resource.
func NewNotFound(msg string) *DatabaseError {
	return &DatabaseError{Code: CodeNotFound, Message: msg}
}

// NewDuplicateKey reports a primary-key collision on insert.
func NewDuplicateKey(key string) *DatabaseError {
	return &DatabaseError{Code: CodeDuplicateKey, Field: IDField, Message: fmt.Sprintf("duplicate key %s", key)}
}

// NewIndexExists reports an attempt to recreate an existing index.
func NewIndexExists(name string) *DatabaseError {
	return &DatabaseError{Code: CodeIndexExists, Message: fmt.Sprintf("index %q already exists", name)}
}

// NewCollectionNotFound reports an unknown collection name.
func NewCollectionNotFound(name string) *DatabaseError {
	return &DatabaseError{Code: CodeCollectionNotFound, Message: fmt.Sprintf("collection %q not found", name)}
}

// ErrCode returns the code carried by err, or zero when err is not a
// DatabaseError.
func ErrCode(err error) ErrorCode {
	var de *DatabaseError
	if errors.As(err, &de) {
		return de.Code
	}
	return 0
}

func IsInvalidArgument(err error) bool    { return ErrCode(err) == CodeInvalidArgument }
func IsInvalidDataType(err error) bool    { return ErrCode(err) == CodeInvalidDataType }
func IsInvalidUpdateField(err error) bool { return ErrCode(err) == CodeInvalidUpdateField }
func IsNotFound(err error) bool {
	c := ErrCode(err)
	return c == CodeNotFound || c == CodeCollectionNotFound
}
func IsDuplicateKey(err error) bool { return ErrCode(err) == CodeDuplicateKey }
