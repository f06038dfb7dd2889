package utils

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFile       = errors.New("missing file")
	ErrMissingColumn     = errors.New("missing column")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrDivisionUndefined = errors.New("division undefined")
)

// AnalysisError 记录失败的操作以及相关的列名、指标名或路径
type AnalysisError struct {
	Op      string
	Subject string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Subject, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError constructs an AnalysisError.
func NewAnalysisError(op, subject string, err error) error {
	return &AnalysisError{Op: op, Subject: subject, Err: err}
}
