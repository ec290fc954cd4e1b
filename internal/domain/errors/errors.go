package errors

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid")

// ErrStructural 表示整个流水线无法继续：目录缺失、列表文件根结构损坏等。
// 出现时不允许写出任何部分结果。
var ErrStructural = errors.New("structural failure")

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationError struct {
	Items []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Items) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	b.WriteString("validation failed:\n")
	for _, item := range e.Items {
		b.WriteString(" - ")
		b.WriteString(item.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{
		Field:   field,
		Message: msg,
	})
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func (e ValidationError) HasAny() bool {
	return len(e.Items) > 0
}

// StructuralError wraps the cause of a fatal pipeline failure together with
// the path that triggered it.
type StructuralError struct {
	Path string
	Err  error
}

func Structural(path string, err error) error {
	return &StructuralError{Path: path, Err: err}
}

func (e *StructuralError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("structural failure at %s", e.Path)
	}
	return fmt.Sprintf("structural failure at %s: %v", e.Path, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}
