package utils

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateFileHeader enforces the upload size ceiling before anything is read or stored.
func ValidateFileHeader(h *multipart.FileHeader, maxBytes int64) error {
	if h == nil {
		return fmt.Errorf("%w: no file attached", ErrValidation)
	}
	if h.Size == 0 {
		return fmt.Errorf("%w: empty file", ErrValidation)
	}
	if maxBytes > 0 && h.Size > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, h.Size, maxBytes)
	}
	return nil
}

// ContentType prefers the declared part header and falls back to sniffing.
func ContentType(h *multipart.FileHeader, head []byte) string {
	ct := h.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(head)
	}
	return ct
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct checks the `validate` tags of s and reports the first failing
// field as an ErrValidation.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, fieldMessage(verrs[0]))
	}
	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}
