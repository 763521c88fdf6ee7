package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"staffattend/internal/attendance"
)

// Validation tags understood by the request DTOs on top of the validator's
// built-ins.
const (
	tagCalendarDate = "calendar_date"
	tagClockTime    = "clock_time"
	tagRecordable   = "recordable_status"
)

var registerOnce sync.Once

// registerValidators teaches gin's validator the API's date, time and status
// formats and makes field errors report JSON names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation(tagCalendarDate, func(fl validator.FieldLevel) bool {
			_, err := attendance.ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation(tagClockTime, func(fl validator.FieldLevel) bool {
			_, err := attendance.ParseTimeOfDay(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation(tagRecordable, func(fl validator.FieldLevel) bool {
			_, err := attendance.ParseStatus(fl.Field().String())
			return err == nil
		})
	})
}

// FormatBindingError turns a ShouldBind error into the message returned in
// the "error" field of a 400 response.
func FormatBindingError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, io.EOF) {
		return "request body is empty"
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("malformed JSON at byte %d", syntaxErr.Offset)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s must be a %s", typeErr.Field, jsonKind(typeErr.Type))
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]string, 0, len(ve))
		for _, fe := range ve {
			out = append(out, fieldMessage(fe))
		}
		return strings.Join(out, "; ")
	}
	return err.Error()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case tagCalendarDate:
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format, got %q", fe.Field(), fe.Value())
	case tagClockTime:
		return fmt.Sprintf("%s must be a time in HH:MM:SS format, got %q", fe.Field(), fe.Value())
	case tagRecordable:
		return fmt.Sprintf("%s must be %q, got %q", fe.Field(), attendance.StatusPresent, fe.Value())
	}
	return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
}

// jsonKind names a Go type the way an API client thinks of it.
func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Ptr:
		return jsonKind(t.Elem())
	}
	return "object"
}
