package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"synapse-service/internal/util"
)

// Errors maps a query field to its failure messages.
type Errors map[string][]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], ", "))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// messages are keyed "<field>.<tag>".
var defaultMessages = map[string]string{
	"userid.required":    "User ID cannot be empty",
	"userid.int":         "User ID is an integer value",
	"pin.required":       "User pin cannot be empty",
	"pin.int":            "User pin is an integer value",
	"deviceid.required":  "Device ID cannot be empty",
	"deviceid.alnum":     "Device ID is an alnum value",
	"companyid.required": "Company ID cannot be empty",
	"companyid.int":      "Company ID is an integer value",
	"session.required":   "Session cannot be empty",
	"session.alnum":      "Invalid session",
	"verbos.oneof":       "The input was not found in the haystack",
}

// messageOverrider lets an input replace individual default messages.
type messageOverrider interface {
	messages() map[string]string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	for tag, fn := range map[string]validator.Func{
		"int":   isInt,
		"alnum": isAlnum,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

// isInt accepts unsigned decimal digits that fit in an int64.
func isInt(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isAlnum(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

// Validate checks input against its struct tags and returns Errors on failure.
func Validate(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	overrides := map[string]string{}
	if o, ok := input.(messageOverrider); ok {
		overrides = o.messages()
	}

	out := Errors{}
	for _, fe := range fieldErrs {
		key := fe.Field() + "." + fe.Tag()
		msg, ok := overrides[key]
		if !ok {
			msg, ok = defaultMessages[key]
		}
		if !ok {
			msg = fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
		}
		out[fe.Field()] = append(out[fe.Field()], msg)
	}
	return out
}

// Messages extracts the field messages from a Validate error.
func Messages(err error) Errors {
	var verr Errors
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}

func param(q url.Values, name string) string {
	return util.FilterInput(q.Get(name))
}

func mustInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
