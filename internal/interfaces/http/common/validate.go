package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

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

// Validate checks struct tags on payload and reports the first failure as a
// domain.ValidationError keyed by the JSON field name.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	msg := fmt.Sprintf("failed %q check", fe.Tag())
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "min", "gte":
		msg = "must be at least " + fe.Param()
	case "max", "lte":
		msg = "must be at most " + fe.Param()
	case "oneof":
		msg = "must be one of " + fe.Param()
	}
	return domain.NewValidationError(fe.Field(), "%s", msg)
}

// DecodeJSON reads a size-limited JSON body into dst and validates it.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("", "malformed request body: %v", err)
	}
	return Validate(dst)
}
