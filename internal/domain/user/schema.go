package user

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	pkgerrors "user-api/pkg/errors"
)

// fieldOrder is the declaration order of Input, used to order violations.
var fieldOrder = []string{"name", "email", "password"}

// Schema builds User values from raw input and enforces field presence.
type Schema struct {
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for presence rules
}

// NewSchema creates a Schema whose violations are reported by JSON field name.
func NewSchema(log *zap.Logger) *Schema {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &Schema{log: log, validate: v}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Build validates in and returns the User it describes. Values are copied
// unchanged; an omitted name stays absent.
func (s *Schema) Build(in Input) (*User, error) {
	if errs := s.violations(in); len(errs) > 0 {
		s.log.Debug("user schema rejected input", zap.Strings("fields", errs.Fields()))
		return nil, errs
	}

	u := &User{
		Name:     in.Name,
		Email:    *in.Email,
		Password: *in.Password,
	}

	s.log.Debug("user schema accepted input",
		zap.Bool("has_name", u.HasName()),
		zap.String("email", u.Email),
	)
	return u, nil
}

// Decode parses a JSON object into a User. A null field counts as omitted,
// unknown keys are ignored and a non-string value is a violation on its field.
// A body that is not valid UTF-8 is rejected rather than repaired.
func (s *Schema) Decode(data []byte) (*User, error) {
	if !utf8.Valid(data) {
		s.log.Debug("user payload is not valid UTF-8")
		return nil, pkgerrors.ValidationErrors{
			pkgerrors.NewValidationError("", "body must be valid UTF-8"),
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		s.log.Debug("user payload is not a JSON object", zap.Error(err))
		return nil, pkgerrors.ValidationErrors{
			pkgerrors.NewValidationError("", "body must be a JSON object"),
		}
	}

	var in Input
	typeErrs := make(map[string]*pkgerrors.ValidationError)
	targets := map[string]**string{
		"name":     &in.Name,
		"email":    &in.Email,
		"password": &in.Password,
	}
	for _, field := range fieldOrder {
		value, ok := raw[field]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, targets[field]); err != nil {
			typeErrs[field] = pkgerrors.NewValidationError(field, "must be a string")
		}
	}

	if len(typeErrs) == 0 {
		return s.Build(in)
	}

	missing := make(map[string]*pkgerrors.ValidationError)
	for _, v := range s.violations(in) {
		missing[v.Field] = v
	}

	var errs pkgerrors.ValidationErrors
	for _, field := range fieldOrder {
		if v, ok := typeErrs[field]; ok {
			errs = append(errs, v)
		} else if v, ok := missing[field]; ok {
			errs = append(errs, v)
		}
	}

	s.log.Debug("user schema rejected payload", zap.Strings("fields", errs.Fields()))
	return nil, errs
}

// violations runs the validator and converts its output into field errors.
func (s *Schema) violations(in Input) pkgerrors.ValidationErrors {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return pkgerrors.ValidationErrors{pkgerrors.NewValidationError("", err.Error())}
	}

	errs := make(pkgerrors.ValidationErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errs = append(errs, pkgerrors.NewValidationError(e.Field(), "is required"))
		default:
			errs = append(errs, pkgerrors.NewValidationError(e.Field(), "is invalid"))
		}
	}
	return errs
}
