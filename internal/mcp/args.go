package mcp

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

type applyArgs struct {
	Template  string `json:"template" validate:"required"`
	Workspace string `json:"workspace" validate:"required"`
	Root      string `json:"root"`
	DryRun    bool   `json:"dry_run"`
}

type buildSingleArgs struct {
	Workspace string `json:"workspace" validate:"required"`
	DryRun    bool   `json:"dry_run"`
}

type buildMultiArgs struct {
	Core     string   `json:"core" validate:"required"`
	Repos    []string `json:"repos" validate:"required,min=1,dive,required"`
	Absolute bool     `json:"absolute"`
	DryRun   bool     `json:"dry_run"`
}

type validateArgs struct {
	Path      string `json:"path" validate:"required_without=Workspace"`
	Workspace string `json:"workspace"`
	Strict    bool   `json:"strict"`
}

var argsValidator = newArgsValidator()

func newArgsValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// decodeArgs copies the request arguments into out and validates them. The
// returned error text is meant for the assistant.
func decodeArgs(req mcp.CallToolRequest, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(req.GetArguments()); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	if err := argsValidator.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid arguments: %s", strings.Join(lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return describeFieldError(fe)
			}), "; "))
		}
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing required parameter: %s", fe.Field())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is omitted", fe.Field(), strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("%s needs at least %s item(s)", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag())
	}
}
