package modelconfig

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Violation is a single rule a config breaks. Field uses the YAML path,
// e.g. "model.cells[0].num_units".
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + " " + v.Message
}

// ValidationError carries every violation found in a config.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid model config: " + strings.Join(parts, "; ")
}

// Has reports whether a violation was recorded for field.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Runs ahead of the range tags, which compare false against NaN.
		validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			return isFinite(fl.Field().Float())
		})
	})
	return validate
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// nonFinite returns the first key, in sorted order, whose value is NaN or ±Inf.
func nonFinite(args map[string]float64) (string, bool) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !isFinite(args[k]) {
			return k, true
		}
	}
	return "", false
}

// Validate checks the config against the schema rules and the rules that
// span several fields. All violations are reported together.
func (c *Config) Validate() error {
	var violations []Violation

	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate model config: %w", err)
		}
		for _, fe := range verrs {
			violations = append(violations, Violation{
				Field:   strings.TrimPrefix(fe.Namespace(), "Config."),
				Message: describe(fe),
			})
		}
	}

	violations = append(violations, c.initializerViolations()...)
	violations = append(violations, c.clipViolations()...)

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max":
		return "must have at most " + fe.Param() + " entries"
	case "finite":
		return "must be a finite number"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return "failed rule " + fe.Tag()
	}
}

func (c *Config) initializerViolations() []Violation {
	args := c.Model.InitializerArgs
	field := "model.initializer_args"

	if key, ok := nonFinite(args); ok {
		return []Violation{{field, key + " must be a finite number"}}
	}

	switch c.Model.InitializerName {
	case InitRandomUniform:
		minval, okMin := args["minval"]
		maxval, okMax := args["maxval"]
		if !okMin || !okMax {
			return []Violation{{field, "must set minval and maxval for random_uniform"}}
		}
		if !(minval < maxval) {
			return []Violation{{field, fmt.Sprintf("minval (%g) must be less than maxval (%g)", minval, maxval)}}
		}
	case InitRandomNormal, InitTruncatedNormal:
		if stddev, ok := args["stddev"]; !ok || !(stddev > 0) {
			return []Violation{{field, "must set a positive stddev for " + c.Model.InitializerName}}
		}
	}
	return nil
}

func (c *Config) clipViolations() []Violation {
	args := c.Train.GradientClipArgs
	field := "train.gradient_clip_args"

	if key, ok := nonFinite(args); ok {
		return []Violation{{field, key + " must be a finite number"}}
	}

	switch c.Train.GradientClip {
	case ClipGlobalNorm, ClipNorm:
		if norm, ok := args["clip_norm"]; !ok || !(norm > 0) {
			return []Violation{{field, "must set a positive clip_norm for " + string(c.Train.GradientClip)}}
		}
	case ClipValue:
		lo, okLo := args["clip_min"]
		hi, okHi := args["clip_max"]
		if !okLo || !okHi {
			return []Violation{{field, "must set clip_min and clip_max for clip_by_value"}}
		}
		if !(lo < hi) {
			return []Violation{{field, fmt.Sprintf("clip_min (%g) must be less than clip_max (%g)", lo, hi)}}
		}
	}
	return nil
}
