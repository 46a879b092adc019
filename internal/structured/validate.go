package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

// Shape selects the schema a candidate is checked against.
type Shape int

const (
	ShapeProject Shape = iota
	ShapePatch
)

func (s Shape) String() string {
	switch s {
	case ShapeProject:
		return "project"
	case ShapePatch:
		return "patch"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// Violation is one schema problem at a JSON field path such as files[2].path.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

type Report struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Err joins the violations into one error, or nil when the report is valid.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	errs := make([]error, 0, len(r.Violations))
	for _, v := range r.Violations {
		errs = append(errs, errors.New(v.String()))
	}
	return errors.Join(errs...)
}

var typedValidate *validator.Validate

func init() {
	typedValidate = validator.New(validator.WithRequiredStructEnabled())
	typedValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = typedValidate.RegisterValidation("safepath", func(fl validator.FieldLevel) bool {
		return types.IsSafeRelPath(fl.Field().String())
	})
	typedValidate.RegisterStructValidation(validateOperation, types.FileOperation{})
}

func validateOperation(sl validator.StructLevel) {
	op := sl.Current().Interface().(types.FileOperation)
	for _, p := range op.Problems() {
		sl.ReportError(op.Kind, "kind", "Kind", "operation", p)
	}
}

// ValidateProject checks a typed project with the struct tag rules.
func ValidateProject(p types.Project) Report {
	return typedReport(typedValidate.Struct(p))
}

// ValidatePatch checks a typed patch; each operation must satisfy its kind.
func ValidatePatch(p types.Patch) Report {
	return typedReport(typedValidate.Struct(p))
}

func typedReport(err error) Report {
	if err == nil {
		return Report{Valid: true}
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Report{Violations: []Violation{{Message: err.Error()}}}
	}
	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Project.")
		field = strings.TrimPrefix(field, "Patch.")
		msg := "failed " + fe.Tag()
		if fe.Tag() == "operation" {
			msg = fe.Param()
		}
		out = append(out, Violation{Field: field, Message: msg})
	}
	return Report{Violations: out}
}

// Validate checks a parsed candidate against shape. It only reports; the
// candidate is never modified.
func Validate(c Candidate, shape Shape) Report {
	var vs []Violation
	add := func(field, format string, args ...any) {
		vs = append(vs, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	if c == nil {
		add("", "candidate is empty")
		return Report{Violations: vs}
	}

	switch shape {
	case ShapeProject:
		validateProjectMap(c, add)
	case ShapePatch:
		validatePatchMap(c, add)
	default:
		add("", "unknown shape %v", shape)
	}
	if len(vs) > 0 {
		return Report{Violations: vs}
	}

	// The map passed; the typed rules must agree.
	if shape == ShapeProject {
		raw, err := json.Marshal(c)
		if err != nil {
			add("", "re-encode: %v", err)
			return Report{Violations: vs}
		}
		var p types.Project
		if err := json.Unmarshal(raw, &p); err != nil {
			add("", "decode: %v", err)
			return Report{Violations: vs}
		}
		return ValidateProject(p)
	}
	return ValidatePatch(strictPatch(c))
}

// strictPatch builds the typed patch from a candidate that already passed the
// map-level checks.
func strictPatch(c Candidate) types.Patch {
	p := types.Patch{}
	p.Description, _ = c["description"].(string)
	p.ExpectedOutcome, _ = c["expectedOutcome"].(string)
	if cmds, ok := c["buildCommands"].([]any); ok {
		for _, cmd := range cmds {
			if s, ok := cmd.(string); ok {
				p.BuildCommands = append(p.BuildCommands, s)
			}
		}
	}
	ops, _ := c["operations"].([]any)
	for _, item := range ops {
		m, _ := item.(map[string]any)
		raw, _ := m["kind"].(string)
		kind, _ := types.ParseOperationKind(raw)
		p.Operations = append(p.Operations, operationFromMap(m, kind))
	}
	return p
}

type addFunc func(field, format string, args ...any)

func validateProjectMap(c Candidate, add addFunc) {
	for _, k := range []string{"name", "targetVersion", "files"} {
		if _, ok := c[k]; !ok {
			add(k, "is required")
		}
	}
	checkString(c, "name", true, add)
	checkString(c, "targetVersion", true, add)
	checkTrimmed(c, "name", add)
	checkTrimmed(c, "targetVersion", add)
	checkString(c, "buildInstructions", false, add)
	checkStringArray(c, "dependencies", add)

	raw, ok := c["files"]
	if !ok {
		return
	}
	files, ok := raw.([]any)
	if !ok {
		add("files", "must be an array")
		return
	}
	if len(files) == 0 {
		add("files", "must not be empty")
		return
	}
	seen := map[string]int{}
	for i, item := range files {
		prefix := fmt.Sprintf("files[%d]", i)
		f, ok := item.(map[string]any)
		if !ok {
			add(prefix, "must be an object")
			continue
		}
		for _, k := range []string{"path", "content", "type"} {
			s, ok := f[k].(string)
			if !ok || strings.TrimSpace(s) == "" {
				add(prefix+"."+k, "must be a non-empty string")
			}
		}
		if p, ok := f["path"].(string); ok && p != "" {
			if err := types.CheckRelPath(p); err != nil {
				add(prefix+".path", "%v", err)
			} else if j, dup := seen[p]; dup {
				add(prefix+".path", "duplicates files[%d].path", j)
			} else {
				seen[p] = i
			}
		}
		checkTrimmed(f, "type", func(field, format string, args ...any) { add(prefix+"."+field, format, args...) })
	}
}

// checkTrimmed rejects values the sanitizer would otherwise rewrite.
func checkTrimmed(m map[string]any, key string, add addFunc) {
	if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" && s != strings.TrimSpace(s) {
		add(key, "must not have surrounding whitespace")
	}
}

func validatePatchMap(c Candidate, add addFunc) {
	if _, ok := c["operations"]; !ok {
		add("operations", "is required")
		return
	}
	checkString(c, "description", false, add)
	checkString(c, "expectedOutcome", false, add)
	checkStringArray(c, "buildCommands", add)

	ops, ok := c["operations"].([]any)
	if !ok {
		add("operations", "must be an array")
		return
	}
	for i, item := range ops {
		prefix := fmt.Sprintf("operations[%d]", i)
		m, ok := item.(map[string]any)
		if !ok {
			add(prefix, "must be an object")
			continue
		}
		kindRaw, ok := m["kind"].(string)
		if !ok {
			add(prefix+".kind", "must be a string")
			continue
		}
		kind, ok := types.ParseOperationKind(kindRaw)
		if !ok {
			add(prefix+".kind", "unknown kind %q", kindRaw)
			continue
		}
		for _, k := range []string{"path", "oldPath", "newPath", "content", "reason"} {
			if v, present := m[k]; present && v != nil {
				if _, ok := v.(string); !ok {
					add(prefix+"."+k, "must be a string")
				}
			}
		}
		op := operationFromMap(m, kind)
		for _, p := range op.Problems() {
			add(prefix, "%s", p)
		}
	}
}

func checkString(c Candidate, key string, required bool, add addFunc) {
	v, ok := c[key]
	if !ok || (v == nil && !required) {
		return
	}
	s, ok := v.(string)
	if !ok {
		add(key, "must be a string")
		return
	}
	if required && strings.TrimSpace(s) == "" {
		add(key, "must not be empty")
	}
}

func checkStringArray(c Candidate, key string, add addFunc) {
	v, ok := c[key]
	if !ok || v == nil {
		return
	}
	arr, ok := v.([]any)
	if !ok {
		add(key, "must be an array of strings")
		return
	}
	for i, item := range arr {
		if _, ok := item.(string); !ok {
			add(fmt.Sprintf("%s[%d]", key, i), "must be a string")
		}
	}
}

// operationFromMap reads the strictly typed fields of one operation map.
func operationFromMap(m map[string]any, kind types.OperationKind) types.FileOperation {
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	op := types.FileOperation{
		Kind:    kind,
		Path:    str("path"),
		OldPath: str("oldPath"),
		NewPath: str("newPath"),
		Reason:  str("reason"),
	}
	if s, ok := m["content"].(string); ok {
		op.Content = &s
	}
	return op
}
