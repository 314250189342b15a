// Package catalog loads problem definitions from YAML and registers them as command-backed problems.
package catalog

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"sregrade/internal/common/cmdexec"
	"sregrade/internal/conductor/oracle"
	"sregrade/internal/conductor/problem"
	appErr "sregrade/pkg/errors"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Catalog is a set of problem definitions.
type Catalog struct {
	Problems []ProblemSpec `yaml:"problems" validate:"required,min=1,dive"`
}

// ProblemSpec defines one problem.
type ProblemSpec struct {
	ID           string          `yaml:"id" validate:"required,problemid"`
	App          AppSpec         `yaml:"app"`
	Fault        FaultSpec       `yaml:"fault"`
	Detection    *DetectionSpec  `yaml:"detection"`
	Localization []string        `yaml:"localization" validate:"omitempty,dive,required"`
	Mitigation   *MitigationSpec `yaml:"mitigation"`
}

// AppSpec describes the application under test and how to deploy it.
type AppSpec struct {
	Name        string `yaml:"name" validate:"required"`
	Namespace   string `yaml:"namespace" validate:"required"`
	Description string `yaml:"description"`
	Deploy      string `yaml:"deploy" validate:"required"`
	Cleanup     string `yaml:"cleanup" validate:"required"`
	Workload    string `yaml:"workload"`
}

// FaultSpec holds the inject/recover command pair. Noop problems leave both empty.
type FaultSpec struct {
	Inject  string `yaml:"inject" validate:"required_with=Recover"`
	Recover string `yaml:"recover" validate:"required_with=Inject"`
}

// DetectionSpec enables the detection stage.
type DetectionSpec struct {
	Expected string `yaml:"expected" validate:"omitempty,oneof=Yes No"`
}

// MitigationSpec enables the mitigation stage. Every check must exit 0 for success.
type MitigationSpec struct {
	Checks []CheckSpec `yaml:"checks" validate:"required,min=1,dive"`
}

// CheckSpec is one state check command.
type CheckSpec struct {
	Name    string `yaml:"name" validate:"required"`
	Command string `yaml:"command" validate:"required"`
}

var (
	catalogValidate *validator.Validate
	problemIDRe     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
)

func init() {
	catalogValidate = validator.New()
	catalogValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = catalogValidate.RegisterValidation("problemid", func(fl validator.FieldLevel) bool {
		return problemIDRe.MatchString(fl.Field().String())
	})
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CatalogLoadFailed, "read catalog %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, appErr.Wrapf(err, appErr.CatalogLoadFailed, "parse catalog: %v", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks field constraints, unique ids, and that faulty problems define a fault.
func (c *Catalog) Validate() error {
	if err := catalogValidate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return appErr.Newf(appErr.CatalogInvalid, "Invalid problem catalog: %s", strings.Join(fields, ", ")).
				WithDetail("fields", fields)
		}
		return appErr.Wrapf(err, appErr.CatalogInvalid, "Invalid problem catalog: %v", err)
	}

	seen := make(map[string]struct{}, len(c.Problems))
	for _, p := range c.Problems {
		if _, dup := seen[p.ID]; dup {
			return appErr.Newf(appErr.CatalogInvalid, "Duplicate problem id %s", p.ID).WithDetail("problem_id", p.ID)
		}
		seen[p.ID] = struct{}{}
		if !problem.IsNoop(p.ID) && p.Fault.Inject == "" {
			return appErr.Newf(appErr.CatalogInvalid, "Problem %s must define fault.inject and fault.recover", p.ID).
				WithDetail("problem_id", p.ID)
		}
		if problem.IsNoop(p.ID) && (p.Localization != nil || p.Mitigation != nil) {
			return appErr.Newf(appErr.CatalogInvalid, "Noop problem %s can only grade detection", p.ID).
				WithDetail("problem_id", p.ID)
		}
	}
	return nil
}

// Register adds every catalog problem to reg. Each factory builds fresh command-backed
// collaborators and never runs a command.
func (c *Catalog) Register(reg *problem.Registry, runner *cmdexec.Runner) error {
	for _, spec := range c.Problems {
		if err := reg.Register(spec.ID, func() (*problem.Problem, error) {
			return spec.Build(runner), nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// Build creates the problem described by spec.
func (s ProblemSpec) Build(runner *cmdexec.Runner) *problem.Problem {
	vars := map[string]string{
		"problem":   s.ID,
		"app":       s.App.Name,
		"namespace": s.App.Namespace,
	}
	app := &commandApp{spec: s.App, runner: runner, vars: vars}

	var injector problem.FaultInjector
	if s.Fault.Inject != "" {
		injector = &commandInjector{spec: s.Fault, runner: runner, vars: vars}
	}

	var opts []problem.Option
	if s.Detection != nil {
		expected := s.Detection.Expected
		if expected == "" {
			expected = "Yes"
			if problem.IsNoop(s.ID) {
				expected = "No"
			}
		}
		opts = append(opts, problem.WithDetection(oracle.NewDetection(expected)))
	}
	if len(s.Localization) > 0 {
		opts = append(opts, problem.WithLocalization(oracle.NewLocalization(s.Localization...)))
	}
	if s.Mitigation != nil {
		opts = append(opts, problem.WithMitigation(mitigationOracle(s.Mitigation.Checks, runner, vars)))
	}
	return problem.New(app, injector, opts...)
}

func mitigationOracle(checks []CheckSpec, runner *cmdexec.Runner, vars map[string]string) oracle.Oracle {
	oracles := make([]oracle.Oracle, 0, len(checks))
	for _, check := range checks {
		oracles = append(oracles, commandCheck(check, runner, vars))
	}
	if len(oracles) == 1 {
		return oracles[0]
	}
	return oracle.NewCompounded("mitigation", oracles...)
}
