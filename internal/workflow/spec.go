package workflow

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/repodoc-backend/internal/domain/jobs"
	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
)

const pipelineSpecEnv = "WORKFLOW_PIPELINE_YAML"

//go:embed pipeline.yaml
var pipelineSpecFS embed.FS

// Step order used when the YAML spec is missing or invalid.
var fallbackStepOrder = map[string][]string{
	jobs.KindDocument: {StepCloning, StepScanning, StepAnalyzing, StepGenerating, StepPublishing, StepCleanup},
	jobs.KindAnnotate: {StepCloning, StepSelecting, StepAnnotating, StepPublishing, StepCleanup},
}

type yamlWorkflowSpec struct {
	Pipeline  string         `yaml:"pipeline"`
	Version   int            `yaml:"version"`
	Workflows []yamlWorkflow `yaml:"workflows"`
}

type yamlWorkflow struct {
	Kind  string   `yaml:"kind"`
	Steps []string `yaml:"steps"`
}

var specOnce sync.Once
var specCache map[string][]string
var specErr error

func currentStepOrders(log *logger.Logger) map[string][]string {
	specOnce.Do(func() {
		specCache, specErr = loadStepOrders()
	})
	if specErr != nil {
		if log != nil {
			log.Warn("Pipeline spec load failed; using fallback step order", "error", specErr)
		}
		return nil
	}
	return specCache
}

// StepOrder returns the configured step names for a job kind, falling back
// to the built-in order when the pipeline spec is unusable.
func StepOrder(log *logger.Logger, kind string) []string {
	if orders := currentStepOrders(log); orders != nil {
		if steps, ok := orders[kind]; ok && len(steps) > 0 {
			return steps
		}
	}
	return fallbackStepOrder[kind]
}

func loadStepOrders() (map[string][]string, error) {
	data, err := readPipelineSpec()
	if err != nil {
		return nil, err
	}
	var spec yamlWorkflowSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if err := validateWorkflowSpec(&spec); err != nil {
		return nil, err
	}
	orders := make(map[string][]string, len(spec.Workflows))
	for _, wf := range spec.Workflows {
		orders[wf.Kind] = wf.Steps
	}
	return orders, nil
}

func readPipelineSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(pipelineSpecEnv)); path != "" {
		return os.ReadFile(path)
	}
	return pipelineSpecFS.ReadFile("pipeline.yaml")
}

func validateWorkflowSpec(spec *yamlWorkflowSpec) error {
	if spec == nil {
		return errors.New("missing spec")
	}
	if strings.TrimSpace(spec.Pipeline) != "repodoc" {
		return fmt.Errorf("unexpected pipeline: %s", spec.Pipeline)
	}
	if len(spec.Workflows) == 0 {
		return errors.New("no workflows defined")
	}
	seenKinds := map[string]bool{}
	for _, wf := range spec.Workflows {
		kind := strings.TrimSpace(wf.Kind)
		if !jobs.ValidKind(kind) {
			return fmt.Errorf("unknown workflow kind: %s", wf.Kind)
		}
		if seenKinds[kind] {
			return fmt.Errorf("duplicate workflow kind: %s", kind)
		}
		seenKinds[kind] = true
		if len(wf.Steps) == 0 {
			return fmt.Errorf("workflow %s: no steps", kind)
		}
		seenSteps := map[string]bool{}
		for _, name := range wf.Steps {
			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("workflow %s: empty step name", kind)
			}
			if seenSteps[name] {
				return fmt.Errorf("workflow %s: duplicate step %s", kind, name)
			}
			seenSteps[name] = true
		}
		if wf.Steps[len(wf.Steps)-1] != StepCleanup {
			return fmt.Errorf("workflow %s: last step must be %s", kind, StepCleanup)
		}
	}
	return nil
}
