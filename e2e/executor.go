//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	. "github.com/onsi/ginkgo/v2"
)

// executor runs the setup-qt binary with a controlled environment.
type executor struct {
	bin     string
	envVars map[string]string
}

func newExecutor(bin string) *executor {
	return &executor{bin: bin, envVars: make(map[string]string)}
}

// Setenv sets an environment variable for subsequent executions.
func (e *executor) Setenv(key, value string) {
	e.envVars[key] = value
}

// Reset drops all variables set with Setenv.
func (e *executor) Reset() {
	e.envVars = make(map[string]string)
}

// Exec runs setup-qt with args and returns stdout and stderr separately.
func (e *executor) Exec(args ...string) (string, string, error) {
	cmd := exec.Command(e.bin, args...)
	cmd.Env = e.environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	fmt.Fprintf(GinkgoWriter, "$ setup-qt %s\n%s%s", strings.Join(args, " "), stdout.String(), stderr.String())
	if err != nil {
		fmt.Fprintf(GinkgoWriter, "Error: %v\n", err)
	}
	return stdout.String(), stderr.String(), err
}

// environ returns the process environment without GitHub Actions
// variables, overlaid with the executor's variables.
func (e *executor) environ() []string {
	var env []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "GITHUB_") || strings.HasPrefix(key, "INPUT_") || strings.HasPrefix(key, "RUNNER_") {
			continue
		}
		if _, ok := e.envVars[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	for k, v := range e.envVars {
		env = append(env, k+"="+v)
	}
	return env
}
