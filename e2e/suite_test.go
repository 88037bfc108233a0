//go:build e2e

package e2e

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var testExec *executor

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "E2E Suite", Label("e2e"))
}

var _ = BeforeSuite(func() {
	bin := os.Getenv("SETUP_QT_BIN")
	Expect(bin).NotTo(BeEmpty(), "SETUP_QT_BIN environment variable must point to a setup-qt binary")

	abs, err := filepath.Abs(bin)
	Expect(err).NotTo(HaveOccurred())
	Expect(abs).To(BeAnExistingFile())

	testExec = newExecutor(abs)
})
