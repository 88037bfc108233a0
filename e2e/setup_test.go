//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/akshaybabloo/actions-setup-qt/internal/cache"
)

type cacheKeyOutput struct {
	Key      string `json:"key"`
	Version  string `json:"version"`
	Compiler string `json:"compiler"`
}

var _ = Describe("setup-qt", func() {
	var (
		home      string
		toolCache string
		runnerTmp string
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("shell exports are POSIX only")
		}
		testExec.Reset()

		home = GinkgoT().TempDir()
		toolCache = GinkgoT().TempDir()
		runnerTmp = GinkgoT().TempDir()
		testExec.Setenv("HOME", home)
		testExec.Setenv("RUNNER_TOOL_CACHE", toolCache)
		testExec.Setenv("RUNNER_TEMP", runnerTmp)
	})

	// seedCache stores a fake installation under the key setup-qt computes
	// for the default version on this host, and returns the key info.
	seedCache := func() cacheKeyOutput {
		stdout, _, err := testExec.Exec("cache-key", "-o", "json")
		Expect(err).NotTo(HaveOccurred())

		var key cacheKeyOutput
		Expect(json.Unmarshal([]byte(stdout), &key)).To(Succeed())

		qtRoot := filepath.Join(home, "Qt")
		bin := filepath.Join(qtRoot, key.Version, key.Compiler, "bin")
		Expect(os.MkdirAll(bin, 0755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(bin, "qmake"), []byte("#!/bin/sh\necho qmake\n"), 0755)).To(Succeed())

		store, err := cache.NewLocalStore(filepath.Join(toolCache, "setup-qt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Save(context.Background(), key.Key, []string{qtRoot})).To(Succeed())
		Expect(os.RemoveAll(qtRoot)).To(Succeed())
		return key
	}

	It("prints version information", func() {
		stdout, _, err := testExec.Exec("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(ContainSubstring("setup-qt version"))
	})

	It("prints a cache key for an explicit platform", func() {
		stdout, _, err := testExec.Exec("cache-key", "--os", "linux", "--arch", "x64")
		Expect(err).NotTo(HaveOccurred())
		Expect(stdout).To(Equal(cache.Key("qt6.10.0-full-dev", "gcc_64", "linux", "x64") + "\n"))
	})

	It("evaluates the example config for another platform", func() {
		example, _, err := testExec.Exec("config", "example")
		Expect(err).NotTo(HaveOccurred())

		file := filepath.Join(home, "setup-qt.cue")
		Expect(os.WriteFile(file, []byte(example), 0644)).To(Succeed())

		stdout, _, err := testExec.Exec("config", "eval", file, "--os", "win32", "--arch", "x64")
		Expect(err).NotTo(HaveOccurred())

		var values map[string]string
		Expect(json.Unmarshal([]byte(stdout), &values)).To(Succeed())
		Expect(values).To(HaveKeyWithValue("compiler", "msvc2022_64"))
		Expect(values).To(HaveKeyWithValue("install-deps", "true"))
	})

	It("fails with a clear message when credentials are missing", func() {
		_, stderr, err := testExec.Exec()
		Expect(err).To(HaveOccurred())
		Expect(stderr).To(ContainSubstring("Input required and not supplied: username"))
	})

	Context("with a cached installation", func() {
		It("restores it and prints shell exports", func() {
			key := seedCache()

			stdout, _, err := testExec.Exec("--username", "ci@example.com", "--password", "s3cret", "--no-color")
			Expect(err).NotTo(HaveOccurred())

			bin := filepath.Join(home, "Qt", key.Version, key.Compiler, "bin")
			Expect(filepath.Join(bin, "qmake")).To(BeAnExistingFile())
			Expect(stdout).To(ContainSubstring(`export PATH="` + bin + `:$PATH"`))
			Expect(stdout).To(ContainSubstring(`export SETUP_CACHE_HIT="true"`))
			Expect(stdout).To(ContainSubstring(`export SETUP_CACHE_KEY="` + key.Key + `"`))
			Expect(stdout).NotTo(ContainSubstring("s3cret"))
		})

		It("writes GitHub Actions environment files", func() {
			key := seedCache()

			files := map[string]string{}
			for _, name := range []string{"GITHUB_PATH", "GITHUB_ENV", "GITHUB_OUTPUT"} {
				f := filepath.Join(runnerTmp, name)
				Expect(os.WriteFile(f, nil, 0644)).To(Succeed())
				testExec.Setenv(name, f)
				files[name] = f
			}
			testExec.Setenv("GITHUB_ACTIONS", "true")
			testExec.Setenv("INPUT_USERNAME", "ci@example.com")
			testExec.Setenv("INPUT_PASSWORD", "s3cret")

			stdout, _, err := testExec.Exec()
			Expect(err).NotTo(HaveOccurred())
			Expect(stdout).To(ContainSubstring("::add-mask::s3cret"))

			bin := filepath.Join(home, "Qt", key.Version, key.Compiler, "bin")
			pathFile, err := os.ReadFile(files["GITHUB_PATH"])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(pathFile)).To(ContainSubstring(bin))

			outputs, err := os.ReadFile(files["GITHUB_OUTPUT"])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(outputs)).To(ContainSubstring("cache-hit"))
			Expect(string(outputs)).To(ContainSubstring(key.Key))
		})

		It("locates the restored installation", func() {
			key := seedCache()
			_, _, err := testExec.Exec("--username", "ci@example.com", "--password", "s3cret")
			Expect(err).NotTo(HaveOccurred())

			stdout, _, err := testExec.Exec("locate")
			Expect(err).NotTo(HaveOccurred())
			Expect(stdout).To(Equal(filepath.Join(home, "Qt", key.Version, key.Compiler, "bin") + "\n"))
		})
	})
})
