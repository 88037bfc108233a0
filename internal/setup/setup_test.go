package setup_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/akshaybabloo/actions-setup-qt/internal/cache"
	"github.com/akshaybabloo/actions-setup-qt/internal/config"
	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
	"github.com/akshaybabloo/actions-setup-qt/internal/locate"
	qtpath "github.com/akshaybabloo/actions-setup-qt/internal/path"
	"github.com/akshaybabloo/actions-setup-qt/internal/platform"
	"github.com/akshaybabloo/actions-setup-qt/internal/qtversion"
	"github.com/akshaybabloo/actions-setup-qt/internal/setup"
)

var _ = Describe("Orchestrator", func() {
	var (
		ctx        context.Context
		qtRoot     string
		runner     *fakeRunner
		downloader *fakeDownloader
		store      *fakeCache
		exporter   *fakeExporter
		progress   *fakeProgress
		outputLog  *fakeOutputLog
		inputs     config.Inputs
	)

	// installs creates the bin directory when the vendor installer runs.
	installs := func(version, compiler string) func(string, []string) {
		return func(_ string, args []string) {
			if len(args) > 0 && args[0] == "install" {
				makeBin(qtRoot, version, compiler)
			}
		}
	}

	newOrchestrator := func(host platform.Host, strategy platform.Strategy) *setup.Orchestrator {
		return setup.New(setup.Deps{
			Host:       host,
			Strategy:   strategy,
			Runner:     runner,
			Downloader: downloader,
			Cache:      store,
			Locator:    locate.New(),
			Exporter:   exporter,
			QtRoot:     qtRoot,
			Progress:   progress,
			OutputLog:  outputLog,
		})
	}

	linux := func() (platform.Host, platform.Strategy) {
		host := platform.FromGo("linux", "amd64")
		strategy, err := platform.New(host, runner, platform.WithPrivileged(false))
		Expect(err).NotTo(HaveOccurred())
		return host, strategy
	}

	BeforeEach(func() {
		ctx = context.Background()
		qtRoot = filepath.Join(GinkgoT().TempDir(), "Qt")
		runner = &fakeRunner{}
		downloader = &fakeDownloader{dir: GinkgoT().TempDir(), total: 2048}
		store = &fakeCache{}
		exporter = &fakeExporter{}
		progress = &fakeProgress{}
		outputLog = &fakeOutputLog{}

		inputs = config.Defaults()
		inputs.Username = "ci@example.com"
		inputs.Password = "s3cret"
	})

	Context("cache miss on Linux", func() {
		BeforeEach(func() {
			runner.onRun = installs("6.10.0", "gcc_64")
		})

		It("installs dependencies, downloads, runs the installer and saves the cache", func() {
			host, strategy := linux()
			res, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())

			By("installing apt dependencies without being asked")
			calls := runner.Calls()
			Expect(calls).To(HaveLen(3))
			Expect(calls[0]).To(Equal("sudo apt-get update"))
			Expect(calls[1]).To(HavePrefix("sudo apt-get install -y "))
			Expect(calls[1]).To(Equal("sudo apt-get install -y " + strings.Join(platform.LinuxPackages, " ")))

			By("running the installer with the unattended argument template")
			installerPath := filepath.Join(downloader.dir, "installer-download")
			Expect(calls[2]).To(Equal(installerPath + " install qt6.10.0-full-dev" +
				" --email ci@example.com --password s3cret --root " + qtRoot +
				" --accept-licenses --accept-obligations --default-answer --confirm-command" +
				" --auto-answer telemetry-question=No"))

			By("making the installer executable")
			info, err := os.Stat(installerPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0755)))

			By("downloading the x64 installer with progress")
			Expect(downloader.urls).To(ConsistOf(strategy.InstallerConfig().URL))
			Expect(progress.started).To(ConsistOf("qt-online-installer-linux-x64-online.run"))
			Expect(progress.done).To(Equal(1))
			Expect(progress.seen).To(Equal(int64(2048)))

			By("saving the cache under the computed key")
			key := cache.Key("qt6.10.0-full-dev", "gcc_64", "linux", "x64")
			Expect(store.restored).To(ConsistOf(key))
			Expect(store.saved).To(ConsistOf(key))

			By("exporting the bin directory and outputs")
			bin := filepath.Join(qtRoot, "6.10.0", "gcc_64", "bin")
			Expect(exporter.paths).To(ConsistOf(bin))
			Expect(exporter.outputs).To(Equal(map[string]string{
				setup.OutputCacheHit:  "false",
				setup.OutputCacheKey:  key,
				setup.OutputQtRoot:    qtRoot,
				setup.OutputQtBinPath: bin,
			}))

			Expect(res.CacheHit).To(BeFalse())
			Expect(res.Compiler).To(Equal("gcc_64"))
			Expect(res.BinPath).To(Equal(bin))
			Expect(outputLog.started).To(ConsistOf("installer"))
			Expect(outputLog.completed).To(Equal(1))
		})

		It("writes an install record into the Qt root", func() {
			host, strategy := linux()
			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())

			r, ok, err := setup.ReadRecord(filepath.Join(qtRoot, qtpath.RecordFileName))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(r.Version).To(Equal("6.10.0"))
			Expect(r.RawVersion).To(Equal("qt6.10.0-full-dev"))
			Expect(r.Compiler).To(Equal("gcc_64"))
			Expect(r.Host).To(Equal("linux/x64"))
			Expect(r.CacheKey).To(Equal(cache.Key("qt6.10.0-full-dev", "gcc_64", "linux", "x64")))
		})

		It("does not fail when saving the cache fails", func() {
			store.saveErr = qterrors.NewCacheSaveError("local", "k", errors.New("disk full"))
			host, strategy := linux()

			res, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.saved).To(HaveLen(1))
			Expect(exporter.paths).To(HaveLen(1))
			Expect(res.CacheHit).To(BeFalse())
		})

		It("treats a restore error as a miss", func() {
			store.restoreErr = qterrors.NewCacheRestoreError("local", "k", errors.New("corrupt"))
			host, strategy := linux()

			res, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.CacheHit).To(BeFalse())
			Expect(runner.Calls()).To(HaveLen(3))
		})

		It("discards a partially restored tree before installing", func() {
			store.restoreErr = qterrors.NewCacheRestoreError("oci", "k", errors.New("layer digest mismatch"))
			store.onRestore = func(paths []string) {
				Expect(os.MkdirAll(filepath.Join(paths[0], "6.10.0"), 0755)).To(Succeed())
				Expect(os.WriteFile(filepath.Join(paths[0], "6.10.0", "partial"), []byte("x"), 0644)).To(Succeed())
			}
			host, strategy := linux()

			res, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.CacheHit).To(BeFalse())
			Expect(store.paths).To(HaveLen(1))
			Expect(store.paths[0]).NotTo(Equal(qtRoot))
			Expect(filepath.Join(qtRoot, "6.10.0", "partial")).NotTo(BeAnExistingFile())
			Expect(store.paths[0]).NotTo(BeADirectory())
			Expect(runner.Calls()).To(HaveLen(3))
		})

		It("skips the cache entirely when caching is disabled", func() {
			inputs.EnableCache = false
			host, strategy := linux()

			res, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.restored).To(BeEmpty())
			Expect(store.saved).To(BeEmpty())
			Expect(res.Backend).To(Equal(cache.BackendNone))
		})

		It("uses the explicit compiler over the platform default", func() {
			inputs.Compiler = "gcc_arm64"
			runner.onRun = installs("6.10.0", "gcc_arm64")
			host, strategy := linux()

			res, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Compiler).To(Equal("gcc_arm64"))
			Expect(res.BinPath).To(Equal(filepath.Join(qtRoot, "6.10.0", "gcc_arm64", "bin")))
		})
	})

	Context("failures", func() {
		It("stops when dependency installation fails", func() {
			runner.fail = map[string]error{"sudo apt-get update": errors.New("no network")}
			host, strategy := linux()

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).To(MatchError(qterrors.ErrDependencyInstall))
			Expect(downloader.urls).To(BeEmpty())
		})

		It("stops when the download fails", func() {
			downloader.err = qterrors.NewHTTPError("https://download.qt.io/x", 503)
			host, strategy := linux()

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).To(HaveOccurred())
			Expect(progress.aborted).To(HaveLen(1))
			Expect(store.saved).To(BeEmpty())
		})

		It("verifies the installer against the expected checksum", func() {
			sum := sha256.Sum256([]byte("#!/bin/sh\n"))
			inputs.InstallerChecksum = "sha256:" + hex.EncodeToString(sum[:])
			host, strategy := linux()

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.Calls()).To(HaveLen(3))
		})

		It("refuses an installer whose checksum does not match", func() {
			inputs.InstallerChecksum = "sha256:" + strings.Repeat("0", 64)
			host, strategy := linux()

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).To(MatchError(qterrors.ErrChecksumMismatch))

			var csErr *qterrors.ChecksumError
			Expect(errors.As(err, &csErr)).To(BeTrue())
			Expect(csErr.Base.Hint).To(ContainSubstring("installer-checksum"))
			Expect(runner.Calls()).To(HaveLen(2))
			Expect(store.saved).To(BeEmpty())
		})

		It("reports an installer execution error with the exit code", func() {
			runner.fail = map[string]error{filepath.Join(downloader.dir, "installer-download"): errors.New("spawn failed")}
			host, strategy := linux()

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).To(MatchError(qterrors.ErrInstallerExecution))

			var installErr *qterrors.InstallError
			Expect(errors.As(err, &installErr)).To(BeTrue())
			Expect(installErr.ExitCode).To(Equal(-1))
			Expect(installErr.Version).To(Equal("qt6.10.0-full-dev"))
			Expect(outputLog.failed).To(HaveLen(1))
			Expect(store.saved).To(BeEmpty())
			Expect(exporter.paths).To(BeEmpty())
		})

		It("fails when the installed version directory is missing", func() {
			host, strategy := linux()

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).To(MatchError(qterrors.ErrVersionDirectoryNotFound))
			Expect(store.saved).To(HaveLen(1))
			Expect(exporter.paths).To(BeEmpty())
		})
	})

	Context("cache hit", func() {
		BeforeEach(func() {
			store.hit = true
			store.onRestore = func(paths []string) { makeBin(paths[0], "6.10.0", "gcc_64") }
		})

		It("skips dependencies, download and install but still exports PATH", func() {
			host, strategy := linux()

			res, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.CacheHit).To(BeTrue())
			Expect(runner.Calls()).To(BeEmpty())
			Expect(downloader.urls).To(BeEmpty())
			Expect(store.saved).To(BeEmpty())
			Expect(exporter.paths).To(ConsistOf(filepath.Join(qtRoot, "6.10.0", "gcc_64", "bin")))
			Expect(exporter.outputs[setup.OutputCacheHit]).To(Equal("true"))
		})

		It("moves the restored tree into place and keeps other installations", func() {
			makeBin(qtRoot, "5.15.2", "gcc_64")
			host, strategy := linux()

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(qtRoot, "6.10.0", "gcc_64", "bin")).To(BeADirectory())
			Expect(filepath.Join(qtRoot, "5.15.2", "gcc_64", "bin")).To(BeADirectory())
			Expect(store.paths[0]).NotTo(BeADirectory())
		})
	})

	Context("disk image installers", func() {
		var strategy *mountStrategy

		BeforeEach(func() {
			strategy = &mountStrategy{mountPath: "/Volumes/qt-online-installer-macOS"}
			runner.onRun = installs("6.10.0", "macos")
		})

		It("unmounts the image after installing and skips optional dependencies", func() {
			host := platform.FromGo("darwin", "arm64")

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(strategy.deps).To(Equal(0))
			Expect(strategy.unmounted).To(ConsistOf("/Volumes/qt-online-installer-macOS"))

			calls := runner.Calls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0]).To(HavePrefix("/Volumes/qt-online-installer-macOS/Qt.app/Contents/MacOS/qt-online-installer-macOS install "))
		})

		It("installs dependencies when asked", func() {
			inputs.InstallDeps = true
			host := platform.FromGo("darwin", "arm64")

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(strategy.deps).To(Equal(1))
		})

		It("logs and ignores unmount failures", func() {
			strategy.unmountErr = qterrors.NewUnmountError(strategy.mountPath, errors.New("busy"))
			host := platform.FromGo("darwin", "arm64")

			_, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(exporter.paths).To(HaveLen(1))
		})
	})

	Context("Windows", func() {
		It("renames the installer to .exe and takes the compiler from the package id", func() {
			inputs.Version = "qt.qt6.6100.win64_msvc2022_64"
			runner.onRun = installs("6.10.0", "msvc2022_64")
			host := platform.FromGo("windows", "amd64")
			strategy, err := platform.New(host, runner)
			Expect(err).NotTo(HaveOccurred())

			res, err := newOrchestrator(host, strategy).Run(ctx, inputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Compiler).To(Equal("msvc2022_64"))

			calls := runner.Calls()
			Expect(calls).To(HaveLen(1))
			exe := strings.Fields(calls[0])[0]
			Expect(exe).To(HaveSuffix(".exe"))
			Expect(exe).To(BeAnExistingFile())
			Expect(store.saved).To(ConsistOf(cache.Key("qt.qt6.6100.win64_msvc2022_64", "msvc2022_64", "win32", "x64")))
		})
	})
})

var _ = Describe("ResolveCompiler", func() {
	It("follows explicit > hint > default", func() {
		host := platform.FromGo("linux", "amd64")
		strategy, err := platform.New(host, &fakeRunner{})
		Expect(err).NotTo(HaveOccurred())

		hinted := setup.ResolveCompiler("", qtversion.Parse("qt.qt6.6100.win64_mingw_64"), strategy)
		Expect(hinted).To(Equal("mingw_64"))
		Expect(setup.ResolveCompiler("clang_64", qtversion.Parse("qt.qt6.6100.win64_mingw_64"), strategy)).To(Equal("clang_64"))
		Expect(setup.ResolveCompiler("", qtversion.Parse("qt6.10.0-full-dev"), strategy)).To(Equal("gcc_64"))
	})
})
