package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/akshaybabloo/actions-setup-qt/internal/installer/download"
	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DownloadProgress renders the installer download. On a terminal it draws
// an mpb bar; otherwise it prints one line when the download starts and one
// when it finishes.
type DownloadProgress struct {
	mu       sync.Mutex
	w        io.Writer
	isTTY    bool
	progress *mpb.Progress
	bar      *mpb.Bar
	name     string
	total    int64
	current  int64
}

// NewDownloadProgress creates a DownloadProgress writing to w. opts are
// appended to the bar container options when isTTY is set.
func NewDownloadProgress(w io.Writer, isTTY bool, opts ...mpb.ContainerOption) *DownloadProgress {
	p := &DownloadProgress{w: w, isTTY: isTTY}
	if isTTY {
		p.progress = mpb.New(append([]mpb.ContainerOption{mpb.WithOutput(w), mpb.WithWidth(40)}, opts...)...)
	}
	return p
}

// Start announces a download of name.
func (p *DownloadProgress) Start(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	style := NewStyle()
	p.name = name
	p.total = 0
	p.current = 0

	if !p.isTTY {
		fmt.Fprintf(p.w, "  %s downloading %s\n", style.Step.Sprint("=>"), style.Path.Sprint(name))
		return
	}

	p.bar = p.progress.AddBar(0,
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("  %s ", style.Path.Sprint(name)), decor.WC{W: 30, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f"),
			decor.OnComplete(decor.Name(""), " done"),
		),
	)
}

// Callback returns a download.ProgressCallback feeding this display.
func (p *DownloadProgress) Callback() download.ProgressCallback {
	return func(downloaded, total int64) {
		p.mu.Lock()
		defer p.mu.Unlock()

		p.current = downloaded
		if total > 0 {
			p.total = total
		}
		if p.bar == nil {
			return
		}
		if total > 0 {
			p.bar.SetTotal(total, false)
		}
		p.bar.SetCurrent(downloaded)
	}
}

// Done marks the download as finished.
func (p *DownloadProgress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.SetTotal(p.bar.Current(), true)
		p.bar = nil
		return
	}
	if !p.isTTY {
		fmt.Fprintf(p.w, "  %s downloaded %s (%s)\n", NewStyle().SuccessMark, p.name, FormatBytes(p.current))
	}
}

// Abort marks the download as failed.
func (p *DownloadProgress) Abort(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Abort(true)
		p.bar = nil
	}
	fmt.Fprintf(p.w, "  %s %s failed: %v\n", NewStyle().FailMark, p.name, err)
}

// Wait waits for all bars to finish rendering.
func (p *DownloadProgress) Wait() {
	if p.progress != nil {
		p.progress.Wait()
	}
}

// FormatBytes renders n in binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
