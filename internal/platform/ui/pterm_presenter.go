// internal/platform/ui/pterm_presenter.go
package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// PTermPresenter implementa Presenter usando la librería pterm para
// una salida visual con spinners concurrentes por descriptor.
type PTermPresenter struct {
	mu       sync.Mutex
	multi    *pterm.MultiPrinter
	spinners map[string]*pterm.SpinnerPrinter
	started  time.Time
}

// NewPTermPresenter crea un presenter visual basado en pterm.
func NewPTermPresenter() *PTermPresenter {
	return &PTermPresenter{
		spinners: make(map[string]*pterm.SpinnerPrinter),
	}
}

func (p *PTermPresenter) Start(info RunInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = time.Now()

	pterm.DefaultHeader.
		WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgBlue)).
		WithTextStyle(pterm.NewStyle(pterm.FgLightWhite)).
		Println("corpusx · dataset provisioning")

	pterm.Info.Printfln("Dataset root: %s", info.DatasetRoot)
	if info.Manifest != "" {
		pterm.Info.Printfln("Manifest: %s", info.Manifest)
	}
	pterm.Info.Printfln("Descriptors: %d · Workers: %d", info.Descriptors, info.Workers)
	if info.CheckOnly {
		pterm.Warning.Println("Check-only mode: no changes will be made")
	}
	if info.Force {
		pterm.Warning.Println("Force mode: existing targets will be merged")
	}
	pterm.Println()

	multi := pterm.DefaultMultiPrinter
	p.multi = &multi
	p.multi.Start()
}

func (p *PTermPresenter) StartDescriptor(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.multi == nil {
		return
	}
	spinner, err := pterm.DefaultSpinner.
		WithWriter(p.multi.NewWriter()).
		Start(fmt.Sprintf("%s: starting", id))
	if err != nil {
		return
	}
	p.spinners[id] = spinner
}

func (p *PTermPresenter) UpdatePhase(id, phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.spinners[id]; ok {
		s.UpdateText(fmt.Sprintf("%s: %s", id, phase))
	}
}

func (p *PTermPresenter) UpdateProgress(id string, transferred, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.spinners[id]
	if !ok {
		return
	}
	if total > 0 {
		pct := float64(transferred) / float64(total) * 100
		s.UpdateText(fmt.Sprintf("%s: %s %.1f%% (%s / %s)",
			id, PhaseFetch, pct, formatBytes(transferred), formatBytes(total)))
	} else {
		s.UpdateText(fmt.Sprintf("%s: %s %s", id, PhaseFetch, formatBytes(transferred)))
	}
}

func (p *PTermPresenter) FinishDescriptor(id string, status Status, duration time.Duration, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.spinners[id]
	if !ok {
		return
	}
	msg := fmt.Sprintf("%s (%s)", id, duration.Round(time.Millisecond))
	if detail != "" {
		msg += ": " + detail
	}
	switch status {
	case StatusSuccess:
		s.Success(msg)
	case StatusSkipped:
		s.Info(msg)
	case StatusWarning:
		s.Warning(msg)
	default:
		s.Fail(msg)
	}
	delete(p.spinners, id)
}

func (p *PTermPresenter) Info(msg string)    { pterm.Info.Println(msg) }
func (p *PTermPresenter) Warning(msg string) { pterm.Warning.Println(msg) }
func (p *PTermPresenter) Error(msg string)   { pterm.Error.Println(msg) }

func (p *PTermPresenter) Finish(stats RunStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.multi != nil {
		p.multi.Stop()
		p.multi = nil
	}

	pterm.Println()
	pterm.DefaultSection.Println("Summary")
	pterm.Info.Printfln("Duration: %s", stats.TotalDuration.Round(time.Millisecond))
	pterm.Info.Printfln("Fetched: %s", formatBytes(stats.BytesFetched))
	pterm.Success.Printfln("Succeeded: %d", stats.Succeeded)
	if stats.Failed > 0 {
		pterm.Error.Printfln("Failed: %d", stats.Failed)
		for id, reason := range stats.FailedIDs {
			pterm.Error.Printfln("  %s: %s", id, reason)
		}
	}
}

func (p *PTermPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.multi != nil {
		p.multi.Stop()
		p.multi = nil
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
