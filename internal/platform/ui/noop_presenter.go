// internal/platform/ui/noop_presenter.go
package ui

import "time"

// NoopPresenter es un presenter que no produce salida. Se usa en modo
// silencioso y cuando la salida no es un terminal.
type NoopPresenter struct{}

func NewNoopPresenter() *NoopPresenter { return &NoopPresenter{} }

func (n *NoopPresenter) Start(info RunInfo)                                     {}
func (n *NoopPresenter) StartDescriptor(id string)                              {}
func (n *NoopPresenter) UpdatePhase(id, phase string)                           {}
func (n *NoopPresenter) UpdateProgress(id string, transferred, total int64)     {}
func (n *NoopPresenter) FinishDescriptor(string, Status, time.Duration, string) {}
func (n *NoopPresenter) Info(msg string)                                        {}
func (n *NoopPresenter) Warning(msg string)                                     {}
func (n *NoopPresenter) Error(msg string)                                       {}
func (n *NoopPresenter) Finish(stats RunStats)                                  {}
func (n *NoopPresenter) Close() error                                           { return nil }
