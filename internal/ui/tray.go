package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"
)

// JobControl is the part of the job runner the tray drives.
type JobControl interface {
	Pause()
	Resume()
	IsPaused() bool
	GetActiveJobCount(ctx context.Context) int
}

// Sessions is the part of the session registry the tray reports on.
type Sessions interface {
	IDs() []string
	SaveModified() (int, error)
}

type Tray struct {
	runner   JobControl
	sessions Sessions
	logger   *slog.Logger
	port     int

	statusItem   *systray.MenuItem
	projectsItem *systray.MenuItem
	pauseItem    *systray.MenuItem

	mu   sync.Mutex
	done chan struct{}

	onQuit func()
}

type TrayConfig struct {
	Runner   JobControl
	Sessions Sessions
	Logger   *slog.Logger
	Port     int
	OnQuit   func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		runner:   cfg.Runner,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
		port:     cfg.Port,
		onQuit:   cfg.OnQuit,
		done:     make(chan struct{}),
	}
}

// Run blocks until the tray exits.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("IVTC")
	systray.SetTooltip(fmt.Sprintf("IVTC Agent on 127.0.0.1:%d", t.port))

	t.statusItem = systray.AddMenuItem(statusTitle(false, false), "Current agent status")
	t.statusItem.Disable()

	t.projectsItem = systray.AddMenuItem(projectsTitle(0), "Projects open for editing")
	t.projectsItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause Jobs", "Pause background jobs")
	saveItem := systray.AddMenuItem("Save All", "Save every modified project")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit IVTC Agent")

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-saveItem.ClickedCh:
				t.saveAll()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.done:
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner != nil {
		t.statusItem.SetTitle(statusTitle(t.runner.IsPaused(), t.runner.GetActiveJobCount(context.Background()) > 0))
	}
	if t.sessions != nil {
		t.projectsItem.SetTitle(projectsTitle(len(t.sessions.IDs())))
	}
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause Jobs")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume Jobs")
	}
	t.statusItem.SetTitle(statusTitle(t.runner.IsPaused(), false))
}

func (t *Tray) saveAll() {
	if t.sessions == nil {
		return
	}
	saved, err := t.sessions.SaveModified()
	if err != nil {
		t.logger.Error("failed to save projects", "error", err)
	}
	t.logger.Info("projects saved from tray", "count", saved)
}

// Quit stops the refresh loop and closes the tray.
func (t *Tray) Quit() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	systray.Quit()
}

func statusTitle(paused, running bool) string {
	switch {
	case paused:
		return "Status: Paused"
	case running:
		return "Status: Working"
	default:
		return "Status: Idle"
	}
}

func projectsTitle(n int) string {
	if n == 1 {
		return "1 project open"
	}
	return fmt.Sprintf("%d projects open", n)
}
