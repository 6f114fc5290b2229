// Package app orchestrates the desktop shell: configuration, preferences,
// windows, deep links, the content bridge and the update checker.
package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/replit/desktop/internal/bridge"
	"github.com/replit/desktop/internal/config"
	"github.com/replit/desktop/internal/deeplink"
	"github.com/replit/desktop/internal/diag"
	"github.com/replit/desktop/internal/dirsync"
	"github.com/replit/desktop/internal/native/wailshost"
	"github.com/replit/desktop/internal/store"
	"github.com/replit/desktop/internal/update"
	"github.com/replit/desktop/internal/windows"
)

// Shell is the running desktop application.
type Shell struct {
	cfg      *config.Config
	version  string
	packaged bool

	host    *wailshost.Host
	prefs   *store.Store
	mgr     *windows.Manager
	router  *deeplink.Router
	bridge  *bridge.Bridge
	checker *update.Checker
	syncMgr *dirsync.Manager

	stopWatch func()

	// ready gates deep-link dispatch until the first window exists.
	ready     chan struct{}
	readyOnce sync.Once
}

// New wires every component. The wails application must be created before
// Run and on the main goroutine.
func New(cfg *config.Config, version string, packaged bool, icon []byte) (*Shell, error) {
	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return nil, err
	}

	environment := config.EnvironmentName(cfg.App.BaseURL)
	prefs := store.New(configDir, environment)

	s := &Shell{
		cfg:      cfg,
		version:  version,
		packaged: packaged,
		prefs:    prefs,
		syncMgr:  dirsync.NewManager(configDir),
		ready:    make(chan struct{}),
	}

	s.host = wailshost.New(wailshost.Options{
		Name:     cfg.App.Name,
		Icon:     icon,
		UniqueID: "com.replit.desktop." + environment,
		OnSecondInstance: func(args []string) {
			log.Debug().Strs("args", args).Msg("Second instance launch")
			go s.handleSecondInstance(args)
		},
		Services: []application.Service{
			application.NewService(&BridgeService{shell: s}),
		},
	})

	s.mgr = windows.NewManager(s.host, prefs, cfg.App)
	s.mgr.SetVersion(version)
	s.checker = update.New(cfg.Update, s.host, version, packaged)

	svc := bridge.NewService(s.mgr, prefs, s.host, s.syncMgr, s.checker)
	svc.OnUserChanged = diag.SetUser

	registry := bridge.NewRegistry()
	registry.Use(bridge.WithLogging())
	svc.RegisterChannels(registry)
	s.bridge = bridge.New(registry, s.mgr)

	parser := deeplink.Parser{
		Scheme:          cfg.App.Scheme,
		DefaultLanguage: cfg.App.DefaultNewReplLanguage,
	}
	s.router = deeplink.NewRouter(parser, s.mgr, s.ready)

	return s, nil
}

// Run opens the initial window and blocks in the OS event loop until quit.
// launchArgs is the process command line, minus the executable, checked for
// a deep link that started this launch.
func (s *Shell) Run(launchArgs []string) error {
	diag.SetUser(s.prefs.GetUser())

	stop, err := s.prefs.Watch()
	if err != nil {
		log.Warn().Err(err).Msg("Preferences file watching unavailable")
	} else {
		s.stopWatch = stop
	}

	s.host.SetupTray(s.cfg.App.Name, nil, s.checker.Enabled(), wailshost.TrayActions{
		OnNewWindow: func() {
			if _, err := s.mgr.Open(""); err != nil {
				log.Error().Err(err).Msg("Failed to open window from tray")
			}
		},
		OnHome: func() {
			go s.router.Dispatch(deeplink.Home{})
		},
		OnCheckForUpdates: func() {
			s.checker.CheckNow()
		},
		OnQuit: s.host.Quit,
	})

	s.openInitialWindow()
	s.readyOnce.Do(func() { close(s.ready) })

	go s.router.HandleArgs(launchArgs)
	s.checker.Start()

	log.Info().
		Str("version", s.version).
		Str("url", s.cfg.App.BaseURL).
		Bool("packaged", s.packaged).
		Msg("Shell running")

	runErr := s.host.Run()

	s.shutdown()
	return runErr
}

// handleSecondInstance routes the command line of a second launch. The
// single-instance lock is live before the router is assembled, so dispatch
// waits for startup to finish.
func (s *Shell) handleSecondInstance(args []string) {
	<-s.ready
	s.router.HandleArgs(args)
}

// openInitialWindow restores the last open workspace when there is one,
// otherwise lands on the default page.
func (s *Shell) openInitialWindow() {
	target := ""
	if path, ok := s.prefs.LastOpenRepl(); ok {
		target = path
	}
	if _, err := s.mgr.Open(target); err != nil {
		log.Error().Err(err).Msg("Failed to open initial window")
	}
}

func (s *Shell) shutdown() {
	log.Info().Msg("Shell stopping")
	s.checker.Stop()
	s.syncMgr.StopAll()
	if s.stopWatch != nil {
		s.stopWatch()
	}
	diag.Flush(2 * time.Second)
}
