package wailshost

import "github.com/wailsapp/wails/v3/pkg/application"

// TrayActions are the handlers behind the system tray menu.
type TrayActions struct {
	OnNewWindow       func()
	OnHome            func()
	OnCheckForUpdates func()
	OnQuit            func()
}

// SetupTray installs the system tray icon and menu. The updates item is
// omitted when the build cannot self-update.
func (h *Host) SetupTray(label string, icon []byte, updatesSupported bool, actions TrayActions) {
	systray := h.app.SystemTray.New()
	if len(icon) > 0 {
		systray.SetIcon(icon)
	}
	systray.SetLabel(label)

	menu := h.app.NewMenu()

	menu.Add("New Window").OnClick(func(ctx *application.Context) {
		if actions.OnNewWindow != nil {
			actions.OnNewWindow()
		}
	})
	menu.Add("Home").OnClick(func(ctx *application.Context) {
		if actions.OnHome != nil {
			actions.OnHome()
		}
	})
	menu.AddSeparator()

	if updatesSupported {
		menu.Add("Check for Updates...").OnClick(func(ctx *application.Context) {
			if actions.OnCheckForUpdates != nil {
				actions.OnCheckForUpdates()
			}
		})
		menu.AddSeparator()
	}

	menu.Add("Quit " + label).OnClick(func(ctx *application.Context) {
		if actions.OnQuit != nil {
			actions.OnQuit()
		}
	})

	systray.SetMenu(menu)
}
