package lpkgm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// RunBrowser opens the interactive installed-package browser: a list of
// package/version entries per platform on the left, the selected
// entry's descriptor and manifest on the right. Started by
// `lpkgm show --tui`.
func RunBrowser(platform string) error {
	type browserEntry struct {
		platform string
		pkg      string
		ver      string
	}

	var entries []browserEntry
	platforms := []string{platform}
	if platform == "" {
		platforms = Platforms()
	}
	for _, pf := range platforms {
		for _, pkg := range InstalledPackages(pf) {
			for _, ver := range InstalledVersions(pf, pkg) {
				entries = append(entries, browserEntry{pf, pkg, ver})
			}
		}
	}
	if len(entries) == 0 {
		return fmt.Errorf("no packages installed")
	}

	app := tview.NewApplication()

	list := tview.NewList().ShowSecondaryText(true)
	list.SetBorder(true)
	list.SetTitle(" installed packages ")

	detail := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	detail.SetBorder(true)
	detail.SetTitle(" details ")

	showEntry := func(e browserEntry) {
		var b strings.Builder
		d, err := readDescriptor(e.platform, e.pkg, e.ver)
		if err != nil {
			fmt.Fprintf(&b, "unreadable descriptor: %v\n", err)
			detail.SetText(b.String())
			return
		}
		data, _ := json.MarshalIndent(d, "", "  ")
		b.Write(data)
		b.WriteString("\n\n[yellow]manifest:[-]\n")
		paths, err := readManifest(d.Manifest)
		if err != nil {
			fmt.Fprintf(&b, "unreadable manifest: %v\n", err)
		} else {
			for _, p := range paths {
				b.WriteString(p + "\n")
			}
		}
		detail.SetText(b.String())
		detail.ScrollToBeginning()
	}

	for _, e := range entries {
		e := e
		list.AddItem(e.pkg+"/"+e.ver, e.platform, 0, func() { showEntry(e) })
	}
	list.SetChangedFunc(func(index int, _ string, _ string, _ rune) {
		if index >= 0 && index < len(entries) {
			showEntry(entries[index])
		}
	})
	showEntry(entries[0])

	flex := tview.NewFlex().
		AddItem(list, 0, 1, true).
		AddItem(detail, 0, 2, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape:
			app.Stop()
			return nil
		case tcell.KeyTab:
			if app.GetFocus() == list {
				app.SetFocus(detail)
			} else {
				app.SetFocus(list)
			}
			return nil
		}
		if event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(flex, true).Run()
}
