// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gui is the graphical shell: a window with project controls
// and tabs for the knowledge store, the module registry, and the
// neural network.
package gui

import (
	"context"
	"fmt"
	"io"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/pdiddy/brainsim/internal/archive"
	"github.com/pdiddy/brainsim/internal/module"
	"github.com/pdiddy/brainsim/internal/project"
	"github.com/pdiddy/brainsim/internal/sim"
	"github.com/pdiddy/brainsim/internal/uks"
)

// Shell owns the window and the running workspace.
type Shell struct {
	app     fyne.App
	win     fyne.Window
	store   *uks.Store
	nw      *sim.Network
	handler *module.Handler
	arch    *archive.Archive

	statements    []uks.Statement
	knowledgeList *widget.List
	statsLabel    *widget.Label
}

// New builds the shell around an existing workspace. arch may be nil;
// when present the knowledge tab keeps it in sync on refresh.
func New(store *uks.Store, nw *sim.Network, handler *module.Handler, arch *archive.Archive) *Shell {
	s := &Shell{
		app:     app.New(),
		store:   store,
		nw:      nw,
		handler: handler,
		arch:    arch,
	}
	s.win = s.app.NewWindow("BrainSim")
	s.win.SetContent(s.buildContent())
	s.win.Resize(fyne.NewSize(1000, 700))
	return s
}

// Run shows the window and blocks until it closes.
func (s *Shell) Run() {
	s.refreshKnowledge()
	s.refreshStats()
	s.win.ShowAndRun()
}

func (s *Shell) buildContent() fyne.CanvasObject {
	toolbar := container.NewHBox(
		widget.NewButton("New", s.newProject),
		widget.NewButton("Open", s.openProject),
		widget.NewButton("Save", s.saveProject),
		widget.NewButton("Step", s.step),
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Knowledge", s.makeKnowledgeTab()),
		container.NewTabItem("Modules", s.makeModulesTab()),
		container.NewTabItem("Network", s.makeNetworkTab()),
	)

	return container.NewBorder(toolbar, nil, nil, nil, tabs)
}

func (s *Shell) makeKnowledgeTab() fyne.CanvasObject {
	s.knowledgeList = widget.NewList(
		func() int {
			return len(s.statements)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("template")
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			st := s.statements[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s %s %s", st.Source, st.RelType, st.Target))
		},
	)

	refresh := widget.NewButton("Refresh", s.refreshKnowledge)
	return container.NewBorder(nil, refresh, nil, nil, s.knowledgeList)
}

func (s *Shell) refreshKnowledge() {
	if s.arch != nil {
		if _, err := s.arch.Sync(context.Background(), s.store, io.Discard); err != nil {
			log.Printf("Error syncing archive: %s", err)
		}
	}
	s.statements = s.store.ExportStatements()
	if s.knowledgeList != nil {
		s.knowledgeList.Refresh()
	}
}

func (s *Shell) makeModulesTab() fyne.CanvasObject {
	active := make(map[string]bool)
	for _, m := range s.handler.Active() {
		active[m.Name()] = true
	}

	box := container.NewVBox()
	for _, reg := range s.handler.Registered() {
		name := reg.Name
		check := widget.NewCheck(name+" - "+reg.Description, func(on bool) {
			if on {
				if _, err := s.handler.Activate(name); err != nil {
					dialog.ShowError(err, s.win)
				}
				return
			}
			s.handler.Deactivate(name)
		})
		check.SetChecked(active[name])
		box.Add(check)
	}
	return container.NewVScroll(box)
}

func (s *Shell) makeNetworkTab() fyne.CanvasObject {
	s.statsLabel = widget.NewLabel("")
	step := widget.NewButton("Step", s.step)
	return container.NewVBox(s.statsLabel, step)
}

func (s *Shell) refreshStats() {
	if s.statsLabel == nil {
		return
	}
	s.statsLabel.SetText(fmt.Sprintf(
		"Neurons: %d\nSynapses: %d\nSimulated time: %.1f\nRunning: %v",
		s.nw.Len(), len(s.nw.Synapses()), s.nw.Time(), s.nw.Running(),
	))
}

// step fires active modules once and advances the network one tick.
func (s *Shell) step() {
	if err := s.handler.FireModules(context.Background()); err != nil {
		log.Printf("Error firing modules: %s", err)
	}
	s.nw.Step(1.0)
	s.refreshKnowledge()
	s.refreshStats()
}

func (s *Shell) newProject() {
	if err := project.Apply(project.Project{Version: project.Version}, s.store, s.nw, s.handler); err != nil {
		dialog.ShowError(err, s.win)
		return
	}
	s.nw.Clear()
	s.refreshKnowledge()
	s.refreshStats()
}

func (s *Shell) openProject() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		p, err := project.Load(reader.URI().Path())
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if err := project.Apply(p, s.store, s.nw, s.handler); err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		s.refreshKnowledge()
		s.refreshStats()
	}, s.win)
}

func (s *Shell) saveProject() {
	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		p := project.Capture(s.store, s.nw, s.handler)
		if err := project.Save(writer.URI().Path(), p); err != nil {
			dialog.ShowError(err, s.win)
		}
	}, s.win)
}
