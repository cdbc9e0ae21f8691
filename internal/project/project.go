// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package project persists whole workspaces: the knowledge store, the
// neural network, and the active module list travel together in one file.
// The extension picks the format, .xml for XML and anything else for JSON.
package project

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/pdiddy/brainsim/internal/module"
	"github.com/pdiddy/brainsim/internal/sim"
	"github.com/pdiddy/brainsim/internal/uks"
)

// Version is written into every saved project.
const Version = 1

// Project is the serializable form of a workspace.
type Project struct {
	XMLName   xml.Name        `xml:"BrainSimProject" json:"-" yaml:"-"`
	Version   int             `xml:"version,attr" json:"version" yaml:"version"`
	Knowledge uks.Document    `xml:"Knowledge" json:"knowledge" yaml:"knowledge"`
	Network   sim.Document    `xml:"Network" json:"network" yaml:"network"`
	Modules   []module.Record `xml:"Modules>Module" json:"modules,omitempty" yaml:"modules,omitempty"`
}

// Capture snapshots the store, network, and module handler into a
// Project. Any of the three may be nil.
func Capture(store *uks.Store, nw *sim.Network, h *module.Handler) Project {
	p := Project{Version: Version}
	if store != nil {
		p.Knowledge = store.ToDocument()
	}
	if nw != nil {
		p.Network = nw.ToDocument()
	}
	if h != nil {
		p.Modules = h.SerializeActive()
	}
	return p
}

// Apply restores a captured project. The store is replaced, not merged.
func Apply(p Project, store *uks.Store, nw *sim.Network, h *module.Handler) error {
	if store != nil {
		store.LoadDocument(p.Knowledge, false)
	}
	if nw != nil {
		if err := nw.FromDocument(p.Network); err != nil {
			return errors.Wrap(err, "restoring network")
		}
	}
	if h != nil {
		if err := h.LoadActive(p.Modules); err != nil {
			return errors.Wrap(err, "restoring modules")
		}
	}
	return nil
}

// Save writes p to path, choosing the format from the extension.
func Save(path string, p Project) error {
	var data []byte
	var err error
	if isXML(path) {
		data, err = xml.MarshalIndent(p, "", "  ")
		if err == nil {
			data = append([]byte(xml.Header), data...)
		}
	} else {
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "marshaling project")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// Load reads a project from path, choosing the format from the extension.
func Load(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, errors.Wrapf(err, "reading %s", path)
	}
	var p Project
	if isXML(path) {
		err = xml.Unmarshal(data, &p)
	} else {
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return Project{}, errors.Wrapf(err, "parsing %s", path)
	}
	return p, nil
}

func isXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
