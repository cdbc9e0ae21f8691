// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"os"
)

// UKSPersist ties the knowledge store to a JSON file: the store is
// loaded from the file on the first fire after a file name is set, and
// written back on Reset.
type UKSPersist struct {
	Base
	FileName string

	loaded bool
}

func NewUKSPersist() *UKSPersist {
	return &UKSPersist{Base: NewBase("UKSPersist")}
}

// Fire loads the file once. A missing file is not an error; the store
// is simply left as it is and written out on Reset.
func (u *UKSPersist) Fire(context.Context) error {
	if u.loaded || u.FileName == "" {
		return nil
	}
	u.loaded = true
	store := u.Store()
	if store == nil {
		return nil
	}
	if _, err := os.Stat(u.FileName); err != nil {
		return nil
	}
	if err := store.Load(u.FileName, false); err != nil {
		return err
	}
	fmt.Fprintf(u.Output(), "UKSPersist: loaded %s\n", u.FileName)
	return nil
}

// Reset writes the store back to the file.
func (u *UKSPersist) Reset() {
	store := u.Store()
	if store == nil || u.FileName == "" {
		return
	}
	if err := store.Save(u.FileName); err != nil {
		fmt.Fprintf(u.Output(), "UKSPersist: save failed: %v\n", err)
		return
	}
	fmt.Fprintf(u.Output(), "UKSPersist: saved %s\n", u.FileName)
}

func (u *UKSPersist) Parameters() map[string]string {
	return map[string]string{"file_name": u.FileName}
}

func (u *UKSPersist) SetParameters(params map[string]string) {
	if name, ok := params["file_name"]; ok && name != u.FileName {
		u.FileName = name
		u.loaded = false
	}
}
