package main

import (
	"fmt"
	"os"

	"github.com/nwnkit/nwngo/pkg/erf"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

type erfListCmd struct {
	Path     string `arg:"" help:"Path to an ERF/HAK/MOD/SAV archive."`
	Codepage int    `default:"1252"`
}

func (c *erfListCmd) Run() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := erf.Open(f, nwtypes.CodePage(c.Codepage))
	if err != nil {
		return err
	}
	fmt.Printf("%s v%s  built %04d-%02d\n", r.FileType, r.Version, r.BuildDate.Year, r.BuildDate.Day)
	for _, name := range r.Filenames() {
		e := r.FileMap()[name]
		fmt.Printf("  %-20s %6d bytes  type=%d\n", e.Name, e.Size, e.ResType)
	}
	return nil
}

type erfExtractCmd struct {
	Path     string `arg:"" help:"Path to an ERF/HAK/MOD/SAV archive."`
	Resource string `arg:"" help:"Resource filename to extract, e.g. module.ifo."`
	Out      string `short:"o" help:"Output path; defaults to the resource's own name."`
	Codepage int    `default:"1252"`
}

func (c *erfExtractCmd) Run() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := erf.Open(f, nwtypes.CodePage(c.Codepage))
	if err != nil {
		return err
	}
	data, err := r.ReadFile(c.Resource)
	if err != nil {
		return err
	}
	out := c.Out
	if out == "" {
		out = c.Resource
	}
	return os.WriteFile(out, data, 0o644)
}
