// Command nwntool is a small inspection CLI over the format and resource
// packages: dump a GFF tree, list or extract an ERF/KEY-BIF archive, dump a
// talk table, or look a resref up through the layered resource manager.
package main

import (
	"github.com/alecthomas/kong"

	"github.com/nwnkit/nwngo/pkg/nwlog"
)

type rootCLI struct {
	Verbose int `short:"v" type:"counter" help:"Increase logging verbosity (-v for verbose, -vv for debug)."`

	GFFDump    gffDumpCmd    `cmd:"" name:"gff-dump" help:"Print a GFF struct tree."`
	ERFList    erfListCmd    `cmd:"" name:"erf-list" help:"List the resources in an ERF archive."`
	ERFExtract erfExtractCmd `cmd:"" name:"erf-extract" help:"Extract one resource from an ERF archive."`
	KeyList    keyListCmd    `cmd:"" name:"key-list" help:"List the resources visible through a KEY file."`
	TLKDump    tlkDumpCmd    `cmd:"" name:"tlk-dump" help:"Print talk table entries."`
	SSFDump    ssfDumpCmd    `cmd:"" name:"ssf-dump" help:"Print a sound-set table."`
	ResmanGet  resmanGetCmd  `cmd:"" name:"resman-get" help:"Resolve a resref through the default resource stack."`
	NwsyncDump nwsyncDumpCmd `cmd:"" name:"nwsync-dump" help:"Print a NWSync manifest's entries."`
}

// verbosity maps a -v counter to a nwlog floor: unset stays at the default
// INFO floor, one -v drops to VERBOSE, two or more to DEBUG (the most
// verbose level).
func verbosity(count int) nwlog.Level {
	switch {
	case count >= 2:
		return nwlog.LevelDebug
	case count == 1:
		return nwlog.LevelVerbose
	default:
		return nwlog.LevelInfo
	}
}

func main() {
	var cli rootCLI
	ctx := kong.Parse(&cli,
		kong.Name("nwntool"),
		kong.Description("Inspect Neverwinter Nights: Enhanced Edition data files."),
		kong.UsageOnError(),
	)
	nwlog.Default().SetLevel(verbosity(cli.Verbose))
	ctx.FatalIfErrorf(ctx.Run())
}
