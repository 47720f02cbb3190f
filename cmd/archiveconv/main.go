// archiveconv rewrites a scene snapshot file in another archive format.
//
// Usage: archiveconv -to yaml <in.snap> <out.snap>
//
// With -inspect the decoded entities and their editor-visible fields are
// printed before the output is written.
//
// The scene is rebuilt from the engine config so that component types and
// resource names resolve the same way they do at runtime.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/l1jgo/engine/internal/boot"
	"github.com/l1jgo/engine/internal/config"
	"github.com/l1jgo/engine/internal/persist"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", config.Path("config/engine.toml"), "engine config file")
	to := flag.String("to", "yaml", "target format: binary or yaml")
	verbose := flag.Bool("v", false, "log archive warnings")
	inspect := flag.Bool("inspect", false, "print every decoded entity and its fields")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: archiveconv [-config engine.toml] [-to binary|yaml] [-inspect] <in.snap> <out.snap>")
		os.Exit(1)
	}
	if err := convert(*cfgPath, *to, flag.Arg(0), flag.Arg(1), *verbose, *inspect); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func convert(cfgPath, to, in, out string, verbose, inspect bool) error {
	format, err := persist.ParseFormat(to)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Conversion only needs the scene, never the database or a live snapshot dir.
	cfg.Database.Enabled = false
	dir, err := os.MkdirTemp("", "archiveconv")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	cfg.Scene.SnapshotDir = dir

	log := zap.NewNop()
	if verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}

	eng, err := boot.New(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	raw, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	snap, err := persist.Open(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	if err := eng.Decode(snap); err != nil {
		return fmt.Errorf("decode %s: %w", in, err)
	}
	if inspect {
		if err := dump(os.Stdout, eng); err != nil {
			return err
		}
	}

	conv, err := eng.EncodeAs(format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	conv.Frame = snap.Frame
	if err := os.WriteFile(out, persist.Seal(conv), 0o644); err != nil {
		return err
	}

	fmt.Printf("Converted %s (%s, %d entities) -> %s (%s, %d bytes)\n",
		in, snap.Format, eng.Scene.EntityCount(), out, format, len(conv.Payload))
	return nil
}

// dump prints each entity followed by its components and field values.
func dump(w io.Writer, eng *boot.Engine) error {
	for _, e := range eng.Scene.Entities() {
		views, err := eng.Archive.Inspect(e)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", e)
		for _, v := range views {
			fmt.Fprintf(w, "  %s\n", v.System)
			for _, f := range v.Fields {
				fmt.Fprintf(w, "    %-16s %v\n", f.Name, f.Value())
			}
		}
	}
	return nil
}
