// ecsfs creates and manipulates ECS150FS volume images.
//
// Usage:
//
//	ecsfs [-v IMAGE] [--debug] COMMAND [ARGS]
//
// Commands:
//
//	format [--blocks N]      create a new, empty volume
//	info                     print the volume layout and usage
//	ls                       list files
//	stat NAME                print the size of a file
//	cat NAME                 write a file to stdout
//	sum NAME                 print the BLAKE2b-256 digest of a file
//	check                    verify the consistency of the volume
//	add HOSTFILE [NAME]      copy a host file into the volume
//	write NAME OFFSET TEXT   write TEXT into a file at OFFSET
//	rm NAME                  delete a file
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/gokrazy/ecsfs/config"
	"github.com/gokrazy/ecsfs/fs"
	"github.com/gokrazy/ecsfs/volumeflag"
	"github.com/spf13/pflag"
)

type command struct {
	usage    string
	readOnly bool
	run      func(env *env, args []string) error
}

var commands = map[string]command{
	"format": {usage: "format [--blocks N]", run: format},
	"info":   {usage: "info", readOnly: true, run: info},
	"ls":     {usage: "ls", readOnly: true, run: ls},
	"stat":   {usage: "stat NAME", readOnly: true, run: stat},
	"cat":    {usage: "cat NAME", readOnly: true, run: cat},
	"sum":    {usage: "sum NAME", readOnly: true, run: sum},
	"check":  {usage: "check", readOnly: true, run: check},
	"add":    {usage: "add HOSTFILE [NAME]", run: add},
	"write":  {usage: "write NAME OFFSET TEXT", run: write},
	"rm":     {usage: "rm NAME", run: rm},
}

type env struct {
	cfg      *config.Config
	volume   string
	readOnly bool
	stdout   io.Writer
	opts     []fs.Option
}

// mount mounts the volume for the duration of fn. Commands which only
// inspect the volume get a read-only mapping.
func (e *env) mount(fn func(fsys *fs.FileSystem) error) error {
	mount := fs.Mount
	if e.readOnly {
		mount = fs.MountReadOnly
	}
	fsys, err := mount(e.volume, e.opts...)
	if err != nil {
		return err
	}
	if err := fn(fsys); err != nil {
		fsys.Unmount()
		return err
	}
	return fsys.Unmount()
}

func usage(fset *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: ecsfs [flags] COMMAND [ARGS]\n\nflags:\n")
	fset.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\ncommands:\n")
	var names []string
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func run(args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	volumeflag.SetDefault(cfg.Volume)

	fset := pflag.NewFlagSet("ecsfs", pflag.ContinueOnError)
	fset.SetInterspersed(false)
	volumeflag.RegisterPflags(fset)
	debug := fset.Bool("debug", false, "log file system operations to stderr")
	fset.Usage = func() { usage(fset) }
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() < 1 {
		usage(fset)
		return fmt.Errorf("missing command")
	}
	name := fset.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		usage(fset)
		return fmt.Errorf("unknown command %q", name)
	}
	if volumeflag.Volume() == "" {
		return fmt.Errorf("no volume specified: use --volume, $ECSFS_VOLUME or set volume in %s", config.Path())
	}

	e := &env{
		cfg:      cfg,
		volume:   volumeflag.Volume(),
		readOnly: cmd.readOnly,
		stdout:   stdout,
	}
	if *debug {
		e.opts = append(e.opts, fs.WithLogger(log.New(os.Stderr, "ecsfs: ", log.Lmicroseconds)))
	}
	if err := cmd.run(e, fset.Args()[1:]); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func checkArgs(args []string, min, max int, usage string) error {
	if len(args) < min || len(args) > max {
		return fmt.Errorf("usage: ecsfs %s", strings.TrimSpace(usage))
	}
	return nil
}

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(2)
		}
		log.Fatalf("ecsfs: %v", err)
	}
}
