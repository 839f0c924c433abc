package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/gokrazy/ecsfs/disk"
	"github.com/gokrazy/ecsfs/fat"
	"github.com/gokrazy/ecsfs/fs"
	"github.com/gokrazy/ecsfs/humanize"
	"github.com/gokrazy/ecsfs/progress"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/blake2b"
)

func format(e *env, args []string) error {
	fset := pflag.NewFlagSet("format", pflag.ContinueOnError)
	blocks := fset.Int("blocks", e.cfg.Blocks, "total number of blocks of the new volume")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if err := checkArgs(fset.Args(), 0, 0, "format [--blocks N]"); err != nil {
		return err
	}
	if _, err := fat.NewSuperblock(*blocks); err != nil {
		return err
	}
	dev, err := disk.Create(e.volume, *blocks)
	if err != nil {
		return err
	}
	sb, err := fat.Format(dev)
	if err != nil {
		dev.Close()
		return err
	}
	if err := dev.Sync(); err != nil {
		dev.Close()
		return err
	}
	if err := dev.Close(); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "formatted %s: %s, %s of data\n",
		e.volume,
		humanize.Blocks(int(sb.TotalBlocks), disk.BlockSize),
		humanize.Blocks(int(sb.DataBlocks), disk.BlockSize))
	return nil
}

func info(e *env, args []string) error {
	if err := checkArgs(args, 0, 0, "info"); err != nil {
		return err
	}
	return e.mount(func(fsys *fs.FileSystem) error {
		i, err := fsys.Info()
		if err != nil {
			return err
		}
		fmt.Fprint(e.stdout, i.String())
		return nil
	})
}

func ls(e *env, args []string) error {
	if err := checkArgs(args, 0, 0, "ls"); err != nil {
		return err
	}
	return e.mount(func(fsys *fs.FileSystem) error {
		entries, err := fsys.List()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(e.stdout, 0, 8, 1, ' ', 0)
		fmt.Fprintf(tw, "NAME\tSIZE\tBLOCKS\tFIRST\n")
		for _, entry := range entries {
			first := strconv.Itoa(int(entry.FirstBlock))
			if entry.FirstBlock == fat.EOC {
				first = "-"
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", entry.Name, entry.Size, entry.Blocks(), first)
		}
		return tw.Flush()
	})
}

func stat(e *env, args []string) error {
	if err := checkArgs(args, 1, 1, "stat NAME"); err != nil {
		return err
	}
	return e.mount(func(fsys *fs.FileSystem) error {
		f, err := fsys.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		size, err := f.Size()
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%s: %d bytes (%s)\n", f.Name(), size, humanize.Bytes(uint64(size)))
		return nil
	})
}

func cat(e *env, args []string) error {
	if err := checkArgs(args, 1, 1, "cat NAME"); err != nil {
		return err
	}
	return e.mount(func(fsys *fs.FileSystem) error {
		f, err := fsys.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(e.stdout, f)
		return err
	})
}

func sum(e *env, args []string) error {
	if err := checkArgs(args, 1, 1, "sum NAME"); err != nil {
		return err
	}
	return e.mount(func(fsys *fs.FileSystem) error {
		f, err := fsys.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		h, err := blake2b.New256(nil)
		if err != nil {
			return err
		}
		if _, err := io.Copy(h, f); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%s  %s\n", hex.EncodeToString(h.Sum(nil)), f.Name())
		return nil
	})
}

func check(e *env, args []string) error {
	if err := checkArgs(args, 0, 0, "check"); err != nil {
		return err
	}
	return e.mount(func(fsys *fs.FileSystem) error {
		if err := fsys.Check(); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%s: no problems found\n", e.volume)
		return nil
	})
}

func add(e *env, args []string) error {
	if err := checkArgs(args, 1, 2, "add HOSTFILE [NAME]"); err != nil {
		return err
	}
	src, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer src.Close()
	st, err := src.Stat()
	if err != nil {
		return err
	}
	name := filepath.Base(args[0])
	if len(args) > 1 {
		name = args[1]
	}

	return e.mount(func(fsys *fs.FileSystem) error {
		if err := fsys.Create(name); err != nil {
			return err
		}
		f, err := fsys.OpenFile(name)
		if err != nil {
			return err
		}
		defer f.Close()

		var p progress.Reporter
		p.SetStatus("add " + name)
		p.SetTotal(uint64(st.Size()))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Report(ctx)

		n, err := io.Copy(io.MultiWriter(f, p.Writer()), src)
		cancel()
		if errors.Is(err, io.ErrShortWrite) {
			return fmt.Errorf("volume full: only %s of %s written", humanize.Bytes(uint64(n)), humanize.Bytes(uint64(st.Size())))
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "added %s (%s)\n", name, humanize.Bytes(uint64(n)))
		return nil
	})
}

func write(e *env, args []string) error {
	if err := checkArgs(args, 3, 3, "write NAME OFFSET TEXT"); err != nil {
		return err
	}
	offset, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid offset: %w", err)
	}
	return e.mount(func(fsys *fs.FileSystem) error {
		fd, err := fsys.Open(args[0])
		if err != nil {
			return err
		}
		defer fsys.Close(fd)
		if err := fsys.Seek(fd, offset); err != nil {
			return err
		}
		n, err := fsys.Write(fd, []byte(args[2]))
		if err != nil {
			return err
		}
		if n < len(args[2]) {
			return fmt.Errorf("volume full: only %d of %d bytes written", n, len(args[2]))
		}
		return nil
	})
}

func rm(e *env, args []string) error {
	if err := checkArgs(args, 1, 1, "rm NAME"); err != nil {
		return err
	}
	return e.mount(func(fsys *fs.FileSystem) error {
		return fsys.Delete(args[0])
	})
}
