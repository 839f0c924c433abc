package volumeflag

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestRegisterPflags(t *testing.T) {
	SetVolume("")
	SetDefault("from-config.img")
	if got, want := Volume(), "from-config.img"; got != want {
		t.Fatalf("Volume() = %q, want %q", got, want)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterPflags(fs)
	if err := fs.Parse([]string{"-v", "flag.img", "ls"}); err != nil {
		t.Fatal(err)
	}
	if got, want := Volume(), "flag.img"; got != want {
		t.Fatalf("Volume() = %q, want %q", got, want)
	}
	SetDefault("ignored.img")
	if got, want := Volume(), "flag.img"; got != want {
		t.Fatalf("Volume() after SetDefault = %q, want %q", got, want)
	}
	if got, want := fs.Args(), []string{"ls"}; len(got) != 1 || got[0] != want[0] {
		t.Fatalf("Args() = %q, want %q", got, want)
	}
}
