// Command scalectl manages stored weight configurations, either on a
// scale-server or in a local single-user store file.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/counting-scale/internal/configstore"
	"github.com/banshee-data/counting-scale/internal/fsutil"
	"github.com/banshee-data/counting-scale/internal/httputil"
	"github.com/banshee-data/counting-scale/internal/scale"
	"github.com/banshee-data/counting-scale/internal/timeutil"
	"github.com/banshee-data/counting-scale/internal/units"
)

const usage = `Usage: scalectl [flags] <command> [args]

Commands:
  list              List stored configurations
  get NAME          Print one configuration as JSON
  save NAME FILE    Save the weight groups in FILE under NAME
  delete NAME       Delete every configuration named NAME

Flags:
`

// env carries the process dependencies so tests can substitute them.
type env struct {
	client httputil.HTTPClient
	fs     fsutil.FileSystem
	clock  timeutil.Clock
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, e env) error {
	fset := flag.NewFlagSet("scalectl", flag.ContinueOnError)
	fset.SetOutput(e.stderr)
	server := fset.String("server", "http://localhost:3001", "scale-server base URL")
	local := fset.String("local", "", "Use a local store file instead of a server")
	tz := fset.String("tz", "UTC", "Timezone for displayed save times")
	fset.Usage = func() {
		fmt.Fprint(e.stderr, usage)
		fset.PrintDefaults()
	}
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() == 0 {
		fset.Usage()
		return errors.New("missing command")
	}
	if !units.IsTimezoneValid(*tz) {
		return fmt.Errorf("invalid timezone %q", *tz)
	}

	var store configstore.Store
	if *local != "" {
		store = configstore.NewLocalStore(e.fs, e.clock, *local)
	} else {
		store = newRemoteStore(e.client, *server)
	}

	cmd, rest := fset.Arg(0), fset.Args()[1:]
	switch cmd {
	case "list":
		return listConfigs(store, e.stdout, *tz)
	case "get":
		if len(rest) != 1 {
			return errors.New("usage: get NAME")
		}
		cfg, err := store.Get(rest[0])
		if err != nil {
			return err
		}
		return writeJSON(e.stdout, cfg)
	case "save":
		if len(rest) != 2 {
			return errors.New("usage: save NAME FILE")
		}
		groups, err := readGroups(e.fs, rest[1])
		if err != nil {
			return err
		}
		saved, err := store.Save(configstore.StoredConfig{Name: rest[0], Groups: groups})
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "saved %q with %d groups\n", saved.Name, len(saved.Groups))
		return nil
	case "delete":
		if len(rest) != 1 {
			return errors.New("usage: delete NAME")
		}
		if err := store.Delete(rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "deleted %q\n", rest[0])
		return nil
	default:
		fset.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func listConfigs(store configstore.Store, out io.Writer, tz string) error {
	configs, err := store.List()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tGROUPS\tPARTS\tSAVED")
	for _, c := range configs {
		parts := 0
		for _, g := range c.Groups {
			parts += g.Count
		}
		saved, err := units.FormatMillis(c.Timestamp, tz)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.Name, len(c.Groups), parts, saved)
	}
	return tw.Flush()
}

// readGroups accepts either a bare array of weight groups or an object
// with a "groups" field, such as the output of "get".
func readGroups(fsys fsutil.FileSystem, path string) ([]scale.WeightGroup, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)

	var groups []scale.WeightGroup
	if len(data) > 0 && data[0] == '{' {
		var cfg configstore.StoredConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		groups = cfg.Groups
	} else if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, g := range groups {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("%s group %d: %w", path, i, err)
		}
	}
	return groups, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	e := env{
		client: httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second}),
		fs:     fsutil.OSFileSystem{},
		clock:  timeutil.RealClock{},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if err := run(os.Args[1:], e); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("scalectl: %v", err)
	}
}
