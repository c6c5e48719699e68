package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/linchenxuan/strixwire"
	"github.com/linchenxuan/strixwire/config"
	"github.com/linchenxuan/strixwire/log"
	"github.com/linchenxuan/strixwire/network/codec"
	"github.com/linchenxuan/strixwire/network/serializer"
	"github.com/linchenxuan/strixwire/network/transport"
)

// appFlags are shared by every command that needs a registry.
type appFlags struct {
	config  string
	schemas string
}

func (f *appFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "config file (.toml, .yaml or .yml)")
	fs.StringVar(&f.schemas, "schema", "", "comma separated descriptor set files, overrides registry.schemaFiles")
}

func (f *appFlags) load() (*strixwire.App, error) {
	cfg := config.Default()
	cfg.Log.LogLevel = log.ErrorLevel
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return nil, err
		}
	}
	if f.schemas != "" {
		cfg.Registry.SchemaFiles = splitList(f.schemas)
	}

	app, err := strixwire.NewApp(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := app.InitFromConfig(); err != nil {
		app.Stop()
		return nil, err
	}
	return app, nil
}

func runTypes(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("types", flag.ContinueOnError)
	var af appFlags
	af.register(fs)
	role := fs.String("role", "", "only list one role: request, response, notify, shared or none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := af.load()
	if err != nil {
		return err
	}
	defer app.Stop()
	r, err := app.Packer.Registry()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tNAME\tROLE\tSTATUS")
	for _, pi := range r.All() {
		if *role != "" && !strings.EqualFold(*role, pi.MsgReqType.String()) {
			continue
		}
		fmt.Fprintf(tw, "%d\t0x%08X\t%s\t%s\t%t\n", pi.Index, pi.ID, pi.FullName, pi.MsgReqType, pi.HasStatus())
	}
	return tw.Flush()
}

type decodeStats struct {
	frames  int
	bytes   int
	byState map[transport.DecodeStatus]int
}

func runDecode(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	var af appFlags
	af.register(fs)
	in := fs.String("in", "-", "capture file of concatenated frames, - for stdin")
	tagFlag := fs.String("tag", "", "transform tag of the bodies, e.g. compressed|encrypted; defaults to serializer.tag")
	asJSON := fs.Bool("json", false, "print decoded messages as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := af.load()
	if err != nil {
		return err
	}
	defer app.Stop()

	tag := app.Tag
	if *tagFlag != "" {
		if tag, err = serializer.ParseTag(*tagFlag); err != nil {
			return err
		}
	}

	r := io.Reader(os.Stdin)
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	reg, err := app.Packer.Registry()
	if err != nil {
		return err
	}
	stats := decodeStats{byState: map[transport.DecodeStatus]int{}}
	sc := transport.NewFrameScanner(r, app.Cfg.Transport)
	for sc.Scan() {
		frame := sc.Bytes()
		pl, n, err := app.Packer.UnpackFrame(tag, frame)
		if err != nil {
			return fmt.Errorf("frame %d at offset %d: %w", stats.frames, stats.bytes, err)
		}

		name := "-"
		if pi, ok := reg.ByID(pl.TypeID); ok {
			name = pi.Name
		}
		fmt.Fprintf(out, "#%d offset=%d size=%d corr=%d type=0x%08X name=%s status=%s",
			stats.frames, stats.bytes, n, pl.CorrelationID, pl.TypeID, name, pl.Status)
		if pl.Err != nil {
			fmt.Fprintf(out, " err=%q", pl.Err.Error())
		}
		fmt.Fprintln(out)
		if *asJSON && pl.Msg != nil {
			b, err := codec.JSONCodec{}.Encode(pl.Msg, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %s\n", b)
		}

		stats.frames++
		stats.bytes += n
		stats.byState[pl.Status]++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("after %d frames at offset %d: %w", stats.frames, stats.bytes, err)
	}

	fmt.Fprintf(out, "frames=%d bytes=%d ok=%d unknown=%d invalid=%d\n", stats.frames, stats.bytes,
		stats.byState[transport.DecodeOK], stats.byState[transport.DecodeUnknownType], stats.byState[transport.DecodeInvalidBody])
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var af appFlags
	af.register(fs)
	addr := fs.String("addr", "", "listen address, overrides admin.addr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := af.load()
	if err != nil {
		return err
	}
	defer app.Stop()
	if *addr != "" {
		app.Cfg.Admin.Addr = *addr
	}
	return app.ServeAdmin(ctx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
