package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"media-share-server/utils"
)

const (
	defaultPort  = 1234
	defaultFrame = 16 * time.Millisecond
	defaultRetry = 5 * time.Second
)

// mountList collects repeated -mount flags in order; order is priority.
type mountList []string

func (m *mountList) String() string { return strings.Join(*m, ",") }

func (m *mountList) Set(v string) error {
	if v == "" {
		return fmt.Errorf("empty mount point")
	}
	*m = append(*m, v)
	return nil
}

type options struct {
	port   int
	mounts mountList
	iface  string
	frame  time.Duration
	retry  time.Duration
	debug  bool
	tftp   string
	nfs    string
	watch  bool
}

func parseOptions(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("media-share-server", flag.ContinueOnError)
	fs.IntVar(&opts.port, "port", defaultPort, "HTTP port")
	fs.Var(&opts.mounts, "mount", "directory to serve; repeat for more, first match wins")
	fs.StringVar(&opts.iface, "iface", "", "interface whose address is advertised (default: first non-loopback)")
	fs.DurationVar(&opts.frame, "frame", defaultFrame, "poll interval, one request at most per frame")
	fs.DurationVar(&opts.retry, "retry", defaultRetry, "interval between start attempts while the listener is down")
	fs.BoolVar(&opts.debug, "debug", false, "log every request")
	fs.StringVar(&opts.tftp, "tftp", "", "also serve the mounts read-only over TFTP on this address (e.g. :69)")
	fs.StringVar(&opts.nfs, "nfs", "", "also export the mounts read-only over NFSv3 on this address (e.g. :2049)")
	fs.BoolVar(&opts.watch, "watch", true, "log media insertion and removal under the mount points")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// validate rejects what cannot work and falls back to defaults for the rest.
func (o *options) validate() error {
	if o.port < 0 || o.port > 65535 {
		return fmt.Errorf("invalid port %d", o.port)
	}
	if o.frame <= 0 {
		log.Printf("[config] frame=%s is invalid, falling back to %s", o.frame, defaultFrame)
		o.frame = defaultFrame
	}
	if o.retry <= 0 {
		log.Printf("[config] retry=%s is invalid, falling back to %s", o.retry, defaultRetry)
		o.retry = defaultRetry
	}
	if len(o.mounts) == 0 {
		log.Printf("[config] no -mount given, serving the current directory")
		o.mounts = mountList{"."}
	}
	for _, addr := range []string{o.tftp, o.nfs} {
		if addr == "" {
			continue
		}
		if _, err := utils.ParsePort(addr); err != nil {
			return err
		}
	}
	return nil
}
