package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	httpx "media-share-server/http"
	"media-share-server/mount"
	"media-share-server/nfs"
	"media-share-server/tftp"
)

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	loggerHTTP := log.New(os.Stdout, "http ", log.LstdFlags)
	srv := httpx.New(httpx.Config{
		Port:   opts.port,
		Iface:  opts.iface,
		Debug:  opts.debug,
		Logger: loggerHTTP,
	})
	for _, m := range opts.mounts {
		srv.AddMountPoint(m)
		loggerHTTP.Printf("mount point %q", m)
	}

	// A failed start is retried by the frame loop.
	if err := srv.Start(); err == nil {
		loggerHTTP.Printf("Server-Address: %s", srv.Address())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.tftp != "" {
		loggerTFTP := log.New(os.Stdout, "tftp ", log.LstdFlags)
		t, err := tftp.StartTFTPServer(opts.tftp, srv.Mounts(), loggerTFTP)
		if err != nil {
			log.Fatalf("start tftp failure: %v", err)
		}
		defer t.Shutdown()
	}

	if opts.nfs != "" {
		loggerNFS := log.New(os.Stdout, "nfs ", log.LstdFlags)
		ln, err := nfs.StartNFSD(opts.nfs, srv.Mounts(), loggerNFS)
		if err != nil {
			log.Fatalf("start nfsd failure: %v", err)
		}
		defer ln.Close()
	}

	if opts.watch {
		loggerMount := log.New(os.Stdout, "mount ", log.LstdFlags)
		w, err := mount.NewWatcher(srv.Mounts().Dirs(), loggerMount)
		if err != nil {
			loggerMount.Printf("watcher disabled: %v", err)
		} else {
			defer w.Close()
			go w.Run(ctx)
		}
	}

	runFrames(ctx, srv, opts.frame, opts.retry)
	log.Printf("received signal, exiting")
}
