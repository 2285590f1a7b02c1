// rdcd is the per-capture replay daemon: it holds one open replay-library
// handle and answers JSON-RPC requests about it until told to shut down.
package main

import (
	"flag"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bananasjim/rdc/internal/adapter"
	"github.com/bananasjim/rdc/internal/config"
	"github.com/bananasjim/rdc/internal/daemon"
	"github.com/bananasjim/rdc/internal/target"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	var (
		listenAddr  = flag.String("listen", "127.0.0.1:0", "address to listen on")
		token       = flag.String("token", "", "authentication token clients must present")
		capture     = flag.String("capture", "", "path to the .rdc capture file to open")
		targetIdent = flag.Int("target-ident", 0, "optional target-control ident to record while this daemon is live (§6.3)")
	)
	flag.Parse()

	if *capture == "" {
		logger.Fatal("--capture is required")
	}
	if *token == "" {
		logger.Fatal("--token is required")
	}

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		logger.Fatal("listen", "addr", *listenAddr, "err", err)
	}
	logger.Info("rdcd listening", "addr", ln.Addr().String(), "capture", *capture)

	capturePath, cleanup, err := adapter.MaybeDecompress(*capture)
	if err != nil {
		logger.Fatal("decompress capture", "capture", *capture, "err", err)
	}
	defer cleanup()

	a := selectAdapter(logger)
	if err := a.Open(capturePath); err != nil {
		logger.Fatal("open capture", "capture", *capture, "err", err)
	}
	defer a.Close()

	if *targetIdent != 0 {
		cfg := config.DefaultConfig()
		store := target.NewStore(cfg.TargetDir)
		var api string
		if ps, err := a.PipelineState(a.CurrentEID()); err == nil {
			api = ps.API
		}
		st := &target.State{
			Ident:       *targetIdent,
			TargetName:  filepath.Base(*capture),
			PID:         os.Getpid(),
			API:         api,
			ConnectedAt: float64(time.Now().Unix()),
		}
		if err := store.Save(st); err != nil {
			logger.Warn("save target state", "ident", *targetIdent, "err", err)
		} else {
			defer store.Delete(*targetIdent)
		}
	}

	srv := daemon.New(ln, *token, a, *capture)
	if err := srv.Serve(); err != nil {
		logger.Error("serve exited", "err", err)
		os.Exit(1)
	}
	logger.Info("rdcd shutting down")
}

// selectAdapter always returns the fake in-memory adapter: the native
// replay library's cgo bindings are out of scope for this module (see
// adapter.nativeAdapter), so this is the one place a future native build
// would swap in adapter.NewNative once those bindings exist. Discover is
// still run so its result can be logged for diagnostic purposes even
// when no RenderDoc install is found.
func selectAdapter(logger *log.Logger) adapter.Adapter {
	if dir, err := adapter.Discover(); err == nil {
		logger.Debug("renderdoc install found but native bindings are not built into this module", "dir", dir)
	} else {
		logger.Debug("no renderdoc install discovered", "err", err)
	}
	return adapter.NewFake()
}
