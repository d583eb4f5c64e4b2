package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/esimov/facecam-gl/log"
	"github.com/urfave/cli"
)

var logger = log.New("server")

// httpParams stores the http connection parameters
type httpParams struct {
	address string
	prefix  string
	root    string
}

func main() {
	app := cli.NewApp()
	app.Name = "facecam-server"
	app.Usage = "serve the facecam demo page, wasm binary and assets"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "addr, a",
			Value: "localhost:5000",
			Usage: "address to listen on",
		},
		cli.StringFlag{
			Name:  "root, r",
			Value: ".",
			Usage: "directory to serve",
		},
		cli.StringFlag{
			Name:  "prefix, p",
			Value: "/",
			Usage: "url prefix the root directory is served under",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Action = func(ctx *cli.Context) error {
		setupLogging(ctx)
		return initServer(&httpParams{
			address: ctx.String("addr"),
			prefix:  ctx.String("prefix"),
			root:    ctx.String("root"),
		})
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) {
	log.SetLevel(log.Notice)

	if ctx.Bool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.Bool("vv") {
		log.SetLevel(log.Debug)
	}
}

// newHandler serves the root directory under the prefix, logging every request.
func newHandler(p *httpParams) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(p.prefix, http.StripPrefix(p.prefix, http.FileServer(http.Dir(p.root))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Notice(r.RemoteAddr + " " + r.Method + " " + r.URL.String())
		if strings.HasSuffix(r.URL.Path, ".wasm") {
			w.Header().Set("Content-Type", "application/wasm")
		}
		mux.ServeHTTP(w, r)
	})
}

// initServer initializes the webserver
func initServer(p *httpParams) error {
	var err error
	p.root, err = filepath.Abs(p.root)
	if err != nil {
		return err
	}

	logger.Noticef("serving %s as %s on %s", p.root, p.prefix, p.address)
	httpServer := http.Server{
		Addr:    p.address,
		Handler: newHandler(p),
	}
	return httpServer.ListenAndServe()
}
