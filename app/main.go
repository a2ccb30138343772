package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/transect/tileserver/app/backend"
	"github.com/transect/tileserver/app/server"
	"github.com/transect/tileserver/app/tile"
)

type options struct {
	DB     string `long:"db" env:"DATABASE_URL" description:"postgres://... url for PostGIS or path to an mbtiles file"`
	Layer  string `long:"layer" env:"LAYER" description:"layer definition file (yaml), PostGIS only"`
	Dedup  bool   `long:"dedup" env:"DEDUP" description:"share one backend call between concurrent misses of the same tile"`
	Schema bool   `long:"schema" description:"print json schema of the layer file and exit"`

	Server struct {
		Address           string        `long:"address" env:"ADDRESS" default:"127.0.0.1:8080" description:"listen address"`
		ReadHeaderTimeout time.Duration `long:"read-header-timeout" env:"READ_HEADER_TIMEOUT" default:"5s" description:"read header timeout"`
		WriteTimeout      time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" default:"30s" description:"write timeout"`
		IdleTimeout       time.Duration `long:"idle-timeout" env:"IDLE_TIMEOUT" default:"30s" description:"idle timeout"`
		ShutdownTimeout   time.Duration `long:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" default:"10s" description:"graceful shutdown timeout"`
		RequestsPerSec    float64       `long:"rps" env:"RPS" default:"100" description:"max requests per second per client"`
		MaxConcurrent     int64         `long:"max-concurrent" env:"MAX_CONCURRENT" default:"1000" description:"max concurrent in-flight requests"`
	} `group:"server" namespace:"server" env-namespace:"SERVER"`

	Pg struct {
		MaxConns int `long:"max-conns" env:"MAX_CONNS" default:"1" description:"max open postgres connections"`
	} `group:"pg" namespace:"pg" env-namespace:"PG"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "unknown"

func main() {
	fmt.Printf("tileserver %s\n", revision)

	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	setupLog(opts.Dbg, dbPassword(opts.DB))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}

// run wires the tile source, cache, pipeline and http server, blocking until ctx is canceled.
func run(ctx context.Context, opts options, stdout io.Writer) error {
	if opts.Schema {
		schema, err := backend.LayerSchema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(schema))
		return err
	}

	if opts.DB == "" {
		return errors.New("database url is required, set --db or DATABASE_URL")
	}

	layer := backend.DefaultLayer()
	if opts.Layer != "" {
		l, err := backend.LoadLayer(opts.Layer)
		if err != nil {
			return fmt.Errorf("failed to load layer: %w", err)
		}
		layer = l
	}

	src, err := backend.New(ctx, opts.DB, layer, backend.Opts{MaxConns: opts.Pg.MaxConns})
	if err != nil {
		return fmt.Errorf("failed to make tile source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}()

	svc := tile.NewService(tile.NewMemCache(), src, tile.Config{Dedup: opts.Dedup})
	log.Printf("[INFO] %s", svc)

	srv, err := server.New(server.Deps{Tiles: svc}, server.Config{
		Address:           opts.Server.Address,
		ReadHeaderTimeout: opts.Server.ReadHeaderTimeout,
		WriteTimeout:      opts.Server.WriteTimeout,
		IdleTimeout:       opts.Server.IdleTimeout,
		ShutdownTimeout:   opts.Server.ShutdownTimeout,
		Version:           revision,
		RequestsPerSec:    opts.Server.RequestsPerSec,
		MaxConcurrent:     opts.Server.MaxConcurrent,
	})
	if err != nil {
		return fmt.Errorf("failed to make server: %w", err)
	}

	log.Printf("[INFO] listening on %s", opts.Server.Address)
	return srv.Run(ctx)
}

// dbPassword extracts the password from a postgres url so it can be masked in logs.
func dbPassword(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return ""
	}
	pass, _ := u.User.Password()
	return pass
}

func setupLog(dbg bool, secrets ...string) {
	logOpts := []log.Option{log.Msec, log.LevelBraces, log.StackTraceOnError}
	if dbg {
		logOpts = []log.Option{log.Debug, log.CallerFile, log.CallerFunc, log.Msec, log.LevelBraces, log.StackTraceOnError}
	}

	var nonEmpty []string
	for _, s := range secrets {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, log.Secret(nonEmpty...))
	}
	log.Setup(logOpts...)
}
