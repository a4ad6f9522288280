package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Seednode/eitheror/games/eitheror"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("eitheror v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		log.Debug().
			Str("size", humanReadableSize(int64(written))).
			Str("client", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("SERVE: Version page")
	}
}

// server holds everything ServePage wires together.
type server struct {
	cfg      *Config
	log      zerolog.Logger
	registry *eitheror.Registry
	router   *eitheror.Router
	mux      *httprouter.Router
	errs     chan error
}

func newServer(cfg *Config, log zerolog.Logger, archive eitheror.Archive) (*server, error) {
	questions, err := eitheror.LoadQuestions(cfg.questions)
	if err != nil {
		return nil, err
	}

	registry, err := eitheror.NewRegistry(&eitheror.Config{
		Questions: questions,
		Room: eitheror.RoomOptions{
			MaxPlayers:    cfg.maxPlayers,
			AllowLateJoin: cfg.allowLateJoin,
		},
		IdleTimeout: cfg.sessionTimeout,
		AutoAdvance: cfg.autoAdvance,
		Archive:     archive,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	router, err := eitheror.NewRouter(&eitheror.RouterConfig{
		Registry:  registry,
		RateLimit: rate.Limit(cfg.rateLimit),
		RateBurst: cfg.rateBurst,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	s := &server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		router:   router,
		mux:      httprouter.New(),
		errs:     make(chan error, 64),
	}

	s.routes(archive)

	log.Info().Int("questions", questions.Len()).Msg("GAMES: Loaded question pool")

	return s, nil
}

func (s *server) routes(archive eitheror.Archive) {
	cfg, mux := s.cfg, s.mux

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		s.log.Error().Interface("panic", i).Str("path", r.URL.Path).Msg("SERVE: Recovered from panic")

		serveErrorPage(cfg, w, http.StatusInternalServerError, "An error has occurred. Please try again.")
	}

	mux.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveErrorPage(cfg, w, http.StatusNotFound, "Page not found.")
	})

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, s.registry, s.log, s.errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, s.errs))

	mux.GET(cfg.prefix+"/results", serveResults(cfg, archive, s.log, s.errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, s.errs))

	mux.GET(cfg.prefix+"/room/:code/qr", serveQR(cfg, s.registry, s.log, s.errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, s.log, s.errs))

	mux.GET(cfg.prefix+"/ws", serveSocket(cfg, s.router, s.log))

	if cfg.profile {
		registerProfileHandlers(cfg, mux, s.log)
	}
}

// drainErrors logs response write failures until ctx is done.
func (s *server) drainErrors(ctx context.Context) error {
	for {
		select {
		case err := <-s.errs:
			s.log.Debug().Err(err).Msg("SERVE: Failed to write response")
		case <-ctx.Done():
			return nil
		}
	}
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	log := newLogger(cfg, os.Stdout)

	log.Info().Msgf("START: eitheror v%s", releaseVersion)

	archive, closeArchive, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeArchive()

	if cfg.redisAddr != "" {
		log.Info().Str("addr", cfg.redisAddr).Msg("GAMES: Archiving results to Redis")
	}

	s, err := newServer(cfg, log, archive)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           s.mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.registry.Run(gctx)
	})

	g.Go(func() error {
		return s.drainErrors(gctx)
	})

	g.Go(func() error {
		log.Info().Msgf("SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	log.Info().Msg("STOP: eitheror shut down")

	return err
}
