package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Seednode/eitheror/games/eitheror"
)

const (
	defaultResults = 10
	maxResults     = 100
)

// openArchive connects to Redis when an address is configured and falls back
// to discarding results otherwise.
func openArchive(ctx context.Context, cfg *Config) (eitheror.Archive, func() error, error) {
	if cfg.redisAddr == "" {
		return eitheror.NopArchive{}, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	archive, err := eitheror.NewRedisArchive(pingCtx, &eitheror.RedisConfig{
		RedisClient: client,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return archive, client.Close, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultResults, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxResults {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxResults)
	}

	return n, nil
}

// serveResults returns recently finished games as JSON, newest first.
func serveResults(cfg *Config, archive eitheror.Archive, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			securityHeaders(cfg, w)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		results, err := archive.Recent(ctx, limit)
		if err != nil {
			log.Error().Err(err).Msg("SERVE: Failed to load results")
			securityHeaders(cfg, w)
			http.Error(w, "results unavailable", http.StatusServiceUnavailable)
			return
		}

		data, err := json.Marshal(results)
		if err != nil {
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		log.Debug().
			Int("games", len(results)).
			Str("size", humanReadableSize(int64(written))).
			Str("client", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("SERVE: Results")
	}
}

func writeResults(w io.Writer, results []eitheror.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Room", "Finished", "Rounds", "Winner", "Scores"})

	for _, result := range results {
		var winners, scores []string
		for _, s := range result.Standings {
			if s.Rank == 1 {
				winners = append(winners, s.Name)
			}
			scores = append(scores, strings.TrimSpace(fmt.Sprintf("%s %s %d", s.Medal, s.Name, s.Score)))
		}

		t.AppendRow(table.Row{
			result.RoomCode,
			result.FinishedAt.Local().Format(time.DateTime),
			result.Rounds,
			strings.Join(winners, ", "),
			strings.Join(scores, "\n"),
		})
		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{"", "", "", "Games", len(results)})
	t.Render()
}

func newResultsCmd(cfg *Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Print recently finished games from the results archive.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.redisAddr == "" {
				return errors.New("--redis-addr is required to read results")
			}
			if limit < 1 || limit > maxResults {
				return fmt.Errorf("--limit must be between 1 and %d", maxResults)
			}

			archive, closeArchive, err := openArchive(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeArchive()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			results, err := archive.Recent(ctx, limit)
			if err != nil {
				return err
			}

			writeResults(cmd.OutOrStdout(), results)

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultResults, "number of games to show")

	return cmd
}
