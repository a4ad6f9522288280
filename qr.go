package main

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/eitheror/games/eitheror"
)

const qrSize = 320

// joinURL is the home page link that carries the room code.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := cfg.scheme()
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + "/?room=" + url.QueryEscape(code)
}

// serveQR renders a PNG QR code of the join link for an open room.
func serveQR(cfg *Config, registry *eitheror.Registry, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		code := eitheror.NormalizeCode(ps.ByName("code"))
		if _, err := registry.Get(code); err != nil {
			serveErrorPage(cfg, w, http.StatusNotFound, "Room not found.")
			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, code), qrcode.Medium, qrSize)
		if err != nil {
			serveErrorPage(cfg, w, http.StatusInternalServerError, "QR generation failed.")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		log.Debug().
			Str("room", code).
			Str("size", humanReadableSize(int64(written))).
			Str("client", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("SERVE: QR code")
	}
}
