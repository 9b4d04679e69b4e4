package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve model files and their summaries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cfg, err := root.newLoader()
			if err != nil {
				return err
			}
			defer l.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           newHandler(l, cfg.RootDir, cmd.OutOrStdout()),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), srv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// serve runs srv until ctx is cancelled.
func serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// modelServer answers inspection requests from one loader.
type modelServer struct {
	loader loader.Loader
}

// newHandler routes:
//
//	GET    /models/{path}   the raw files under rootDir
//	GET    /inspect/{path}  the JSON summary of a model, loaded on first request
//	GET    /assets          the summaries of every loaded model
//	DELETE /assets/{path}   drop a model from the registry
func newHandler(l loader.Loader, rootDir string, accessLog io.Writer) http.Handler {
	s := &modelServer{loader: l}

	r := mux.NewRouter()
	r.HandleFunc("/inspect/{path:.+}", s.handleInspect).Methods(http.MethodGet)
	r.HandleFunc("/assets", s.handleAssets).Methods(http.MethodGet)
	r.HandleFunc("/assets/{path:.+}", s.handleUnload).Methods(http.MethodDelete)
	r.PathPrefix("/models/").Handler(http.StripPrefix("/models/", http.FileServer(http.Dir(rootDir))))

	h := handlers.RecoveryHandler()(r)
	return handlers.LoggingHandler(accessLog, h)
}

func (s *modelServer) handleInspect(w http.ResponseWriter, r *http.Request) {
	url := mux.Vars(r)["path"]
	if r.URL.Query().Get("reload") != "" {
		s.loader.Unload(url)
	}
	asset, err := s.loader.Load(r.Context(), url)
	if err != nil {
		writeError(w, statusFor(err), errors.Wrapf(err, "failed to inspect %s", url))
		return
	}
	writeJSON(w, asset.Summary())
}

func (s *modelServer) handleAssets(w http.ResponseWriter, r *http.Request) {
	summaries := make(map[string]loader.AssetSummary)
	for url, asset := range s.loader.Assets() {
		summaries[url] = asset.Summary()
	}
	writeJSON(w, summaries)
}

func (s *modelServer) handleUnload(w http.ResponseWriter, r *http.Request) {
	if !s.loader.Unload(mux.Vars(r)["path"]) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps a load failure kind to an HTTP status.
func statusFor(err error) int {
	switch loader.KindOf(err) {
	case loader.KindFetchFailure:
		return http.StatusNotFound
	case loader.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error(), Kind: loader.KindOf(err).String()})
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrap(err, "failed to marshal"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
