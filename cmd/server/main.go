package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"code.cloudfoundry.org/lager/v3"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/plexmcp/plexmcp/internal/api"
	"github.com/plexmcp/plexmcp/internal/catalog"
	"github.com/plexmcp/plexmcp/internal/config"
	"github.com/plexmcp/plexmcp/internal/mcp"
	"github.com/plexmcp/plexmcp/internal/tools"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "plexmcp",
		Short: "Plex MCP Server - expose a Plex media library as MCP tools over HTTP/SSE",
		Run:   runServer,
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	logger := lager.NewLogger(mcp.ServerName)
	logger.RegisterSink(lager.NewWriterSink(os.Stdout, cfg.LagerLevel()))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid-configuration", err)
	}

	client, err := catalog.NewClient(logger, cfg.PlexURL, cfg.PlexToken)
	if err != nil {
		logger.Fatal("plex-connection-failed", err, lager.Data{"url": cfg.PlexURL})
	}

	registry := mcp.NewRegistry()
	if err := tools.NewMovies(logger, client).RegisterTools(registry); err != nil {
		logger.Fatal("register-movie-tools", err)
	}
	if err := tools.NewTV(logger, client).RegisterTools(registry); err != nil {
		logger.Fatal("register-tv-tools", err)
	}

	handler := mcp.NewHandler(logger, registry)
	broker := api.NewBroker(logger)
	h := api.NewAPI(logger, handler, broker, client)

	router := mux.NewRouter()
	router.HandleFunc("/", h.Root).Methods("GET")
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/sse", h.SSE).Methods("GET")
	router.HandleFunc("/sse", h.SSEMessage).Methods("POST")
	router.HandleFunc("/messages", h.HandleMessage).Methods("POST")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting", lager.Data{
			"addr":   server.Addr,
			"server": client.ServerName(),
		})
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("server-failed", err)
	case <-shutdown:
		logger.Info("shutting-down")
		server.Close()
		logger.Info("stopped")
	}
}
