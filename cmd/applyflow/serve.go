package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/applyflow/applyflow/pkg/events"
	"github.com/applyflow/applyflow/pkg/server"
)

const eventTopic = "chat"

func logChatEvent(msg *message.Message) error {
	e, err := events.DecodeEvent(msg.Payload)
	if err != nil {
		log.Warn().Err(err).Msg("undecodable chat event")
		return nil
	}

	switch e := e.(type) {
	case *events.EventToolCall:
		log.Info().
			Str("session_id", e.Metadata().SessionID).
			Str("tool", e.ToolCall.Name).
			Msg("routing to capability")
	case *events.EventError:
		log.Warn().
			Str("session_id", e.Metadata().SessionID).
			Str("error", e.ErrorString).
			Msg("inference error")
	case *events.EventFinal:
		log.Debug().
			Str("session_id", e.Metadata().SessionID).
			Int("answer_length", len(e.Text)).
			Msg("inference finished")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		orch, store, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		router, err := events.NewEventRouter()
		if err != nil {
			return err
		}
		defer func() { _ = router.Close() }()
		router.AddHandler("log-chat-events", eventTopic, logChatEvent)

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := server.New(orch, store.Kind(), addr,
			server.WithEventSinks(events.NewPublisherSink(router.Publisher, eventTopic)))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return router.Run(ctx)
		})
		eg.Go(func() error {
			<-router.Running()
			return srv.ListenAndServe(ctx)
		})
		eg.Go(func() error {
			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		})
		return eg.Wait()
	},
}
