package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatSessionID string
var chatStream bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		orch, _, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		sessionID := chatSessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		fmt.Printf("Session %s. Type q to quit.\n", sessionID)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("Query: ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			query := scanner.Text()
			if query == "q" {
				return nil
			}
			if query == "" {
				continue
			}

			if chatStream {
				_, err = orch.RespondStream(cmd.Context(), sessionID, query, func(chunk string) error {
					fmt.Print(chunk)
					return nil
				})
				fmt.Println()
			} else {
				var answer string
				answer, err = orch.Respond(cmd.Context(), sessionID, query)
				if err == nil {
					fmt.Println(answer)
				}
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			fmt.Println()
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Session id to continue, defaults to a new one")
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "Stream the answer as it is produced")
}
