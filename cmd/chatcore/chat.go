package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/velapay/chatcore"
)

func newChatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive REPL against the engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cleanup, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Printf("chatting as %s — type \"exit\" to quit\n", userID)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if strings.EqualFold(text, "exit") {
					return nil
				}

				reply, err := engine.HandleMessage(cmd.Context(), chatcore.Inbound{
					UserID:         userID,
					ChannelAddress: "repl",
					Text:           text,
				})
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				fmt.Println(reply.Text)
				if reply.Receipt != "" {
					fmt.Printf("receipt: %s\n", reply.Receipt)
				}
			}
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local-user", "user id for the REPL session")
	return cmd
}
