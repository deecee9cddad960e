package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"brdchat/internal/engine"

	"al.essio.dev/pkg/shellescape"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session <doc-id>",
	Short: "Start a chat session for a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		eng, store, err := setup(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer store.Close()

		sessionID, welcome, err := eng.CreateSession(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		fmt.Printf("💬 Session %s\n\n%s\n\n", sessionID, welcome)
		fmt.Println(dimStyle.Render("Continue with: " + chatHint(args[0], sessionID)))
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <doc-id> [message...]",
	Short: "Send a message, or start an interactive chat when no message is given",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		eng, store, err := setup(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer store.Close()

		docID := args[0]
		sessionID, _ := cmd.Flags().GetString("session")
		explicit, _ := cmd.Flags().GetString("command")
		if sessionID == "" {
			id, welcome, err := eng.CreateSession(ctx, docID)
			if err != nil {
				log.Fatalf("Failed to create session: %v", err)
			}
			sessionID = id
			fmt.Printf("%s %s\n\n", roleTag("system"), welcome)
		}

		if len(args) > 1 || explicit != "" {
			turn(ctx, eng, engine.Request{
				DocumentID: docID,
				SessionID:  sessionID,
				Message:    strings.Join(args[1:], " "),
				Command:    explicit,
			})
			fmt.Println(dimStyle.Render("Continue with: " + chatHint(docID, sessionID)))
			return
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for {
			fmt.Printf("%s ", roleTag("user"))
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}
			turn(ctx, eng, engine.Request{DocumentID: docID, SessionID: sessionID, Message: line})
		}
		if err := scanner.Err(); err != nil {
			log.Fatalf("Failed to read input: %v", err)
		}
	},
}

func init() {
	chatCmd.Flags().StringP("session", "s", "", "Session id (a new session is created when empty)")
	chatCmd.Flags().String("command", "", "Explicit command: 'list', 'show N' or 'update N: instruction'")
}

func turn(ctx context.Context, eng *engine.Engine, req engine.Request) {
	reply, err := eng.HandleMessage(ctx, req)
	if err != nil {
		log.Fatalf("Chat failed: %v", err)
	}
	fmt.Printf("%s %s\n\n", roleTag("assistant"), reply.Text)
	if reply.Updated {
		fmt.Printf("💾 Section %d saved.\n\n", reply.Section)
	}
}

// chatHint is a shell command that resumes the session.
func chatHint(docID, sessionID string) string {
	return fmt.Sprintf("brdchat chat %s --session %s", shellescape.Quote(docID), shellescape.Quote(sessionID))
}
