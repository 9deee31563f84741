// Package main provides the assistant binary: an interactive voice panel
// for the pantry assistant and a viewer for logged conversations.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	assistant "github.com/pantrypal/assistant-core/core"
	"github.com/pantrypal/assistant-core/core/actions/pantry"
	"github.com/pantrypal/assistant-core/core/assist/groq"
	"github.com/pantrypal/assistant-core/core/audio/miniaudio"
	"github.com/pantrypal/assistant-core/core/audio/portaudio"
	"github.com/pantrypal/assistant-core/core/conversationlog"
	"github.com/pantrypal/assistant-core/core/speechcapture/deepgram"
)

const (
	appName = "assistant"

	portaudioBufferSize = 1024
)

func main() {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Voice assistant for your pantry and shopping list",
		Long: `Interactive voice assistant panel for the pantry app.

Speak (or type) a request; answers display directly, while actions that
change your pantry or shopping list ask for confirmation first.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(runCmd(), logCmd())
	return cmd
}

func runCmd() *cobra.Command {
	var (
		dbPath       string
		noVoice      bool
		usePortaudio bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the interactive assistant panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("the assistant panel needs an interactive terminal")
			}
			return runPanel(dbPath, noVoice, usePortaudio)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", defaultDBPath(), "Conversation log database path")
	cmd.Flags().BoolVar(&noVoice, "no-voice", false, "Type requests instead of speaking them")
	cmd.Flags().BoolVar(&usePortaudio, "portaudio", false, "Capture the microphone through portaudio instead of miniaudio")
	return cmd
}

func runPanel(dbPath string, noVoice, usePortaudio bool) error {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GROQ_API_KEY is not set")
	}

	opts := []assistant.SessionOption{
		assistant.WithInferenceClient(groq.NewClient(apiKey)),
	}

	if backendURL := os.Getenv("PANTRY_API_URL"); backendURL != "" {
		var pantryOpts []pantry.ClientOption
		if token := os.Getenv("PANTRY_API_TOKEN"); token != "" {
			pantryOpts = append(pantryOpts, pantry.WithAPIToken(token))
		}
		opts = append(opts, assistant.WithActionExecutor(pantry.NewClient(backendURL, pantryOpts...)))
	}

	voice := !noVoice && os.Getenv("DEEPGRAM_API_KEY") != ""
	if voice {
		var audioIn assistant.AudioInput
		if usePortaudio {
			client, err := portaudio.NewClient(portaudioBufferSize)
			if err != nil {
				return fmt.Errorf("failed to open the microphone: %w", err)
			}
			defer client.Close()
			audioIn = client
		} else {
			client, err := miniaudio.NewClient()
			if err != nil {
				return fmt.Errorf("failed to open the microphone: %w", err)
			}
			defer client.Close()
			audioIn = client
		}

		opts = append(opts,
			assistant.WithSpeechCaptureClient(deepgram.NewCaptureClient()),
			assistant.WithAudioInput(audioIn),
		)
	}

	if dbPath != "" {
		store, err := conversationlog.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open the conversation log: %w", err)
		}
		defer store.Close()
		opts = append(opts, assistant.WithConversationLog(store))
	}

	return startPanel(voice, opts...)
}

func logCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "log [session-id]",
		Short: "List logged conversations, or print one session's transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := conversationlog.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open the conversation log: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return printSession(cmd.Context(), store, args[0])
			}
			return printSessions(cmd.Context(), store)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", defaultDBPath(), "Conversation log database path")
	return cmd
}

func printSessions(ctx context.Context, store *conversationlog.Store) error {
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No logged conversations yet.")
		return nil
	}

	for _, session := range sessions {
		first := session.FirstUtterance
		if first == "" {
			first = "(no utterance)"
		}
		fmt.Printf("%s  %s  %3d messages  %s\n",
			session.ID, session.StartedAt.Local().Format("2006-01-02 15:04"),
			session.Messages, first)
	}
	return nil
}

func printSession(ctx context.Context, store *conversationlog.Store, sessionID string) error {
	messages, err := store.Messages(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return fmt.Errorf("no messages logged for session %q", sessionID)
	}

	for _, msg := range messages {
		fmt.Printf("%-10s %s\n", strings.ToUpper(string(msg.Role))+":", msg.Text)
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "assistant.db"
	}
	return filepath.Join(home, ".local", "share", "pantrypal", "assistant.db")
}
