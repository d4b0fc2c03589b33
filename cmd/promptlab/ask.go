package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/promptlab/internal/console"
	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
)

const defaultQuestion = "What is the best French cheese?"

func (a *app) askCommand() *cobra.Command {
	var askKey bool
	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send one message and print the complete reply, then the streamed reply",
		Long: "ask sends a single user message without profile context. The reply is printed twice: " +
			"once from a complete (non-streaming) call and once fragment by fragment from a streaming call.",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := a.chatProvider(askKey)
			if err != nil {
				return err
			}
			question, err := a.readInput(args, defaultQuestion)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			req := llm.ChatRequest{
				Model:    a.cfg.ChatModel(a.cfg.LLMProvider),
				Messages: []llm.Message{{Role: llm.RoleUser, Content: question}},
			}
			resp, err := provider.ChatCompletion(ctx, req)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Fprintln(a.out, resp.Content) //nolint:errcheck

			stream, err := provider.ChatCompletionStream(ctx, req)
			if err != nil {
				return fmt.Errorf("ask stream: %w", err)
			}
			con := console.New(a.out)
			_, err = llm.Collect(stream, con.StreamFragment)
			con.StreamEnd()
			if err != nil {
				return fmt.Errorf("ask stream: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&askKey, "ask-key", false, "prompt for the API key when it is not configured")
	return cmd
}
