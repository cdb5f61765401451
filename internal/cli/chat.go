package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shlokDS16/flow-state-studio/internal/assistant"
	"github.com/shlokDS16/flow-state-studio/internal/chat"
)

func (a *app) newConversation(ctx context.Context) (*chat.Conversation, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	completer, err := chat.NewCompleter(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	exec := assistant.NewExecutor(s, a.logger, assistant.WithClock(timeNow))
	return chat.NewConversation(exec, s, completer, a.logger), nil
}

// send runs one message and prints the reply. On a terminal the finished reply is
// rendered as Markdown; otherwise deltas are written as they arrive.
func (a *app) send(ctx context.Context, conv *chat.Conversation, text string) chat.Message {
	if a.gf.JSON {
		msg := conv.Send(ctx, text, nil)
		_ = a.writeJSON(msg)
		return msg
	}
	if isTerminal(a.stdout) && !a.gf.Plain {
		msg := conv.Send(ctx, text, nil)
		fmt.Fprintln(a.stdout, a.renderReply(msg.Content))
		return msg
	}
	msg := conv.Send(ctx, text, func(delta string) {
		fmt.Fprint(a.stdout, delta)
	})
	fmt.Fprintln(a.stdout)
	return msg
}

func (a *app) askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message to the assistant",
		Long: `Send one plain-English message, for example:
  flowstate ask "Create a task called Buy milk, tomorrow, high"
  flowstate ask "Move Buy milk to done"
  flowstate ask "list my tasks"`,
		Args: minArgs(1, `ask "<message>"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := a.newConversation(cmd.Context())
			if err != nil {
				return err
			}
			a.send(cmd.Context(), conv, strings.Join(args, " "))
			return nil
		},
	}
}

func (a *app) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant interactively",
		Args:  exactArgs(0, "chat"),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := a.newConversation(cmd.Context())
			if err != nil {
				return err
			}
			interactive := isTerminal(a.stdout)
			if interactive {
				fmt.Fprintln(a.stdout, a.heading("flowstate chat")+`  (type "help" for commands, "exit" to quit)`)
			}
			scanner := bufio.NewScanner(a.stdin)
			for {
				if interactive {
					fmt.Fprint(a.stdout, "> ")
				}
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				switch strings.ToLower(line) {
				case "":
					continue
				case "exit", "quit", "/exit", "/quit":
					return nil
				}
				a.send(cmd.Context(), conv, line)
			}
			return scanner.Err()
		},
	}
}
