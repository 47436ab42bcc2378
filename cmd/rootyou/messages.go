package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/rootyou/rootyou/internal/access"
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Direct messaging with other users",
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List your conversations",
	RunE:  runConversations,
}

var messagesOpenCmd = &cobra.Command{
	Use:   "open <conversation-id>",
	Short: "Show a conversation's history",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessagesOpen,
}

var messagesStartCmd = &cobra.Command{
	Use:   "start <email>",
	Short: "Open a conversation with another user",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessagesStart,
}

var messagesSendCmd = &cobra.Command{
	Use:   "send <conversation-id> <texte>",
	Short: "Send a message",
	Args:  cobra.ExactArgs(2),
	RunE:  runMessagesSend,
}

var messagesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the unread message counter until interrupted",
	RunE:  runMessagesWatch,
}

func init() {
	messagesCmd.AddCommand(conversationsCmd, messagesOpenCmd, messagesStartCmd, messagesSendCmd, messagesWatchCmd)
	rootCmd.AddCommand(messagesCmd)
}

func runConversations(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	convs, err := a.client.Conversations(cmd.Context())
	if err != nil {
		return a.handleUnauthorized(err)
	}
	if len(convs) == 0 {
		fmt.Println("Aucune conversation.")
		return nil
	}
	for _, c := range convs {
		badge := ""
		if c.Unread > 0 {
			badge = fmt.Sprintf(" [%d non lus]", c.Unread)
		}
		fmt.Printf("%4d  %-20s %s%s\n", c.ID, c.OtherPseudo, c.LastMessage, badge)
	}
	return nil
}

func runMessagesOpen(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	conv, err := a.client.GetConversation(cmd.Context(), id)
	if err != nil {
		return a.handleUnauthorized(err)
	}

	fmt.Printf("Conversation avec %s\n", conv.OtherPseudo)
	for _, m := range conv.Messages {
		who := conv.OtherPseudo
		if m.SenderEmail == sess.Email {
			who = "vous"
		}
		fmt.Printf("  [%s] %s: %s\n", m.SentAt.Local().Format("02/01 15:04"), who, m.Contenu)
	}
	return nil
}

func runMessagesStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapMessage); err != nil {
		return err
	}

	id, err := a.client.StartConversation(cmd.Context(), args[0])
	if err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Printf("Conversation %d ouverte avec %s.\n", id, args[0])
	return nil
}

func runMessagesSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapMessage); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := a.client.SendMessage(cmd.Context(), id, args[1]); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Println("Message envoyé.")
	return nil
}

func runMessagesWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	var last atomic.Int64
	last.Store(-1)
	fetch := func(ctx context.Context) error {
		n, err := a.client.UnreadCount(ctx)
		if err != nil {
			return err
		}
		if int64(n) != last.Swap(int64(n)) {
			fmt.Printf("Messages non lus: %d\n", n)
		}
		return nil
	}

	fmt.Printf("Surveillance des messages non lus (toutes les %s, Ctrl-C pour arrêter)\n", a.cfg.Polling.UnreadInterval)
	return a.watch(cmd.Context(), "unread", a.cfg.Polling.UnreadInterval, fetch)
}
