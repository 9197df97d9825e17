package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Chat with Koro; with no prompt, start an interactive session",
	Long: `Streams Koro's reply as it is generated. Press Ctrl-C while a reply is streaming to stop it;
the partial reply is kept. Press Ctrl-C at the prompt to exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := accessToken()
		if err != nil {
			return err
		}
		u, err := socketURL(tok)
		if err != nil {
			return err
		}
		conn, _, err := websocket.DefaultDialer.Dial(u, nil)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		defer conn.Close()

		c := &chat{conn: conn, messages: make(chan serverMessage)}
		go c.readLoop()

		if len(args) > 0 {
			return c.turn(strings.Join(args, " "))
		}
		return c.interactive()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "session to chat in (default is the current session)")
	rootCmd.AddCommand(chatCmd)
}

type chat struct {
	conn     *websocket.Conn
	messages chan serverMessage
	readErr  error
}

func (c *chat) readLoop() {
	defer close(c.messages)
	for {
		var msg serverMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.readErr = err
			return
		}
		c.messages <- msg
	}
}

func (c *chat) interactive() error {
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		prompt := strings.TrimSpace(in.Text())
		if prompt == "" {
			continue
		}
		if prompt == "/exit" || prompt == "/quit" {
			return nil
		}
		if err := c.turn(prompt); err != nil {
			return err
		}
	}
}

// turn 发送一条消息并打印流式回复，期间 Ctrl-C 取消当前回合。
func (c *chat) turn(prompt string) error {
	if err := c.conn.WriteJSON(clientMessage{Type: "turn", SessionID: chatSessionID, Prompt: prompt}); err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	printed := ""
	for {
		select {
		case <-interrupt:
			if err := c.conn.WriteJSON(clientMessage{Type: "cancel", SessionID: chatSessionID}); err != nil {
				return err
			}
			fmt.Print(" [stopped]")
		case msg, ok := <-c.messages:
			if !ok {
				return fmt.Errorf("connection closed: %w", c.readErr)
			}
			switch msg.Type {
			case "partial":
				printed = printIncrement(printed, msg.Update.Turn.Content)
			case "done":
				if msg.Outcome.Reply != nil {
					printed = printIncrement(printed, msg.Outcome.Reply.Content)
					printCitations(*msg.Outcome.Reply)
				}
				if msg.Outcome.Failure != nil {
					fmt.Printf("\n! %s", msg.Outcome.Failure.Content)
				}
				fmt.Println()
				return nil
			case "error":
				log.Printf("error: %s", msg.Error)
				return nil
			}
		}
	}
}

// printIncrement 只打印新增的后缀；内容不以已打印部分开头时整体重印。
func printIncrement(printed, content string) string {
	if strings.HasPrefix(content, printed) {
		fmt.Print(content[len(printed):])
	} else {
		fmt.Print("\r\n" + content)
	}
	return content
}

func printCitations(t chatTurn) {
	if len(t.Citations) == 0 {
		return
	}
	fmt.Println("\n\nSources:")
	for i, c := range t.Citations {
		fmt.Printf("  [%d] %s %s\n", i+1, c.Title, c.URL)
	}
}
