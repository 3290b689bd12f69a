package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/chatline/internal/app"
	"github.com/dkeye/chatline/internal/client"
	"github.com/dkeye/chatline/internal/domain"
)

const usage = `commands:
  /call NAME   ring a user
  /accept      answer the ringing call
  /decline     reject the ringing call
  /hangup      leave the current call
  /quit        disconnect
anything else is sent to the chat`

func main() {
	fs := pflag.NewFlagSet("chatcli", pflag.ContinueOnError)
	url := fs.StringP("url", "u", "ws://localhost:3000/ws", "websocket endpoint")
	name := fs.StringP("name", "n", "", "name to register")
	level := fs.StringP("log-level", "l", "warn", "log level")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(*level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if *name == "" {
		log.Fatal().Msg("--name is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, client.Options{
		URL:  *url,
		Name: *name,
		Callbacks: client.Callbacks{
			OnState: func(tr client.Transition) {
				line := fmt.Sprintf("* call %s -> %s", tr.From, tr.To)
				if tr.PeerName != "" {
					line += " with " + tr.PeerName
				}
				if tr.Reason != "" {
					line += " (" + tr.Reason + ")"
				}
				fmt.Println(line)
			},
			OnIncoming: func(ic app.IncomingCall) {
				fmt.Printf("* %s is calling, /accept or /decline\n", ic.FromName)
			},
			OnChat: func(m domain.ChatMessage) {
				text := m.Text
				if text == "" && m.HTML != nil {
					text = "[html] " + *m.HTML
				}
				fmt.Printf("[%s] %s: %s\n", time.UnixMilli(m.TS).Format(time.Kitchen), m.User, text)
			},
			OnTyping: func(t domain.Typing) {
				if t.Typing {
					fmt.Printf("* %s is typing...\n", t.User)
				}
			},
			OnClosed: func(err error) {
				if err != nil {
					log.Error().Err(err).Msg("connection lost")
				}
				cancel()
			},
		},
	})
	dialCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer c.Close()
	fmt.Printf("connected as %s\n%s\n", c.Name(), usage)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := run(c, strings.TrimSpace(line)); quit {
				return
			}
		}
	}
}

func run(c *client.Client, line string) bool {
	var err error
	switch {
	case line == "":
		return false
	case line == "/quit":
		return true
	case strings.HasPrefix(line, "/call "):
		err = c.Call(strings.TrimSpace(strings.TrimPrefix(line, "/call ")))
	case line == "/accept":
		err = c.Accept()
	case line == "/decline":
		err = c.Decline()
	case line == "/hangup":
		err = c.Hangup()
	case strings.HasPrefix(line, "/"):
		fmt.Println(usage)
	default:
		_ = c.Typing()
		err = c.Send(line)
	}
	if err != nil {
		fmt.Printf("! %v\n", err)
	}
	return false
}
