package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"kenes-socket-go/pkg/socket"
	"kenes-socket-go/pkg/socket/outgoing"
	"kenes-socket-go/pkg/types"
)

var errQuit = errors.New("quit")

const inputHelp = `Commands:
  /categories [parent]   list chat bot categories
  /response <id>         request a category response
  /external <data>       press an inline callback button
  /form <id>             open a form
  /rate <rating> <chat>  rate the dialog
  /lang <kk|ru|en>       switch language
  /accept /decline /redial /finalize   call actions
  /hangup                end the call
  /cancel                cancel the pending call
  /quit                  leave
Anything else is sent as a chat message.`

// execute runs one line of user input against the client
func execute(client *socket.Client, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return client.SendUserMessage(line)
	}

	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "/quit", "/exit":
		return errQuit
	case "/categories":
		parentID := types.NoParentID
		if len(args) > 0 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}
			parentID = id
		}
		return client.GetCategories(parentID)
	case "/response":
		id, err := int64Arg(args, 0)
		if err != nil {
			return err
		}
		return client.GetResponse(id)
	case "/external":
		if len(args) == 0 {
			return errors.New("callback data is required")
		}
		return client.SendExternal(strings.Join(args, " "))
	case "/form":
		id, err := int64Arg(args, 0)
		if err != nil {
			return err
		}
		return client.SendFormInitialize(id)
	case "/rate":
		rating, err := int64Arg(args, 0)
		if err != nil {
			return err
		}
		chatID, err := int64Arg(args, 1)
		if err != nil {
			return err
		}
		return client.SendUserFeedback(int(rating), chatID)
	case "/lang":
		if len(args) == 0 {
			return errors.New("language is required")
		}
		lang, ok := types.ParseLanguage(args[0])
		if !ok {
			return fmt.Errorf("unsupported language %q", args[0])
		}
		return client.SendUserLanguage(lang)
	case "/accept":
		return client.SendCallAction(types.ActionCallAccept)
	case "/decline":
		return client.SendCallAction(types.ActionCallDecline)
	case "/redial":
		return client.SendCallAction(types.ActionCallRedial)
	case "/finalize":
		return client.SendCallAction(types.ActionFinalize)
	case "/hangup":
		return client.SendRTC(outgoing.RTCFrame{Type: types.RTCHangup}, "")
	case "/cancel":
		return client.SendCancelPendingCall()
	default:
		return fmt.Errorf("unknown command %s, try /help", command)
	}
}

func int64Arg(args []string, index int) (int64, error) {
	if len(args) <= index {
		return 0, fmt.Errorf("argument %d is required", index+1)
	}
	value, err := strconv.ParseInt(args[index], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[index])
	}
	return value, nil
}

// interact feeds lines from in to execute until EOF, /quit or ctx ends
func (r *runtime) interact(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}

			if strings.TrimSpace(line) == "/help" {
				r.printer.printf("%s", inputHelp)
				continue
			}

			err := execute(r.client, line)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case err != nil:
				r.printer.printf("! %v", err)
			}
		}
	}
}
