package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/workflow"
)

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	res, err := deps.Conversation.SubmitTurn(deps.Ctx, c.Session, c.Message)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", turnErrorMessage(err))
		return err
	}
	printResult(deps.Stdout, res)
	return nil
}

// Run executes the chat command. Lines starting with a slash are commands;
// anything else is submitted as a turn.
func (c *ChatCmd) Run(deps *Dependencies) error {
	fmt.Fprintf(deps.Stdout, "Chatting in session %q. Type /help for commands.\n", c.Session)

	var lastJob string
	scanner := bufio.NewScanner(deps.Stdin)
	for {
		fmt.Fprint(deps.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(deps.Stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			res, err := deps.Conversation.SubmitTurn(deps.Ctx, c.Session, line)
			if err != nil {
				if deps.Ctx.Err() != nil {
					return deps.Ctx.Err()
				}
				fmt.Fprintf(deps.Stderr, "error: %s\n", turnErrorMessage(err))
				continue
			}
			printResult(deps.Stdout, res)
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(deps.Stdout, chatHelp)
		case "/ingest":
			id, err := deps.Ingester.StartIngestion(deps.Ctx, c.Session, arg)
			if err != nil {
				fmt.Fprintf(deps.Stderr, "error: %s\n", docchat.ErrorMessage(err))
				continue
			}
			lastJob = id
			fmt.Fprintf(deps.Stdout, "Started job %s\n", id)
		case "/status":
			if arg == "" {
				arg = lastJob
			}
			if arg == "" {
				fmt.Fprintln(deps.Stderr, "error: no job started in this chat")
				continue
			}
			job, err := deps.Ingester.GetJobStatus(deps.Ctx, arg)
			if err != nil {
				fmt.Fprintf(deps.Stderr, "error: %s\n", docchat.ErrorMessage(err))
				continue
			}
			printJob(deps, job)
		case "/history":
			turns, err := deps.Conversation.GetHistory(deps.Ctx, c.Session)
			if err != nil {
				fmt.Fprintf(deps.Stderr, "error: %s\n", docchat.ErrorMessage(err))
				continue
			}
			printHistory(deps.Stdout, turns)
		default:
			fmt.Fprintf(deps.Stderr, "error: unknown command %q\n", cmd)
		}
	}
}

const chatHelp = `Commands:
  /ingest <url>   ingest a documentation page in the background
  /status [job]   show the last (or given) ingestion job
  /history        show the conversation so far
  /quit           leave the chat`

// turnErrorMessage adds a hint for sessions without usable documentation.
func turnErrorMessage(err error) string {
	switch docchat.ErrorCode(err) {
	case docchat.ENOTREADY:
		return docchat.ErrorMessage(err) + ". Check progress with 'docchat status <job>'."
	case docchat.ESTATE:
		return docchat.ErrorMessage(err) + ". Ingest a URL first with 'docchat ingest <session> <url>'."
	}
	return docchat.ErrorMessage(err)
}

func printResult(w io.Writer, res *workflow.TurnResult) {
	fmt.Fprintln(w, res.Answer)
	if len(res.Citations) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, c := range res.Citations {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, c)
	}
}
