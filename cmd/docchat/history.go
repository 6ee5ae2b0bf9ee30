package main

import (
	"fmt"
	"io"

	"github.com/fwojciec/docchat"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	turns, err := deps.Conversation.GetHistory(deps.Ctx, c.Session)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docchat.ErrorMessage(err))
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintln(deps.Stdout, "No turns yet.")
		return nil
	}
	printHistory(deps.Stdout, turns)
	return nil
}

func printHistory(w io.Writer, turns []*docchat.Turn) {
	for _, t := range turns {
		fmt.Fprintf(w, "[%d] %s: %s\n", t.Seq, t.Role, t.Content)
		for _, c := range t.Citations {
			fmt.Fprintf(w, "      %s\n", c)
		}
	}
}

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return docchat.Errorf(docchat.EINVALID, "use --force to confirm deletion")
	}

	if err := deps.Conversation.DeleteSession(deps.Ctx, c.Session); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docchat.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted session %q\n", c.Session)
	return nil
}
