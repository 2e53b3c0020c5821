package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sei/dom"
	"sei/state"
)

func rewriteText(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	if cmd.Bool("rules") {
		for i, name := range env.Rewriter.Rules() {
			if _, err := fmt.Fprintf(out, "%3d %s\n", i+1, name); err != nil {
				return err
			}
		}
		return nil
	}

	if cmd.NArg() > 0 {
		env.Log.Debug("Rewriting arguments", zap.Int("words", cmd.NArg()))
		_, err := fmt.Fprintln(out, env.Rewriter.Rewrite(strings.Join(cmd.Args().Slice(), " ")))
		return err
	}

	env.Log.Debug("Reading text from STDIN")
	in := cmd.Root().Reader
	if in == nil {
		in = os.Stdin
	}
	return rewriteLines(ctx, in, out, env.Rewriter)
}

// rewriteLines copies r to w line by line rewriting every line.
func rewriteLines(ctx context.Context, r io.Reader, w io.Writer, rw dom.Rewriter) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	bw := bufio.NewWriter(w)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := bw.WriteString(rw.Rewrite(sc.Text()) + "\n"); err != nil {
			return fmt.Errorf("unable to write text: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("unable to read text: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("unable to write text: %w", err)
	}
	return nil
}
