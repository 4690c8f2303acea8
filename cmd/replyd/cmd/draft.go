package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loqalabs/loqa-reply/internal/inbound"
	"github.com/loqalabs/loqa-reply/internal/llm"
	"github.com/loqalabs/loqa-reply/internal/render"
	"github.com/loqalabs/loqa-reply/internal/reply"
)

// maxConcurrentDrafts bounds parallel model calls for batch drafting.
const maxConcurrentDrafts = 4

var draftCmd = &cobra.Command{
	Use:   "draft [message.eml...]",
	Short: "Draft replies for emails and print them",
	Long: `Draft replies for one or more emails.

The message comes from an RFC 5322 file (--eml, "-" for stdin) or from
--subject and --body. Multi mode prints a summary and three replies,
single mode a summary and one reply.

Extra .eml paths given as arguments are drafted concurrently and printed
in argument order; JSON output is then an array.`,
	RunE: runDraft,
}

func init() {
	f := draftCmd.Flags()
	f.String("eml", "", "read the message from an .eml file (\"-\" for stdin)")
	f.String("subject", "", "message subject")
	f.String("body", "", "message body")
	f.String("tone", "", "tone of the replies, e.g. formal or friendly")
	f.String("language", "", "reply language (default en)")
	f.String("mode", "multi", "single or multi")
	f.Bool("regenerate", false, "ask for fresh variants (multi mode only)")
	f.String("format", "json", "output format: json, text or html")
	f.Int("width", 80, "wrap width for text output")
	rootCmd.AddCommand(draftCmd)
}

func runDraft(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	emlPath, _ := flags.GetString("eml")
	subject, _ := flags.GetString("subject")
	body, _ := flags.GetString("body")
	tone, _ := flags.GetString("tone")
	language, _ := flags.GetString("language")
	modeFlag, _ := flags.GetString("mode")
	regenerate, _ := flags.GetBool("regenerate")
	format, _ := flags.GetString("format")
	width, _ := flags.GetInt("width")

	mode, err := reply.ParseMode(modeFlag)
	if err != nil {
		return err
	}
	switch format {
	case "json", "text", "html":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	var reqs []reply.Request
	if emlPath != "" {
		msg, err := readMessage(cmd.InOrStdin(), emlPath)
		if err != nil {
			return err
		}
		reqs = append(reqs, msg.Request(tone, language, mode, regenerate))
	} else if subject != "" || body != "" {
		reqs = append(reqs, reply.Request{Subject: subject, Body: body, Tone: tone, Language: language, Mode: mode, Regenerate: regenerate})
	}
	for _, path := range args {
		msg, err := readMessage(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		reqs = append(reqs, msg.Request(tone, language, mode, regenerate))
	}
	if len(reqs) == 0 {
		return errors.New("a subject and a body are required (use --eml, --subject and --body, or .eml arguments)")
	}
	for _, req := range reqs {
		if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
			return errors.New("a subject and a body are required (use --eml, --subject and --body, or .eml arguments)")
		}
	}

	generator, err := llm.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm generator: %w", err)
	}
	svc := reply.NewService(generator, time.Duration(cfg.LLM.TimeoutMS)*time.Millisecond, logger)

	results, err := draftAll(cmd.Context(), svc, reqs)
	if err != nil {
		return err
	}
	return writeResults(cmd.OutOrStdout(), results, format, width, len(args) > 0)
}

// draftAll generates replies for every request, preserving order.
func draftAll(ctx context.Context, svc *reply.Service, reqs []reply.Request) ([]reply.Result, error) {
	results := make([]reply.Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDrafts)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := svc.Generate(ctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeResults(w io.Writer, results []reply.Result, format string, width int, batch bool) error {
	switch format {
	case "text":
		for i, res := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, render.Text(res, width))
		}
		return nil
	case "html":
		for _, res := range results {
			out, err := render.HTML(res)
			if err != nil {
				return err
			}
			fmt.Fprint(w, out)
		}
		return nil
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if batch {
		return enc.Encode(results)
	}
	return enc.Encode(results[0])
}

func readMessage(stdin io.Reader, path string) (inbound.Message, error) {
	if path == "-" {
		return inbound.Parse(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return inbound.Message{}, fmt.Errorf("open message: %w", err)
	}
	defer f.Close()
	return inbound.Parse(f)
}
