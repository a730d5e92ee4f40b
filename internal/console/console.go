// Package console is the interactive terminal front end of a session.
package console

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dimiro1/banner"

	"github.com/petasbytes/toolchat/internal/session"
	"github.com/petasbytes/toolchat/memory"
)

// Version is printed under the banner.
var Version = "dev"

const (
	ansiBlue   = "\u001b[94m"
	ansiYellow = "\u001b[93m"
	ansiRed    = "\u001b[91m"
	ansiDim    = "\u001b[2m"
	ansiReset  = "\u001b[0m"
)

type Options struct {
	// Color enables ANSI colors and the colored banner.
	Color bool
	// Banner prints the title art on start.
	Banner bool
	// TranscriptPath is the default target of /export.
	TranscriptPath string
}

type Console struct {
	sess *session.Session
	in   io.Reader
	out  io.Writer
	opts Options
}

func New(sess *session.Session, in io.Reader, out io.Writer, opts Options) *Console {
	return &Console{sess: sess, in: in, out: out, opts: opts}
}

// Run reads prompts until EOF, /quit or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	if c.opts.Banner {
		tpl := "{{ .Title \"toolchat\" \"\" 0 }}\nVersion: " + Version + "\n"
		banner.Init(c.out, true, c.opts.Color, bytes.NewBufferString(tpl))
	}
	fmt.Fprintln(c.out, "Chat with your tools. Type /help for commands, Ctrl-C to quit.")

	scanner := bufio.NewScanner(c.in)
	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, c.paint(ansiBlue, "You")+": ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok = <-inputCh:
			if !ok {
				fmt.Fprintln(c.out)
				return scanner.Err()
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := c.command(ctx, line); quit {
				return nil
			}
			continue
		}
		c.ask(ctx, line)
	}
}

func (c *Console) ask(ctx context.Context, text string) {
	fmt.Fprintln(c.out, c.paint(ansiDim, "Thinking..."))
	msg, err := c.sess.Send(ctx, text)
	if err != nil {
		fmt.Fprintf(c.out, "%s\n", c.paint(ansiRed, err.Error()))
		return
	}
	c.render(msg)
}

func (c *Console) render(m memory.Message) {
	switch {
	case m.Role == memory.RoleUser:
		fmt.Fprintf(c.out, "%s: %s\n", c.paint(ansiBlue, "You"), m.Text)
	case m.IsError():
		fmt.Fprintln(c.out, c.paint(ansiRed, m.Text))
		if m.Detail != "" {
			first, _, _ := strings.Cut(m.Detail, "\n")
			fmt.Fprintf(c.out, "  details: %s\n", first)
		}
	default:
		fmt.Fprintf(c.out, "%s: %s\n", c.paint(ansiYellow, "Assistant"), m.Text)
		if len(m.ToolResults) > 0 {
			fmt.Fprintln(c.out, "🔧 Tool executions:")
			for _, r := range m.ToolResults {
				fmt.Fprintf(c.out, "  %s\n", toolRecordJSON(r))
			}
		}
	}
}

// toolRecordJSON renders one execution the way users see it: tool, args, result.
func toolRecordJSON(r memory.ToolCallResult) string {
	b, err := json.Marshal(struct {
		Tool   string         `json:"tool"`
		Args   map[string]any `json:"args"`
		Result string         `json:"result"`
	}{r.Tool, r.Args, r.Result})
	if err != nil {
		return fmt.Sprintf("%s: %s", r.Tool, r.Result)
	}
	return string(b)
}

func (c *Console) paint(color, s string) string {
	if !c.opts.Color {
		return s
	}
	return color + s + ansiReset
}

const helpText = `Commands:
  /help          show this help
  /tools         show connection status and tools
  /examples      list example prompts
  /ask N         send example N
  /clear         clear the conversation
  /history       print the conversation
  /export [path] write the conversation as JSON
  /quit          exit`

// command handles a slash command and reports whether the REPL should stop.
func (c *Console) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(c.out, helpText)
	case "/tools":
		st := c.sess.Status()
		if st.Pending {
			fmt.Fprintln(c.out, "⏳ Waiting for first query; tools connect on the first message.")
			return false
		}
		if !st.Connected {
			fmt.Fprintf(c.out, "%s\n", c.paint(ansiRed, "Not connected: "+st.Error))
			return false
		}
		fmt.Fprintf(c.out, "✅ Connected to MCP servers\n🔧 %d tools available\n", st.ToolCount)
		for _, p := range st.Providers {
			state := "connected"
			if !p.Connected {
				state = "skipped: " + p.Error
			}
			fmt.Fprintf(c.out, "  [%s] %s (%s, %d tools)\n", p.Name, state, p.Transport, p.Tools)
		}
		for _, d := range st.Tools {
			fmt.Fprintf(c.out, "  - %s: %s\n", d.Name, d.Description)
		}
	case "/examples":
		for i, ex := range session.Examples {
			fmt.Fprintf(c.out, "  %d. %s\n", i+1, ex)
		}
	case "/ask":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(session.Examples) {
			fmt.Fprintf(c.out, "usage: /ask N with N between 1 and %d\n", len(session.Examples))
			return false
		}
		ex := session.Examples[n-1]
		fmt.Fprintf(c.out, "%s: %s\n", c.paint(ansiBlue, "You"), ex)
		c.ask(ctx, ex)
	case "/clear":
		c.sess.Clear()
		fmt.Fprintln(c.out, "Conversation cleared.")
	case "/history":
		h := c.sess.History()
		if len(h) == 0 {
			fmt.Fprintln(c.out, "(empty)")
		}
		for _, m := range h {
			c.render(m)
		}
	case "/export":
		path := arg
		if path == "" {
			path = c.opts.TranscriptPath
		}
		if path == "" {
			fmt.Fprintln(c.out, "usage: /export path")
			return false
		}
		if err := c.sess.ExportTranscript(path); err != nil {
			fmt.Fprintf(c.out, "%s\n", c.paint(ansiRed, "export failed: "+err.Error()))
			return false
		}
		fmt.Fprintf(c.out, "Transcript written to %s\n", path)
	default:
		fmt.Fprintf(c.out, "unknown command %s; try /help\n", name)
	}
	return false
}
