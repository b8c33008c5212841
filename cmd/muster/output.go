package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/muster/internal/client"
	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/ui"
)

var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

// printResult shows the bot's reply text followed by the event's roster.
func printResult(res *client.Result) error {
	if jsonOutput {
		return printJSON(res)
	}
	if res.Text != "" {
		fmt.Fprintln(stdout, res.Text)
	}
	if res.Event != nil {
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, ui.RenderEvent(res.Event, displayLoc))
	}
	return nil
}

func printEventList(events []*model.Event) error {
	if jsonOutput {
		return printJSON(events)
	}
	if len(events) == 0 {
		fmt.Fprintln(stdout, ui.RenderMuted("No scheduled events."))
		return nil
	}
	for _, e := range events {
		fmt.Fprintln(stdout, ui.RenderEventLine(e, displayLoc))
	}
	return nil
}

func printTemplates(tmpls []model.RoleTemplate) error {
	if jsonOutput {
		return printJSON(tmpls)
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEMPLATE\tROLES")
	for _, t := range tmpls {
		fmt.Fprintf(w, "%s\t%d\n", t.Name, len(t.Roles))
	}
	return w.Flush()
}

func printJournal(entries []*model.Entry) error {
	if jsonOutput {
		return printJSON(entries)
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTOPIC\tACTOR")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.CreatedAt.In(displayLoc).Format("02/01/2006 15:04:05"), e.Topic, e.Actor)
	}
	return w.Flush()
}

func printMessages(msgs []*client.Message) error {
	if jsonOutput {
		return printJSON(msgs)
	}
	for _, m := range msgs {
		fmt.Fprintf(stdout, "%s %s %s\n", ui.RenderMuted(m.CreatedAt.In(displayLoc).Format("15:04")), ui.RenderAccent("["+m.Kind+"]"), m.Ref)
		if m.Title != "" {
			fmt.Fprintln(stdout, "  "+m.Title)
		}
		fmt.Fprintln(stdout, indent(m.Body))
	}
	return nil
}

func indent(s string) string {
	out := make([]byte, 0, len(s)+16)
	out = append(out, "  "...)
	for i := 0; i < len(s); i++ {
		out = append(out, s[i])
		if s[i] == '\n' && i < len(s)-1 {
			out = append(out, "  "...)
		}
	}
	return string(out)
}
