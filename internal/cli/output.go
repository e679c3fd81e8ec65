package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ratio1/graph_sdk_go/pkg/store"
	"github.com/Ratio1/graph_sdk_go/pkg/threads"
)

var (
	keyColor   = color.New(color.FgCyan)
	labelColor = color.New(color.FgYellow)
	okColor    = color.New(color.FgGreen)
)

// print writes v as indented JSON, or through text when --format=text.
func (a *app) print(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.opts.format == formatText && text != nil {
		text(w)
		return nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func (a *app) done(cmd *cobra.Command, what string) error {
	return a.print(cmd, map[string]any{"ok": true}, func(w io.Writer) {
		okColor.Fprintf(w, "%s\n", what)
	})
}

func compactJSON(v any) string {
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func writeItem(w io.Writer, item store.Item) {
	keyColor.Fprintf(w, "%s/%s", strings.Join(item.Namespace, "."), item.ID)
	fmt.Fprintf(w, " %s", compactJSON(item.Data))
	if len(item.Metadata) > 0 {
		labelColor.Fprint(w, " meta=")
		fmt.Fprint(w, compactJSON(item.Metadata))
	}
	fmt.Fprintln(w)
}

func writeThread(w io.Writer, thread threads.Thread) {
	keyColor.Fprint(w, thread.ThreadID)
	if thread.Status != "" {
		fmt.Fprintf(w, " [%s]", thread.Status)
	}
	if len(thread.Metadata) > 0 {
		labelColor.Fprint(w, " meta=")
		fmt.Fprint(w, compactJSON(thread.Metadata))
	}
	fmt.Fprintln(w)
}

func writeState(w io.Writer, label string, state threads.ThreadState) {
	if label != "" {
		labelColor.Fprintf(w, "%s ", label)
	}
	keyColor.Fprint(w, state.CheckpointID())
	fmt.Fprintf(w, " %s\n", compactJSON(state.Values))
}

// parseJSONObject decodes a flag value holding a JSON object. Empty input
// yields nil.
func parseJSONObject(flag, raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", flag, err)
	}
	return out, nil
}

// parseJSONValue decodes any JSON document; values that are not valid JSON
// are kept as plain strings.
func parseJSONValue(raw string) any {
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return raw
	}
	return out
}

// splitNamespace turns "a.b.c" into its segments. An empty string is the root
// namespace.
func splitNamespace(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	return strings.Split(raw, ".")
}
