package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/five82/tern/internal/app"
	"github.com/five82/tern/internal/operate"
)

var errNoScope = errors.New("--scope is required")

func newVarsCmd(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vars",
		Short: "List, show, add or edit variables without the terminal UI",
	}
	cmd.AddCommand(
		newVarsListCmd(opts),
		newVarsShowCmd(opts),
		newVarsAddCmd(opts),
		newVarsEditCmd(opts),
	)
	return cmd
}

// withSession opens a headless session for the --scope flow node instance.
func withSession(opts *app.Options, fn func(sess *app.Session, outcomes *app.Outcomes, scope string) error) error {
	scope := strings.TrimSpace(opts.Scope)
	if scope == "" {
		return errNoScope
	}
	outcomes := app.NewOutcomes()
	sess, err := app.Open(*opts, outcomes)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess, outcomes, scope)
}

func newVarsListCmd(opts *app.Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the variables of a flow node instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(opts, func(sess *app.Session, _ *app.Outcomes, scope string) error {
				snap, err := sess.List(cmd.Context(), scope)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(snap.Items)
				}
				return writeVariableTable(out, snap.Items)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print variables as JSON")
	return cmd
}

func newVarsShowCmd(opts *app.Options) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print the full value of a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(sess *app.Session, _ *app.Outcomes, scope string) error {
				v, err := sess.Show(cmd.Context(), scope, args[0])
				if err != nil {
					return err
				}
				value := v.Value
				if !raw {
					value = indentJSON(value)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the value exactly as stored")
	return cmd
}

func newVarsAddCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME VALUE",
		Short: "Add a variable and wait until the server applied it",
		Long: `Add a variable to the flow node instance. VALUE must be JSON text, for
example '"text"', 42 or '{"k":true}'. Use - to read VALUE from stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := readValue(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			return withSession(opts, func(sess *app.Session, outcomes *app.Outcomes, scope string) error {
				if err := sess.Add(cmd.Context(), outcomes, scope, args[0], value); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Variable %q added\n", strings.TrimSpace(args[0]))
				return err
			})
		},
	}
}

func newVarsEditCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "edit NAME VALUE",
		Short: "Change a variable and wait until the server applied it",
		Long: `Change the value of an existing variable. VALUE must be JSON text. Use -
to read VALUE from stdin. An unchanged value makes no request.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := readValue(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			return withSession(opts, func(sess *app.Session, outcomes *app.Outcomes, scope string) error {
				if err := sess.Edit(cmd.Context(), outcomes, scope, args[0], value); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Variable %q updated\n", args[0])
				return err
			})
		},
	}
}

// readValue returns arg, or stdin when arg is "-".
func readValue(stdin io.Reader, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read value from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func writeVariableTable(w io.Writer, items []operate.Variable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVALUE\tSTATE")
	for _, v := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, compactJSON(v.Value), variableState(v))
	}
	return tw.Flush()
}

func variableState(v operate.Variable) string {
	switch {
	case v.HasActiveOperation:
		return "active"
	case v.IsPreview:
		return "preview"
	default:
		return "-"
	}
}

func compactJSON(value string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(value)); err != nil {
		return strings.Join(strings.Fields(value), " ")
	}
	return buf.String()
}

func indentJSON(value string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(value), "", "  "); err != nil {
		return value
	}
	return buf.String()
}
