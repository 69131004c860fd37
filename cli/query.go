package cli

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/robinvdvleuten/beancount/bql"
	"github.com/robinvdvleuten/beancount/ledger"
	"github.com/robinvdvleuten/beancount/loader"
	"github.com/robinvdvleuten/beancount/telemetry"
)

type QueryCmd struct {
	File  FileOrStdin `help:"Beancount input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Query string      `help:"BQL query to run (e.g. SELECT account, SUM(position) GROUP BY account)." arg:""`
}

var (
	queryHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	queryCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func (cmd *QueryCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx := context.Background()

	var collector telemetry.Collector
	if globals.Telemetry {
		collector = telemetry.NewTimingCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)

		defer func() {
			_, _ = fmt.Fprintln(ctx.Stderr)
			collector.Report(ctx.Stderr)
		}()
	}

	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file for error context: %w", err)
	}

	ldr := loader.New(loader.WithFollowIncludes())
	tree, err := cmd.File.LoadAST(runCtx, ldr)
	if err != nil {
		renderer := NewErrorRenderer(sourceContent)
		formatted := renderer.Render(err)
		_, _ = fmt.Fprintln(ctx.Stderr, formatted)

		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
		return NewCommandError(1)
	}

	l := ledger.New()
	if err := l.Process(runCtx, tree); err != nil {
		var validationErrors *ledger.ValidationErrors
		if stdErrors.As(err, &validationErrors) {
			renderer := NewErrorRenderer(sourceContent)
			formatted := renderer.RenderAll(validationErrors.Errors)
			_, _ = fmt.Fprintln(ctx.Stderr, formatted)

			_, _ = fmt.Fprintln(ctx.Stderr)
			printError(ctx.Stderr, fmt.Sprintf("%d validation error(s) found", len(validationErrors.Errors)))
			return NewCommandError(1)
		}
		return err
	}

	query, err := bql.ParseQuery([]byte(cmd.Query))
	if err != nil {
		printError(ctx.Stderr, fmt.Sprintf("query error: %s", err))
		return NewCommandError(1)
	}

	result, err := bql.NewExecutor(l, tree.Directives).Execute(query)
	if err != nil {
		printError(ctx.Stderr, fmt.Sprintf("query error: %s", err))
		return NewCommandError(1)
	}

	renderQueryResult(os.Stdout, result)

	return nil
}

// renderQueryResult draws a query's result table with bordered headers,
// matching the styling vocabulary the rest of the CLI uses for terminal
// output.
func renderQueryResult(w io.Writer, result *bql.Result) {
	if len(result.Rows) == 0 {
		printInfof(w, "0 rows")
		return
	}

	rows := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		rows[i] = cells
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return queryHeaderStyle.Padding(0, 1)
			}
			return queryCellStyle
		}).
		Headers(result.Columns...).
		Rows(rows...)

	_, _ = fmt.Fprintln(w, t.Render())
	printInfof(w, "%d row(s)", len(result.Rows))
}
