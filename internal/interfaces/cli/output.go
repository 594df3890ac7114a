package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/HyperBlend/pkg/errors"
)

// Output formats accepted by --output.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Terminal palette.
var (
	headerColor  = color.New(color.FgHiBlack, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed, color.Bold)
	idColor      = color.New(color.FgCyan)
)

// TableData is implemented by results that know how to lay themselves out
// as rows.
type TableData interface {
	TableHeaders() []string
	TableRows() [][]string
}

func validateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, FormatYAML, FormatTable:
		return nil
	}
	return errors.InvalidParam(fmt.Sprintf("unsupported output format %q (want json, yaml or table)", format))
}

// PrintResult writes data to stdout in the format selected by --output.
// Table output falls back to YAML for values that are not TableData.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := FormatJSON
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = strings.ToLower(cliCtx.OutputFormat)
	}
	out := cmd.OutOrStdout()

	switch format {
	case FormatYAML:
		return printYAML(out, data)
	case FormatTable:
		if td, ok := data.(TableData); ok {
			_, err := fmt.Fprint(out, renderTable(td.TableHeaders(), td.TableRows()))
			return err
		}
		return printYAML(out, data)
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}

// printYAML round-trips through JSON so field names follow the json tags.
func printYAML(w io.Writer, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// PrintError writes a formatted error to stderr, with the error code when
// one is attached.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	code := errors.GetCode(err)
	if code != errors.CodeUnknown && code != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [%s] %s\n", errorColor.Sprint("Error:"), code, err.Error())
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", errorColor.Sprint("Error:"), err.Error())
}

// PrintSuccess writes a one-line confirmation to stderr so stdout stays
// machine-readable.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", successColor.Sprint("OK:"), msg)
}

// renderTable renders headers and rows as an aligned table. The first column
// is highlighted as the row key.
func renderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := utf8.RuneCountInString(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	head := make([]string, len(headers))
	sep := make([]string, len(headers))
	for i, h := range headers {
		head[i] = padRight(h, widths[i])
		sep[i] = strings.Repeat("─", widths[i])
	}
	sb.WriteString(headerColor.Sprint(strings.TrimRight(strings.Join(head, "  "), " ")))
	sb.WriteString("\n")
	sb.WriteString(headerColor.Sprint(strings.Join(sep, "  ")))
	sb.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range headers {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			cells[i] = padRight(val, widths[i])
		}
		if len(cells) > 0 {
			cells[0] = idColor.Sprint(cells[0])
		}
		sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
