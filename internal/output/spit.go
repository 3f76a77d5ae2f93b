// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/nemo-hyperpod/cfnpack/internal/config"
	"github.com/nemo-hyperpod/cfnpack/internal/filters"
	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

// Options control text rendering.
type Options struct {
	Format string
	Titles bool
	Color  bool
	// Filter selects rows of the text tables, see filters.FilterRows.
	Filter string
	// Sort is a comma-separated list of columns, see SortDataset.
	Sort    string
	Padding int
}

// Dataset is a table of rows keyed by column name. Columns fixes the order
// in which they are rendered.
type Dataset struct {
	Header  string
	Columns []string
	Rows    []map[string]interface{}
	Footer  string
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	case time.Duration:
		return value.String()
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}

// Bytes renders a byte count the way humans read it.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Spit writes payload as json or yaml, or renders the datasets as text
// tables. The structured formats always carry the full payload; the tables
// are a summary of it.
func Spit(w io.Writer, payload any, datasets []Dataset, opts Options) error {
	if w == nil {
		w = os.Stdout
	}

	switch opts.Format {
	case "json":
		b, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(payload)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		for _, ds := range datasets {
			if opts.Filter != "" {
				ds.Rows = filters.FilterRows(ds.Rows, opts.Filter)
			}
			if opts.Sort != "" {
				SortDataset(ds.Rows, opts.Sort)
			}
			TableWriter(ds, opts, w)
		}
		return nil
	}
}

// TableWriter renders the dataset in a tabular form honoring color, titles
// and padding options.
func TableWriter(ds Dataset, opts Options, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}

	// We initialize the table styles.
	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left).Bold(true)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	// And then color styles if --color is present.
	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(headerColor)
		evenRowStyle = evenRowStyle.Foreground(evenColor)
		oddRowStyle = oddRowStyle.Foreground(oddColor)
	}

	if ds.Header != "" {
		fmt.Fprintln(w, headerStyle.Render(ds.Header))
	}

	if len(ds.Rows) > 0 {
		rows := make([][]string, 0, len(ds.Rows))
		for _, result := range ds.Rows {
			row := make([]string, 0, len(ds.Columns))
			for _, col := range ds.Columns {
				row = append(row, InterfaceToString(result[col], "-"))
			}
			rows = append(rows, row)
		}

		pad := opts.Padding
		if pad == 0 {
			pad = 2
		}
		t := table.New().
			BorderBottom(false).
			BorderTop(false).
			BorderLeft(false).
			BorderRight(false).
			Border(lipgloss.HiddenBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				var style lipgloss.Style
				switch {
				case row == table.HeaderRow:
					style = headerStyle
				case row%2 == 0:
					style = evenRowStyle
				default:
					style = oddRowStyle
				}

				if col > 0 {
					style = style.PaddingLeft(pad)
				}

				return style
			}).
			Headers().
			Rows(rows...)

		if opts.Titles {
			// https://github.com/charmbracelet/lipgloss/issues/261
			t = t.Headers(ds.Columns...).BorderHeader(false)
		}
		fmt.Fprintln(w, t)
	}

	if ds.Footer != "" {
		fmt.Fprintln(w, headerStyle.Render(ds.Footer))
	}
}

// ColorDefault reports whether colored output suits stdout: it must be a
// terminal and NO_COLOR must be unset.
func ColorDefault() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// getColors returns configured color values for table rendering. Each color is
// selected based on terminal background color and brightness so that we can
// make sure output is reasonably visible for all(?) terminal themes.
func getColors(key string) (header, even, odd color.Color) {
	isDark := true
	if term.IsTerminal(int(os.Stdout.Fd())) {
		isDark = lipgloss.HasDarkBackground(os.Stdin, os.Stdout)
	}

	// Use the explicit color if found in the config and leave it up to the user
	// to choose appropriate colors for their theme. If not found, pick a
	// reasonable default based on terminal background.
	resolveColor := func(key string, light string, dark string) color.Color {
		colorCfg, err := config.GetString(key)
		if err == nil {
			return lipgloss.Color(colorCfg)
		}

		if isDark {
			return lipgloss.Color(dark)
		}
		return lipgloss.Color(light)
	}

	header = resolveColor(key+".title", "#b08800", "#f6be00")
	even = resolveColor(key+".even", "#333333", "#ffffff")
	odd = resolveColor(key+".odd", "#0088a0", "#00c8f0")
	log.Tracef("table colors: dark=%t", isDark)

	return
}
