package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	FormatJSON  = "json"
	FormatTable = "table"
)

type GlobalFlags struct {
	Pretty bool
	Format string
	Debug  bool
}

var globalFlags GlobalFlags

func isFormatTable() bool {
	return strings.ToLower(globalFlags.Format) == FormatTable
}

func printJSON(v interface{}) error {
	var (
		data []byte
		err  error
	)
	if globalFlags.Pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

func newTable(title string, header table.Row) table.Writer {
	t := table.NewWriter()
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(header)
	t.SetStyle(table.StyleLight)
	t.Style().Title.Align = text.AlignCenter
	t.SetOutputMirror(os.Stdout)
	return t
}

// cmdFailed reports err the way the output format asks for.
func cmdFailed(err error) {
	if strings.ToLower(globalFlags.Format) == FormatJSON {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		color.New(color.FgRed).Fprintln(os.Stderr, string(data))
		return
	}
	color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, err)
}

// status prints a one line outcome, green when ok and yellow otherwise.
func status(ok bool, msg string) {
	c := color.New(color.FgYellow)
	if ok {
		c = color.New(color.FgGreen)
	}
	c.Fprintln(os.Stdout, msg)
}
