package main

import (
	_ "crypto/sha256" // digest.Canonical
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/msitools/msiparser"
	"github.com/msitools/msiparser/internal/log"
	"github.com/msitools/msiparser/msi"
)

func newListMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list_metadata IN",
		Short: "print the summary information of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPackage(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			m := p.Metadata()
			if !isFormatTable() {
				return printJSON(m)
			}
			t := newTable(args[0], table.Row{"Property", "Value"})
			t.AppendRows([]table.Row{
				{"Title", m.Title},
				{"Subject", m.Subject},
				{"Author", m.Author},
				{"Keywords", m.Keywords},
				{"UUID", m.UUID},
				{"Arch", m.Arch},
				{"Languages", strings.Join(m.Languages, ", ")},
				{"Created", m.CreatedAt},
				{"Last saved", m.LastSavedAt},
				{"Created with", m.CreatedWith},
				{"Last saved by", m.LastSavedBy},
				{"Signed", m.IsSigned},
				{"Codepage", m.Codepage + " (" + m.CodepageID + ")"},
				{"Word count", m.WordCount},
				{"Schema", m.Schema},
				{"Comments", m.Comments},
			})
			t.Render()
			return nil
		},
	}
}

type streamRow struct {
	Name   string         `json:"name"`
	Path   string         `json:"path"`
	Size   uint64         `json:"size"`
	Kind   msi.StreamKind `json:"kind"`
	Digest digest.Digest  `json:"digest,omitempty"`
}

func newListStreamsCommand() *cobra.Command {
	var all, withDigest bool
	cmd := &cobra.Command{
		Use:   "list_streams IN",
		Short: "list the streams of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			var rows []streamRow
			for _, s := range c.streams(all) {
				row := streamRow{Name: s.Name, Path: s.Path, Size: s.Size, Kind: s.Kind}
				if withDigest {
					data, err := c.read(s)
					if err != nil {
						log.Warning("skipping unreadable stream", map[string]interface{}{
							log.KeyStream: s.Name,
							log.KeyError:  err,
						})
						continue
					}
					row.Digest = digest.FromBytes(data)
				}
				rows = append(rows, row)
			}

			if isFormatTable() {
				header := table.Row{"Name", "Kind", "Size"}
				if withDigest {
					header = append(header, "Digest")
				}
				t := newTable(args[0], header)
				for _, r := range rows {
					line := table.Row{strconv.Quote(r.Name), r.Kind, humanize.Bytes(r.Size)}
					if withDigest {
						line = append(line, r.Digest.String())
					}
					t.AppendRow(line)
				}
				t.Render()
				return nil
			}
			if !all && !withDigest {
				names := make([]string, len(rows))
				for i, r := range rows {
					names[i] = r.Name
				}
				return printJSON(names)
			}
			if rows == nil {
				rows = []streamRow{}
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include table, system and signature streams")
	cmd.Flags().BoolVar(&withDigest, "digest", false, "add the sha256 digest of every stream")
	return cmd
}

type tableDump struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func newListTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list_tables IN",
		Short: "print the tables of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := msiparser.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "open %s", args[0])
			}
			defer src.Close()

			names, err := src.List()
			if err != nil {
				return err
			}
			dumps := []tableDump{}
			for _, name := range names {
				coll, err := src.Get(name)
				if err != nil {
					log.Warning("skipping table", map[string]interface{}{
						log.KeyTable: name,
						log.KeyError: err,
					})
					continue
				}
				d := tableDump{Name: name, Columns: coll.Columns(), Rows: [][]string{}}
				for coll.Next() {
					d.Rows = append(d.Rows, coll.Strings())
				}
				dumps = append(dumps, d)
			}

			if !isFormatTable() {
				return printJSON(dumps)
			}
			for _, d := range dumps {
				header := make(table.Row, len(d.Columns))
				for i, c := range d.Columns {
					header[i] = c
				}
				t := newTable(d.Name, header)
				for _, r := range d.Rows {
					row := make(table.Row, len(r))
					for i, v := range r {
						row[i] = v
					}
					t.AppendRow(row)
				}
				t.Render()
			}
			return nil
		},
	}
}
