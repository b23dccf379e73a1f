package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/msitools/msiparser/idt"
	"github.com/msitools/msiparser/internal/log"
	"github.com/msitools/msiparser/msi"
)

func newExtractAllCommand() *cobra.Command {
	var (
		all  bool
		jobs int
	)
	cmd := &cobra.Command{
		Use:   "extract_all IN OUT",
		Short: "write every stream of a package into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(args[0])
			if err != nil {
				return err
			}
			defer c.Close()
			out := args[1]
			if err = os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			if jobs < 1 {
				jobs = 1
			}

			var (
				mu      sync.Mutex
				written []string
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			for _, s := range c.streams(all) {
				s := s
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					data, err := c.read(s)
					if err != nil {
						log.Warning("skipping unreadable stream", map[string]interface{}{
							log.KeyStream: s.Name,
							log.KeyError:  err,
						})
						return nil
					}
					path := outputPath(out, s.Name)
					if err = writeFile(path, data); err != nil {
						return errors.Wrapf(err, "writing %s", path)
					}
					mu.Lock()
					written = append(written, path)
					mu.Unlock()
					return nil
				})
			}
			if err = g.Wait(); err != nil {
				return err
			}
			if isFormatTable() {
				t := newTable(out, []interface{}{"File"})
				for _, w := range written {
					t.AppendRow([]interface{}{w})
				}
				t.Render()
				return nil
			}
			if written == nil {
				written = []string{}
			}
			return printJSON(written)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include table, system and signature streams")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "number of streams written at once")
	return cmd
}

func newExtractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract IN OUT STREAM",
		Short: "write one stream of a package into a directory",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			path, err := c.extract(args[1], args[2])
			if err != nil {
				return err
			}
			log.Info("stream written", map[string]interface{}{log.KeyPath: path})
			return nil
		},
	}
}

func newExtractCertificateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract_certificate IN OUT",
		Short: "write the signature streams of a package into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			signed, err := c.extractSignatures(args[1])
			if err != nil {
				return err
			}
			if !signed {
				status(false, "MSI file does not have a digital signature")
				return nil
			}
			status(true, "MSI file has a digital signature")
			return nil
		},
	}
}

func newExportTablesCommand() *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "export_tables IN OUT",
		Short: "write every table of a package as an .idt archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPackage(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			report, err := idt.Export(cmd.Context(), p, args[1], jobs)
			if err != nil {
				return err
			}
			files := make([]string, 0, len(report.Results))
			for _, name := range report.Succeeded() {
				files = append(files, filepath.Join(args[1], name+idt.Ext))
			}
			if isFormatTable() {
				t := newTable(args[1], []interface{}{"Table", "Result"})
				for _, res := range report.Results {
					t.AppendRow([]interface{}{res.Item, result(res)})
				}
				t.Render()
				return nil
			}
			return printJSON(files)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "number of tables written at once")
	return cmd
}

func result(r msi.Result) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return "ok"
}
